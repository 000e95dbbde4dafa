// Package linear は多出力の線形ヘッドを提供する。
// 任意の微分可能な損失（複合損失を含む）に対して勾配降下で学習できる。
package linear

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/core/model"
	"github.com/YuminosukeSato/tabloss/core/parallel"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
	"github.com/YuminosukeSato/tabloss/pkg/log"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// Head は pred = X*W + b を出力する線形ヘッド
type Head struct {
	Weights   *mat.Dense // 重み（特徴量数 × 出力数）
	Intercept []float64  // 出力ごとの切片
}

// NewHead はゼロ初期化された線形ヘッドを作成する
func NewHead(features, outputs int) (*Head, error) {
	if features <= 0 || outputs <= 0 {
		return nil, errors.NewValueError("NewHead", "features and outputs must be positive")
	}
	return &Head{
		Weights:   mat.NewDense(features, outputs, nil),
		Intercept: make([]float64, outputs),
	}, nil
}

// Dims は (特徴量数, 出力数) を返す
func (h *Head) Dims() (features, outputs int) {
	return h.Weights.Dims()
}

// Forward は X の各行に対する出力を計算する
func (h *Head) Forward(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	features, outputs := h.Dims()
	if c != features {
		return nil, errors.NewShapeMismatchError("Head.Forward", []int{r, features}, []int{r, c}, "")
	}

	out := mat.NewDense(r, outputs, nil)
	out.Mul(X, h.Weights)
	// ParallelizeWithThresholdを使用して、データサイズに応じて並列化
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := out.RawRowView(i)
			for j, b := range h.Intercept {
				row[j] += b
			}
		}
	})
	return out, nil
}

// Fit は全バッチ勾配降下で重みを更新し、エポックごとの損失を返す。
// 勾配は dL/dW = X^T G、dL/db = G の列和（G は予測に対する損失の勾配）。
func (h *Head) Fit(ctx context.Context, X, target mat.Matrix, loss model.Differentiable, opts ...Option) ([]float64, error) {
	o := defaultFitOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.learningRate <= 0 || math.IsNaN(o.learningRate) {
		return nil, errors.NewConfigurationError("learning_rate", "must be positive", o.learningRate)
	}
	if o.epochs <= 0 {
		return nil, errors.NewConfigurationError("epochs", "must be positive", o.epochs)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("linear")
	}
	logger := o.logger.With(log.OperationKey, log.OperationFit)

	r, _ := X.Dims()
	if r == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Head.Fit")
	}
	history := make([]float64, 0, o.epochs)
	var step mat.Dense
	for epoch := 0; epoch < o.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		pred, err := h.Forward(X)
		if err != nil {
			return history, err
		}
		value, grad, err := model.ValueAndGradient(loss, pred, target)
		if err != nil {
			return history, errors.Wrapf(err, "epoch %d", epoch)
		}
		history = append(history, value)
		logger.Debug("epoch finished", log.EpochKey, epoch, log.LossKey, value)

		if o.tol > 0 && epoch > 0 && math.Abs(history[epoch-1]-value) < o.tol {
			break
		}

		step.Reset()
		step.Mul(X.T(), grad)
		step.Scale(-o.learningRate, &step)
		h.Weights.Add(h.Weights, &step)
		for j := range h.Intercept {
			h.Intercept[j] -= o.learningRate * mat.Sum(grad.ColView(j))
		}
	}

	logger.Debug("fit finished", log.EpochKey, len(history), log.LossKey, history[len(history)-1])
	return history, nil
}
