// Package metrics は損失とは別に、ターゲットごとの評価指標を計算する。
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/losses"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// TargetMetric は1つのターゲットの評価指標です。
// 回帰ターゲットは RMSE, MAE, R2、分類ターゲットは Accuracy を持ちます。
type TargetMetric struct {
	Kind     losses.Kind
	Target   int
	RMSE     float64
	MAE      float64
	R2       float64
	Accuracy float64
}

// Evaluate はレイアウトの各ターゲットについて評価指標を計算する。
// binary_trick のレイアウトでは二値ターゲットも2列の argmax で判定する。
func Evaluate(layout *losses.Layout, pred, target mat.Matrix) ([]TargetMetric, error) {
	n, pc := pred.Dims()
	tr, tc := target.Dims()
	if n == 0 {
		return nil, errors.NewValueError("Evaluate", "empty batch")
	}
	if n != tr || pc < layout.PredictionWidth() || tc < layout.TargetWidth() {
		return nil, errors.NewShapeMismatchError("Evaluate",
			[]int{n, layout.PredictionWidth(), n, layout.TargetWidth()}, []int{n, pc, tr, tc},
			"prediction and target shapes do not fit the layout")
	}
	predDense, ok := pred.(*mat.Dense)
	if !ok {
		predDense = mat.DenseCopyOf(pred)
	}

	out := make([]TargetMetric, 0, len(layout.Ranges))
	for _, r := range layout.Ranges {
		m := TargetMetric{Kind: r.Kind, Target: r.Target}
		yTrue := mat.NewVecDense(rowsOf(target), mat.Col(nil, r.Target, target))

		var err error
		switch {
		case r.Kind == losses.KindRegression:
			yPred := mat.NewVecDense(rowsOf(pred), mat.Col(nil, r.PredStart, pred))
			if m.RMSE, err = RMSE(yTrue, yPred); err != nil {
				return nil, err
			}
			if m.MAE, err = MAE(yTrue, yPred); err != nil {
				return nil, err
			}
			if m.R2, err = R2Score(yTrue, yPred); err != nil {
				return nil, err
			}
		case r.Width() == 1:
			yPred := mat.NewVecDense(rowsOf(pred), mat.Col(nil, r.PredStart, pred))
			if m.Accuracy, err = BinaryAccuracy(yTrue, yPred); err != nil {
				return nil, err
			}
		default:
			block := predDense.Slice(0, n, r.PredStart, r.PredEnd)
			if m.Accuracy, err = ArgmaxAccuracy(yTrue, block); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func rowsOf(m mat.Matrix) int {
	r, _ := m.Dims()
	return r
}
