package losses

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/core/model"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
	"github.com/YuminosukeSato/tabloss/pkg/log"
)

var (
	_ model.Differentiable = (*RegressionLoss)(nil)
	_ model.Differentiable = (*ClassificationLoss)(nil)
	_ model.Differentiable = (*RegressionAndClassificationLoss)(nil)
)

// RegressionAndClassificationLoss sums a RegressionLoss over the regression
// columns and a ClassificationLoss over the binary and multiclass columns.
//
// Without the binary trick every target predicts from the column equal to
// its index (multiclass targets from k columns starting there). With the
// binary trick the prediction matrix holds the regression columns followed
// by 2 columns per binary target and k columns per multiclass target, and
// the targets must occupy columns 0..T-1 in regression, binary, multiclass
// order.
//
// A constructed loss is immutable and safe for concurrent use.
type RegressionAndClassificationLoss struct {
	cfg            Config
	layout         *Layout
	regCols        []int
	regression     *RegressionLoss // nil without regression targets
	classification *ClassificationLoss
	logger         log.Logger
}

// NewRegressionAndClassificationLoss builds a loss from functional options.
//
//	loss, err := losses.NewRegressionAndClassificationLoss(
//	    losses.WithRegression(0),
//	    losses.WithBinaryIndices(1),
//	    losses.WithMulticlass(losses.Multiclass(2, 3)),
//	    losses.WithReduction(losses.ReductionSum),
//	)
func NewRegressionAndClassificationLoss(opts ...Option) (*RegressionAndClassificationLoss, error) {
	return New(Config{}, opts...)
}

// New builds a loss from cfg with opts applied on top. Every configuration
// check runs here; Compute only checks matrix shapes and labels.
func New(cfg Config, opts ...Option) (*RegressionAndClassificationLoss, error) {
	o := &options{cfg: cfg.clone()}
	for _, opt := range opts {
		opt(o)
	}
	cfg = o.cfg
	cfg.Reduction = cfg.Reduction.orDefault()
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("losses")
	}
	logger := o.logger.With(log.LossNameKey, "RegressionAndClassificationLoss")

	layout, err := newCompositeLayout(cfg)
	if err != nil {
		logger.Debug("invalid loss configuration", err,
			log.OperationKey, log.OperationConstruct,
			log.ErrorCodeKey, log.ErrorInvalidConfig,
		)
		return nil, err
	}

	nReg := len(cfg.Regression)
	var regWeights, clsWeights []float64
	if len(cfg.Weights) > 0 {
		regWeights, clsWeights = cfg.Weights[:nReg], cfg.Weights[nReg:]
	}

	l := &RegressionAndClassificationLoss{cfg: cfg, layout: layout, logger: logger}
	if nReg > 0 {
		l.regCols = append([]int(nil), cfg.Regression...)
		if l.regression, err = NewRegressionLoss(regWeights, cfg.Reduction); err != nil {
			return nil, err
		}
	}
	l.classification, err = NewClassificationLoss(ClassificationConfig{
		Binary:      cfg.Binary,
		Multiclass:  cfg.Multiclass,
		Weights:     clsWeights,
		Reduction:   cfg.Reduction,
		BinaryTrick: cfg.BinaryTrick,
	})
	if err != nil {
		return nil, err
	}

	if gaps := layout.gaps(); !cfg.BinaryTrick && len(gaps) > 0 {
		errors.Warn(errors.NewConfigWarning("layout",
			fmt.Sprintf("prediction columns %v are not read by any target", gaps)))
	}

	logger.Debug("loss constructed",
		log.OperationKey, log.OperationConstruct,
		log.StrategyKey, l.classification.Strategy().Name(),
		log.ReductionKey, string(cfg.Reduction),
		log.BinaryTrickKey, cfg.BinaryTrick,
		log.RegressionTargetsKey, nReg,
		log.BinaryTargetsKey, len(cfg.Binary),
		log.MulticlassTargetsKey, len(cfg.Multiclass),
		log.WeightedKey, len(cfg.Weights) > 0,
		log.PredictionWidthKey, layout.PredictionWidth(),
		log.TargetWidthKey, layout.TargetWidth(),
	)
	return l, nil
}

// Config returns a copy of the resolved configuration.
func (l *RegressionAndClassificationLoss) Config() Config { return l.cfg.clone() }

// Layout returns the column-range table.
func (l *RegressionAndClassificationLoss) Layout() *Layout { return l.layout }

// Compute returns regression loss + classification loss.
func (l *RegressionAndClassificationLoss) Compute(pred, target mat.Matrix) (float64, error) {
	b, err := l.forward(pred, target, nil, log.OperationCompute)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

// Gradient returns dLoss/dPred, shaped like pred.
func (l *RegressionAndClassificationLoss) Gradient(pred, target mat.Matrix) (*mat.Dense, error) {
	if err := l.checkShapes(pred, target); err != nil {
		return nil, l.failed(err)
	}
	rows, cols := pred.Dims()
	grad := mat.NewDense(rows, cols, nil)
	if _, err := l.forward(pred, target, grad, log.OperationGradient); err != nil {
		return nil, err
	}
	return grad, nil
}

// Breakdown returns the regression and classification parts and the
// contribution of every target.
func (l *RegressionAndClassificationLoss) Breakdown(pred, target mat.Matrix) (Breakdown, error) {
	return l.forward(pred, target, nil, log.OperationBreakdown)
}

func (l *RegressionAndClassificationLoss) checkShapes(pred, target mat.Matrix) error {
	const op = "RegressionAndClassificationLoss"
	if _, err := checkBatch(op, pred, target); err != nil {
		return err
	}
	return checkWidths(op, pred, target, l.layout.PredictionWidth(), l.layout.TargetWidth(), l.cfg.BinaryTrick)
}

func (l *RegressionAndClassificationLoss) forward(pred, target mat.Matrix, grad *mat.Dense, op string) (Breakdown, error) {
	start := time.Now()
	if err := l.checkShapes(pred, target); err != nil {
		return Breakdown{}, l.failed(err)
	}
	var b Breakdown

	if l.regression != nil {
		var regGrad *mat.Dense
		if grad != nil {
			rows, _ := pred.Dims()
			regGrad = mat.NewDense(rows, len(l.regCols), nil)
		}
		total, perColumn, err := l.regression.forward(columnView{pred, l.regCols}, columnView{target, l.regCols}, regGrad)
		if err != nil {
			return Breakdown{}, l.failed(err)
		}
		b.Regression = total
		scale := 1.0
		if l.cfg.Reduction == ReductionMean {
			scale = 1 / float64(len(l.regCols))
		}
		for j, col := range l.regCols {
			w := l.regression.weight(j)
			b.Targets = append(b.Targets, TargetLoss{
				Kind: KindRegression, Target: col, Loss: perColumn[j], Weight: w, Contribution: w * perColumn[j] * scale,
			})
			if regGrad != nil {
				for i := 0; i < rowsOf(regGrad); i++ {
					grad.Set(i, col, grad.At(i, col)+regGrad.At(i, j))
				}
			}
		}
	}

	clsPred, clsGrad := pred, grad
	if l.cfg.BinaryTrick {
		// 分類ブロックは回帰列の直後から始まる
		_, cols := pred.Dims()
		nReg := len(l.cfg.Regression)
		clsPred = columnView{pred, columnRange(nReg, cols)}
		if grad != nil {
			rows, _ := grad.Dims()
			clsGrad = grad.Slice(0, rows, nReg, cols).(*mat.Dense)
		}
	}
	total, parts, err := l.classification.strategy.forward(clsPred, target, clsGrad)
	if err != nil {
		return Breakdown{}, l.failed(err)
	}
	b.Classification = total
	b.Targets = append(b.Targets, parts...)
	b.Total = b.Regression + b.Classification

	if err := errors.CheckScalar("RegressionAndClassificationLoss.Compute", b.Total); err != nil {
		l.logger.Error("non-finite loss", err,
			log.OperationKey, op,
			log.SamplesKey, rowsOf(pred),
		)
		return Breakdown{}, err
	}
	if l.logger.Enabled(context.Background(), log.LevelDebug) {
		l.logger.Debug("loss computed",
			log.OperationKey, op,
			log.SamplesKey, rowsOf(pred),
			log.LossKey, b.Total,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
	return b, nil
}

// failed logs a forward-time error at debug level and returns it unchanged.
func (l *RegressionAndClassificationLoss) failed(err error) error {
	switch code := log.ErrorCode(err); code {
	case log.ErrorShapeMismatch:
		l.logger.Debug("shape mismatch", err,
			log.ErrorCodeKey, code,
			log.SuggestionKey, fmt.Sprintf("predictions need %d columns and targets %d", l.layout.PredictionWidth(), l.layout.TargetWidth()),
		)
	case log.ErrorInvalidLabel:
		l.logger.Debug("invalid label", err, log.ErrorCodeKey, code)
	}
	return err
}

func rowsOf(m mat.Matrix) int {
	r, _ := m.Dims()
	return r
}
