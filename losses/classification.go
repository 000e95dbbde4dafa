package losses

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// ClassificationStrategy computes the classification part of a loss.
// Implementations are selected once at construction and hold no mutable
// state.
type ClassificationStrategy interface {
	// Name identifies the strategy: "independent" or "binary_trick".
	Name() string
	Compute(pred, target mat.Matrix) (float64, error)
	Gradient(pred, target mat.Matrix) (*mat.Dense, error)
	Breakdown(pred, target mat.Matrix) ([]TargetLoss, error)

	// forward computes the loss and per-target parts and, when grad is
	// non-nil, adds dLoss/dPred into it.
	forward(pred, target mat.Matrix, grad *mat.Dense) (float64, []TargetLoss, error)
}

func gradientOf(s ClassificationStrategy, pred, target mat.Matrix) (*mat.Dense, error) {
	rows, cols := pred.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewValueError(s.Name(), "empty prediction matrix")
	}
	grad := mat.NewDense(rows, cols, nil)
	if _, _, err := s.forward(pred, target, grad); err != nil {
		return nil, err
	}
	return grad, nil
}

// ClassificationLoss combines binary and multiclass targets under one of
// two strategies. With BinaryTrick the targets are one-hot expanded and a
// single fused BCE is computed; otherwise each target gets its own BCE or
// cross entropy.
type ClassificationLoss struct {
	cfg      ClassificationConfig
	layout   *Layout
	strategy ClassificationStrategy
}

// NewClassificationLoss validates cfg and selects the strategy.
func NewClassificationLoss(cfg ClassificationConfig) (*ClassificationLoss, error) {
	cfg = cfg.clone()
	cfg.Reduction = cfg.Reduction.orDefault()
	if err := cfg.Reduction.validate(); err != nil {
		return nil, err
	}
	total := len(cfg.Binary) + len(cfg.Multiclass)
	if len(cfg.Weights) > 0 && len(cfg.Weights) != total {
		return nil, errors.NewConfigurationError("weights",
			fmt.Sprintf("the number of weights must match the number of binary and multiclass targets (%d)", total),
			len(cfg.Weights))
	}
	if err := validateWeights("weights", cfg.Weights); err != nil {
		return nil, err
	}

	layout, err := newClassificationLayout(cfg.Binary, cfg.Multiclass, cfg.BinaryTrick)
	if err != nil {
		return nil, err
	}

	c := &ClassificationLoss{cfg: cfg, layout: layout}
	if cfg.BinaryTrick {
		if len(cfg.Weights) > 0 {
			errors.Warn(errors.NewConfigWarning("weights", "per-target weights are ignored when binary_trick=true"))
		}
		if cfg.Reduction == ReductionSum {
			errors.Warn(errors.NewConfigWarning("reduction", "reduction is ignored when binary_trick=true, the fused loss is a mean"))
		}
		c.strategy = newBinaryTrickStrategy(layout)
		return c, nil
	}

	var weights []float64
	if len(cfg.Weights) > 0 {
		weights = cfg.Weights
	}
	c.strategy = newIndependentStrategy(layout, cfg.Binary, cfg.Multiclass, weights, cfg.Reduction)
	return c, nil
}

// Strategy returns the selected strategy.
func (c *ClassificationLoss) Strategy() ClassificationStrategy { return c.strategy }

// Layout returns the column-range table.
func (c *ClassificationLoss) Layout() *Layout { return c.layout }

// Compute returns the classification loss.
func (c *ClassificationLoss) Compute(pred, target mat.Matrix) (float64, error) {
	total, err := c.strategy.Compute(pred, target)
	if err != nil {
		return 0, err
	}
	if err := errors.CheckScalar("ClassificationLoss.Compute", total); err != nil {
		return 0, err
	}
	return total, nil
}

// Gradient returns dLoss/dPred, shaped like pred.
func (c *ClassificationLoss) Gradient(pred, target mat.Matrix) (*mat.Dense, error) {
	return c.strategy.Gradient(pred, target)
}

// Breakdown returns the loss of every classification target.
func (c *ClassificationLoss) Breakdown(pred, target mat.Matrix) ([]TargetLoss, error) {
	return c.strategy.Breakdown(pred, target)
}

func (c ClassificationConfig) clone() ClassificationConfig {
	full := Config{Binary: c.Binary, Multiclass: c.Multiclass, Weights: c.Weights}.clone()
	c.Binary, c.Multiclass, c.Weights = full.Binary, full.Multiclass, full.Weights
	return c
}
