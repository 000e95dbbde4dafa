package losses

import (
	"github.com/YuminosukeSato/tabloss/pkg/log"
)

// Option configures a RegressionAndClassificationLoss.
type Option func(*options)

type options struct {
	cfg    Config
	logger log.Logger
}

// WithRegression sets the regression target columns.
func WithRegression(indices ...int) Option {
	return func(o *options) {
		o.cfg.Regression = append([]int(nil), indices...)
	}
}

// WithBinary sets the binary targets.
func WithBinary(specs ...BinaryTargetSpec) Option {
	return func(o *options) {
		o.cfg.Binary = append([]BinaryTargetSpec(nil), specs...)
	}
}

// WithBinaryIndices is WithBinary for unweighted targets.
func WithBinaryIndices(indices ...int) Option {
	return func(o *options) {
		o.cfg.Binary = make([]BinaryTargetSpec, len(indices))
		for i, idx := range indices {
			o.cfg.Binary[i] = Binary(idx)
		}
	}
}

// WithMulticlass sets the multiclass targets.
func WithMulticlass(specs ...MulticlassTargetSpec) Option {
	return func(o *options) {
		o.cfg.Multiclass = append([]MulticlassTargetSpec(nil), specs...)
	}
}

// WithWeights sets one weight per target in Regression ++ Binary ++ Multiclass order.
func WithWeights(weights ...float64) Option {
	return func(o *options) {
		o.cfg.Weights = append([]float64(nil), weights...)
	}
}

// WithReduction sets how per-target losses are collapsed.
func WithReduction(r Reduction) Option {
	return func(o *options) {
		o.cfg.Reduction = r
	}
}

// WithBinaryTrick enables the fused one-hot BCE strategy.
func WithBinaryTrick(enabled bool) Option {
	return func(o *options) {
		o.cfg.BinaryTrick = enabled
	}
}

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
