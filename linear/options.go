package linear

import "github.com/YuminosukeSato/tabloss/pkg/log"

// Option is a function that configures Head.Fit
type Option func(*fitOptions)

type fitOptions struct {
	learningRate float64
	epochs       int
	tol          float64
	logger       log.Logger
}

func defaultFitOptions() fitOptions {
	return fitOptions{
		learningRate: 0.1,
		epochs:       100,
		tol:          0,
	}
}

// WithLearningRate sets the gradient descent step size
func WithLearningRate(lr float64) Option {
	return func(o *fitOptions) {
		o.learningRate = lr
	}
}

// WithEpochs sets the maximum number of full-batch updates
func WithEpochs(n int) Option {
	return func(o *fitOptions) {
		o.epochs = n
	}
}

// WithTol stops fitting once the loss improves by less than tol between epochs
func WithTol(tol float64) Option {
	return func(o *fitOptions) {
		o.tol = tol
	}
}

// WithLogger sets the logger used for per-epoch debug records
func WithLogger(l log.Logger) Option {
	return func(o *fitOptions) {
		o.logger = l
	}
}
