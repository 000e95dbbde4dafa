// Package model defines the capability interfaces shared by loss functions.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Loss reduces a prediction matrix and a target matrix to a scalar.
type Loss interface {
	// Compute returns the loss value. Rows are samples.
	Compute(pred, target mat.Matrix) (float64, error)
}

// Differentiable is a Loss that also returns the gradient of the loss
// with respect to the predictions. The gradient has the shape of pred.
type Differentiable interface {
	Loss
	Gradient(pred, target mat.Matrix) (*mat.Dense, error)
}

// ValueAndGradient computes both the loss and its gradient.
func ValueAndGradient(l Differentiable, pred, target mat.Matrix) (float64, *mat.Dense, error) {
	v, err := l.Compute(pred, target)
	if err != nil {
		return 0, nil, err
	}
	g, err := l.Gradient(pred, target)
	if err != nil {
		return 0, nil, err
	}
	return v, g, nil
}
