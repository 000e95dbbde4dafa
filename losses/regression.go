package losses

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/core/parallel"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// RegressionLoss is a column-weighted mean squared error.
//
// Each column's squared error is multiplied by its weight, then the full
// N x R grid is collapsed by mean or sum.
type RegressionLoss struct {
	weights   []float64
	reduction Reduction
}

// NewRegressionLoss creates a RegressionLoss. weights may be nil; otherwise
// it must have one entry per column of the matrices passed to Compute.
func NewRegressionLoss(weights []float64, reduction Reduction) (*RegressionLoss, error) {
	reduction = reduction.orDefault()
	if err := reduction.validate(); err != nil {
		return nil, err
	}
	if err := validateWeights("weights", weights); err != nil {
		return nil, err
	}
	var w []float64
	if len(weights) > 0 {
		w = append(w, weights...)
	}
	return &RegressionLoss{weights: w, reduction: reduction}, nil
}

// Reduction returns the configured reduction.
func (r *RegressionLoss) Reduction() Reduction { return r.reduction }

// Compute returns the weighted MSE between pred and target.
func (r *RegressionLoss) Compute(pred, target mat.Matrix) (float64, error) {
	total, _, err := r.forward(pred, target, nil)
	if err != nil {
		return 0, err
	}
	if err := errors.CheckScalar("RegressionLoss.Compute", total); err != nil {
		return 0, err
	}
	return total, nil
}

// Gradient returns dLoss/dPred, shaped like pred.
func (r *RegressionLoss) Gradient(pred, target mat.Matrix) (*mat.Dense, error) {
	rows, cols := pred.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewValueError("RegressionLoss.Gradient", "empty prediction matrix")
	}
	grad := mat.NewDense(rows, cols, nil)
	if _, _, err := r.forward(pred, target, grad); err != nil {
		return nil, err
	}
	return grad, nil
}

// forward returns the reduced loss and each column's unweighted loss under
// the same reduction. grad, when non-nil, receives the gradient.
func (r *RegressionLoss) forward(pred, target mat.Matrix, grad *mat.Dense) (float64, []float64, error) {
	const op = "RegressionLoss"
	pr, pc := pred.Dims()
	tr, tc := target.Dims()
	if pr != tr || pc != tc {
		return 0, nil, errors.NewShapeMismatchError(op, []int{pr, pc}, []int{tr, tc},
			"predictions and targets must have the same shape")
	}
	if pc == 0 {
		return 0, nil, nil
	}
	if pr == 0 {
		return 0, nil, errors.NewValueError(op, "empty batch")
	}
	if r.weights != nil && len(r.weights) != pc {
		return 0, nil, errors.NewShapeMismatchError(op, []int{len(r.weights)}, []int{pc},
			fmt.Sprintf("%d weights for %d regression columns", len(r.weights), pc))
	}

	scale := 1.0
	if r.reduction == ReductionMean {
		scale = 1 / float64(pr*pc)
	}

	perColumn := make([]float64, pc)
	buf := make([]float64, pr)
	var total float64
	for j := 0; j < pc; j++ {
		w := r.weight(j)
		parallel.MapRows(buf, rowThreshold, func(i int) float64 {
			d := pred.At(i, j) - target.At(i, j)
			if grad != nil {
				grad.Set(i, j, grad.At(i, j)+2*w*d*scale)
			}
			return d * d
		})
		sse := floats.Sum(buf)
		perColumn[j] = sse
		if r.reduction == ReductionMean {
			perColumn[j] = sse / float64(pr)
		}
		total += w * sse
	}
	return total * scale, perColumn, nil
}

func (r *RegressionLoss) weight(j int) float64 {
	if r.weights == nil {
		return 1
	}
	return r.weights[j]
}
