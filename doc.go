// Package tabloss provides composite multi-target loss functions for
// tabular deep learning models written in Go.
//
// A single prediction matrix and a single target matrix can mix regression,
// binary classification and multiclass classification targets packed into
// column ranges. tabloss validates the column layout once at construction,
// routes each column slice to the right loss with the right per-target
// weight, and reduces the result to one scalar together with its gradient.
//
// # Installation
//
//	go get github.com/YuminosukeSato/tabloss
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/tabloss/losses"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    // column 0: binary label, column 1: 3-class label
//	    loss, err := losses.NewRegressionAndClassificationLoss(
//	        losses.WithBinaryIndices(0),
//	        losses.WithMulticlass(losses.Multiclass(1, 3)),
//	        losses.WithReduction(losses.ReductionSum),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred := mat.NewDense(2, 4, []float64{
//	        0.5, 1.0, -0.5, 0.2,
//	        -1.2, 0.3, 0.8, -0.1,
//	    })
//	    target := mat.NewDense(2, 2, []float64{
//	        1, 0,
//	        0, 2,
//	    })
//	    value, err := loss.Compute(pred, target)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("loss:", value)
//	}
//
// # Packages
//
//   - losses: RegressionLoss, ClassificationLoss and the composite
//     RegressionAndClassificationLoss, plus YAML/JSON configuration
//   - metrics: Per-target RMSE, MAE, R2 and accuracy over a loss layout
//   - linear: Multi-output linear head fitted by gradient descent on any loss
//   - core/model: Loss and Differentiable interfaces
//   - core/parallel: Row-parallel helpers used by the loss kernels
//   - pkg/errors: Structured error types and numerical helpers
//   - pkg/log: Structured logging backed by zerolog
//   - cmd/tabloss: Command line tool to validate configurations and
//     evaluate losses on CSV files
//
// # Binary Trick
//
// With binary_trick enabled, every binary and multiclass target is expanded
// to one-hot columns and a single BCE-with-logits is computed over all of
// them. This mode does not support positive-class weights, class weights or
// per-target weights, and requires the targets to be laid out as
// regression, binary, multiclass with no gaps.
//
// # License
//
// tabloss is released under the MIT License.
package tabloss
