// Package losses implements multi-target losses over gonum matrices.
//
// Rows are samples. Regression targets use a column-weighted mean squared
// error, binary targets BCE with logits and multiclass targets categorical
// cross entropy over k logit columns. RegressionAndClassificationLoss
// combines them and reports the gradient with respect to the predictions.
//
// Every configuration check happens in the constructors. A constructed loss
// is immutable; Compute, Gradient and Breakdown only fail on matrix shapes,
// invalid labels or non-finite results.
package losses
