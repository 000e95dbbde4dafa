package losses

import "fmt"

// TargetLoss is the loss of a single target within a forward pass.
type TargetLoss struct {
	Kind   Kind
	Target int // target column

	// Loss is the unweighted loss of the target. Regression columns report
	// the per-column MSE (or SSE under sum reduction); classification
	// targets report their BCE or cross entropy averaged over rows. In
	// binary-trick mode it is the mean fused BCE over the target's cells.
	Loss float64

	// Weight is the per-target weight applied, 1 when none is configured.
	Weight float64

	// Contribution is the amount the target adds to the total loss.
	Contribution float64
}

func (t TargetLoss) String() string {
	return fmt.Sprintf("%s[%d]: loss=%.6g weight=%g contribution=%.6g",
		t.Kind, t.Target, t.Loss, t.Weight, t.Contribution)
}

// Breakdown splits a composite loss into its parts. The contributions of
// Targets add up to Total up to floating point rounding.
type Breakdown struct {
	Regression     float64
	Classification float64
	Total          float64
	Targets        []TargetLoss
}
