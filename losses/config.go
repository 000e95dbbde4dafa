package losses

import (
	"fmt"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// Reduction selects how per-target losses are collapsed into one scalar.
// It is applied after every per-target loss has been computed and is
// unrelated to the averaging done inside each elementwise loss.
type Reduction string

const (
	ReductionMean Reduction = "mean"
	ReductionSum  Reduction = "sum"
)

// ParseReduction converts "mean" or "sum" into a Reduction.
// An empty string yields ReductionMean.
func ParseReduction(s string) (Reduction, error) {
	r := Reduction(s)
	if r == "" {
		return ReductionMean, nil
	}
	if err := r.validate(); err != nil {
		return "", err
	}
	return r, nil
}

func (r Reduction) orDefault() Reduction {
	if r == "" {
		return ReductionMean
	}
	return r
}

func (r Reduction) validate() error {
	switch r {
	case ReductionMean, ReductionSum:
		return nil
	default:
		return errors.NewConfigurationError("reduction", "reduction must be either 'mean' or 'sum'", string(r))
	}
}

// apply collapses per-target values by mean or sum.
func (r Reduction) apply(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	if r == ReductionMean && len(values) > 0 {
		return sum / float64(len(values))
	}
	return sum
}

// BinaryTargetSpec describes one binary target. A spec built with Binary is
// a bare index; WeightedBinary attaches a positive-class weight.
type BinaryTargetSpec struct {
	Index     int      `yaml:"index" json:"index"`
	PosWeight *float64 `yaml:"pos_weight,omitempty" json:"pos_weight,omitempty"`
}

// Binary returns an unweighted binary target at column idx.
func Binary(idx int) BinaryTargetSpec {
	return BinaryTargetSpec{Index: idx}
}

// WeightedBinary returns a binary target at column idx whose positive class
// is scaled by posWeight.
func WeightedBinary(idx int, posWeight float64) BinaryTargetSpec {
	w := posWeight
	return BinaryTargetSpec{Index: idx, PosWeight: &w}
}

// IsWeighted reports whether the spec carries a positive-class weight.
func (s BinaryTargetSpec) IsWeighted() bool {
	return s.PosWeight != nil
}

func (s BinaryTargetSpec) String() string {
	if s.PosWeight == nil {
		return fmt.Sprintf("%d", s.Index)
	}
	return fmt.Sprintf("(%d, %g)", s.Index, *s.PosWeight)
}

// MulticlassTargetSpec describes one multiclass target: the column holding
// the class label, the number of classes and optional per-class weights.
type MulticlassTargetSpec struct {
	Index        int       `yaml:"index" json:"index"`
	NumClasses   int       `yaml:"classes" json:"classes"`
	ClassWeights []float64 `yaml:"class_weights,omitempty" json:"class_weights,omitempty"`
}

// Multiclass returns an unweighted multiclass target.
func Multiclass(idx, numClasses int) MulticlassTargetSpec {
	return MulticlassTargetSpec{Index: idx, NumClasses: numClasses}
}

// WeightedMulticlass returns a multiclass target with per-class weights.
func WeightedMulticlass(idx, numClasses int, classWeights []float64) MulticlassTargetSpec {
	w := make([]float64, len(classWeights))
	copy(w, classWeights)
	return MulticlassTargetSpec{Index: idx, NumClasses: numClasses, ClassWeights: w}
}

// IsWeighted reports whether the spec carries class weights.
func (s MulticlassTargetSpec) IsWeighted() bool {
	return s.ClassWeights != nil
}

func (s MulticlassTargetSpec) String() string {
	if s.ClassWeights == nil {
		return fmt.Sprintf("(%d, %d)", s.Index, s.NumClasses)
	}
	return fmt.Sprintf("(%d, %d, %v)", s.Index, s.NumClasses, s.ClassWeights)
}

// Config is the full description of a multi-target loss.
//
// Weights, when set, holds one weight per target in the order
// Regression ++ Binary ++ Multiclass.
type Config struct {
	Regression  []int                  `yaml:"regression,omitempty" json:"regression,omitempty"`
	Binary      []BinaryTargetSpec     `yaml:"binary,omitempty" json:"binary,omitempty"`
	Multiclass  []MulticlassTargetSpec `yaml:"multiclass,omitempty" json:"multiclass,omitempty"`
	Weights     []float64              `yaml:"weights,omitempty" json:"weights,omitempty"`
	Reduction   Reduction              `yaml:"reduction,omitempty" json:"reduction,omitempty"`
	BinaryTrick bool                   `yaml:"binary_trick,omitempty" json:"binary_trick,omitempty"`
}

// NumTargets returns the number of configured targets of every kind.
func (c Config) NumTargets() int {
	return len(c.Regression) + len(c.Binary) + len(c.Multiclass)
}

// Validate runs every construction-time check without building a loss.
func (c Config) Validate() error {
	_, err := newCompositeLayout(c)
	return err
}

// clone returns a deep copy so a constructed loss never aliases caller slices.
func (c Config) clone() Config {
	out := c
	out.Regression = append([]int(nil), c.Regression...)
	out.Weights = append([]float64(nil), c.Weights...)
	out.Binary = make([]BinaryTargetSpec, len(c.Binary))
	for i, b := range c.Binary {
		if b.PosWeight != nil {
			b = WeightedBinary(b.Index, *b.PosWeight)
		}
		out.Binary[i] = b
	}
	out.Multiclass = make([]MulticlassTargetSpec, len(c.Multiclass))
	for i, m := range c.Multiclass {
		if m.ClassWeights != nil {
			m = WeightedMulticlass(m.Index, m.NumClasses, m.ClassWeights)
		}
		out.Multiclass[i] = m
	}
	return out
}

// ClassificationConfig configures a standalone ClassificationLoss.
// Weights holds one weight per target in the order Binary ++ Multiclass.
type ClassificationConfig struct {
	Binary      []BinaryTargetSpec
	Multiclass  []MulticlassTargetSpec
	Weights     []float64
	Reduction   Reduction
	BinaryTrick bool
}
