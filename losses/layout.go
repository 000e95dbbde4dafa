package losses

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// Kind is the kind of a target.
type Kind int

const (
	KindRegression Kind = iota
	KindBinary
	KindMulticlass
)

func (k Kind) String() string {
	switch k {
	case KindRegression:
		return "regression"
	case KindBinary:
		return "binary"
	case KindMulticlass:
		return "multiclass"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ColumnRange places one target in the prediction and target matrices.
// Prediction columns are [PredStart, PredEnd); the label or value lives in
// target column Target.
type ColumnRange struct {
	Kind      Kind
	Position  int // position in Regression ++ Binary ++ Multiclass
	Target    int
	PredStart int
	PredEnd   int
}

// Width is the number of prediction columns the target occupies.
func (r ColumnRange) Width() int {
	return r.PredEnd - r.PredStart
}

// Layout is the column-range table of a loss, built once at construction.
type Layout struct {
	Ranges      []ColumnRange
	BinaryTrick bool

	counts [3]int
}

// Count returns the number of targets of the given kind.
func (l *Layout) Count(kind Kind) int {
	return l.counts[kind]
}

// Of returns the ranges of the given kind in configuration order.
func (l *Layout) Of(kind Kind) []ColumnRange {
	out := make([]ColumnRange, 0, l.counts[kind])
	for _, r := range l.Ranges {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// PredictionWidth is the minimum number of prediction columns.
func (l *Layout) PredictionWidth() int {
	w := 0
	for _, r := range l.Ranges {
		if r.PredEnd > w {
			w = r.PredEnd
		}
	}
	return w
}

// TargetWidth is the minimum number of target columns.
func (l *Layout) TargetWidth() int {
	w := 0
	for _, r := range l.Ranges {
		if r.Target+1 > w {
			w = r.Target + 1
		}
	}
	return w
}

// newClassificationLayout validates binary and multiclass specs and places
// them. In binary-trick mode prediction columns are numbered from zero:
// two per binary target, then NumClasses per multiclass target. Otherwise a
// target at index i predicts from column i.
func newClassificationLayout(binary []BinaryTargetSpec, multiclass []MulticlassTargetSpec, binaryTrick bool) (*Layout, error) {
	if len(binary) == 0 && len(multiclass) == 0 {
		return nil, errors.NewConfigurationError("binary/multiclass",
			"either binary or multiclass targets must be provided", nil)
	}
	if err := validateSpecs(binary, multiclass); err != nil {
		return nil, err
	}
	if binaryTrick {
		if err := validateBinaryTrickSpecs(binary, multiclass); err != nil {
			return nil, err
		}
	}

	l := &Layout{BinaryTrick: binaryTrick}
	next := 0
	for i, b := range binary {
		r := ColumnRange{Kind: KindBinary, Position: i, Target: b.Index, PredStart: b.Index, PredEnd: b.Index + 1}
		if binaryTrick {
			r.PredStart, r.PredEnd = next, next+2
			next += 2
		}
		l.Ranges = append(l.Ranges, r)
	}
	for i, m := range multiclass {
		r := ColumnRange{Kind: KindMulticlass, Position: len(binary) + i, Target: m.Index,
			PredStart: m.Index, PredEnd: m.Index + m.NumClasses}
		if binaryTrick {
			r.PredStart, r.PredEnd = next, next+m.NumClasses
			next += m.NumClasses
		}
		l.Ranges = append(l.Ranges, r)
	}
	l.counts[KindBinary] = len(binary)
	l.counts[KindMulticlass] = len(multiclass)

	if err := l.checkDistinctTargets(); err != nil {
		return nil, err
	}
	if !binaryTrick {
		if err := l.checkPredictionOverlap(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// newCompositeLayout validates a full Config and returns the layout of the
// composite loss. In binary-trick mode the classification block is shifted
// right by the number of regression targets.
func newCompositeLayout(cfg Config) (*Layout, error) {
	if err := cfg.Reduction.orDefault().validate(); err != nil {
		return nil, err
	}
	if len(cfg.Binary) == 0 && len(cfg.Multiclass) == 0 {
		return nil, errors.NewConfigurationError("binary/multiclass",
			"either binary or multiclass targets must be provided", nil)
	}
	if len(cfg.Weights) > 0 && len(cfg.Weights) != cfg.NumTargets() {
		return nil, errors.NewConfigurationError("weights",
			fmt.Sprintf("the number of weights must match the number of regression, binary and multiclass targets (%d)", cfg.NumTargets()),
			len(cfg.Weights))
	}
	if err := validateWeights("weights", cfg.Weights); err != nil {
		return nil, err
	}
	for _, idx := range cfg.Regression {
		if idx < 0 {
			return nil, errors.NewConfigurationError("regression", "target indices must be non-negative", idx)
		}
	}

	cl, err := newClassificationLayout(cfg.Binary, cfg.Multiclass, cfg.BinaryTrick)
	if err != nil {
		return nil, err
	}

	l := &Layout{BinaryTrick: cfg.BinaryTrick}
	for i, idx := range cfg.Regression {
		l.Ranges = append(l.Ranges, ColumnRange{Kind: KindRegression, Position: i, Target: idx, PredStart: idx, PredEnd: idx + 1})
	}
	shift := 0
	if cfg.BinaryTrick {
		shift = len(cfg.Regression)
	}
	for _, r := range cl.Ranges {
		r.Position += len(cfg.Regression)
		r.PredStart += shift
		r.PredEnd += shift
		l.Ranges = append(l.Ranges, r)
	}
	l.counts = cl.counts
	l.counts[KindRegression] = len(cfg.Regression)

	if err := l.checkDistinctTargets(); err != nil {
		return nil, err
	}
	if cfg.BinaryTrick {
		if err := l.checkBlockOrder(); err != nil {
			return nil, err
		}
	} else if err := l.checkPredictionOverlap(); err != nil {
		return nil, err
	}
	return l, nil
}

func validateSpecs(binary []BinaryTargetSpec, multiclass []MulticlassTargetSpec) error {
	for _, b := range binary {
		if b.Index < 0 {
			return errors.NewConfigurationError("binary", "target indices must be non-negative", b.Index)
		}
		if b.PosWeight != nil {
			w := *b.PosWeight
			if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
				return errors.NewConfigurationError("binary", "positive-class weight must be a positive finite number", w)
			}
		}
	}
	for _, m := range multiclass {
		if m.Index < 0 {
			return errors.NewConfigurationError("multiclass", "target indices must be non-negative", m.Index)
		}
		if m.NumClasses < 2 {
			return errors.NewConfigurationError("multiclass", "number of classes must be at least 2", m.NumClasses)
		}
		if m.ClassWeights == nil {
			continue
		}
		if len(m.ClassWeights) != m.NumClasses {
			return errors.NewConfigurationError("multiclass",
				fmt.Sprintf("target %d has %d classes but %d class weights", m.Index, m.NumClasses, len(m.ClassWeights)), m.ClassWeights)
		}
		for _, w := range m.ClassWeights {
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				return errors.NewConfigurationError("multiclass", "class weights must be non-negative finite numbers", m.ClassWeights)
			}
		}
	}
	return nil
}

func validateBinaryTrickSpecs(binary []BinaryTargetSpec, multiclass []MulticlassTargetSpec) error {
	for _, b := range binary {
		if b.IsWeighted() {
			return errors.NewConfigurationError("binary",
				"binary_trick=true is only compatible with binary targets given as plain indices", b.String())
		}
	}
	for _, m := range multiclass {
		if m.IsWeighted() {
			return errors.NewConfigurationError("multiclass",
				"binary_trick=true is only compatible with multiclass targets given as (index, classes)", m.String())
		}
	}
	if len(binary) > 0 && len(multiclass) > 0 {
		maxBinary := binary[0].Index
		for _, b := range binary[1:] {
			if b.Index > maxBinary {
				maxBinary = b.Index
			}
		}
		minMulticlass := multiclass[0].Index
		for _, m := range multiclass[1:] {
			if m.Index < minMulticlass {
				minMulticlass = m.Index
			}
		}
		if maxBinary >= minMulticlass {
			return errors.NewConfigurationError("binary",
				"when using binary_trick=true the binary targets must precede the multiclass targets",
				fmt.Sprintf("last binary %d, first multiclass %d", maxBinary, minMulticlass))
		}
	}
	return nil
}

func validateWeights(param string, weights []float64) error {
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.NewConfigurationError(param, "weights must be finite", weights)
		}
	}
	return nil
}

func (l *Layout) checkDistinctTargets() error {
	seen := make(map[int]Kind, len(l.Ranges))
	for _, r := range l.Ranges {
		if prev, ok := seen[r.Target]; ok {
			return errors.NewConfigurationError(r.Kind.String(),
				fmt.Sprintf("target column %d is already used by a %s target", r.Target, prev), r.Target)
		}
		seen[r.Target] = r.Kind
	}
	return nil
}

// checkPredictionOverlap rejects layouts where two targets read the same
// prediction column, e.g. a binary target inside a multiclass logit block.
func (l *Layout) checkPredictionOverlap() error {
	ranges := append([]ColumnRange(nil), l.Ranges...)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].PredStart < ranges[j].PredStart })
	for i := 1; i < len(ranges); i++ {
		prev, cur := ranges[i-1], ranges[i]
		if cur.PredStart < prev.PredEnd {
			return errors.NewConfigurationError(cur.Kind.String(),
				fmt.Sprintf("prediction columns [%d, %d) of the %s target at %d overlap [%d, %d) of the %s target at %d",
					cur.PredStart, cur.PredEnd, cur.Kind, cur.Target, prev.PredStart, prev.PredEnd, prev.Kind, prev.Target),
				nil)
		}
	}
	return nil
}

// checkBlockOrder enforces the binary-trick column order: regression
// targets on columns 0..R-1, then binary, then multiclass, with no gaps.
func (l *Layout) checkBlockOrder() error {
	for i, r := range l.Ranges {
		if r.Target == i {
			continue
		}
		return errors.NewConfigurationError(r.Kind.String(),
			"when using binary_trick=true the targets order must be: regression, binary and multiclass, without gaps",
			fmt.Sprintf("%s target at column %d, expected column %d", r.Kind, r.Target, i))
	}
	return nil
}

// gaps lists prediction columns below PredictionWidth that no target reads.
func (l *Layout) gaps() []int {
	used := make([]bool, l.PredictionWidth())
	for _, r := range l.Ranges {
		for c := r.PredStart; c < r.PredEnd; c++ {
			used[c] = true
		}
	}
	var out []int
	for c, u := range used {
		if !u {
			out = append(out, c)
		}
	}
	return out
}
