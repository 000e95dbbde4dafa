package losses

import (
	"gonum.org/v1/gonum/mat"
)

// independentStrategy computes one BCE per binary target and one cross
// entropy per multiclass target, weights each and reduces them.
type independentStrategy struct {
	layout     *Layout
	binary     []BinaryTargetSpec
	multiclass []MulticlassTargetSpec
	weights    []float64 // Binary ++ Multiclass, nil when unweighted
	reduction  Reduction
}

func newIndependentStrategy(layout *Layout, binary []BinaryTargetSpec, multiclass []MulticlassTargetSpec, weights []float64, reduction Reduction) *independentStrategy {
	return &independentStrategy{
		layout:     layout,
		binary:     binary,
		multiclass: multiclass,
		weights:    weights,
		reduction:  reduction,
	}
}

func (s *independentStrategy) Name() string { return "independent" }

func (s *independentStrategy) Compute(pred, target mat.Matrix) (float64, error) {
	total, _, err := s.forward(pred, target, nil)
	return total, err
}

func (s *independentStrategy) Gradient(pred, target mat.Matrix) (*mat.Dense, error) {
	return gradientOf(s, pred, target)
}

func (s *independentStrategy) Breakdown(pred, target mat.Matrix) ([]TargetLoss, error) {
	_, parts, err := s.forward(pred, target, nil)
	return parts, err
}

func (s *independentStrategy) forward(pred, target mat.Matrix, grad *mat.Dense) (float64, []TargetLoss, error) {
	const op = "ClassificationLoss(independent)"
	n, err := checkBatch(op, pred, target)
	if err != nil {
		return 0, nil, err
	}
	if err := checkWidths(op, pred, target, s.layout.PredictionWidth(), s.layout.TargetWidth(), false); err != nil {
		return 0, nil, err
	}

	// ラベルは計算前にすべて検証する
	labels := make([][]int, len(s.multiclass))
	for i, m := range s.multiclass {
		if labels[i], err = classLabels(op, target, m.Index, m.NumClasses); err != nil {
			return 0, nil, err
		}
	}

	count := len(s.layout.Ranges)
	perTarget := 1.0
	if s.reduction == ReductionMean {
		perTarget = 1 / float64(count)
	}

	buf := make([]float64, n)
	parts := make([]TargetLoss, count)
	weighted := make([]float64, count)
	for k, r := range s.layout.Ranges {
		w := s.weight(k)
		coef := w * perTarget
		var loss float64
		switch r.Kind {
		case KindBinary:
			pw := 1.0
			if b := s.binary[k]; b.PosWeight != nil {
				pw = *b.PosWeight
			}
			loss = binaryColumnLoss(pred, target, r.PredStart, r.Target, pw, grad, coef, buf)
		case KindMulticlass:
			m := k - len(s.binary)
			loss = crossEntropyLoss(pred, r.PredStart, r.Width(), labels[m], s.multiclass[m].ClassWeights, grad, coef, buf)
		}
		weighted[k] = w * loss
		parts[k] = TargetLoss{Kind: r.Kind, Target: r.Target, Loss: loss, Weight: w, Contribution: coef * loss}
	}
	return s.reduction.apply(weighted), parts, nil
}

func (s *independentStrategy) weight(k int) float64 {
	if s.weights == nil {
		return 1
	}
	return s.weights[k]
}
