package losses

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/core/parallel"
)

// binaryTrickStrategy expands every binary target to a two-column one-hot
// block and every multiclass target to a k-column one-hot block, then
// computes one BCE-with-logits averaged over all N x W cells.
//
// The prediction matrix must be exactly W = 2*len(binary) + sum(k) columns
// wide with blocks in configuration order. Target columns are read at their
// configured indices.
type binaryTrickStrategy struct {
	layout *Layout
}

func newBinaryTrickStrategy(layout *Layout) *binaryTrickStrategy {
	return &binaryTrickStrategy{layout: layout}
}

func (s *binaryTrickStrategy) Name() string { return "binary_trick" }

func (s *binaryTrickStrategy) Compute(pred, target mat.Matrix) (float64, error) {
	total, _, err := s.forward(pred, target, nil)
	return total, err
}

func (s *binaryTrickStrategy) Gradient(pred, target mat.Matrix) (*mat.Dense, error) {
	return gradientOf(s, pred, target)
}

func (s *binaryTrickStrategy) Breakdown(pred, target mat.Matrix) ([]TargetLoss, error) {
	_, parts, err := s.forward(pred, target, nil)
	return parts, err
}

func (s *binaryTrickStrategy) forward(pred, target mat.Matrix, grad *mat.Dense) (float64, []TargetLoss, error) {
	const op = "ClassificationLoss(binary_trick)"
	n, err := checkBatch(op, pred, target)
	if err != nil {
		return 0, nil, err
	}
	width := s.layout.PredictionWidth()
	if err := checkWidths(op, pred, target, width, s.layout.TargetWidth(), true); err != nil {
		return 0, nil, err
	}

	labels := make([][]int, len(s.layout.Ranges))
	for k, r := range s.layout.Ranges {
		if r.Kind == KindBinary {
			labels[k], err = binaryLabels(op, target, r.Target)
		} else {
			labels[k], err = classLabels(op, target, r.Target, r.Width())
		}
		if err != nil {
			return 0, nil, err
		}
	}

	cells := float64(n * width)
	buf := make([]float64, n)
	parts := make([]TargetLoss, len(s.layout.Ranges))
	var total float64
	for k, r := range s.layout.Ranges {
		y := labels[k]
		parallel.MapRows(buf, rowThreshold, func(i int) float64 {
			var sum float64
			for c := r.PredStart; c < r.PredEnd; c++ {
				x := pred.At(i, c)
				var onehot float64
				if c-r.PredStart == y[i] {
					onehot = 1
				}
				sum += bceWithLogits(x, onehot, 1)
				if grad != nil {
					grad.Set(i, c, grad.At(i, c)+bceWithLogitsGrad(x, onehot, 1)/cells)
				}
			}
			return sum
		})
		blockSum := floats.Sum(buf)
		total += blockSum
		parts[k] = TargetLoss{
			Kind:         r.Kind,
			Target:       r.Target,
			Loss:         blockSum / float64(n*r.Width()),
			Weight:       1,
			Contribution: blockSum / cells,
		}
	}
	return total / cells, parts, nil
}
