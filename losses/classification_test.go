package losses

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

func TestIndependentBinary(t *testing.T) {
	pred := mat.NewDense(4, 1, []float64{2.0, -1.0, 0.5, -3.0})
	target := mat.NewDense(4, 1, []float64{1, 0, 0, 1})

	tests := []struct {
		name      string
		spec      BinaryTargetSpec
		posWeight float64
	}{
		{name: "unweighted", spec: Binary(0), posWeight: 1},
		{name: "pos weight", spec: WeightedBinary(0, 3), posWeight: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loss, err := NewClassificationLoss(ClassificationConfig{Binary: []BinaryTargetSpec{tt.spec}})
			require.NoError(t, err)
			assert.Equal(t, "independent", loss.Strategy().Name())

			var want float64
			for i := 0; i < 4; i++ {
				want += naiveBCE(pred.At(i, 0), target.At(i, 0), tt.posWeight)
			}
			want /= 4

			got, err := loss.Compute(pred, target)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-12)
		})
	}
}

func TestIndependentSoftBinaryLabels(t *testing.T) {
	pred := mat.NewDense(2, 1, []float64{0.3, -0.2})
	target := mat.NewDense(2, 1, []float64{0.25, 0.9})
	loss, err := NewClassificationLoss(ClassificationConfig{Binary: []BinaryTargetSpec{Binary(0)}})
	require.NoError(t, err)

	got, err := loss.Compute(pred, target)
	require.NoError(t, err)
	want := (naiveBCE(0.3, 0.25, 1) + naiveBCE(-0.2, 0.9, 1)) / 2
	assert.InDelta(t, want, got, 1e-12)
}

func TestIndependentMulticlass(t *testing.T) {
	pred := mat.NewDense(3, 3, []float64{
		1.0, 0.5, -0.5,
		0.0, 2.0, 1.0,
		-1.0, 0.3, 0.7,
	})
	target := mat.NewDense(3, 1, []float64{0, 2, 1})
	nll := []float64{
		naiveCE([]float64{1.0, 0.5, -0.5}, 0),
		naiveCE([]float64{0.0, 2.0, 1.0}, 2),
		naiveCE([]float64{-1.0, 0.3, 0.7}, 1),
	}

	t.Run("unweighted", func(t *testing.T) {
		loss, err := NewClassificationLoss(ClassificationConfig{
			Multiclass: []MulticlassTargetSpec{Multiclass(0, 3)},
		})
		require.NoError(t, err)
		got, err := loss.Compute(pred, target)
		require.NoError(t, err)
		assert.InDelta(t, (nll[0]+nll[1]+nll[2])/3, got, 1e-12)
	})

	t.Run("class weights use the weighted mean", func(t *testing.T) {
		w := []float64{0.5, 2, 4}
		loss, err := NewClassificationLoss(ClassificationConfig{
			Multiclass: []MulticlassTargetSpec{WeightedMulticlass(0, 3, w)},
		})
		require.NoError(t, err)
		got, err := loss.Compute(pred, target)
		require.NoError(t, err)
		want := (w[0]*nll[0] + w[2]*nll[1] + w[1]*nll[2]) / (w[0] + w[2] + w[1])
		assert.InDelta(t, want, got, 1e-12)
	})

	t.Run("label out of range", func(t *testing.T) {
		loss, err := NewClassificationLoss(ClassificationConfig{
			Multiclass: []MulticlassTargetSpec{Multiclass(0, 3)},
		})
		require.NoError(t, err)
		_, err = loss.Compute(pred, mat.NewDense(3, 1, []float64{0, 3, 1}))
		var valErr *errors.ValueError
		require.True(t, errors.As(err, &valErr))
		assert.Contains(t, valErr.Message, "[0, 3)")
	})
}

func TestIndependentWeightsAndReduction(t *testing.T) {
	pred := mat.NewDense(2, 4, []float64{
		0.4, 1.0, -1.0, 0.0,
		-0.6, 0.2, 0.2, 0.9,
	})
	target := mat.NewDense(2, 2, []float64{
		1, 2,
		0, 0,
	})
	bce := (naiveBCE(0.4, 1, 1) + naiveBCE(-0.6, 0, 1)) / 2
	ce := (naiveCE([]float64{1.0, -1.0, 0.0}, 2) + naiveCE([]float64{0.2, 0.2, 0.9}, 0)) / 2

	tests := []struct {
		name      string
		weights   []float64
		reduction Reduction
		want      float64
	}{
		{name: "sum", reduction: ReductionSum, want: bce + ce},
		{name: "mean", reduction: ReductionMean, want: (bce + ce) / 2},
		{name: "weighted sum", weights: []float64{2, 0.5}, reduction: ReductionSum, want: 2*bce + 0.5*ce},
		{name: "weighted mean", weights: []float64{2, 0.5}, reduction: ReductionMean, want: (2*bce + 0.5*ce) / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loss, err := NewClassificationLoss(ClassificationConfig{
				Binary:     []BinaryTargetSpec{Binary(0)},
				Multiclass: []MulticlassTargetSpec{Multiclass(1, 3)},
				Weights:    tt.weights,
				Reduction:  tt.reduction,
			})
			require.NoError(t, err)
			got, err := loss.Compute(pred, target)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)

			parts, err := loss.Breakdown(pred, target)
			require.NoError(t, err)
			require.Len(t, parts, 2)
			assert.InDelta(t, bce, parts[0].Loss, 1e-12)
			assert.InDelta(t, ce, parts[1].Loss, 1e-12)
			assert.InDelta(t, got, parts[0].Contribution+parts[1].Contribution, 1e-12)
		})
	}
}

func TestBinaryTrick(t *testing.T) {
	// binary target at column 0, 3-class target at column 1
	pred := mat.NewDense(2, 5, []float64{
		0.1, 0.9, -0.3, 0.4, 1.2,
		1.5, -0.5, 0.0, 0.8, -0.2,
	})
	target := mat.NewDense(2, 2, []float64{
		1, 2,
		0, 0,
	})
	onehot := [][]float64{
		{0, 1, 0, 0, 1},
		{1, 0, 1, 0, 0},
	}
	var want float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 5; j++ {
			want += naiveBCE(pred.At(i, j), onehot[i][j], 1)
		}
	}
	want /= 10

	loss, err := NewClassificationLoss(ClassificationConfig{
		Binary:      []BinaryTargetSpec{Binary(0)},
		Multiclass:  []MulticlassTargetSpec{Multiclass(1, 3)},
		BinaryTrick: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "binary_trick", loss.Strategy().Name())

	got, err := loss.Compute(pred, target)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)

	parts, err := loss.Breakdown(pred, target)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, 0, parts[0].Target)
	assert.Equal(t, 1, parts[1].Target)
	assert.InDelta(t, got, parts[0].Contribution+parts[1].Contribution, 1e-12)

	t.Run("prediction width must match exactly", func(t *testing.T) {
		_, err := loss.Compute(mat.NewDense(2, 6, nil), target)
		var shapeErr *errors.ShapeMismatchError
		require.True(t, errors.As(err, &shapeErr))
		assert.Equal(t, []int{2, 5}, shapeErr.Expected)
	})

	t.Run("binary labels must be hard", func(t *testing.T) {
		soft := mat.NewDense(2, 2, []float64{0.5, 2, 0, 0})
		_, err := loss.Compute(pred, soft)
		var valErr *errors.ValueError
		assert.True(t, errors.As(err, &valErr))
	})
}

func TestBinaryTrickIgnoresWeightsWithWarning(t *testing.T) {
	warnings := captureWarnings(t)

	weighted, err := NewClassificationLoss(ClassificationConfig{
		Binary:      []BinaryTargetSpec{Binary(0), Binary(1)},
		Weights:     []float64{5, 0.1},
		Reduction:   ReductionSum,
		BinaryTrick: true,
	})
	require.NoError(t, err)
	require.Len(t, *warnings, 2)

	var w *errors.ConfigWarning
	require.True(t, errors.As((*warnings)[0], &w))
	assert.Equal(t, "weights", w.Param)

	plain, err := NewClassificationLoss(ClassificationConfig{
		Binary:      []BinaryTargetSpec{Binary(0), Binary(1)},
		BinaryTrick: true,
	})
	require.NoError(t, err)

	pred := randomBatch(4, 8, 4)
	target := mat.NewDense(8, 2, []float64{0, 1, 1, 1, 0, 0, 1, 0, 1, 1, 0, 1, 0, 0, 1, 1})
	a, err := weighted.Compute(pred, target)
	require.NoError(t, err)
	b, err := plain.Compute(pred, target)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestClassificationGradient(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClassificationConfig
		cols int
	}{
		{
			name: "independent weighted",
			cfg: ClassificationConfig{
				Binary:     []BinaryTargetSpec{WeightedBinary(0, 2.5), Binary(1)},
				Multiclass: []MulticlassTargetSpec{WeightedMulticlass(2, 3, []float64{1, 0.2, 3}), Multiclass(5, 2)},
				Weights:    []float64{1, 2, 0.5, 1.5},
				Reduction:  ReductionMean,
			},
			cols: 7,
		},
		{
			name: "independent sum",
			cfg: ClassificationConfig{
				Binary:     []BinaryTargetSpec{Binary(0)},
				Multiclass: []MulticlassTargetSpec{Multiclass(1, 4)},
				Reduction:  ReductionSum,
			},
			cols: 5,
		},
		{
			name: "binary trick",
			cfg: ClassificationConfig{
				Binary:      []BinaryTargetSpec{Binary(0), Binary(1)},
				Multiclass:  []MulticlassTargetSpec{Multiclass(2, 3)},
				BinaryTrick: true,
			},
			cols: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loss, err := NewClassificationLoss(tt.cfg)
			require.NoError(t, err)

			const n = 6
			pred := randomBatch(5, n, tt.cols)
			target := mat.NewDense(n, loss.Layout().TargetWidth(), nil)
			for _, r := range loss.Layout().Ranges {
				k := 2
				if r.Kind == KindMulticlass {
					k = r.Width()
				}
				randomLabels(uint64(10+r.Target), target, r.Target, k)
			}

			got, err := loss.Gradient(pred, target)
			require.NoError(t, err)
			want := numericGradient(t, func(p mat.Matrix) (float64, error) {
				return loss.Compute(p, target)
			}, pred)
			requireMatrixInDelta(t, want, got, 1e-6)
		})
	}
}

func TestClassificationConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ClassificationConfig
		wantParam string
	}{
		{name: "no targets", cfg: ClassificationConfig{}, wantParam: "binary/multiclass"},
		{
			name:      "weight count",
			cfg:       ClassificationConfig{Binary: []BinaryTargetSpec{Binary(0)}, Weights: []float64{1, 2}},
			wantParam: "weights",
		},
		{
			name:      "non-finite weight",
			cfg:       ClassificationConfig{Binary: []BinaryTargetSpec{Binary(0)}, Weights: []float64{math.NaN()}},
			wantParam: "weights",
		},
		{
			name:      "reduction",
			cfg:       ClassificationConfig{Binary: []BinaryTargetSpec{Binary(0)}, Reduction: "none"},
			wantParam: "reduction",
		},
		{
			name: "trick order",
			cfg: ClassificationConfig{
				Binary:      []BinaryTargetSpec{Binary(4)},
				Multiclass:  []MulticlassTargetSpec{Multiclass(2, 3)},
				BinaryTrick: true,
			},
			wantParam: "binary",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassificationLoss(tt.cfg)
			var cfgErr *errors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.wantParam, cfgErr.Param)
		})
	}
}

func TestMulticlassLabelsAreValidatedBeforeConversion(t *testing.T) {
	strategies := []struct {
		name  string
		trick bool
		width int
	}{
		{name: "independent", trick: false, width: 4},
		{name: "binary trick", trick: true, width: 5},
	}
	labels := []struct {
		name  string
		value float64
	}{
		{name: "beyond int64", value: 1e300},
		{name: "just beyond int64", value: 1e19},
		{name: "non integral", value: 1.7},
		{name: "negative fraction", value: -0.5},
		{name: "equal to class count", value: 3},
		{name: "NaN", value: math.NaN()},
		{name: "positive infinity", value: math.Inf(1)},
	}

	for _, s := range strategies {
		loss, err := NewClassificationLoss(ClassificationConfig{
			Binary:      []BinaryTargetSpec{Binary(0)},
			Multiclass:  []MulticlassTargetSpec{Multiclass(1, 3)},
			BinaryTrick: s.trick,
		})
		require.NoError(t, err)
		pred := mat.NewDense(2, s.width, nil)

		for _, l := range labels {
			t.Run(s.name+"/"+l.name, func(t *testing.T) {
				target := mat.NewDense(2, 2, []float64{
					0, l.value,
					1, 0,
				})
				var valErr *errors.ValueError

				_, err := loss.Compute(pred, target)
				require.True(t, errors.As(err, &valErr), "got %v", err)
				assert.Contains(t, valErr.Message, "[0, 3)")

				_, err = loss.Gradient(pred, target)
				assert.True(t, errors.As(err, &valErr), "got %v", err)
			})
		}
	}
}
