package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/losses"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

func TestRegressionMetrics(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		wantMSE float64
		wantMAE float64
		wantR2  float64
		wantNaN bool
	}{
		{
			name:    "perfect prediction",
			yTrue:   []float64{1, 2, 3, 4, 5},
			yPred:   []float64{1, 2, 3, 4, 5},
			wantMSE: 0,
			wantMAE: 0,
			wantR2:  1,
		},
		{
			name:    "simple case",
			yTrue:   []float64{1, 2, 3, 4},
			yPred:   []float64{1.5, 2.5, 2.5, 3.5},
			wantMSE: 0.25, // (0.25 * 4) / 4
			wantMAE: 0.5,
			wantR2:  1 - 1.0/5.0, // RSS=1, TSS=5
		},
		{
			name:    "constant target",
			yTrue:   []float64{2, 2, 2},
			yPred:   []float64{1, 2, 3},
			wantMSE: 2.0 / 3.0,
			wantMAE: 2.0 / 3.0,
			wantNaN: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yTrue := mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			yPred := mat.NewVecDense(len(tt.yPred), tt.yPred)

			mse, err := MSE(yTrue, yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantMSE, mse, 1e-12)

			rmse, err := RMSE(yTrue, yPred)
			require.NoError(t, err)
			assert.InDelta(t, math.Sqrt(tt.wantMSE), rmse, 1e-12)

			mae, err := MAE(yTrue, yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantMAE, mae, 1e-12)

			r2, err := R2Score(yTrue, yPred)
			require.NoError(t, err)
			if tt.wantNaN {
				assert.True(t, math.IsNaN(r2))
			} else {
				assert.InDelta(t, tt.wantR2, r2, 1e-12)
			}
		})
	}
}

func TestRegressionMetricErrors(t *testing.T) {
	_, err := MSE(mat.NewVecDense(3, []float64{1, 2, 3}), mat.NewVecDense(2, []float64{1, 2}))
	var shapeErr *errors.ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))

	_, err = MAE(&mat.VecDense{}, &mat.VecDense{})
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}

func TestClassificationMetrics(t *testing.T) {
	acc, err := BinaryAccuracy(
		mat.NewVecDense(4, []float64{1, 0, 1, 0}),
		mat.NewVecDense(4, []float64{2.0, -1.0, -0.5, 0.3}),
	)
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	logits := mat.NewDense(3, 3, []float64{
		0.1, 2.0, 0.3,
		1.0, 0.0, -1.0,
		0.0, 0.1, 0.2,
	})
	acc, err = ArgmaxAccuracy(mat.NewVecDense(3, []float64{1, 0, 0}), logits)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, acc, 1e-12)
}

func TestEvaluate(t *testing.T) {
	t.Run("independent", func(t *testing.T) {
		loss, err := losses.New(losses.Config{
			Regression: []int{0},
			Binary:     []losses.BinaryTargetSpec{losses.Binary(1)},
			Multiclass: []losses.MulticlassTargetSpec{losses.Multiclass(2, 3)},
		})
		require.NoError(t, err)

		pred := mat.NewDense(2, 5, []float64{
			1.0, 0.5, 0.1, 0.9, 0.2,
			3.0, 0.5, 2.0, 0.0, 0.1,
		})
		target := mat.NewDense(2, 3, []float64{
			1.0, 1, 1,
			2.0, 0, 1,
		})
		got, err := Evaluate(loss.Layout(), pred, target)
		require.NoError(t, err)
		require.Len(t, got, 3)

		assert.Equal(t, losses.KindRegression, got[0].Kind)
		assert.InDelta(t, math.Sqrt(0.5), got[0].RMSE, 1e-12)
		assert.InDelta(t, 0.5, got[0].MAE, 1e-12)
		assert.Equal(t, 0.5, got[1].Accuracy)
		assert.Equal(t, 0.5, got[2].Accuracy)
	})

	t.Run("binary trick", func(t *testing.T) {
		loss, err := losses.New(losses.Config{
			Binary:      []losses.BinaryTargetSpec{losses.Binary(0)},
			Multiclass:  []losses.MulticlassTargetSpec{losses.Multiclass(1, 2)},
			BinaryTrick: true,
		})
		require.NoError(t, err)

		pred := mat.NewDense(2, 4, []float64{
			0.1, 0.9, 1.0, 0.0,
			0.8, 0.2, 0.0, 1.0,
		})
		target := mat.NewDense(2, 2, []float64{
			1, 0,
			0, 0,
		})
		got, err := Evaluate(loss.Layout(), pred, target)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got[0].Accuracy)
		assert.Equal(t, 0.5, got[1].Accuracy)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		loss, err := losses.New(losses.Config{Binary: []losses.BinaryTargetSpec{losses.Binary(2)}})
		require.NoError(t, err)
		_, err = Evaluate(loss.Layout(), mat.NewDense(2, 2, nil), mat.NewDense(2, 3, nil))
		var shapeErr *errors.ShapeMismatchError
		assert.True(t, errors.As(err, &shapeErr))
	})
}
