package losses

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
	"github.com/YuminosukeSato/tabloss/pkg/log"
)

// naiveBCE is the textbook form -[pw*y*log(p) + (1-y)*log(1-p)].
func naiveBCE(x, y, posWeight float64) float64 {
	p := 1 / (1 + math.Exp(-x))
	return -(posWeight*y*math.Log(p) + (1-y)*math.Log(1-p))
}

// naiveCE is -log(softmax(logits)[label]).
func naiveCE(logits []float64, label int) float64 {
	var z float64
	for _, v := range logits {
		z += math.Exp(v)
	}
	return -math.Log(math.Exp(logits[label]) / z)
}

// randomBatch returns an n x predCols matrix of N(0, 1) logits.
func randomBatch(seed uint64, n, cols int) *mat.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed+1)}
	data := make([]float64, n*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(n, cols, data)
}

// randomLabels fills column col of target with labels in [0, k).
func randomLabels(seed uint64, target *mat.Dense, col, k int) {
	dist := distuv.Uniform{Min: 0, Max: float64(k), Src: rand.NewPCG(seed, seed+7)}
	n, _ := target.Dims()
	for i := 0; i < n; i++ {
		target.Set(i, col, math.Floor(dist.Rand()))
	}
}

// numericGradient approximates dLoss/dPred by central differences.
func numericGradient(t *testing.T, f func(mat.Matrix) (float64, error), pred *mat.Dense) *mat.Dense {
	t.Helper()
	const h = 1e-6
	rows, cols := pred.Dims()
	x := mat.DenseCopyOf(pred)
	grad := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			orig := x.At(i, j)
			x.Set(i, j, orig+h)
			up, err := f(x)
			require.NoError(t, err)
			x.Set(i, j, orig-h)
			down, err := f(x)
			require.NoError(t, err)
			x.Set(i, j, orig)
			grad.Set(i, j, (up-down)/(2*h))
		}
	}
	return grad
}

func requireMatrixInDelta(t *testing.T, want, got mat.Matrix, delta float64) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, []int{wr, wc}, []int{gr, gc}, "matrix shape")
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), delta, "cell (%d, %d)", i, j)
		}
	}
}

// captureWarnings collects warnings raised through errors.Warn for the
// duration of the test.
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetZerologWarnFunc(func(w error) { got = append(got, w) })
	t.Cleanup(func() {
		errors.SetZerologWarnFunc(func(w error) {
			log.GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
		})
	})
	return &got
}
