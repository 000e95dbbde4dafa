package losses

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/core/parallel"
	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// rowThreshold は行方向カーネルを並列化する最小バッチサイズです。
var rowThreshold = parallel.DefaultRowThreshold

// columnView selects a subset of columns of m without copying.
type columnView struct {
	m    mat.Matrix
	cols []int
}

func (v columnView) Dims() (int, int) {
	r, _ := v.m.Dims()
	return r, len(v.cols)
}

func (v columnView) At(i, j int) float64 {
	return v.m.At(i, v.cols[j])
}

func (v columnView) T() mat.Matrix {
	return mat.Transpose{Matrix: v}
}

// columnRange returns the indices start, start+1, ..., end-1.
func columnRange(start, end int) []int {
	cols := make([]int, 0, end-start)
	for c := start; c < end; c++ {
		cols = append(cols, c)
	}
	return cols
}

// bceWithLogits は pos_weight 付きの binary cross entropy with logits です。
//
//	l = pw*y*softplus(-x) + (1-y)*softplus(x)
func bceWithLogits(x, y, posWeight float64) float64 {
	return posWeight*y*errors.Softplus(-x) + (1-y)*errors.Softplus(x)
}

// bceWithLogitsGrad は bceWithLogits の x に関する微分です。
func bceWithLogitsGrad(x, y, posWeight float64) float64 {
	return -posWeight*y*errors.Sigmoid(-x) + (1-y)*errors.Sigmoid(x)
}

// binaryColumnLoss computes the mean BCE-with-logits of prediction column
// predCol against target column targetCol. When grad is non-nil, coef times
// the gradient of the mean is added into grad at predCol.
func binaryColumnLoss(pred, target mat.Matrix, predCol, targetCol int, posWeight float64, grad *mat.Dense, coef float64, buf []float64) float64 {
	n := len(buf)
	scale := coef / float64(n)
	parallel.MapRows(buf, rowThreshold, func(i int) float64 {
		x, y := pred.At(i, predCol), target.At(i, targetCol)
		if grad != nil {
			grad.Set(i, predCol, grad.At(i, predCol)+scale*bceWithLogitsGrad(x, y, posWeight))
		}
		return bceWithLogits(x, y, posWeight)
	})
	return floats.Sum(buf) / float64(n)
}

// classLabels reads column col of target as integral class labels in [0, k).
// The range is checked on the float value, before any conversion to int.
func classLabels(op string, target mat.Matrix, col, k int) ([]int, error) {
	n, _ := target.Dims()
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		v := target.At(i, col)
		if math.IsNaN(v) || v < 0 || v >= float64(k) || v != math.Trunc(v) {
			return nil, errors.NewValueError(op,
				fmt.Sprintf("target column %d row %d holds label %v, expected a class in [0, %d)", col, i, v, k))
		}
		labels[i] = int(v)
	}
	return labels, nil
}

// binaryLabels reads column col of target as hard 0/1 labels.
func binaryLabels(op string, target mat.Matrix, col int) ([]int, error) {
	n, _ := target.Dims()
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		switch v := target.At(i, col); v {
		case 0, 1:
			labels[i] = int(v)
		default:
			return nil, errors.NewValueError(op,
				fmt.Sprintf("target column %d row %d holds label %v, expected 0 or 1", col, i, v))
		}
	}
	return labels, nil
}

// crossEntropyLoss computes the categorical cross entropy of the logits in
// prediction columns [start, start+k) against labels. With class weights the
// result is the weighted mean sum(w[y]*nll) / sum(w[y]); without them it is
// the plain mean over rows. When grad is non-nil, coef times the gradient is
// added into grad.
func crossEntropyLoss(pred mat.Matrix, start, k int, labels []int, classWeights []float64, grad *mat.Dense, coef float64, buf []float64) float64 {
	n := len(labels)
	weightOf := func(int) float64 { return 1 }
	if classWeights != nil {
		weightOf = func(c int) float64 { return classWeights[c] }
	}
	var denom float64
	for _, y := range labels {
		denom += weightOf(y)
	}

	parallel.ParallelizeWithThreshold(n, rowThreshold, func(lo, hi int) {
		logits := make([]float64, k)
		logp := make([]float64, k)
		for i := lo; i < hi; i++ {
			for c := 0; c < k; c++ {
				logits[c] = pred.At(i, start+c)
			}
			errors.LogSoftmax(logp, logits)
			y := labels[i]
			w := weightOf(y)
			buf[i] = -w * logp[y]
			if grad == nil {
				continue
			}
			scale := coef * w / denom
			for c := 0; c < k; c++ {
				g := math.Exp(logp[c])
				if c == y {
					g--
				}
				grad.Set(i, start+c, grad.At(i, start+c)+scale*g)
			}
		}
	})
	return floats.Sum(buf) / denom
}

// checkBatch validates the row counts shared by every forward pass.
func checkBatch(op string, pred, target mat.Matrix) (int, error) {
	pr, _ := pred.Dims()
	tr, tc := target.Dims()
	if pr != tr {
		return 0, errors.NewShapeMismatchError(op, []int{pr, tc}, []int{tr, tc},
			"predictions and targets must have the same number of rows")
	}
	if pr == 0 {
		return 0, errors.NewValueError(op, "empty batch")
	}
	return pr, nil
}

// checkWidths validates the column counts against a layout. When exact is
// true the prediction width must match exactly.
func checkWidths(op string, pred, target mat.Matrix, predWidth, targetWidth int, exact bool) error {
	n, pc := pred.Dims()
	_, tc := target.Dims()
	if pc < predWidth || (exact && pc != predWidth) {
		return errors.NewShapeMismatchError(op, []int{n, predWidth}, []int{n, pc},
			"prediction columns do not match the configured targets")
	}
	if tc < targetWidth {
		return errors.NewShapeMismatchError(op, []int{n, targetWidth}, []int{n, tc},
			"target matrix is narrower than the highest configured target index")
	}
	return nil
}
