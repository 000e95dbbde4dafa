package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabloss/pkg/errors"
)

// BinaryAccuracy は単一ロジット列の正解率を計算する。ロジットが正なら陽性と予測する。
func BinaryAccuracy(yTrue, logits mat.Vector) (float64, error) {
	n, err := checkVectors("BinaryAccuracy", yTrue, logits)
	if err != nil {
		return 0, err
	}

	var correct int
	for i := 0; i < n; i++ {
		predicted := 0.0
		if logits.AtVec(i) > 0 {
			predicted = 1
		}
		if predicted == yTrue.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ArgmaxAccuracy は k 列のロジットブロックの argmax とクラスラベルを比較する。
func ArgmaxAccuracy(labels mat.Vector, logits mat.Matrix) (float64, error) {
	n, k := logits.Dims()
	if labels.Len() != n {
		return 0, errors.NewShapeMismatchError("ArgmaxAccuracy", []int{n}, []int{labels.Len()}, "")
	}
	if n == 0 || k == 0 {
		return 0, errors.NewValueError("ArgmaxAccuracy", "empty logits")
	}

	row := make([]float64, k)
	var correct int
	for i := 0; i < n; i++ {
		mat.Row(row, i, logits)
		if float64(floats.MaxIdx(row)) == labels.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}
