package ensemble

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kfurusho/metago/pkg/errors"
)

// 丸めを許容する整数コード判定の閾値。これを超える端数は変換エラー。
const integerCodingTol = 1e-9

// toIntMatrix は mat.Matrix を整数コード化された特徴行列へ変換します。
// 値は [0, numChildren) の整数でなければなりません。閾値内の端数は丸めた
// 上で DataConversionWarning を一度だけ発行し、それを超える端数は
// DataFormatError になります。
func toIntMatrix(X mat.Matrix, numChildren int, op string) ([][]int, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	warned := false
	out := make([][]int, r)
	for i := 0; i < r; i++ {
		row := make([]int, c)
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			rounded := math.Round(v)
			if math.IsNaN(v) || math.Abs(v-rounded) > integerCodingTol {
				return nil, errors.NewDataFormatError(op,
					"features must be integer-coded", v)
			}
			if v != rounded && !warned {
				errors.Warn(errors.NewDataConversionWarning("float64", "int",
					"feature values were rounded to the nearest integer code"))
				warned = true
			}
			iv := int(rounded)
			if iv < 0 || iv >= numChildren {
				return nil, errors.NewDataFormatError(op,
					"feature codes must lie in [0, numChildren)", v)
			}
			row[j] = iv
		}
		out[i] = row
	}
	return out, nil
}

// toVector は (n×1) の目的変数行列をスライスへ変換します。
func toVector(y mat.Matrix, wantRows int, op string) ([]float64, error) {
	r, c := y.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError(op, 1, c, 1)
	}
	if r != wantRows {
		return nil, errors.NewDimensionError(op, wantRows, r, 0)
	}
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = y.At(i, 0)
	}
	return out, nil
}
