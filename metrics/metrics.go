// Package metrics は予測結果の評価指標を提供します。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kfurusho/metago/pkg/errors"
)

// column は (n×1) 行列をスライスへ取り出します。全指標の共通入口です。
func column(m mat.Matrix, op string) ([]float64, error) {
	r, c := m.Dims()
	if r == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if c != 1 {
		return nil, errors.NewDimensionError(op, 1, c, 1)
	}
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out, nil
}

func pair(yTrue, yPred mat.Matrix, op string) ([]float64, []float64, error) {
	t, err := column(yTrue, op)
	if err != nil {
		return nil, nil, err
	}
	p, err := column(yPred, op)
	if err != nil {
		return nil, nil, err
	}
	if len(t) != len(p) {
		return nil, nil, errors.NewDimensionError(op, len(t), len(p), 0)
	}
	return t, p, nil
}

// MSE は平均二乗誤差を計算する
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair(yTrue, yPred, "metrics.MSE")
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range t {
		d := t[i] - p[i]
		sum += d * d
	}
	return sum / float64(len(t)), nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair(yTrue, yPred, "metrics.MAE")
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range t {
		sum += math.Abs(t[i] - p[i])
	}
	return sum / float64(len(t)), nil
}

// R2Score は決定係数（R²）を計算する。
// 真値が定数の場合は、予測が完全一致なら 1、そうでなければ 0 を返す。
func R2Score(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair(yTrue, yPred, "metrics.R2Score")
	if err != nil {
		return 0, err
	}

	var mean float64
	for _, v := range t {
		mean += v
	}
	mean /= float64(len(t))

	var tss, rss float64
	for i := range t {
		tss += (t[i] - mean) * (t[i] - mean)
		rss += (t[i] - p[i]) * (t[i] - p[i])
	}
	if tss == 0 {
		if rss == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - rss/tss, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pair(yTrue, yPred, "metrics.Accuracy")
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}
