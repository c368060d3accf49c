package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/kfurusho/metago/pkg/errors"
)

const tol = 1e-12

func col(vals ...float64) *mat.Dense {
	return mat.NewDense(len(vals), 1, vals)
}

func TestMSE(t *testing.T) {
	got, err := MSE(col(1, 2, 3), col(1, 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("MSE of identical vectors = %v, want 0", got)
	}

	got, err = MSE(col(0, 0), col(1, 3))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-5) > tol {
		t.Errorf("MSE = %v, want 5", got)
	}
}

func TestRMSEAndMAE(t *testing.T) {
	yTrue, yPred := col(0, 0, 0, 0), col(2, 2, 2, 2)

	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rmse-2) > tol {
		t.Errorf("RMSE = %v, want 2", rmse)
	}

	mae, err := MAE(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(mae-2) > tol {
		t.Errorf("MAE = %v, want 2", mae)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name         string
		yTrue, yPred *mat.Dense
		want         float64
	}{
		{"perfect fit", col(1, 2, 3), col(1, 2, 3), 1},
		{"mean predictor", col(1, 2, 3), col(2, 2, 2), 0},
		{"constant target matched", col(5, 5), col(5, 5), 1},
		{"constant target missed", col(5, 5), col(4, 6), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > tol {
				t.Errorf("R2Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccuracy(t *testing.T) {
	got, err := Accuracy(col(0, 1, 1, 0), col(0, 1, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.75) > tol {
		t.Errorf("Accuracy = %v, want 0.75", got)
	}
}

func TestShapeValidation(t *testing.T) {
	if _, err := MSE(col(1, 2), col(1)); err == nil {
		t.Error("length mismatch should be rejected")
	}
	if _, err := MSE(mat.NewDense(2, 2, nil), col(1, 2)); err == nil {
		t.Error("multi-column input should be rejected")
	}
	var de *errors.DimensionError
	_, err := Accuracy(col(1, 2, 3), col(1, 2))
	if err == nil || !errors.As(err, &de) {
		t.Errorf("error = %v, want *DimensionError", err)
	}
}
