package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewParameterFormatError(t *testing.T) {
	tests := []struct {
		name     string
		param    string
		reason   string
		value    interface{}
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "stop probability out of range",
			param:    "g",
			reason:   "must be in [0, 1]",
			value:    1.5,
			wantMsg:  "metago: invalid parameter 'g': must be in [0, 1] (got: 1.5)",
			hasStack: true,
		},
		{
			name:     "probability vector sum",
			param:    "featureProbs",
			reason:   "must sum to 1",
			value:    0.9,
			wantMsg:  "metago: invalid parameter 'featureProbs': must sum to 1 (got: 0.9)",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewParameterFormatError(tt.param, tt.reason, tt.value)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			// ParameterFormatError型にキャスト可能か確認
			var paramErr *ParameterFormatError
			if !As(err, &paramErr) {
				t.Error("Error should be castable to *ParameterFormatError")
			}
		})
	}
}

func TestNewDataFormatError(t *testing.T) {
	err := NewDataFormatError("UpdatePosterior", "x entries must be in [0, numChildren)", 7)
	want := "metago: UpdatePosterior: invalid data: x entries must be in [0, numChildren) (got: 7)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dataErr *DataFormatError
	if !As(err, &dataErr) {
		t.Fatal("Error should be castable to *DataFormatError")
	}
	if dataErr.Op != "UpdatePosterior" {
		t.Errorf("Op = %v, want UpdatePosterior", dataErr.Op)
	}
}

func TestNewStructuralMismatchError(t *testing.T) {
	err := NewStructuralMismatchError("buildFromSkeleton", 2, 3, "feature already used on this path")
	want := "metago: buildFromSkeleton: structural mismatch at depth 3 (feature 2): feature already used on this path"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var structErr *StructuralMismatchError
	if !As(err, &structErr) {
		t.Fatal("Error should be castable to *StructuralMismatchError")
	}
	if structErr.Feature != 2 || structErr.Depth != 3 {
		t.Errorf("Feature/Depth = %d/%d, want 2/3", structErr.Feature, structErr.Depth)
	}
}

func TestNewCriteriaError(t *testing.T) {
	err := NewCriteriaError("MakePrediction", "KL", []string{"squared", "0-1"})
	if !strings.Contains(err.Error(), `unsupported criterion "KL"`) {
		t.Errorf("Error() = %v, want message naming the criterion", err.Error())
	}

	var critErr *CriteriaError
	if !As(err, &critErr) {
		t.Fatal("Error should be castable to *CriteriaError")
	}
	if len(critErr.Supported) != 2 {
		t.Errorf("Supported = %v, want two entries", critErr.Supported)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("MetaTreeClassifier", "Predict")
	want := "metago: MetaTreeClassifier: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 3, 5, 1)
	want := "metago: Predict: dimension mismatch on axis 1 (features). Expected 3, got 5"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWarningHandler(t *testing.T) {
	var captured error
	SetWarningHandler(func(w error) {
		captured = w
	})
	defer SetWarningHandler(func(w error) {})

	w := NewResultWarning("merge", "all candidates were structurally identical")
	Warn(w)

	if captured == nil {
		t.Fatal("warning handler was not invoked")
	}
	if !strings.Contains(captured.Error(), "structurally identical") {
		t.Errorf("captured = %v, want the original warning", captured)
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("reweight", []float64{-1.5, -2.25, -0.1}, 0); err != nil {
		t.Errorf("finite values should pass, got %v", err)
	}

	err := CheckNumericalStability("reweight", []float64{-1.5, math.NaN()}, 3)
	if err == nil {
		t.Fatal("NaN should be detected")
	}
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatal("Error should be castable to *NumericalInstabilityError")
	}
	if numErr.Iteration != 3 {
		t.Errorf("Iteration = %d, want 3", numErr.Iteration)
	}
}

func TestCheckFinite(t *testing.T) {
	// -Inf は対数領域の重み累積で正当に現れるため許容される
	if err := CheckFinite("reweight", []float64{math.Inf(-1), -2.0}, 0); err != nil {
		t.Errorf("-Inf should be tolerated, got %v", err)
	}
	if err := CheckFinite("reweight", []float64{math.Inf(1)}, 0); err == nil {
		t.Error("+Inf should be detected")
	}
}

func TestWrapHelpers(t *testing.T) {
	base := New("base failure")
	wrapped := Wrap(base, "while reweighting candidates")
	if !Is(wrapped, base) {
		t.Error("wrapped error should match the base error via Is")
	}
	if !strings.Contains(wrapped.Error(), "while reweighting candidates") {
		t.Errorf("wrapped message = %v", wrapped.Error())
	}
}
