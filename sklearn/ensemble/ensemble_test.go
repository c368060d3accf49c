package ensemble

import (
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/kfurusho/metago/pkg/errors"
)

// makeClassification は y がほぼ特徴量0で決まる二値データを行列で返します。
func makeClassification(n, numFeatures int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, numFeatures, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < numFeatures; j++ {
			X.Set(i, j, float64(rng.IntN(2)))
		}
		label := X.At(i, 0)
		if rng.Float64() < 0.05 {
			label = 1 - label
		}
		y.Set(i, 0, label)
	}
	return X, y
}

func TestClassifierFitPredictScore(t *testing.T) {
	X, y := makeClassification(300, 3, 7)
	clf := NewMetaTreeClassifier(WithSeed(7), WithNumTrees(8), WithMaxDepth(3))

	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if !clf.IsFitted() {
		t.Error("estimator should report fitted state")
	}
	if clf.NFeaturesIn_ != 3 {
		t.Errorf("NFeaturesIn_ = %d, want 3", clf.NFeaturesIn_)
	}

	pred, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if r, c := pred.Dims(); r != 300 || c != 1 {
		t.Fatalf("prediction shape = (%d, %d), want (300, 1)", r, c)
	}
	for i := 0; i < 300; i++ {
		if v := pred.At(i, 0); v != 0 && v != 1 {
			t.Fatalf("prediction %d = %v, want a class label", i, v)
		}
	}

	acc, err := clf.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if acc < 0.85 {
		t.Errorf("training accuracy = %v, want at least 0.85", acc)
	}
}

func TestClassifierPredictBeforeFit(t *testing.T) {
	clf := NewMetaTreeClassifier()
	X := mat.NewDense(1, 2, []float64{0, 1})
	_, err := clf.Predict(X)
	var nfe *errors.NotFittedError
	if err == nil || !errors.As(err, &nfe) {
		t.Fatalf("error = %v, want *NotFittedError", err)
	}
}

func TestClassifierRejectsNonBinaryLabels(t *testing.T) {
	clf := NewMetaTreeClassifier()
	X := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	y := mat.NewDense(2, 1, []float64{0, 2})
	if err := clf.Fit(X, y); err == nil {
		t.Fatal("labels outside {0, 1} should be rejected")
	}
}

func TestIntegerCodingValidation(t *testing.T) {
	clf := NewMetaTreeClassifier()

	// 閾値を超える端数はエラー
	X := mat.NewDense(2, 2, []float64{0, 0.5, 1, 0})
	y := mat.NewDense(2, 1, []float64{0, 1})
	if err := clf.Fit(X, y); err == nil {
		t.Fatal("fractional feature values should be rejected")
	}
	var dfe *errors.DataFormatError
	if err := clf.Fit(X, y); !errors.As(err, &dfe) {
		t.Errorf("error type = %T, want *DataFormatError", err)
	}

	// 閾値内の端数は丸めて警告
	var warned error
	errors.SetWarningHandler(func(w error) { warned = w })
	defer errors.SetWarningHandler(func(error) {})

	X2, y2 := makeClassification(50, 2, 3)
	X2.Set(0, 0, X2.At(0, 0)+1e-12)
	clf2 := NewMetaTreeClassifier(WithSeed(3))
	if err := clf2.Fit(X2, y2); err != nil {
		t.Fatalf("near-integer features should be accepted: %v", err)
	}
	var dcw *errors.DataConversionWarning
	if warned == nil || !errors.As(warned, &dcw) {
		t.Errorf("warning = %v, want *DataConversionWarning", warned)
	}
}

func TestClassifierPartialFit(t *testing.T) {
	X1, y1 := makeClassification(120, 3, 11)
	X2, y2 := makeClassification(120, 3, 13)
	clf := NewMetaTreeClassifier(WithSeed(11), WithMaxDepth(3))

	// 初回はトポロジー提案込みの学習、2回目は固定トポロジーの事後更新
	if err := clf.PartialFit(X1, y1, []int{0, 1}); err != nil {
		t.Fatalf("first PartialFit failed: %v", err)
	}
	if err := clf.PartialFit(X2, y2, nil); err != nil {
		t.Fatalf("second PartialFit failed: %v", err)
	}

	acc, err := clf.Score(X2, y2)
	if err != nil {
		t.Fatal(err)
	}
	if acc < 0.8 {
		t.Errorf("accuracy after incremental update = %v, want at least 0.8", acc)
	}
}

func TestClassifierPredictDimensionMismatch(t *testing.T) {
	X, y := makeClassification(60, 3, 5)
	clf := NewMetaTreeClassifier(WithSeed(5))
	if err := clf.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	bad := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	_, err := clf.Predict(bad)
	var de *errors.DimensionError
	if err == nil || !errors.As(err, &de) {
		t.Fatalf("error = %v, want *DimensionError", err)
	}
}

func TestRegressorFitPredictScore(t *testing.T) {
	rng := rand.New(rand.NewPCG(19, 19))
	const n = 300
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			X.Set(i, j, float64(rng.IntN(2)))
		}
		y.Set(i, 0, 5*X.At(i, 1))
	}

	reg := NewMetaTreeRegressor(WithSeed(19), WithNumTrees(8), WithMaxDepth(3))
	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	r2, err := reg.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if r2 < 0.8 {
		t.Errorf("training R² = %v, want at least 0.8", r2)
	}
}

func TestRegressorPredictBeforeFit(t *testing.T) {
	reg := NewMetaTreeRegressor()
	_, err := reg.Predict(mat.NewDense(1, 2, []float64{0, 1}))
	var nfe *errors.NotFittedError
	if err == nil || !errors.As(err, &nfe) {
		t.Fatalf("error = %v, want *NotFittedError", err)
	}
}

func TestVectorShapeValidation(t *testing.T) {
	clf := NewMetaTreeClassifier()
	X := mat.NewDense(2, 2, []float64{0, 1, 1, 0})

	// y の行数不一致
	if err := clf.Fit(X, mat.NewDense(3, 1, []float64{0, 1, 0})); err == nil {
		t.Error("row-count mismatch should be rejected")
	}
	// y が多列
	if err := clf.Fit(X, mat.NewDense(2, 2, []float64{0, 1, 1, 0})); err == nil {
		t.Error("multi-column target should be rejected")
	}
}
