package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer は評価スコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は分類なら正解率、回帰なら決定係数（R²）を返す
	Score(X, y mat.Matrix) (float64, error)
}

// IncrementalLearner は逐次学習（オンライン更新）可能なモデルのインターフェース
// scikit-learnのpartial_fit APIと互換性を持つ
type IncrementalLearner interface {
	// PartialFit はミニバッチでモデルを逐次的に学習させる
	// classes は分類問題の場合に全クラスラベルを指定（回帰では nil）
	PartialFit(X, y mat.Matrix, classes []int) error
}

// Regressor は回帰モデルの複合インターフェース
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// Classifier は分類モデルの複合インターフェース
type Classifier interface {
	Fitter
	Predictor
	Scorer
}
