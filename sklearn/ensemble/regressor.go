package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kfurusho/metago/core/model"
	"github.com/kfurusho/metago/leaf"
	"github.com/kfurusho/metago/metatree"
	"github.com/kfurusho/metago/metrics"
	"github.com/kfurusho/metago/pkg/errors"
	"github.com/kfurusho/metago/proposer"
)

// MetaTreeRegressor は回帰のための scikit-learn 互換メタツリー推定器です。
// 葉モデルは Normal-Gamma で、予測は二乗損失最適な事後予測平均です。
type MetaTreeRegressor struct {
	model.BaseEstimator
	opts options

	lm *metatree.LearnModel

	// Model attributes (scikit-learn compatible naming)
	NFeaturesIn_ int
}

// コンパイル時のインターフェース実装チェック
var (
	_ model.Fitter             = (*MetaTreeRegressor)(nil)
	_ model.Predictor          = (*MetaTreeRegressor)(nil)
	_ model.Scorer             = (*MetaTreeRegressor)(nil)
	_ model.IncrementalLearner = (*MetaTreeRegressor)(nil)
)

// NewMetaTreeRegressor creates a new scikit-learn compatible meta-tree
// regressor.
func NewMetaTreeRegressor(opts ...Option) *MetaTreeRegressor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MetaTreeRegressor{opts: o}
}

// Fit はランダムフォレスト(分散基準)で候補トポロジーを提案し、バッチ全体で
// メタツリー事後分布を学習します。
func (r *MetaTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "MetaTreeRegressor.Fit")

	xi, yv, err := r.convert(X, y, "MetaTreeRegressor.Fit")
	if err != nil {
		return err
	}

	_, nFeatures := X.Dims()
	forest, err := proposer.New(nFeatures, r.opts.numChildren, r.opts.maxDepth,
		proposer.WithNumTrees(r.opts.numTrees),
		proposer.WithCriterion(proposer.Variance),
		proposer.WithSeed(r.opts.seed))
	if err != nil {
		return err
	}
	lm, err := metatree.NewLearnModel(nFeatures,
		metatree.WithNumChildren(r.opts.numChildren),
		metatree.WithMaxDepth(r.opts.maxDepth),
		metatree.WithStopWeight(r.opts.stopWeight),
		metatree.WithLeafModel(leaf.DefaultNormal()),
		metatree.WithSeed(r.opts.seed),
		metatree.WithProposer(forest))
	if err != nil {
		return err
	}
	if err := lm.Fit(xi, yv); err != nil {
		return err
	}

	r.lm = lm
	r.NFeaturesIn_ = nFeatures
	r.SetFitted()
	return nil
}

// PartialFit はミニバッチで逐次学習します。初回呼び出しはそのバッチから
// トポロジーを提案し、以後は固定トポロジーの事後更新になります。
// classes は回帰では無視されます。
func (r *MetaTreeRegressor) PartialFit(X, y mat.Matrix, classes []int) (err error) {
	defer errors.Recover(&err, "MetaTreeRegressor.PartialFit")

	if !r.IsFitted() {
		return r.Fit(X, y)
	}
	xi, yv, err := r.convert(X, y, "MetaTreeRegressor.PartialFit")
	if err != nil {
		return err
	}
	return r.lm.Update(xi, yv)
}

// Predict は各サンプルの事後予測平均を (n×1) 行列で返します。
func (r *MetaTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("MetaTreeRegressor", "Predict")
	}
	xi, err := toIntMatrix(X, r.opts.numChildren, "MetaTreeRegressor.Predict")
	if err != nil {
		return nil, err
	}
	if len(xi[0]) != r.NFeaturesIn_ {
		return nil, errors.NewDimensionError("MetaTreeRegressor.Predict",
			r.NFeaturesIn_, len(xi[0]), 1)
	}

	out := mat.NewDense(len(xi), 1, nil)
	for i, row := range xi {
		p, err := r.lm.Predict(row, leaf.LossSquared)
		if err != nil {
			return nil, err
		}
		out.Set(i, 0, p)
	}
	return out, nil
}

// Score は決定係数 R² を返します。
func (r *MetaTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// LearnModel は内側の metatree.LearnModel を返します。未学習なら nil です。
func (r *MetaTreeRegressor) LearnModel() *metatree.LearnModel { return r.lm }

func (r *MetaTreeRegressor) convert(X, y mat.Matrix, op string) ([][]int, []float64, error) {
	xi, err := toIntMatrix(X, r.opts.numChildren, op)
	if err != nil {
		return nil, nil, err
	}
	yv, err := toVector(y, len(xi), op)
	if err != nil {
		return nil, nil, err
	}
	return xi, yv, nil
}
