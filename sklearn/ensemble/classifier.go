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

// MetaTreeClassifier は二値分類のための scikit-learn 互換メタツリー推定器
// です。葉モデルは Beta-Bernoulli で、予測は 0-1 損失最適な最頻クラスです。
type MetaTreeClassifier struct {
	model.BaseEstimator
	opts options

	lm *metatree.LearnModel

	// Model attributes (scikit-learn compatible naming)
	NFeaturesIn_ int
	Classes_     []int
}

// コンパイル時のインターフェース実装チェック
var (
	_ model.Fitter             = (*MetaTreeClassifier)(nil)
	_ model.Predictor          = (*MetaTreeClassifier)(nil)
	_ model.Scorer             = (*MetaTreeClassifier)(nil)
	_ model.IncrementalLearner = (*MetaTreeClassifier)(nil)
)

// NewMetaTreeClassifier creates a new scikit-learn compatible meta-tree
// classifier.
func NewMetaTreeClassifier(opts ...Option) *MetaTreeClassifier {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MetaTreeClassifier{opts: o, Classes_: []int{0, 1}}
}

// Fit はランダムフォレストで候補トポロジーを提案し、バッチ全体で
// メタツリー事後分布を学習します。
func (c *MetaTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "MetaTreeClassifier.Fit")

	xi, yv, err := c.convert(X, y, "MetaTreeClassifier.Fit")
	if err != nil {
		return err
	}
	for _, v := range yv {
		if v != 0 && v != 1 {
			return errors.NewDataFormatError("MetaTreeClassifier.Fit",
				"class labels must be 0 or 1", v)
		}
	}

	_, nFeatures := X.Dims()
	forest, err := proposer.New(nFeatures, c.opts.numChildren, c.opts.maxDepth,
		proposer.WithNumTrees(c.opts.numTrees),
		proposer.WithCriterion(proposer.Gini),
		proposer.WithSeed(c.opts.seed))
	if err != nil {
		return err
	}
	lm, err := metatree.NewLearnModel(nFeatures,
		metatree.WithNumChildren(c.opts.numChildren),
		metatree.WithMaxDepth(c.opts.maxDepth),
		metatree.WithStopWeight(c.opts.stopWeight),
		metatree.WithLeafModel(leaf.DefaultBernoulli()),
		metatree.WithSeed(c.opts.seed),
		metatree.WithProposer(forest))
	if err != nil {
		return err
	}
	if err := lm.Fit(xi, yv); err != nil {
		return err
	}

	c.lm = lm
	c.NFeaturesIn_ = nFeatures
	c.SetFitted()
	return nil
}

// PartialFit はミニバッチで逐次学習します。初回呼び出しはそのバッチから
// トポロジーを提案し、以後は固定トポロジーの事後更新になります。
func (c *MetaTreeClassifier) PartialFit(X, y mat.Matrix, classes []int) (err error) {
	defer errors.Recover(&err, "MetaTreeClassifier.PartialFit")

	if !c.IsFitted() {
		return c.Fit(X, y)
	}
	xi, yv, err := c.convert(X, y, "MetaTreeClassifier.PartialFit")
	if err != nil {
		return err
	}
	return c.lm.Update(xi, yv)
}

// Predict は各サンプルの最頻クラスを (n×1) 行列で返します。
func (c *MetaTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("MetaTreeClassifier", "Predict")
	}
	xi, err := toIntMatrix(X, c.opts.numChildren, "MetaTreeClassifier.Predict")
	if err != nil {
		return nil, err
	}
	if len(xi[0]) != c.NFeaturesIn_ {
		return nil, errors.NewDimensionError("MetaTreeClassifier.Predict",
			c.NFeaturesIn_, len(xi[0]), 1)
	}

	out := mat.NewDense(len(xi), 1, nil)
	for i, row := range xi {
		p, err := c.lm.Predict(row, leaf.LossZeroOne)
		if err != nil {
			return nil, err
		}
		out.Set(i, 0, p)
	}
	return out, nil
}

// Score は正解率を返します。
func (c *MetaTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// LearnModel は内側の metatree.LearnModel を返します。未学習なら nil です。
func (c *MetaTreeClassifier) LearnModel() *metatree.LearnModel { return c.lm }

func (c *MetaTreeClassifier) convert(X, y mat.Matrix, op string) ([][]int, []float64, error) {
	xi, err := toIntMatrix(X, c.opts.numChildren, op)
	if err != nil {
		return nil, nil, err
	}
	yv, err := toVector(y, len(xi), op)
	if err != nil {
		return nil, nil, err
	}
	return xi, yv, nil
}
