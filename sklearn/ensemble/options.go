// Package ensemble は scikit-learn 互換のメタツリー推定器を提供します。
//
// MetaTreeClassifier / MetaTreeRegressor は gonum/mat の行列を受け取る
// 外側の皮で、実体は metatree.LearnModel とランダムフォレスト提案器の
// 組み合わせです。特徴量は整数コード化されている必要があります。
package ensemble

// options は両推定器が共有する設定値です。
type options struct {
	numChildren int
	maxDepth    int
	stopWeight  float64
	numTrees    int
	seed        uint64
}

func defaultOptions() options {
	return options{
		numChildren: 2,
		maxDepth:    10,
		stopWeight:  0.5,
		numTrees:    10,
		seed:        1,
	}
}

// Option is a function that configures a meta-tree estimator.
type Option func(*options)

// WithNumChildren sets how many branches every split has. Feature values
// must lie in [0, numChildren).
func WithNumChildren(n int) Option {
	return func(o *options) { o.numChildren = n }
}

// WithMaxDepth sets the depth budget of every candidate tree.
func WithMaxDepth(d int) Option {
	return func(o *options) { o.maxDepth = d }
}

// WithStopWeight sets the prior stop weight g of every splittable node.
func WithStopWeight(g float64) Option {
	return func(o *options) { o.stopWeight = g }
}

// WithNumTrees sets how many candidate topologies the forest proposer grows.
func WithNumTrees(n int) Option {
	return func(o *options) { o.numTrees = n }
}

// WithSeed seeds the estimator's random sources.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}
