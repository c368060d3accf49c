package metatree

import (
	"math"

	"github.com/kfurusho/metago/leaf"
	"github.com/kfurusho/metago/pkg/errors"
)

// デフォルトのモデル定数。
const (
	DefaultMaxDepth    = 10
	DefaultNumChildren = 2
	DefaultStopWeight  = 0.5
)

// config は GenModel / LearnModel が共有するモデル定数と事前分布です。
type config struct {
	numFeatures  int       // K
	numChildren  int       // 各内部ノードの分岐数
	maxDepth     int       // 深さ予算
	stopWeight   float64   // 事前の停止重み g
	featureProbs []float64 // 分割特徴量の事前分布(長さ K、和が 1)
	proto        leaf.Model
	seed         uint64

	// 葉モデルが共変量対応かどうか。構成時に一度だけ型アサーションで
	// 解決し、以後は再判定しません。
	usesCovariates bool

	// LearnModel 専用: 明示的に与えられた候補メタツリーと重み。
	trees   []*Node
	weights []float64

	// LearnModel 専用: Fit が候補トポロジーを得る提案器。
	proposer TopologyProposer
}

// Option configures a GenModel or LearnModel.
type Option func(*config)

// WithMaxDepth sets the depth budget. Nodes at this depth are forced leaves.
func WithMaxDepth(d int) Option {
	return func(c *config) { c.maxDepth = d }
}

// WithNumChildren sets the arity of every internal node.
func WithNumChildren(n int) Option {
	return func(c *config) { c.numChildren = n }
}

// WithStopWeight sets the prior stop weight g assigned to every node that can
// still split.
func WithStopWeight(g float64) Option {
	return func(c *config) { c.stopWeight = g }
}

// WithFeatureProbs sets the prior distribution over split features. It must
// have length K and sum to 1. The default is uniform.
func WithFeatureProbs(p []float64) Option {
	return func(c *config) {
		c.featureProbs = make([]float64, len(p))
		copy(c.featureProbs, p)
	}
}

// WithLeafModel sets the leaf-model prototype. Every node owns a fresh clone
// of it. The default is leaf.DefaultBernoulli().
func WithLeafModel(m leaf.Model) Option {
	return func(c *config) { c.proto = m }
}

// WithSeed seeds the model's own random source. Models never touch package
// level randomness.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// WithMetaTrees supplies an explicit candidate ensemble: a list of tree roots
// and a parallel weight vector summing to 1. For a GenModel the trees serve
// as reference topologies for GenParams; for a LearnModel they seed the
// posterior ensemble directly.
func WithMetaTrees(trees []*Node, weights []float64) Option {
	return func(c *config) {
		c.trees = trees
		c.weights = weights
	}
}

// WithProposer sets the topology proposer Fit uses to obtain candidate
// skeletons from a training batch.
func WithProposer(p TopologyProposer) Option {
	return func(c *config) { c.proposer = p }
}

// newConfig はオプションを適用し、すべての設定値を検証します。
// 不正な設定はここで弾き、黙ってクランプすることはありません。
func newConfig(numFeatures int, opts ...Option) (config, error) {
	c := config{
		numFeatures: numFeatures,
		numChildren: DefaultNumChildren,
		maxDepth:    DefaultMaxDepth,
		stopWeight:  DefaultStopWeight,
		seed:        1,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if c.numFeatures <= 0 {
		return c, errors.NewParameterFormatError("numFeatures", "must be positive", c.numFeatures)
	}
	if c.numChildren < 2 {
		return c, errors.NewParameterFormatError("numChildren", "must be at least 2", c.numChildren)
	}
	if c.maxDepth <= 0 {
		return c, errors.NewParameterFormatError("maxDepth", "must be positive", c.maxDepth)
	}
	if c.stopWeight < 0 || c.stopWeight > 1 || math.IsNaN(c.stopWeight) {
		return c, errors.NewParameterFormatError("stopWeight", "must lie in [0, 1]", c.stopWeight)
	}
	if c.proto == nil {
		c.proto = leaf.DefaultBernoulli()
	}
	c.usesCovariates = leaf.RequiresCovariates(c.proto)

	if c.featureProbs == nil {
		c.featureProbs = make([]float64, c.numFeatures)
		for i := range c.featureProbs {
			c.featureProbs[i] = 1 / float64(c.numFeatures)
		}
	} else {
		if len(c.featureProbs) != c.numFeatures {
			return c, errors.NewParameterFormatError("featureProbs",
				"length must equal the number of features", len(c.featureProbs))
		}
		sum := 0.0
		for _, p := range c.featureProbs {
			if p < 0 || math.IsNaN(p) {
				return c, errors.NewParameterFormatError("featureProbs", "entries must be non-negative", p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-8 {
			return c, errors.NewParameterFormatError("featureProbs", "must sum to 1", sum)
		}
	}

	if c.trees != nil || c.weights != nil {
		if len(c.trees) != len(c.weights) {
			return c, errors.NewParameterFormatError("metaTrees",
				"tree list and weight vector must have the same length",
				[2]int{len(c.trees), len(c.weights)})
		}
		if len(c.trees) == 0 {
			return c, errors.NewParameterFormatError("metaTrees", "must not be empty when supplied", 0)
		}
		sum := 0.0
		for _, w := range c.weights {
			if w < 0 || math.IsNaN(w) {
				return c, errors.NewParameterFormatError("metaTrees", "weights must be non-negative", w)
			}
			sum += w
		}
		if math.Abs(sum-1) > 1e-8 {
			return c, errors.NewParameterFormatError("metaTrees", "weights must sum to 1", sum)
		}
		for i, t := range c.trees {
			if t == nil {
				return c, errors.NewParameterFormatError("metaTrees", "tree roots must be non-nil", i)
			}
			if err := validateTree(t, c.numFeatures, c.numChildren, c.maxDepth, nil); err != nil {
				return c, err
			}
		}
	}
	return c, nil
}

// allCandidates returns the root candidate set {0, ..., K-1}.
func (c *config) allCandidates() []int {
	out := make([]int, c.numFeatures)
	for i := range out {
		out[i] = i
	}
	return out
}

// validateTree は供給された木が構造予算を満たすかを検査します。
// used は経路上で既に消費された特徴量の集合です。
func validateTree(n *Node, numFeatures, numChildren, maxDepth int, used map[int]bool) error {
	if n.leaf {
		return nil
	}
	if n.depth >= maxDepth {
		return errors.NewStructuralMismatchError("metatree.validateTree", n.k, n.depth,
			"internal node at or beyond the depth budget")
	}
	if n.k < 0 || n.k >= numFeatures {
		return errors.NewStructuralMismatchError("metatree.validateTree", n.k, n.depth,
			"split feature out of range")
	}
	if used[n.k] {
		return errors.NewStructuralMismatchError("metatree.validateTree", n.k, n.depth,
			"split feature already used on this path")
	}
	if len(n.children) != numChildren {
		return errors.NewStructuralMismatchError("metatree.validateTree", n.k, n.depth,
			"internal node must have exactly the configured number of children")
	}
	if used == nil {
		used = make(map[int]bool, numFeatures)
	}
	used[n.k] = true
	for _, ch := range n.children {
		if ch == nil {
			return errors.NewStructuralMismatchError("metatree.validateTree", n.k, n.depth,
				"internal node with a nil child")
		}
		if err := validateTree(ch, numFeatures, numChildren, maxDepth, used); err != nil {
			return err
		}
	}
	delete(used, n.k)
	return nil
}
