package metatree

import (
	"math/rand/v2"

	"github.com/kfurusho/metago/leaf"
	"github.com/kfurusho/metago/pkg/errors"
)

// GenModel は事前分布からメタツリーを1本生成し、そこから合成データを
// 生成する生成側モデルです。乱数源はモデルが所有し、パッケージレベルの
// 乱数には一切触れません。
type GenModel struct {
	cfg  config
	root *Node
	rng  *rand.Rand
}

// NewGenModel は K 個の整数特徴量を持つ生成モデルを作成します。
// 初期状態のパラメータは深さ0の葉1つです。
func NewGenModel(numFeatures int, opts ...Option) (*GenModel, error) {
	cfg, err := newConfig(numFeatures, opts...)
	if err != nil {
		return nil, err
	}
	g := &GenModel{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.seed, cfg.seed)),
	}
	g.root = newNode(0, cfg.maxDepth, cfg.allCandidates(), cfg.stopWeight, cfg.proto)
	return g, nil
}

// GenParams は事前分布から木構造と葉モデルパラメータを引き直します。
//
// featureFix が真なら、保持している木を引き直しの土台に使い、割り当て済みの
// 分割特徴量を保ちます(形は引き直されるので、葉に畳まれた部分木の特徴量は
// 失われます)。treeFix が真なら現在の木構造と分割特徴量を保ったまま葉モデル
// パラメータだけを引き直します(特徴量を引き直すと子孫の候補集合が壊れる
// ため、形を固定するときは特徴量も固定します)。WithMetaTrees により参照木が
// 与えられている場合は、重みに従って参照木を1本選び、その葉/内部の判定と
// 停止重みを鏡写しにします。分割特徴量は参照木からは写さず、featureFix で
// ない限りノードごとに特徴量事前分布から引き直します。
func (g *GenModel) GenParams(featureFix, treeFix bool) {
	if treeFix {
		g.genParamsTreeFix(g.root)
		return
	}
	var ref *Node
	if len(g.cfg.trees) > 0 {
		ref = g.cfg.trees[g.drawTreeIndex()]
	}
	if !featureFix {
		g.root = newNode(0, g.cfg.maxDepth, g.cfg.allCandidates(), g.cfg.stopWeight, g.cfg.proto)
	}
	g.genParamsRecursion(g.root, ref, featureFix)
}

// drawTreeIndex は参照木の重みベクトルからカテゴリカルに1本選びます。
func (g *GenModel) drawTreeIndex() int {
	u := g.rng.Float64()
	acc := 0.0
	for i, w := range g.cfg.weights {
		acc += w
		if u < acc {
			return i
		}
	}
	return len(g.cfg.weights) - 1
}

func (g *GenModel) genParamsRecursion(node, ref *Node, featureFix bool) {
	switch {
	case node.depth >= g.cfg.maxDepth || len(node.candidates) == 0:
		node.g = 0
	case ref != nil:
		node.g = ref.g
	default:
		node.g = g.cfg.stopWeight
	}
	node.model.GenParams(g.rng)

	var split bool
	if ref != nil {
		split = !ref.leaf
	} else {
		split = node.depth < g.cfg.maxDepth && len(node.candidates) > 0 &&
			g.rng.Float64() < node.g
	}
	if !split {
		node.leaf = true
		node.k = -1
		node.children = nil
		return
	}

	if !featureFix || node.k < 0 {
		k := g.drawFeature(node.candidates)
		if k != node.k {
			node.children = nil
		}
		node.k = k
	}
	if node.children == nil {
		node.split(node.k, g.cfg.numChildren, g.cfg.maxDepth, g.cfg.stopWeight, g.cfg.proto)
	}
	node.leaf = false
	for i, ch := range node.children {
		var childRef *Node
		if ref != nil {
			childRef = ref.children[i]
		}
		g.genParamsRecursion(ch, childRef, featureFix)
	}
}

// genParamsTreeFix は木構造と分割特徴量を保ったまま葉モデルパラメータを
// 引き直します。
func (g *GenModel) genParamsTreeFix(node *Node) {
	node.model.GenParams(g.rng)
	for _, ch := range node.children {
		g.genParamsTreeFix(ch)
	}
}

// drawFeature は特徴量事前分布を候補集合に制限して1つ引きます。
func (g *GenModel) drawFeature(candidates []int) int {
	total := 0.0
	for _, c := range candidates {
		total += g.cfg.featureProbs[c]
	}
	if total <= 0 {
		return candidates[g.rng.IntN(len(candidates))]
	}
	u := g.rng.Float64() * total
	acc := 0.0
	for _, c := range candidates {
		acc += g.cfg.featureProbs[c]
		if u < acc {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// SetParams はパラメータの木を差し替えます。木は構造予算を満たす必要が
// あり、モデルは深いコピーを保持します。
func (g *GenModel) SetParams(root *Node) error {
	if root == nil {
		return errors.NewParameterFormatError("root", "must be non-nil", nil)
	}
	if err := validateTree(root, g.cfg.numFeatures, g.cfg.numChildren, g.cfg.maxDepth, nil); err != nil {
		return err
	}
	g.root = root.clone()
	return nil
}

// Params は現在のパラメータの木を深いコピーで返します。
func (g *GenModel) Params() *Node {
	return g.root.clone()
}

// GenSample は特徴ベクトルを一様に n 個引き、木に従って応答を生成します。
func (g *GenModel) GenSample(n int) ([][]int, []float64, error) {
	if n <= 0 {
		return nil, nil, errors.NewDataFormatError("GenModel.GenSample", "sample size must be positive", n)
	}
	x := make([][]int, n)
	for i := range x {
		row := make([]int, g.cfg.numFeatures)
		for j := range row {
			row[j] = g.rng.IntN(g.cfg.numChildren)
		}
		x[i] = row
	}
	y, err := g.GenSampleAt(x)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// GenSampleAt は与えられた特徴ベクトルそれぞれについて応答を生成します。
func (g *GenModel) GenSampleAt(x [][]int) ([]float64, error) {
	if len(x) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	y := make([]float64, len(x))
	for i, row := range x {
		if err := validateX(row, g.cfg.numFeatures, g.cfg.numChildren, "GenModel.GenSampleAt"); err != nil {
			return nil, err
		}
		node := g.root
		for !node.leaf {
			node = node.children[row[node.k]]
		}
		y[i] = node.model.GenSample(g.rng)
	}
	return y, nil
}

// SetStopWeight は事前の停止重みを差し替え、保持している木の全ノードへ
// 再帰的に反映します。予算切れで葉が強制されるノードは 0 のままです。
func (g *GenModel) SetStopWeight(stop float64) error {
	if stop < 0 || stop > 1 {
		return errors.NewParameterFormatError("stopWeight", "must lie in [0, 1]", stop)
	}
	g.cfg.stopWeight = stop
	propagateStopWeight(g.root, stop, g.cfg.maxDepth)
	return nil
}

// SetLeafModel は葉モデルのプロトタイプを差し替え、木の全ノードの葉モデルを
// 新しいプロトタイプの複製で丸ごと置き換えます(学習状態は破棄されます)。
func (g *GenModel) SetLeafModel(proto leaf.Model) error {
	if proto == nil {
		return errors.NewParameterFormatError("leafModel", "must be non-nil", nil)
	}
	g.cfg.proto = proto
	g.cfg.usesCovariates = leaf.RequiresCovariates(proto)
	replaceLeafModels(g.root, proto)
	return nil
}

func propagateStopWeight(n *Node, stop float64, maxDepth int) {
	if n.depth >= maxDepth || len(n.candidates) == 0 {
		n.g = 0
	} else {
		n.g = stop
	}
	for _, ch := range n.children {
		propagateStopWeight(ch, stop, maxDepth)
	}
}

func replaceLeafModels(n *Node, proto leaf.Model) {
	n.model = proto.Clone()
	for _, ch := range n.children {
		replaceLeafModels(ch, proto)
	}
}
