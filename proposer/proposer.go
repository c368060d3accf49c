// Package proposer は訓練バッチから候補メタツリーのトポロジーを提案します。
//
// Forest はランダムフォレスト流のスケルトン提案器です: ブートストラップ
// 標本ごとに1本、ノード単位のランダムな特徴量部分集合から不純度減少が
// 最大の整数特徴量を選んで c 分木を貪欲に成長させます。経路上の特徴量は
// 再利用しないので、提案されるスケルトンはそのままメタツリーの構造予算を
// 満たします。
package proposer

import (
	"math"
	"math/rand/v2"

	"github.com/kfurusho/metago/metatree"
	"github.com/kfurusho/metago/pkg/errors"
)

// Criterion は分割の質を測る不純度指標です。
type Criterion string

const (
	// Gini はクラスラベル y に対するジニ不純度です(分類)。
	Gini Criterion = "gini"
	// Variance は y の分散です(回帰)。
	Variance Criterion = "variance"
)

const defaultNumTrees = 10

// Forest は metatree.TopologyProposer を実装するランダムフォレスト提案器
// です。乱数源は Forest が所有し、シードが同じなら提案は決定的です。
type Forest struct {
	numFeatures int
	numChildren int
	maxDepth    int

	numTrees        int
	criterion       Criterion
	featureSubset   int // ノード毎に試す特徴量数
	minSamplesSplit int

	rng *rand.Rand
}

var _ metatree.TopologyProposer = (*Forest)(nil)

// Option configures a Forest.
type Option func(*Forest)

// WithNumTrees sets how many skeletons one Propose call returns.
func WithNumTrees(n int) Option {
	return func(f *Forest) { f.numTrees = n }
}

// WithCriterion sets the impurity criterion. Gini for classification,
// Variance for regression.
func WithCriterion(c Criterion) Option {
	return func(f *Forest) { f.criterion = c }
}

// WithFeatureSubset sets how many randomly chosen features each node
// considers. The default is ceil(sqrt(K)).
func WithFeatureSubset(m int) Option {
	return func(f *Forest) { f.featureSubset = m }
}

// WithMinSamplesSplit sets the smallest node size that may still split.
func WithMinSamplesSplit(n int) Option {
	return func(f *Forest) { f.minSamplesSplit = n }
}

// WithSeed seeds the forest's random source.
func WithSeed(seed uint64) Option {
	return func(f *Forest) { f.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// New は K 個の整数特徴量、分岐数 numChildren、深さ予算 maxDepth の
// 提案器を作成します。予算はメタツリーモデル側の設定と一致させます。
func New(numFeatures, numChildren, maxDepth int, opts ...Option) (*Forest, error) {
	if numFeatures <= 0 {
		return nil, errors.NewParameterFormatError("numFeatures", "must be positive", numFeatures)
	}
	if numChildren < 2 {
		return nil, errors.NewParameterFormatError("numChildren", "must be at least 2", numChildren)
	}
	if maxDepth <= 0 {
		return nil, errors.NewParameterFormatError("maxDepth", "must be positive", maxDepth)
	}
	f := &Forest{
		numFeatures:     numFeatures,
		numChildren:     numChildren,
		maxDepth:        maxDepth,
		numTrees:        defaultNumTrees,
		criterion:       Gini,
		featureSubset:   int(math.Ceil(math.Sqrt(float64(numFeatures)))),
		minSamplesSplit: 2,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.numTrees <= 0 {
		return nil, errors.NewParameterFormatError("numTrees", "must be positive", f.numTrees)
	}
	if f.criterion != Gini && f.criterion != Variance {
		return nil, errors.NewCriteriaError("proposer.New", string(f.criterion),
			[]string{string(Gini), string(Variance)})
	}
	if f.featureSubset <= 0 || f.featureSubset > numFeatures {
		return nil, errors.NewParameterFormatError("featureSubset",
			"must lie in [1, numFeatures]", f.featureSubset)
	}
	if f.minSamplesSplit < 2 {
		return nil, errors.NewParameterFormatError("minSamplesSplit", "must be at least 2", f.minSamplesSplit)
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewPCG(1, 1))
	}
	return f, nil
}

// Propose はブートストラップ標本ごとに1本のスケルトンを成長させて返します。
func (f *Forest) Propose(x [][]int, y []float64) ([]*metatree.Skeleton, error) {
	if len(x) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if len(x) != len(y) {
		return nil, errors.NewDimensionError("Forest.Propose", len(x), len(y), 0)
	}
	for i, row := range x {
		if len(row) != f.numFeatures {
			return nil, errors.NewDimensionError("Forest.Propose", f.numFeatures, len(row), 1)
		}
		for _, v := range row {
			if v < 0 || v >= f.numChildren {
				return nil, errors.NewDataFormatError("Forest.Propose",
					"feature values must lie in [0, numChildren)", x[i])
			}
		}
	}
	// NaN/Inf は不純度計算を黙って壊すので先に弾く
	if err := errors.CheckNumericalStability("Forest.Propose", y, 0); err != nil {
		return nil, err
	}

	skeletons := make([]*metatree.Skeleton, f.numTrees)
	for t := range skeletons {
		idx := f.bootstrap(len(x))
		used := make([]bool, f.numFeatures)
		skeletons[t] = f.grow(x, y, idx, used, 0)
	}
	return skeletons, nil
}

// bootstrap は復元抽出で n 個の標本添字を引きます。
func (f *Forest) bootstrap(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = f.rng.IntN(n)
	}
	return idx
}

// grow はノード1つ分の分割判断を行い、部分木のスケルトンを返します。
func (f *Forest) grow(x [][]int, y []float64, idx []int, used []bool, depth int) *metatree.Skeleton {
	leafSkel := &metatree.Skeleton{Feature: -1}
	if depth >= f.maxDepth || len(idx) < f.minSamplesSplit {
		return leafSkel
	}

	parent := f.impurity(y, idx)
	if parent == 0 { // 純粋なノード
		return leafSkel
	}

	bestK := -1
	bestScore := parent
	for _, k := range f.sampleFeatures(used) {
		score := f.splitImpurity(x, y, idx, k)
		if score < bestScore {
			bestScore = score
			bestK = k
		}
	}
	if bestK < 0 { // 不純度が下がる分割が無い
		return leafSkel
	}

	groups := make([][]int, f.numChildren)
	for _, i := range idx {
		v := x[i][bestK]
		groups[v] = append(groups[v], i)
	}

	used[bestK] = true
	children := make([]*metatree.Skeleton, f.numChildren)
	for v, g := range groups {
		children[v] = f.grow(x, y, g, used, depth+1)
	}
	used[bestK] = false

	return &metatree.Skeleton{Feature: bestK, Children: children}
}

// sampleFeatures は経路上で未使用の特徴量から最大 featureSubset 個を
// 非復元抽出します。
func (f *Forest) sampleFeatures(used []bool) []int {
	avail := make([]int, 0, f.numFeatures)
	for k, u := range used {
		if !u {
			avail = append(avail, k)
		}
	}
	if len(avail) <= f.featureSubset {
		return avail
	}
	f.rng.Shuffle(len(avail), func(i, j int) {
		avail[i], avail[j] = avail[j], avail[i]
	})
	return avail[:f.featureSubset]
}

// splitImpurity は特徴量 k で分割したときの加重子不純度を返します。
func (f *Forest) splitImpurity(x [][]int, y []float64, idx []int, k int) float64 {
	groups := make([][]int, f.numChildren)
	for _, i := range idx {
		v := x[i][k]
		groups[v] = append(groups[v], i)
	}
	total := float64(len(idx))
	score := 0.0
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		score += float64(len(g)) / total * f.impurity(y, g)
	}
	return score
}

func (f *Forest) impurity(y []float64, idx []int) float64 {
	if f.criterion == Variance {
		mean := 0.0
		for _, i := range idx {
			mean += y[i]
		}
		mean /= float64(len(idx))
		v := 0.0
		for _, i := range idx {
			d := y[i] - mean
			v += d * d
		}
		return v / float64(len(idx))
	}

	counts := make(map[float64]int, 4)
	for _, i := range idx {
		counts[y[i]]++
	}
	n := float64(len(idx))
	gini := 1.0
	for _, c := range counts {
		p := float64(c) / n
		gini -= p * p
	}
	return gini
}
