package metatree

import (
	"github.com/kfurusho/metago/leaf"
)

// Node はメタツリーの1ノードです。内部ノードは必ず NumChildren 個の子を
// すべて持ち、葉ノードは子を一切持ちません(全か無かの不変条件)。
//
// g is the stop weight: (1-g) is the probability mass that the tree
// effectively stops here, g the mass that it continues into the children.
// g is forced to 0 when the depth or feature budget makes splitting
// impossible.
type Node struct {
	depth      int
	children   []*Node
	candidates []int
	k          int // split feature, -1 while unset
	g          float64
	model      leaf.Model
	leaf       bool
	mapLeaf    bool
}

// newNode は葉として初期化されたノードを作成します。
// 深さ・特徴量予算が尽きている場合は g を 0 に強制します。
func newNode(depth, maxDepth int, candidates []int, g float64, proto leaf.Model) *Node {
	if depth >= maxDepth || len(candidates) == 0 {
		g = 0
	}
	return &Node{
		depth:      depth,
		candidates: candidates,
		k:          -1,
		g:          g,
		model:      proto.Clone(),
		leaf:       true,
	}
}

// Depth はルートを0とするこのノードの深さを返します。
func (n *Node) Depth() int { return n.depth }

// IsLeaf はこのノードが葉かどうかを返します。
func (n *Node) IsLeaf() bool { return n.leaf }

// SplitFeature は分割特徴量の添字を返します。未設定なら -1 です。
func (n *Node) SplitFeature() int { return n.k }

// StopWeight は停止重み g を返します。
func (n *Node) StopWeight() float64 { return n.g }

// Child は i 番目の子を返します。葉では nil です。
func (n *Node) Child(i int) *Node {
	if n.leaf {
		return nil
	}
	return n.children[i]
}

// Model はこのノードが所有する葉モデルを返します。
func (n *Node) Model() leaf.Model { return n.model }

// Candidates はこのノードで分割に使える特徴量候補のコピーを返します。
func (n *Node) Candidates() []int {
	out := make([]int, len(n.candidates))
	copy(out, n.candidates)
	return out
}

// clone はノード以下の部分木を葉モデルの状態ごと深くコピーします。
func (n *Node) clone() *Node {
	c := &Node{
		depth:   n.depth,
		k:       n.k,
		g:       n.g,
		model:   n.model.Clone(),
		leaf:    n.leaf,
		mapLeaf: n.mapLeaf,
	}
	c.candidates = make([]int, len(n.candidates))
	copy(c.candidates, n.candidates)
	if !n.leaf {
		c.children = make([]*Node, len(n.children))
		for i, ch := range n.children {
			c.children[i] = ch.clone()
		}
	}
	return c
}

// structuralEqual は2つの部分木がトポロジーとして等しいかを判定します。
// 葉同士は常に等しく、内部ノード同士は分割特徴量が一致し全ての子が再帰的に
// 等しいときに等しいとみなします。葉モデルの事後状態や g は比較しません。
func structuralEqual(a, b *Node) bool {
	if a.leaf != b.leaf {
		return false
	}
	if a.leaf {
		return true
	}
	if a.k != b.k || len(a.children) != len(b.children) {
		return false
	}
	for i := range a.children {
		if !structuralEqual(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}

// split は葉ノードを特徴量 k で分割し、候補から k を除いた子葉を生成します。
func (n *Node) split(k, numChildren, maxDepth int, g float64, proto leaf.Model) {
	rest := make([]int, 0, len(n.candidates)-1)
	for _, c := range n.candidates {
		if c != k {
			rest = append(rest, c)
		}
	}
	n.k = k
	n.leaf = false
	n.children = make([]*Node, numChildren)
	for i := range n.children {
		// 子は候補スライスを共有しない
		sub := make([]int, len(rest))
		copy(sub, rest)
		n.children[i] = newNode(n.depth+1, maxDepth, sub, g, proto)
	}
}

// Skeleton はトポロジー提案器が返す形だけの木です。Feature が負なら葉、
// そうでなければ NumChildren 個の子を持つ内部ノードを表します。
type Skeleton struct {
	Feature  int
	Children []*Skeleton
}

// TopologyProposer は訓練バッチから候補トポロジーを提案します。
// 返されるスケルトンは経路上で特徴量を再利用してはならず、モデルの
// 深さ・分岐数の予算を満たす必要があります。
type TopologyProposer interface {
	Propose(x [][]int, y []float64) ([]*Skeleton, error)
}
