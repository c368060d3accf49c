package metatree

import (
	"log/slog"
	"math"

	"github.com/kfurusho/metago/leaf"
	"github.com/kfurusho/metago/pkg/errors"
	mglog "github.com/kfurusho/metago/pkg/log"
)

// EstimateParams は 0-1 損失の下で MAP メタツリーを1本選び、各ノードの
// 停止/分割を事後質量で確定させた正準形の木と、その対数事後質量を返します。
// サポートするのは 0-1 損失のみです(メタツリー上の MAP は他の損失では
// 定義しません)。
func (lm *LearnModel) EstimateParams(loss leaf.Loss) (*Node, float64, error) {
	if loss != leaf.LossZeroOne {
		return nil, 0, errors.NewCriteriaError("LearnModel.EstimateParams", string(loss),
			[]string{string(leaf.LossZeroOne)})
	}
	if len(lm.trees) == 0 {
		return nil, 0, errors.WithStack(errors.ErrEmptyEnsemble)
	}

	best := 0
	bestMass := 0.0
	for i, t := range lm.trees {
		mass := lm.weights[i] * lm.mapRecursion(t)
		if mass > bestMass {
			best = i
			bestMass = mass
		}
	}

	root := copyMapTree(lm.trees[best])
	lm.logger.Debug("estimated MAP metatree",
		slog.String(mglog.ModelNameKey, "LearnModel"),
		slog.String(mglog.OperationKey, mglog.OperationEstimate),
		slog.Int(mglog.CandidatesKey, len(lm.trees)),
		slog.Float64(mglog.MaxWeightKey, bestMass),
	)
	return root, math.Log(bestMass), nil
}

// mapRecursion はノード以下の MAP 停止/分割割り当ての事後質量を計算し、
// mapLeaf フラグに割り当てを記録します。
//
// 未展開の葉では「この深さで無条件に停止する」質量 (1-g) と、幾何級数の
// 閉形式 g^((c^(dMax-depth)-1)/(c-1)) で与えられる「予算いっぱいまで分割し
// 続ける」質量を比較します。この閉形式の比較をそのまま保つこと。停止質量が
// 厳密に勝つときだけ葉に確定し、同点を含めそれ以外では子を遅延生成します。
func (lm *LearnModel) mapRecursion(n *Node) float64 {
	if n.leaf {
		if n.depth >= lm.cfg.maxDepth || len(n.candidates) == 0 {
			n.mapLeaf = true
			return 1.0
		}
		c := float64(lm.cfg.numChildren)
		splitMass := math.Pow(n.g, (math.Pow(c, float64(lm.cfg.maxDepth-n.depth))-1)/(c-1))
		if 1-n.g > splitMass {
			n.mapLeaf = true
			return 1 - n.g
		}
		lm.mapRecursionAddNodes(n)
		return splitMass
	}

	stop := 1 - n.g
	split := n.g
	for _, ch := range n.children {
		split *= lm.mapRecursion(ch)
	}
	if stop > split {
		n.mapLeaf = true
		return stop
	}
	n.mapLeaf = false
	return split
}

// mapRecursionAddNodes は「予算まで分割し続ける」割り当てが勝った未展開の
// 葉を実体化します。追加される内部ノードは候補リストの先頭特徴量で分割し、
// 予算に達したフロンティアが MAP 葉になります。
func (lm *LearnModel) mapRecursionAddNodes(n *Node) {
	if n.depth >= lm.cfg.maxDepth || len(n.candidates) == 0 {
		n.g = 0
		n.leaf = true
		n.mapLeaf = true
		return
	}
	n.split(n.candidates[0], lm.cfg.numChildren, lm.cfg.maxDepth, lm.cfg.stopWeight, lm.cfg.proto)
	n.mapLeaf = false
	for _, ch := range n.children {
		lm.mapRecursionAddNodes(ch)
	}
}

// copyMapTree は mapRecursion が記録した割り当てに従って木を正準形へ
// 畳み込んだ深いコピーを返します。mapLeaf のノードで打ち切られます。
func copyMapTree(n *Node) *Node {
	c := &Node{
		depth: n.depth,
		k:     -1,
		g:     n.g,
		model: n.model.Clone(),
		leaf:  true,
	}
	c.candidates = make([]int, len(n.candidates))
	copy(c.candidates, n.candidates)
	if n.mapLeaf || n.leaf {
		return c
	}
	c.leaf = false
	c.k = n.k
	c.children = make([]*Node, len(n.children))
	for i, ch := range n.children {
		c.children[i] = copyMapTree(ch)
	}
	return c
}
