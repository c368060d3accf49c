package metatree

import (
	"github.com/kfurusho/metago/leaf"
	"github.com/kfurusho/metago/pkg/errors"
)

// Predict は特徴ベクトル x に対する損失最適な点予測を返します。
//
// 二乗損失では、各候補木について x の辿る経路に沿った停止/分割混合の
// 再帰的な期待値を計算し、事後重みで混合します。0-1 損失では木ごとに
// 予測最頻値とその確率を計算し、重み付き確率が最大の木の最頻値を返します
// (同点は先に現れた候補が勝ちます)。
func (lm *LearnModel) Predict(x []int, loss leaf.Loss) (float64, error) {
	if len(lm.trees) == 0 {
		return 0, errors.WithStack(errors.ErrEmptyEnsemble)
	}
	if err := validateX(x, lm.cfg.numFeatures, lm.cfg.numChildren, "LearnModel.Predict"); err != nil {
		return 0, err
	}

	switch loss {
	case leaf.LossSquared:
		out := 0.0
		for i, t := range lm.trees {
			e, err := lm.expectationRecursion(t, x)
			if err != nil {
				return 0, err
			}
			out += lm.weights[i] * e
		}
		// 葉モデルの点推定が非有限なら黙って返さない
		if err := errors.CheckScalar("LearnModel.Predict", out, 0); err != nil {
			return 0, err
		}
		return out, nil

	case leaf.LossZeroOne:
		bestVal := 0.0
		bestProb := -1.0
		for i, t := range lm.trees {
			v, p := lm.modeRecursion(t, x)
			if wp := lm.weights[i] * p; wp > bestProb {
				bestVal = v
				bestProb = wp
			}
		}
		return bestVal, nil

	default:
		return 0, errors.NewCriteriaError("LearnModel.Predict", string(loss),
			[]string{string(leaf.LossSquared), string(leaf.LossZeroOne)})
	}
}

// expectationRecursion は x の経路に沿った停止/分割混合の予測期待値です。
func (lm *LearnModel) expectationRecursion(n *Node, x []int) (float64, error) {
	local, err := n.model.Estimate(leaf.LossSquared)
	if err != nil {
		return 0, err
	}
	if n.leaf {
		return local, nil
	}
	child, err := lm.expectationRecursion(n.children[x[n.k]], x)
	if err != nil {
		return 0, err
	}
	return (1-n.g)*local + n.g*child, nil
}

// modeRecursion は x の経路に沿った予測最頻値とその確率を返します。
// 停止側 (1-g)·pLocal と分割側 g·pChild を比較し、同点では停止側を
// 採用します。
func (lm *LearnModel) modeRecursion(n *Node, x []int) (float64, float64) {
	localVal, localProb := n.model.Mode()
	if n.leaf {
		return localVal, localProb
	}
	childVal, childProb := lm.modeRecursion(n.children[x[n.k]], x)
	if (1-n.g)*localProb >= n.g*childProb {
		return localVal, (1 - n.g) * localProb
	}
	return childVal, n.g * childProb
}

// PredAndUpdate は更新前のアンサンブルで x の予測値を計算してから、
// 実現値 y で固定トポロジーの事後更新を行う逐次予測の1ステップです。
func (lm *LearnModel) PredAndUpdate(x []int, y float64, loss leaf.Loss) (float64, error) {
	p, err := lm.Predict(x, loss)
	if err != nil {
		return 0, err
	}
	if err := lm.Update([][]int{x}, []float64{y}); err != nil {
		return 0, err
	}
	return p, nil
}
