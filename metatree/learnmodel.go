package metatree

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kfurusho/metago/core/parallel"
	"github.com/kfurusho/metago/leaf"
	"github.com/kfurusho/metago/pkg/errors"
	mglog "github.com/kfurusho/metago/pkg/log"
)

// 候補木がこの本数以下なら逐次処理の方が安いので並列化しません。
const parallelTreeThreshold = 4

// LearnModel は候補メタツリーの集合とその事後重みベクトルを保持し、
// 観測データによる閉形式のベイズ更新・MAP推定・予測を行う学習側モデルです。
//
// 重みベクトルは常に候補リストと同じ長さで和が1です(両方空の場合を除く)。
type LearnModel struct {
	cfg     config
	trees   []*Node
	weights []float64

	// ResetPosterior が戻る先となる事前スナップショット。
	priorTrees   []*Node
	priorWeights []float64

	proposer TopologyProposer
	logger   *slog.Logger
}

// NewLearnModel は K 個の整数特徴量を持つ学習モデルを作成します。
// WithMetaTrees で候補アンサンブルを直接与えるか、WithProposer で
// Fit にトポロジー提案を委ねます。
func NewLearnModel(numFeatures int, opts ...Option) (*LearnModel, error) {
	cfg, err := newConfig(numFeatures, opts...)
	if err != nil {
		return nil, err
	}
	lm := &LearnModel{
		cfg:      cfg,
		proposer: cfg.proposer,
		logger:   slog.Default(),
	}
	if len(cfg.trees) > 0 {
		lm.trees = make([]*Node, len(cfg.trees))
		for i, t := range cfg.trees {
			lm.trees[i] = t.clone()
		}
		lm.weights = make([]float64, len(cfg.weights))
		copy(lm.weights, cfg.weights)
		lm.snapshotPrior()
	}
	return lm, nil
}

// MetaTrees は候補メタツリーと事後重みベクトルを深いコピーで返します。
func (lm *LearnModel) MetaTrees() ([]*Node, []float64) {
	trees := make([]*Node, len(lm.trees))
	for i, t := range lm.trees {
		trees[i] = t.clone()
	}
	weights := make([]float64, len(lm.weights))
	copy(weights, lm.weights)
	return trees, weights
}

// Fit は提案器から候補トポロジーを取得し、構造的な重複を畳み込んだ上で
// バッチ全体による事後更新と重みの再計算を行います。既存のアンサンブルは
// 置き換えられます。
func (lm *LearnModel) Fit(x [][]int, y []float64) error {
	start := time.Now()
	if err := lm.validateData(x, y, "LearnModel.Fit"); err != nil {
		return err
	}
	if lm.proposer == nil {
		return errors.NewParameterFormatError("proposer",
			"Fit requires a topology proposer; use WithProposer or seed trees via WithMetaTrees and call Update", nil)
	}

	// 提案器は外部実装なので、panic も構造化エラーとして回収する
	var skeletons []*Skeleton
	err := errors.SafeExecute("LearnModel.Fit: topology proposal", func() error {
		var perr error
		skeletons, perr = lm.proposer.Propose(x, y)
		return perr
	})
	if err != nil {
		return errors.Wrap(err, "metatree: topology proposal failed")
	}
	if len(skeletons) == 0 {
		return errors.WithStack(errors.ErrEmptyEnsemble)
	}

	trees := make([]*Node, len(skeletons))
	weights := make([]float64, len(skeletons))
	for i, s := range skeletons {
		t, err := lm.buildFromSkeleton(s)
		if err != nil {
			return err
		}
		trees[i] = t
		weights[i] = 1 / float64(len(skeletons))
	}

	proposed := len(trees)
	trees, weights = mergeMetaTrees(trees, weights)
	lm.trees, lm.weights = trees, weights
	lm.snapshotPrior()

	if err := lm.updateAndReweight(x, y); err != nil {
		return err
	}

	lm.logger.Debug("fitted metatree ensemble",
		slog.String(mglog.ModelNameKey, "LearnModel"),
		slog.String(mglog.OperationKey, mglog.OperationFit),
		slog.Int(mglog.SamplesKey, len(x)),
		slog.Int(mglog.FeaturesKey, lm.cfg.numFeatures),
		slog.Int(mglog.CandidatesKey, len(lm.trees)),
		slog.Int(mglog.MergedKey, proposed-len(lm.trees)),
		slog.Float64(mglog.MaxWeightKey, floats.Max(lm.weights)),
		slog.Int64(mglog.DurationMsKey, time.Since(start).Milliseconds()),
	)
	return nil
}

// Update は保持している候補アンサンブルを固定したまま、観測バッチで各木の
// 事後分布と重みベクトルを更新します。
func (lm *LearnModel) Update(x [][]int, y []float64) error {
	if err := lm.validateData(x, y, "LearnModel.Update"); err != nil {
		return err
	}
	if len(lm.trees) == 0 {
		return errors.WithStack(errors.ErrEmptyEnsemble)
	}
	if err := lm.updateAndReweight(x, y); err != nil {
		return err
	}
	lm.logger.Debug("updated metatree posterior",
		slog.String(mglog.ModelNameKey, "LearnModel"),
		slog.String(mglog.OperationKey, mglog.OperationUpdatePosterior),
		slog.Int(mglog.SamplesKey, len(x)),
		slog.Int(mglog.CandidatesKey, len(lm.trees)),
		slog.Float64(mglog.MaxWeightKey, floats.Max(lm.weights)),
	)
	return nil
}

// updateAndReweight は各候補木を独立にバッチ更新し、対数エビデンスの
// 累積から重みベクトルを log-sum-exp で正規化し直します。木同士は互いに
// 状態を共有しないので木単位で並列化できます。
func (lm *LearnModel) updateAndReweight(x [][]int, y []float64) error {
	logW := make([]float64, len(lm.trees))
	parallel.ParallelizeWithThreshold(len(lm.trees), parallelTreeThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			lw := math.Log(lm.weights[i])
			for j := range x {
				lw += math.Log(lm.updatePosteriorRecursion(lm.trees[i], x[j], y[j]))
			}
			logW[i] = lw
		}
	})

	// -Inf は「その木がこのバッチに質量ゼロを割り当てた」ことを表すので許容
	if err := errors.CheckFinite(mglog.OperationReweight, logW, 0); err != nil {
		return err
	}
	lse := floats.LogSumExp(logW)
	if math.IsInf(lse, -1) {
		return errors.NewNumericalInstabilityError(mglog.OperationReweight, logW, 0)
	}
	for i := range lm.weights {
		lm.weights[i] = math.Exp(logW[i] - lse)
	}
	if len(lm.weights) > 1 && floats.Max(lm.weights) > 1-1e-10 {
		errors.Warn(errors.NewResultWarning(mglog.OperationReweight,
			"posterior over candidate trees is numerically degenerate"))
	}
	return nil
}

// updatePosteriorRecursion は観測 (x, y) でノード以下を更新し、この部分木の
// 周辺エビデンスを返します。葉では観測前の予測値を問い合わせてから観測を
// 取り込みます。内部ノードでは x の辿る子のエビデンスと自身の葉エビデンスを
// 混合し、ベイズ則で停止重みを更新します。x の経路上のノードだけが変化し
// ます。
func (lm *LearnModel) updatePosteriorRecursion(n *Node, x []int, y float64) float64 {
	local := lm.leafPredictive(n, x, y)
	if n.leaf {
		lm.observe(n, x, y)
		return local
	}
	childEv := lm.updatePosteriorRecursion(n.children[x[n.k]], x, y)
	ev := (1-n.g)*local + n.g*childEv
	if ev > 0 {
		n.g = n.g * childEv / ev
	}
	lm.observe(n, x, y)
	return ev
}

func (lm *LearnModel) leafPredictive(n *Node, x []int, y float64) float64 {
	if lm.cfg.usesCovariates {
		return n.model.(leaf.CovariateModel).PredictiveX(x, y)
	}
	return n.model.Predictive(y)
}

func (lm *LearnModel) observe(n *Node, x []int, y float64) {
	if lm.cfg.usesCovariates {
		n.model.(leaf.CovariateModel).ObserveX(x, y)
		return
	}
	n.model.Observe(y)
}

// buildFromSkeleton はスケルトンを事前ハイパーパラメータ付きのメタツリーに
// 実体化します。提案木の葉は停止重み 0 の確定葉になります。
func (lm *LearnModel) buildFromSkeleton(s *Skeleton) (*Node, error) {
	if s == nil {
		return nil, errors.NewStructuralMismatchError("metatree.buildFromSkeleton", -1, 0,
			"nil skeleton")
	}
	root := newNode(0, lm.cfg.maxDepth, lm.cfg.allCandidates(), lm.cfg.stopWeight, lm.cfg.proto)
	if err := lm.buildSkeletonRecursion(root, s); err != nil {
		return nil, err
	}
	return root, nil
}

func (lm *LearnModel) buildSkeletonRecursion(n *Node, s *Skeleton) error {
	const op = "metatree.buildFromSkeleton"
	if s.Feature < 0 {
		n.g = 0
		return nil
	}
	if n.depth >= lm.cfg.maxDepth {
		return errors.NewStructuralMismatchError(op, s.Feature, n.depth,
			"skeleton splits beyond the depth budget")
	}
	if s.Feature >= lm.cfg.numFeatures {
		return errors.NewStructuralMismatchError(op, s.Feature, n.depth,
			"split feature out of range")
	}
	if !slices.Contains(n.candidates, s.Feature) {
		return errors.NewStructuralMismatchError(op, s.Feature, n.depth,
			"split feature already used on this path")
	}
	if len(s.Children) != lm.cfg.numChildren {
		return errors.NewStructuralMismatchError(op, s.Feature, n.depth,
			"skeleton arity does not match the configured number of children")
	}
	n.split(s.Feature, lm.cfg.numChildren, lm.cfg.maxDepth, lm.cfg.stopWeight, lm.cfg.proto)
	for i, ch := range n.children {
		if s.Children[i] == nil {
			return errors.NewStructuralMismatchError(op, s.Feature, n.depth,
				"skeleton internal node with a nil child")
		}
		if err := lm.buildSkeletonRecursion(ch, s.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// mergeMetaTrees は構造的に等しい候補木を O(n²) で検出し、後から現れた
// 重複の重みを先に現れた代表へ畳み込みます。代表(とその事後状態)は
// 先勝ちで保持されます。
func mergeMetaTrees(trees []*Node, weights []float64) ([]*Node, []float64) {
	outT := make([]*Node, 0, len(trees))
	outW := make([]float64, 0, len(trees))
	for i, t := range trees {
		merged := false
		for j, kept := range outT {
			if structuralEqual(kept, t) {
				outW[j] += weights[i]
				merged = true
				break
			}
		}
		if !merged {
			outT = append(outT, t)
			outW = append(outW, weights[i])
		}
	}
	return outT, outW
}

// snapshotPrior は現在のアンサンブルを ResetPosterior の戻り先として保存
// します。
func (lm *LearnModel) snapshotPrior() {
	lm.priorTrees = make([]*Node, len(lm.trees))
	for i, t := range lm.trees {
		lm.priorTrees[i] = t.clone()
	}
	lm.priorWeights = make([]float64, len(lm.weights))
	copy(lm.priorWeights, lm.weights)
}

// ResetPosterior は事後分布を破棄し、最後に保存された事前スナップショット
// (構築直後のアンサンブル、または直近の OverwritePrior)へ戻します。
func (lm *LearnModel) ResetPosterior() error {
	if len(lm.priorTrees) == 0 {
		return errors.WithStack(errors.ErrEmptyEnsemble)
	}
	lm.trees = make([]*Node, len(lm.priorTrees))
	for i, t := range lm.priorTrees {
		lm.trees[i] = t.clone()
	}
	lm.weights = make([]float64, len(lm.priorWeights))
	copy(lm.weights, lm.priorWeights)
	return nil
}

// OverwritePrior は現在の事後分布を新しい事前分布として保存します。
// 以後の ResetPosterior はこの状態へ戻ります。
func (lm *LearnModel) OverwritePrior() error {
	if len(lm.trees) == 0 {
		return errors.WithStack(errors.ErrEmptyEnsemble)
	}
	lm.snapshotPrior()
	return nil
}

// SetStopWeight は停止重みの事前値を差し替え、保持している全候補木へ
// 再帰的に反映します。学習済みの停止重みは上書きされます。
func (lm *LearnModel) SetStopWeight(stop float64) error {
	if stop < 0 || stop > 1 {
		return errors.NewParameterFormatError("stopWeight", "must lie in [0, 1]", stop)
	}
	lm.cfg.stopWeight = stop
	for _, t := range lm.trees {
		propagateStopWeight(t, stop, lm.cfg.maxDepth)
	}
	return nil
}

// SetLeafModel は葉モデルのプロトタイプを差し替え、全候補木の葉モデルを
// 新しいプロトタイプの複製で丸ごと置き換えます(学習状態は破棄されます)。
func (lm *LearnModel) SetLeafModel(proto leaf.Model) error {
	if proto == nil {
		return errors.NewParameterFormatError("leafModel", "must be non-nil", nil)
	}
	lm.cfg.proto = proto
	lm.cfg.usesCovariates = leaf.RequiresCovariates(proto)
	for _, t := range lm.trees {
		replaceLeafModels(t, proto)
	}
	return nil
}

// validateData は木構造に触れる前にバッチ全体を検証します。
func (lm *LearnModel) validateData(x [][]int, y []float64, op string) error {
	if len(x) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}
	if len(x) != len(y) {
		return errors.NewDimensionError(op, len(x), len(y), 0)
	}
	for _, row := range x {
		if err := validateX(row, lm.cfg.numFeatures, lm.cfg.numChildren, op); err != nil {
			return err
		}
	}
	for _, v := range y {
		if err := lm.cfg.proto.ValidateObservation(v); err != nil {
			return err
		}
	}
	return nil
}

// validateX は特徴ベクトル1本の形を検証します。
func validateX(x []int, numFeatures, numChildren int, op string) error {
	if len(x) != numFeatures {
		return errors.NewDimensionError(op, numFeatures, len(x), 1)
	}
	for _, v := range x {
		if v < 0 || v >= numChildren {
			return errors.NewDataFormatError(op, "feature values must lie in [0, numChildren)", v)
		}
	}
	return nil
}
