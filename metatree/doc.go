// Package metatree はメタツリー(複数の決定木トポロジーの上のベイズ混合)による
// 逐次予測モデルを提供します。
//
// A meta-tree is one concrete decision-tree topology carrying, at every node,
// a conjugate leaf model and a stop weight g. (1-g) is the probability mass
// that the tree effectively stops at the node; g is the mass that it continues
// into the children. The model maintains an ensemble of candidate meta-trees
// with a posterior weight vector, and every quantity of interest (posterior
// updates, MAP tree collapse, point prediction) has a closed form, so learning
// is exact and online: no sampling, no iterative optimization.
//
// The package splits the model the usual Bayesian way:
//
//   - GenModel holds a single tree drawn from (or assigned under) the prior
//     and generates synthetic data from it.
//   - LearnModel holds the candidate ensemble and performs posterior updates,
//     reweighting, MAP estimation and prediction.
//
// Feature vectors are integer-coded: x has a fixed length K and every entry
// lies in [0, NumChildren). Candidate topologies come either from a
// TopologyProposer (typically a random forest over the training batch) or
// from an explicit list supplied at construction.
package metatree
