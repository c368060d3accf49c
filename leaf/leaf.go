// Package leaf implements the conjugate probability families that live at the
// nodes of a meta-tree.
//
// Every node of a meta-tree owns one leaf model so that it can act as a
// stopping point for the recursive stop/split mixture. A leaf model carries
// both a generative side (draw parameters from the prior, draw samples from
// the drawn parameters) and a posterior side (absorb one observation in
// closed form, report the predictive density at a point, report Bayes-optimal
// point estimates).
//
// The four families mirror the exponential-family conjugate pairs:
// Bernoulli/Beta, Poisson/Gamma, Normal/Normal-Gamma and Exponential/Gamma.
// All sampling goes through gonum's distuv with an explicitly supplied
// source; nothing in this package reads ambient process-wide randomness.
package leaf

import (
	"math/rand/v2"
)

// Loss identifies the loss function underlying a Bayes-risk point estimate.
type Loss string

const (
	// LossSquared selects the posterior predictive mean.
	LossSquared Loss = "squared"
	// LossZeroOne selects the posterior predictive mode.
	LossZeroOne Loss = "0-1"
)

// Kind distinguishes discrete from continuous response families. The
// topology proposer uses it to pick its impurity criterion and the sklearn
// wrappers use it to pick classifier versus regressor semantics.
type Kind int

const (
	// Discrete marks families over integer-valued responses.
	Discrete Kind = iota
	// Continuous marks families over real-valued responses.
	Continuous
)

// Model is the contract every leaf family satisfies. A Model owns its prior
// hyperparameters and its accumulated posterior state; the meta-tree core
// never inspects either directly.
//
// The generative methods (GenParams, GenSample) and the posterior methods
// (Predictive, Observe, Estimate, Mode) may be freely interleaved: GenParams
// draws concrete parameters from the current belief, while Observe folds an
// observation into the posterior.
type Model interface {
	// Kind reports whether the family is discrete or continuous.
	Kind() Kind

	// Clone returns a deep copy, including accumulated posterior state.
	Clone() Model

	// Reset discards the accumulated posterior, restoring the prior. A node
	// whose hyperparameters change is reset wholesale through Clone+Reset.
	Reset()

	// ValidateObservation reports whether y lies in the family's support.
	// Callers must validate before mutating any tree state.
	ValidateObservation(y float64) error

	// GenParams draws concrete distribution parameters from the current
	// belief state (the prior, for a fresh model).
	GenParams(src rand.Source)

	// GenSample draws one response from the parameters drawn by the most
	// recent GenParams call.
	GenSample(src rand.Source) float64

	// Predictive evaluates the posterior predictive density or mass at y.
	Predictive(y float64) float64

	// Observe folds one observation into the posterior in closed form.
	Observe(y float64)

	// Estimate returns the Bayes-optimal point prediction under the loss.
	Estimate(loss Loss) (float64, error)

	// Mode returns the predictive mode together with its predictive
	// density/mass, as consumed by 0-1 loss prediction.
	Mode() (value, prob float64)
}

// CovariateModel is the optional capability interface for families whose
// leaves condition on the feature vector (regression-style leaves). The core
// resolves this capability once per configuration with a type assertion and
// never re-probes it per call.
type CovariateModel interface {
	Model

	// PredictiveX evaluates the predictive density at y given covariates x.
	PredictiveX(x []int, y float64) float64

	// ObserveX folds one (x, y) pair into the posterior.
	ObserveX(x []int, y float64)
}

// RequiresCovariates reports whether m needs the feature vector at its
// leaves. It is the single capability check used at configuration time.
func RequiresCovariates(m Model) bool {
	_, ok := m.(CovariateModel)
	return ok
}
