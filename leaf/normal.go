package leaf

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kfurusho/metago/pkg/errors"
)

// Normal is the Normal-Gamma conjugate family: a Gaussian likelihood with
// unknown mean and precision under a Normal-Gamma(m, kappa, a, b) prior.
// The posterior predictive is a Student-t distribution.
type Normal struct {
	m0, kappa0, a0, b0 float64
	mN, kappaN, aN, bN float64

	mu, tau float64 // parameters drawn by GenParams
}

// NewNormal creates a Normal-Gamma leaf model. kappa, a and b must be
// positive.
func NewNormal(m, kappa, a, b float64) (*Normal, error) {
	if kappa <= 0 {
		return nil, errors.NewParameterFormatError("kappa", "must be positive", kappa)
	}
	if a <= 0 {
		return nil, errors.NewParameterFormatError("a", "must be positive", a)
	}
	if b <= 0 {
		return nil, errors.NewParameterFormatError("b", "must be positive", b)
	}
	return &Normal{
		m0: m, kappa0: kappa, a0: a, b0: b,
		mN: m, kappaN: kappa, aN: a, bN: b,
		mu: m, tau: a / b,
	}, nil
}

// DefaultNormal returns a Normal-Gamma leaf model under the weakly
// informative prior NormalGamma(0, 1, 1, 1).
func DefaultNormal() *Normal {
	m, _ := NewNormal(0, 1, 1, 1)
	return m
}

// Kind reports Continuous.
func (m *Normal) Kind() Kind { return Continuous }

// Clone returns a deep copy including posterior state.
func (m *Normal) Clone() Model {
	c := *m
	return &c
}

// Reset restores the prior hyperparameters, discarding the posterior.
func (m *Normal) Reset() {
	m.mN, m.kappaN, m.aN, m.bN = m.m0, m.kappa0, m.a0, m.b0
}

// ValidateObservation requires y to be a finite real number.
func (m *Normal) ValidateObservation(y float64) error {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return errors.NewDataFormatError("Normal.ValidateObservation", "y must be finite", y)
	}
	return nil
}

// GenParams draws (mu, tau) from the Normal-Gamma belief.
func (m *Normal) GenParams(src rand.Source) {
	m.tau = distuv.Gamma{Alpha: m.aN, Beta: m.bN, Src: src}.Rand()
	m.mu = distuv.Normal{Mu: m.mN, Sigma: 1 / math.Sqrt(m.kappaN*m.tau), Src: src}.Rand()
}

// GenSample draws one response from Normal(mu, 1/sqrt(tau)).
func (m *Normal) GenSample(src rand.Source) float64 {
	return distuv.Normal{Mu: m.mu, Sigma: 1 / math.Sqrt(m.tau), Src: src}.Rand()
}

// predictive returns the Student-t posterior predictive distribution.
func (m *Normal) predictive() distuv.StudentsT {
	scale := math.Sqrt(m.bN * (m.kappaN + 1) / (m.aN * m.kappaN))
	return distuv.StudentsT{Mu: m.mN, Sigma: scale, Nu: 2 * m.aN}
}

// Predictive returns the Student-t predictive density at y.
func (m *Normal) Predictive(y float64) float64 {
	return m.predictive().Prob(y)
}

// Observe folds one observation into the Normal-Gamma posterior.
func (m *Normal) Observe(y float64) {
	diff := y - m.mN
	m.bN += 0.5 * m.kappaN * diff * diff / (m.kappaN + 1)
	m.mN = (m.kappaN*m.mN + y) / (m.kappaN + 1)
	m.kappaN++
	m.aN += 0.5
}

// Estimate returns the Bayes-optimal point prediction under the loss. For a
// symmetric Student-t predictive, mean and mode coincide at mN.
func (m *Normal) Estimate(loss Loss) (float64, error) {
	switch loss {
	case LossSquared, LossZeroOne:
		return m.mN, nil
	default:
		return 0, errors.NewCriteriaError("Normal.Estimate", string(loss),
			[]string{string(LossSquared), string(LossZeroOne)})
	}
}

// Mode returns the predictive mode and its density.
func (m *Normal) Mode() (float64, float64) {
	return m.mN, m.Predictive(m.mN)
}

// Hyperparams returns the current posterior hyperparameters.
func (m *Normal) Hyperparams() (mean, kappa, a, b float64) {
	return m.mN, m.kappaN, m.aN, m.bN
}

// SetHyperparams replaces the prior hyperparameters and resets the posterior.
func (m *Normal) SetHyperparams(mean, kappa, a, b float64) error {
	if kappa <= 0 || a <= 0 || b <= 0 {
		return errors.NewParameterFormatError("kappa/a/b", "must be positive", [3]float64{kappa, a, b})
	}
	m.m0, m.kappa0, m.a0, m.b0 = mean, kappa, a, b
	m.Reset()
	return nil
}
