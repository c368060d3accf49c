package leaf

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kfurusho/metago/pkg/errors"
)

// Exponential is the Gamma-Exponential conjugate family: an exponential
// likelihood over non-negative waiting times with a Gamma(alpha, beta) prior
// on the rate. The posterior predictive is a Lomax distribution.
type Exponential struct {
	alpha0, beta0 float64
	alphaN, betaN float64

	lambda float64
}

// NewExponential creates a Gamma-Exponential leaf model. Both
// hyperparameters must be positive; alpha must additionally exceed 1 so that
// the Lomax predictive mean (used by squared-loss prediction) is finite on a
// fresh node.
func NewExponential(alpha, beta float64) (*Exponential, error) {
	if alpha <= 1 {
		return nil, errors.NewParameterFormatError("alpha", "must exceed 1 for a finite predictive mean", alpha)
	}
	if beta <= 0 {
		return nil, errors.NewParameterFormatError("beta", "must be positive", beta)
	}
	return &Exponential{
		alpha0: alpha, beta0: beta,
		alphaN: alpha, betaN: beta,
		lambda: alpha / beta,
	}, nil
}

// DefaultExponential returns a Gamma-Exponential leaf model under Gamma(2, 1).
func DefaultExponential() *Exponential {
	m, _ := NewExponential(2, 1)
	return m
}

// Kind reports Continuous.
func (m *Exponential) Kind() Kind { return Continuous }

// Clone returns a deep copy including posterior state.
func (m *Exponential) Clone() Model {
	c := *m
	return &c
}

// Reset restores the prior hyperparameters, discarding the posterior.
func (m *Exponential) Reset() {
	m.alphaN = m.alpha0
	m.betaN = m.beta0
}

// ValidateObservation requires y to be finite and non-negative.
func (m *Exponential) ValidateObservation(y float64) error {
	if math.IsNaN(y) || math.IsInf(y, 0) || y < 0 {
		return errors.NewDataFormatError("Exponential.ValidateObservation", "y must be finite and non-negative", y)
	}
	return nil
}

// GenParams draws the rate from Gamma(alphaN, betaN).
func (m *Exponential) GenParams(src rand.Source) {
	m.lambda = distuv.Gamma{Alpha: m.alphaN, Beta: m.betaN, Src: src}.Rand()
}

// GenSample draws one waiting time from Exponential(lambda).
func (m *Exponential) GenSample(src rand.Source) float64 {
	return distuv.Exponential{Rate: m.lambda, Src: src}.Rand()
}

// Predictive returns the Lomax predictive density at y.
func (m *Exponential) Predictive(y float64) float64 {
	if y < 0 {
		return 0
	}
	a, b := m.alphaN, m.betaN
	return math.Exp(math.Log(a) + a*math.Log(b) - (a+1)*math.Log(b+y))
}

// Observe folds one observation into the Gamma posterior.
func (m *Exponential) Observe(y float64) {
	m.alphaN++
	m.betaN += y
}

// Estimate returns the Bayes-optimal point prediction under the loss.
func (m *Exponential) Estimate(loss Loss) (float64, error) {
	switch loss {
	case LossSquared:
		// Lomax predictive mean; finite because alpha > 1 is enforced at
		// construction and only grows with observations.
		return m.betaN / (m.alphaN - 1), nil
	case LossZeroOne:
		v, _ := m.Mode()
		return v, nil
	default:
		return 0, errors.NewCriteriaError("Exponential.Estimate", string(loss),
			[]string{string(LossSquared), string(LossZeroOne)})
	}
}

// Mode returns the Lomax predictive mode (always 0) and its density.
func (m *Exponential) Mode() (float64, float64) {
	return 0, m.alphaN / m.betaN
}

// Hyperparams returns the current posterior hyperparameters.
func (m *Exponential) Hyperparams() (alpha, beta float64) {
	return m.alphaN, m.betaN
}

// SetHyperparams replaces the prior hyperparameters and resets the posterior.
func (m *Exponential) SetHyperparams(alpha, beta float64) error {
	if alpha <= 1 || beta <= 0 {
		return errors.NewParameterFormatError("alpha/beta", "alpha must exceed 1 and beta must be positive", [2]float64{alpha, beta})
	}
	m.alpha0, m.beta0 = alpha, beta
	m.Reset()
	return nil
}
