package leaf

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kfurusho/metago/pkg/errors"
)

// Bernoulli is the Beta-Bernoulli conjugate family: a Bernoulli likelihood
// over y in {0, 1} with a Beta(alpha, beta) prior on the success probability.
// The posterior predictive is Bernoulli(alphaN / (alphaN + betaN)).
type Bernoulli struct {
	alpha0, beta0 float64 // prior
	alphaN, betaN float64 // posterior

	theta float64 // parameter drawn by GenParams
}

// NewBernoulli creates a Beta-Bernoulli leaf model with the given prior
// hyperparameters. Both must be positive.
func NewBernoulli(alpha, beta float64) (*Bernoulli, error) {
	if alpha <= 0 {
		return nil, errors.NewParameterFormatError("alpha", "must be positive", alpha)
	}
	if beta <= 0 {
		return nil, errors.NewParameterFormatError("beta", "must be positive", beta)
	}
	return &Bernoulli{
		alpha0: alpha, beta0: beta,
		alphaN: alpha, betaN: beta,
		theta: 0.5,
	}, nil
}

// DefaultBernoulli returns a Beta-Bernoulli leaf model under the Jeffreys
// prior Beta(1/2, 1/2).
func DefaultBernoulli() *Bernoulli {
	m, _ := NewBernoulli(0.5, 0.5)
	return m
}

// Kind reports Discrete.
func (m *Bernoulli) Kind() Kind { return Discrete }

// Clone returns a deep copy including posterior state.
func (m *Bernoulli) Clone() Model {
	c := *m
	return &c
}

// Reset restores the prior hyperparameters, discarding the posterior.
func (m *Bernoulli) Reset() {
	m.alphaN = m.alpha0
	m.betaN = m.beta0
}

// ValidateObservation requires y to be exactly 0 or 1.
func (m *Bernoulli) ValidateObservation(y float64) error {
	if y != 0 && y != 1 {
		return errors.NewDataFormatError("Bernoulli.ValidateObservation", "y must be 0 or 1", y)
	}
	return nil
}

// GenParams draws the success probability from Beta(alphaN, betaN).
func (m *Bernoulli) GenParams(src rand.Source) {
	m.theta = distuv.Beta{Alpha: m.alphaN, Beta: m.betaN, Src: src}.Rand()
}

// GenSample draws one response from Bernoulli(theta).
func (m *Bernoulli) GenSample(src rand.Source) float64 {
	return distuv.Bernoulli{P: m.theta, Src: src}.Rand()
}

// Predictive returns the posterior predictive mass at y.
func (m *Bernoulli) Predictive(y float64) float64 {
	p := m.alphaN / (m.alphaN + m.betaN)
	switch y {
	case 1:
		return p
	case 0:
		return 1 - p
	default:
		return 0
	}
}

// Observe folds one observation into the Beta posterior.
func (m *Bernoulli) Observe(y float64) {
	m.alphaN += y
	m.betaN += 1 - y
}

// Estimate returns the Bayes-optimal point prediction under the loss.
func (m *Bernoulli) Estimate(loss Loss) (float64, error) {
	switch loss {
	case LossSquared:
		return m.alphaN / (m.alphaN + m.betaN), nil
	case LossZeroOne:
		v, _ := m.Mode()
		return v, nil
	default:
		return 0, errors.NewCriteriaError("Bernoulli.Estimate", string(loss),
			[]string{string(LossSquared), string(LossZeroOne)})
	}
}

// Mode returns the predictive mode and its mass. Ties at p == 0.5 resolve
// to 0.
func (m *Bernoulli) Mode() (float64, float64) {
	p := m.alphaN / (m.alphaN + m.betaN)
	if p > 0.5 {
		return 1, p
	}
	return 0, 1 - p
}

// Hyperparams returns the current posterior hyperparameters.
func (m *Bernoulli) Hyperparams() (alpha, beta float64) {
	return m.alphaN, m.betaN
}

// SetHyperparams replaces the prior hyperparameters and resets the posterior.
func (m *Bernoulli) SetHyperparams(alpha, beta float64) error {
	if alpha <= 0 || beta <= 0 {
		return errors.NewParameterFormatError("alpha/beta", "must be positive", [2]float64{alpha, beta})
	}
	m.alpha0, m.beta0 = alpha, beta
	m.Reset()
	return nil
}
