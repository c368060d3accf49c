package leaf

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kfurusho/metago/pkg/errors"
)

// Poisson is the Gamma-Poisson conjugate family: a Poisson likelihood over
// counts with a Gamma(alpha, beta) prior (rate parameterization) on the
// intensity. The posterior predictive is negative binomial.
type Poisson struct {
	alpha0, beta0 float64
	alphaN, betaN float64

	lambda float64
}

// NewPoisson creates a Gamma-Poisson leaf model with the given prior
// hyperparameters. Both must be positive.
func NewPoisson(alpha, beta float64) (*Poisson, error) {
	if alpha <= 0 {
		return nil, errors.NewParameterFormatError("alpha", "must be positive", alpha)
	}
	if beta <= 0 {
		return nil, errors.NewParameterFormatError("beta", "must be positive", beta)
	}
	return &Poisson{
		alpha0: alpha, beta0: beta,
		alphaN: alpha, betaN: beta,
		lambda: alpha / beta,
	}, nil
}

// DefaultPoisson returns a Gamma-Poisson leaf model under Gamma(1, 1).
func DefaultPoisson() *Poisson {
	m, _ := NewPoisson(1, 1)
	return m
}

// Kind reports Discrete.
func (m *Poisson) Kind() Kind { return Discrete }

// Clone returns a deep copy including posterior state.
func (m *Poisson) Clone() Model {
	c := *m
	return &c
}

// Reset restores the prior hyperparameters, discarding the posterior.
func (m *Poisson) Reset() {
	m.alphaN = m.alpha0
	m.betaN = m.beta0
}

// ValidateObservation requires y to be a non-negative integer.
func (m *Poisson) ValidateObservation(y float64) error {
	if y < 0 || y != math.Trunc(y) {
		return errors.NewDataFormatError("Poisson.ValidateObservation", "y must be a non-negative integer", y)
	}
	return nil
}

// GenParams draws the intensity from Gamma(alphaN, betaN).
func (m *Poisson) GenParams(src rand.Source) {
	m.lambda = distuv.Gamma{Alpha: m.alphaN, Beta: m.betaN, Src: src}.Rand()
}

// GenSample draws one count from Poisson(lambda).
func (m *Poisson) GenSample(src rand.Source) float64 {
	return distuv.Poisson{Lambda: m.lambda, Src: src}.Rand()
}

// Predictive returns the negative-binomial predictive mass at y.
func (m *Poisson) Predictive(y float64) float64 {
	if y < 0 || y != math.Trunc(y) {
		return 0
	}
	a, b := m.alphaN, m.betaN
	lg1, _ := math.Lgamma(y + a)
	lg2, _ := math.Lgamma(y + 1)
	lg3, _ := math.Lgamma(a)
	logP := lg1 - lg2 - lg3 + a*math.Log(b/(b+1)) - y*math.Log(b+1)
	return math.Exp(logP)
}

// Observe folds one count into the Gamma posterior.
func (m *Poisson) Observe(y float64) {
	m.alphaN += y
	m.betaN++
}

// Estimate returns the Bayes-optimal point prediction under the loss.
func (m *Poisson) Estimate(loss Loss) (float64, error) {
	switch loss {
	case LossSquared:
		// Predictive (negative binomial) mean.
		return m.alphaN / m.betaN, nil
	case LossZeroOne:
		v, _ := m.Mode()
		return v, nil
	default:
		return 0, errors.NewCriteriaError("Poisson.Estimate", string(loss),
			[]string{string(LossSquared), string(LossZeroOne)})
	}
}

// Mode returns the negative-binomial predictive mode and its mass.
func (m *Poisson) Mode() (float64, float64) {
	var mode float64
	if m.alphaN > 1 {
		mode = math.Floor((m.alphaN - 1) / m.betaN)
	}
	return mode, m.Predictive(mode)
}

// Hyperparams returns the current posterior hyperparameters.
func (m *Poisson) Hyperparams() (alpha, beta float64) {
	return m.alphaN, m.betaN
}

// SetHyperparams replaces the prior hyperparameters and resets the posterior.
func (m *Poisson) SetHyperparams(alpha, beta float64) error {
	if alpha <= 0 || beta <= 0 {
		return errors.NewParameterFormatError("alpha/beta", "must be positive", [2]float64{alpha, beta})
	}
	m.alpha0, m.beta0 = alpha, beta
	m.Reset()
	return nil
}
