package sim

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Expectation is the large-population prediction for a parameter set.
type Expectation struct {
	SelectedPrimaryMean   float64 `json:"selected_primary_mean"`
	SelectedSecondaryMean float64 `json:"selected_secondary_mean"`
	RegressionEffect      float64 `json:"regression_effect"`
	Reliability           float64 `json:"reliability"`
}

// Expected predicts the summary of a run as the population grows, with the
// selected fraction held at SelectionCount/PopulationSize.
//
// The primary measurement is Normal(mean, sd²+err²). Selecting its top
// fraction q raises its mean by σ·φ(z)/q with z = Φ⁻¹(1-q); the secondary
// measurement keeps only the reliability share of that shift.
func Expected(p Params) (Expectation, error) {
	if err := p.Validate(); err != nil {
		return Expectation{}, err
	}
	if p.SelectionCount == 0 {
		return Expectation{}, ErrEmptySelection
	}

	q := float64(p.SelectionCount) / float64(p.PopulationSize)
	sigma := math.Hypot(p.PopulationSD, p.MeasurementError)
	shift := 0.0
	if q < 1 && sigma > 0 {
		z := distuv.UnitNormal.Quantile(1 - q)
		shift = sigma * distuv.UnitNormal.Prob(z) / q
	}

	rho := p.Reliability()
	return Expectation{
		SelectedPrimaryMean:   p.PopulationMean + shift,
		SelectedSecondaryMean: p.PopulationMean + rho*shift,
		RegressionEffect:      (1 - rho) * shift,
		Reliability:           rho,
	}, nil
}
