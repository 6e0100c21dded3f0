package sim

import (
	"fmt"
	"math"
)

const (
	DefaultPopulationMean   = 170.0
	DefaultPopulationSD     = 8.0
	DefaultMeasurementError = 5.0
	DefaultPopulationSize   = 1000
	DefaultSelectionCount   = 10
)

// Params is the input of one run.
type Params struct {
	PopulationMean   float64 `yaml:"population_mean" json:"population_mean"`
	PopulationSD     float64 `yaml:"population_sd" json:"population_sd"`
	MeasurementError float64 `yaml:"measurement_error" json:"measurement_error"`
	PopulationSize   int     `yaml:"population_size" json:"population_size"`
	SelectionCount   int     `yaml:"selection_count" json:"selection_count"`
}

func DefaultParams() Params {
	return Params{
		PopulationMean:   DefaultPopulationMean,
		PopulationSD:     DefaultPopulationSD,
		MeasurementError: DefaultMeasurementError,
		PopulationSize:   DefaultPopulationSize,
		SelectionCount:   DefaultSelectionCount,
	}
}

// Validate reports the first constraint p violates as a *ParamError.
func (p Params) Validate() error {
	switch {
	case math.IsNaN(p.PopulationMean) || math.IsInf(p.PopulationMean, 0):
		return &ParamError{Field: "population_mean", Value: p.PopulationMean, Reason: "must be finite"}
	case math.IsNaN(p.PopulationSD) || math.IsInf(p.PopulationSD, 0):
		return &ParamError{Field: "population_sd", Value: p.PopulationSD, Reason: "must be finite"}
	case p.PopulationSD < 0:
		return &ParamError{Field: "population_sd", Value: p.PopulationSD, Reason: "must be >= 0"}
	case math.IsNaN(p.MeasurementError) || math.IsInf(p.MeasurementError, 0):
		return &ParamError{Field: "measurement_error", Value: p.MeasurementError, Reason: "must be finite"}
	case p.MeasurementError < 0:
		return &ParamError{Field: "measurement_error", Value: p.MeasurementError, Reason: "must be >= 0"}
	case p.PopulationSize <= 0:
		return &ParamError{Field: "population_size", Value: float64(p.PopulationSize), Reason: "must be > 0"}
	case p.SelectionCount < 0:
		return &ParamError{Field: "selection_count", Value: float64(p.SelectionCount), Reason: "must be >= 0"}
	case p.SelectionCount > p.PopulationSize:
		return &ParamError{
			Field:  "selection_count",
			Value:  float64(p.SelectionCount),
			Reason: fmt.Sprintf("must be <= population_size (%d)", p.PopulationSize),
		}
	}
	return nil
}

// SelectionPercentile is the percentile of the primary measurement at which
// the selection threshold sits.
func (p Params) SelectionPercentile() float64 {
	return 100 * (1 - float64(p.SelectionCount)/float64(p.PopulationSize))
}

// Reliability is the share of primary variance due to the latent trait.
// It is 1 when there is no variance at all.
func (p Params) Reliability() float64 {
	total := p.PopulationSD*p.PopulationSD + p.MeasurementError*p.MeasurementError
	if total == 0 {
		return 1
	}
	return p.PopulationSD * p.PopulationSD / total
}

// Summary holds the aggregate statistics of one run.
type Summary struct {
	SelectedPrimaryMean   float64 `json:"selected_primary_mean"`
	SelectedSecondaryMean float64 `json:"selected_secondary_mean"`
	PopulationMean        float64 `json:"population_mean"`
	RegressionEffect      float64 `json:"regression_effect"`

	Selected  int     `json:"selected"`
	Threshold float64 `json:"threshold"`
	// Correlation is Pearson's r between primary and secondary over the
	// whole population. NaN when either series is constant.
	Correlation float64 `json:"-"`
	Reliability float64 `json:"reliability"`
}

// Text renders the summary the way the demo has always displayed it.
func (s Summary) Text() string {
	return fmt.Sprintf(
		"Extreme Parents Mean: %.1f cm\nTheir Children Mean: %.1f cm\nPopulation Mean: %g cm\nRegression Effect: %.1f cm",
		s.SelectedPrimaryMean,
		s.SelectedSecondaryMean,
		s.PopulationMean,
		s.RegressionEffect,
	)
}

// Result is everything one run produced. Slices are indexed by individual.
type Result struct {
	Params     Params
	Population []float64
	Primary    []float64
	Secondary  []float64
	Mask       []bool
	Summary    Summary
}

// Selected returns the primary and secondary values of the selected
// individuals, in population order.
func (r *Result) Selected() (primary, secondary []float64) {
	primary = make([]float64, 0, r.Summary.Selected)
	secondary = make([]float64, 0, r.Summary.Selected)
	for i, sel := range r.Mask {
		if sel {
			primary = append(primary, r.Primary[i])
			secondary = append(secondary, r.Secondary[i])
		}
	}
	return primary, secondary
}
