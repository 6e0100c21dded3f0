package config

import (
	"math"

	"github.com/san-kum/rtmsim/internal/sim"
)

// Range bounds one adjustable parameter in the interactive surfaces.
type Range struct {
	Name    string
	Label   string
	Min     float64
	Max     float64
	Step    float64
	Default float64
}

// Clamp snaps v onto the range grid and into [Min, Max].
func (r Range) Clamp(v float64) float64 {
	if r.Step > 0 {
		v = r.Min + math.Round((v-r.Min)/r.Step)*r.Step
	}
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Ranges lists the five controls in display order.
var Ranges = []Range{
	{Name: "population_mean", Label: "Population Mean", Min: 150, Max: 190, Step: 1, Default: sim.DefaultPopulationMean},
	{Name: "population_sd", Label: "Population SD", Min: 0, Max: 15, Step: 1, Default: sim.DefaultPopulationSD},
	{Name: "measurement_error", Label: "Measurement Error", Min: 0, Max: 15, Step: 1, Default: sim.DefaultMeasurementError},
	{Name: "selection_count", Label: "Extreme Count", Min: 0, Max: 100, Step: 1, Default: sim.DefaultSelectionCount},
	{Name: "population_size", Label: "Number of People", Min: 500, Max: 2000, Step: 50, Default: sim.DefaultPopulationSize},
}

// Get reads the parameter a range controls.
func Get(p sim.Params, name string) float64 {
	switch name {
	case "population_mean":
		return p.PopulationMean
	case "population_sd":
		return p.PopulationSD
	case "measurement_error":
		return p.MeasurementError
	case "selection_count":
		return float64(p.SelectionCount)
	case "population_size":
		return float64(p.PopulationSize)
	}
	return 0
}

// Set writes v into the parameter a range controls.
func Set(p *sim.Params, name string, v float64) {
	switch name {
	case "population_mean":
		p.PopulationMean = v
	case "population_sd":
		p.PopulationSD = v
	case "measurement_error":
		p.MeasurementError = v
	case "selection_count":
		p.SelectionCount = int(math.Round(v))
	case "population_size":
		p.PopulationSize = int(math.Round(v))
	}
}
