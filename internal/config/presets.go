package config

import (
	"sort"

	"github.com/san-kum/rtmsim/internal/sim"
)

var Presets = map[string]sim.Params{
	"classroom": sim.DefaultParams(),
	"galton": {
		PopulationMean: 173, PopulationSD: 6.5, MeasurementError: 4,
		PopulationSize: 1000, SelectionCount: 100,
	},
	"noisy": {
		PopulationMean: 170, PopulationSD: 8, MeasurementError: 15,
		PopulationSize: 1000, SelectionCount: 50,
	},
	"precise": {
		PopulationMean: 170, PopulationSD: 8, MeasurementError: 1,
		PopulationSize: 1000, SelectionCount: 50,
	},
	"everyone": {
		PopulationMean: 170, PopulationSD: 8, MeasurementError: 5,
		PopulationSize: 500, SelectionCount: 500,
	},
	"small": {
		PopulationMean: 170, PopulationSD: 8, MeasurementError: 5,
		PopulationSize: 100, SelectionCount: 10,
	},
}

func GetPreset(name string) (sim.Params, bool) {
	p, ok := Presets[name]
	return p, ok
}

// ListPresets returns preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
