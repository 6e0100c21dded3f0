package sim

import (
	"math"
	"sync/atomic"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Engine runs the experiment. The zero value is not usable; call New.
type Engine struct {
	sourceFor func(stream uint64) Source
	next      atomic.Uint64
}

// New returns an engine that draws every run from a fresh, unseeded
// generator unless an option says otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{sourceFor: freshSource}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run validates p, then performs one run on the engine's next stream.
func (e *Engine) Run(p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return Run(p, e.sourceFor(e.next.Add(1)-1))
}

// RunStream is Run on an explicit stream. With [WithSeed] the result
// depends only on the seed, p and stream, whatever else runs concurrently.
func (e *Engine) RunStream(p Params, stream uint64) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return Run(p, e.sourceFor(stream))
}

// Run performs one run drawing from src. Invalid parameters are reported
// before anything is drawn from src.
func Run(p Params, src Source) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := p.PopulationSize
	res := &Result{
		Params:     p,
		Population: make([]float64, n),
		Primary:    make([]float64, n),
		Secondary:  make([]float64, n),
		Mask:       make([]bool, n),
	}

	for i := range res.Population {
		res.Population[i] = p.PopulationMean + p.PopulationSD*src.NormFloat64()
	}
	for i, latent := range res.Population {
		res.Primary[i] = latent + p.MeasurementError*src.NormFloat64()
	}
	for i, latent := range res.Population {
		res.Secondary[i] = latent + p.MeasurementError*src.NormFloat64()
	}

	threshold := math.Inf(1)
	if p.SelectionCount > 0 {
		threshold = Percentile(res.Primary, p.SelectionPercentile())
	}

	selected := 0
	for i, v := range res.Primary {
		if v >= threshold {
			res.Mask[i] = true
			selected++
		}
	}
	if selected == 0 {
		return nil, ErrEmptySelection
	}
	res.Summary.Selected = selected

	primarySel, secondarySel := res.Selected()
	primaryMean, err := stats.Mean(primarySel)
	if err != nil {
		return nil, err
	}
	secondaryMean, err := stats.Mean(secondarySel)
	if err != nil {
		return nil, err
	}

	res.Summary = Summary{
		SelectedPrimaryMean:   primaryMean,
		SelectedSecondaryMean: secondaryMean,
		PopulationMean:        p.PopulationMean,
		RegressionEffect:      primaryMean - secondaryMean,
		Selected:              selected,
		Threshold:             threshold,
		Correlation:           stat.Correlation(res.Primary, res.Secondary, nil),
		Reliability:           p.Reliability(),
	}

	return res, nil
}
