// Package trials repeats the experiment to expose what a single run cannot:
// the average regression effect, how often it is positive, and how it moves
// with measurement error.
package trials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/montanaflynn/stats"
	"github.com/san-kum/rtmsim/internal/logging"
	"github.com/san-kum/rtmsim/internal/sim"
	"golang.org/x/sync/errgroup"
)

var ErrNoTrials = errors.New("trials: trial count must be positive")

// Report aggregates repeated runs of one parameter set.
type Report struct {
	Params          sim.Params       `json:"params"`
	Trials          int              `json:"trials"`
	Completed       int              `json:"completed"`
	EmptySelections int              `json:"empty_selections"`
	MeanEffect      float64          `json:"mean_effect"`
	EffectStdDev    float64          `json:"effect_stddev"`
	MinEffect       float64          `json:"min_effect"`
	MaxEffect       float64          `json:"max_effect"`
	PositiveRate    float64          `json:"positive_rate"`
	MeanPrimary     float64          `json:"mean_primary"`
	MeanSecondary   float64          `json:"mean_secondary"`
	Expected        *sim.Expectation `json:"expected,omitempty"`
	Effects         []float64        `json:"-"`
}

// Ensemble runs independent trials concurrently. Trial i runs on engine
// stream first+i, so a seeded engine gives the same report every time.
type Ensemble struct {
	engine  *sim.Engine
	workers int
	log     *slog.Logger
}

func NewEnsemble(engine *sim.Engine, workers int, log *slog.Logger) *Ensemble {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Ensemble{engine: engine, workers: workers, log: log}
}

// Run performs n trials of p. Trials that select nobody are counted, not
// fatal; Run fails with sim.ErrEmptySelection only when every trial did.
func (e *Ensemble) Run(ctx context.Context, p sim.Params, n int) (*Report, error) {
	return e.RunStreams(ctx, p, n, 0)
}

// RunStreams is Run with trial i on stream first+i.
func (e *Ensemble) RunStreams(ctx context.Context, p sim.Params, n int, first uint64) (*Report, error) {
	if n <= 0 {
		return nil, ErrNoTrials
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	summaries := make([]*sim.Summary, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.engine.RunStream(p, first+uint64(i))
			if errors.Is(err, sim.ErrEmptySelection) {
				e.log.Log(ctx, logging.LevelTrace, "trial selected nobody", "trial", i)
				return nil
			}
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			e.log.Log(ctx, logging.LevelTrace, "trial done", "trial", i, "effect", res.Summary.RegressionEffect)
			summaries[i] = &res.Summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := aggregate(p, summaries)
	if report.Completed == 0 {
		return nil, fmt.Errorf("all %d trials: %w", n, sim.ErrEmptySelection)
	}
	if exp, err := sim.Expected(p); err == nil {
		report.Expected = &exp
	}

	e.log.Debug("trials complete",
		"trials", n,
		"mean_effect", report.MeanEffect,
		"positive_rate", report.PositiveRate,
		"empty", report.EmptySelections,
	)
	return report, nil
}

func aggregate(p sim.Params, summaries []*sim.Summary) *Report {
	report := &Report{Params: p, Trials: len(summaries)}

	effects := make([]float64, 0, len(summaries))
	primary := make([]float64, 0, len(summaries))
	secondary := make([]float64, 0, len(summaries))
	positive := 0
	for _, s := range summaries {
		if s == nil {
			report.EmptySelections++
			continue
		}
		effects = append(effects, s.RegressionEffect)
		primary = append(primary, s.SelectedPrimaryMean)
		secondary = append(secondary, s.SelectedSecondaryMean)
		if s.RegressionEffect > 0 {
			positive++
		}
	}

	report.Completed = len(effects)
	report.Effects = effects
	if report.Completed == 0 {
		return report
	}

	report.MeanEffect, _ = stats.Mean(effects)
	report.MinEffect, _ = stats.Min(effects)
	report.MaxEffect, _ = stats.Max(effects)
	report.MeanPrimary, _ = stats.Mean(primary)
	report.MeanSecondary, _ = stats.Mean(secondary)
	if report.Completed > 1 {
		report.EffectStdDev, _ = stats.StandardDeviationSample(effects)
	}
	report.PositiveRate = float64(positive) / float64(report.Completed)
	return report
}
