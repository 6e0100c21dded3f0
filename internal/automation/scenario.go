// Package automation runs scripted sequences of experiments described in
// YAML.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/san-kum/rtmsim/internal/config"
	"github.com/san-kum/rtmsim/internal/logging"
	"github.com/san-kum/rtmsim/internal/sim"
	"github.com/san-kum/rtmsim/internal/storage"
	"github.com/san-kum/rtmsim/internal/trials"
	"gopkg.in/yaml.v3"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single step in a scenario. Params override the named
// preset, or the defaults when Preset is empty. Keys are the control names
// (population_mean, population_sd, measurement_error, selection_count,
// population_size).
type ScenarioStep struct {
	Name   string             `yaml:"name"`
	Preset string             `yaml:"preset"`
	Params map[string]float64 `yaml:"params"`
	Trials int                `yaml:"trials"`
	Save   bool               `yaml:"save"`
}

// StepResult is what one step produced. A single-run step fills Result
// (and RunID when saved); a trials step fills Report. Stream is the
// engine stream the step started from.
type StepResult struct {
	Name   string
	Params sim.Params
	Stream uint64
	Result *sim.Result
	Report *trials.Report
	RunID  string
}

// StepStream is the first engine stream step i (zero-based) draws from.
// Steps are 2^32 streams apart so trial steps never overlap.
func StepStream(i int) uint64 {
	return uint64(i) << 32
}

// LoadScenario loads a scenario from a YAML file and validates it.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Validate checks every step before anything runs.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return ErrEmptyScenario
	}
	for i, step := range s.Steps {
		if _, err := step.Resolve(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Trials < 0 {
			return fmt.Errorf("step %d: trials must be >= 0", i+1)
		}
		if step.Save && step.Trials > 0 {
			return fmt.Errorf("step %d: save applies to single runs only", i+1)
		}
	}
	return nil
}

// Resolve builds the parameters a step runs with.
func (st ScenarioStep) Resolve() (sim.Params, error) {
	p := sim.DefaultParams()
	if st.Preset != "" {
		preset, ok := config.GetPreset(st.Preset)
		if !ok {
			return sim.Params{}, fmt.Errorf("unknown preset: %s", st.Preset)
		}
		p = preset
	}
	for name, v := range st.Params {
		if !knownParam(name) {
			return sim.Params{}, fmt.Errorf("unknown parameter: %s", name)
		}
		config.Set(&p, name, v)
	}
	return p, p.Validate()
}

func knownParam(name string) bool {
	for _, r := range config.Ranges {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Runner executes scenarios. Store may be nil, in which case save steps
// fail.
type Runner struct {
	Engine   *sim.Engine
	Ensemble *trials.Ensemble
	Store    *storage.Store
	Seed     uint64
	Log      *slog.Logger
}

// Run executes all steps in order and stops at the first failure,
// returning the results gathered so far.
func (r *Runner) Run(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	log := r.Log
	if log == nil {
		log = logging.Discard()
	}
	if len(scenario.Steps) == 0 {
		return nil, ErrEmptyScenario
	}

	results := make([]StepResult, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		log.Info("running step", "scenario", scenario.Name, "step", name, "index", i+1, "of", len(scenario.Steps))

		p, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		out := StepResult{Name: name, Params: p, Stream: StepStream(i)}

		if step.Trials > 0 {
			out.Report, err = r.Ensemble.RunStreams(ctx, p, step.Trials, out.Stream)
			if err != nil {
				return results, fmt.Errorf("step %d trials: %w", i+1, err)
			}
			results = append(results, out)
			continue
		}

		out.Result, err = r.Engine.RunStream(p, out.Stream)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		if step.Save {
			if r.Store == nil {
				return results, fmt.Errorf("step %d: %w", i+1, storage.ErrNotInitialized)
			}
			out.RunID, err = r.Store.Save(out.Result, r.Seed, out.Stream)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			log.Debug("saved step", "step", name, "run_id", out.RunID, "stream", out.Stream)
		}
		results = append(results, out)
	}

	return results, nil
}
