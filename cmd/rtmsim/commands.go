package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/san-kum/rtmsim/internal/automation"
	"github.com/san-kum/rtmsim/internal/config"
	"github.com/san-kum/rtmsim/internal/server"
	"github.com/san-kum/rtmsim/internal/sim"
	"github.com/san-kum/rtmsim/internal/storage"
	"github.com/san-kum/rtmsim/internal/trials"
	"github.com/san-kum/rtmsim/internal/viz"
	"github.com/spf13/cobra"
)

const (
	plotWidth  = 36
	plotHeight = 16
)

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := newEngine(cfg.Seed).RunStream(cfg.Params, stream)
	if err != nil {
		return err
	}
	logger.Debug("run complete", "elapsed", time.Since(start), "selected", res.Summary.Selected, "stream", stream)

	if plot {
		fmt.Println(plots(res))
	}
	fmt.Println(viz.SummaryPanel(res.Summary))
	fmt.Printf("correlation: %.3f\n", res.Summary.Correlation)

	if save {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err := st.Save(res, cfg.Seed, stream)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return nil
}

func runTrials(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ens := trials.NewEnsemble(newEngine(cfg.Seed), cfg.Workers, logger)
	fmt.Printf("running %d trials...\n", cfg.Trials)
	start := time.Now()

	report, err := ens.Run(cmd.Context(), cfg.Params, cfg.Trials)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "trials\t%d\n", report.Trials)
	fmt.Fprintf(w, "empty selections\t%d\n", report.EmptySelections)
	fmt.Fprintf(w, "mean effect\t%.3f cm\n", report.MeanEffect)
	fmt.Fprintf(w, "effect stddev\t%.3f cm\n", report.EffectStdDev)
	fmt.Fprintf(w, "effect range\t%.3f .. %.3f cm\n", report.MinEffect, report.MaxEffect)
	fmt.Fprintf(w, "positive rate\t%.1f%%\n", 100*report.PositiveRate)
	fmt.Fprintf(w, "mean parents\t%.2f cm\n", report.MeanPrimary)
	fmt.Fprintf(w, "mean children\t%.2f cm\n", report.MeanSecondary)
	if report.Expected != nil {
		fmt.Fprintf(w, "expected effect\t%.3f cm\n", report.Expected.RegressionEffect)
		fmt.Fprintf(w, "reliability\t%.3f\n", report.Expected.Reliability)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%s\n", viz.Sparkline(report.Effects))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ens := trials.NewEnsemble(newEngine(cfg.Seed), cfg.Workers, logger)
	points, err := ens.Sweep(cmd.Context(), cfg.Params, errValues, cfg.Trials)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ERROR\tMEAN EFFECT\tSTDDEV\tPOSITIVE\tEXPECTED")
	for _, pt := range points {
		expected := "-"
		if pt.Report.Expected != nil {
			expected = fmt.Sprintf("%.3f", pt.Report.Expected.RegressionEffect)
		}
		fmt.Fprintf(w, "%g\t%.3f\t%.3f\t%.1f%%\t%s\n",
			pt.MeasurementError,
			pt.Report.MeanEffect,
			pt.Report.EffectStdDev,
			100*pt.Report.PositiveRate,
			expected,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if graph := viz.TrendPlot(errValues, trials.Effects(points), 60, 12); graph != "" {
		fmt.Printf("\n%s\n", graph)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMEAN\tSD\tERROR\tPEOPLE\tCOUNT\tEFFECT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%d\t%d\t%.2f\n",
			run.ID,
			run.Created().Format("2006-01-02 15:04:05"),
			run.PopulationMean,
			run.PopulationSD,
			run.MeasurementError,
			run.PopulationSize,
			run.SelectionCount,
			run.RegressionEffect,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return meta, res, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("time: %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	if meta.Seed != 0 {
		fmt.Printf("seed: %d  stream: %d\n", meta.Seed, meta.Stream)
	}
	p := meta.Params
	fmt.Printf("params: mean=%g sd=%g error=%g people=%d count=%d\n\n",
		p.PopulationMean, p.PopulationSD, p.MeasurementError, p.PopulationSize, p.SelectionCount)

	fmt.Println(plots(res))
	fmt.Println(viz.SummaryPanel(res.Summary))
	return nil
}

func plots(res *sim.Result) string {
	return viz.SideBySide(
		viz.Scatter(res, plotWidth, plotHeight),
		viz.Extremes(res, plotWidth, plotHeight),
		viz.Strip(res, plotWidth, plotHeight),
	)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportCSV(os.Stdout, res)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta.ID, res)
}

func exportXLSX(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if err := storage.ExportXLSX(args[1], meta.ID, res); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, res, err := loadRun(args[0])
	if err != nil {
		return err
	}
	svg := viz.ScatterSVG(res, 80, 40, 4)
	if strip {
		svg = viz.CanvasToSVG(viz.StripCanvas(res, 80, 40), 4)
	}
	if err := os.WriteFile(args[1], []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMEAN\tSD\tERROR\tPEOPLE\tCOUNT")
	for _, name := range config.ListPresets() {
		p, _ := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%d\t%d\n",
			name, p.PopulationMean, p.PopulationSD, p.MeasurementError, p.PopulationSize, p.SelectionCount)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	eng := newEngine(seed)
	runner := &automation.Runner{
		Engine:   eng,
		Ensemble: trials.NewEnsemble(eng, workers, logger),
		Seed:     seed,
		Log:      logger,
	}
	for _, step := range sc.Steps {
		if step.Save {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			runner.Store = st
			break
		}
	}

	if sc.Name != "" {
		fmt.Printf("scenario: %s\n", sc.Name)
	}
	if sc.Description != "" {
		fmt.Printf("%s\n", sc.Description)
	}
	fmt.Println()

	results, err := runner.Run(cmd.Context(), sc)
	for i, r := range results {
		fmt.Printf("[%d/%d] %s\n", i+1, len(sc.Steps), r.Name)
		switch {
		case r.Report != nil:
			fmt.Printf("  %d trials: mean effect %.3f cm, positive %.1f%%\n",
				r.Report.Trials, r.Report.MeanEffect, 100*r.Report.PositiveRate)
		case r.Result != nil:
			fmt.Printf("  effect %.3f cm (parents %.1f, children %.1f)\n",
				r.Result.Summary.RegressionEffect,
				r.Result.Summary.SelectedPrimaryMean,
				r.Result.Summary.SelectedSecondaryMean)
		}
		if r.RunID != "" {
			fmt.Printf("  saved as %s (stream %d)\n", r.RunID, r.Stream)
		}
	}
	return err
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng := newEngine(seed)
	srv := server.New(eng, trials.NewEnsemble(eng, workers, logger), logger)
	fmt.Printf("serving on %s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
