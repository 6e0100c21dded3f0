package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/san-kum/rtmsim/internal/config"
	"github.com/san-kum/rtmsim/internal/logging"
	"github.com/san-kum/rtmsim/internal/sim"
	"github.com/san-kum/rtmsim/internal/tui"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string

	mean       float64
	sd         float64
	errAmount  float64
	people     int
	count      int
	seed       uint64
	stream     uint64
	configFile string
	preset     string
	save       bool
	plot       bool

	trialCount int
	workers    int
	errValues  []float64

	addr  string
	strip bool

	logger *slog.Logger
)

// main registers the commands and launches the TUI when no subcommand is
// given. It exits with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:               "rtmsim",
		Short:             "regression to the mean simulator",
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		RunE:              runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory (env RTMSIM_DATA)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level: trace, debug, info, warn, error (env RTMSIM_LOG_LEVEL)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one experiment",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}
	paramFlags(runCmd)
	runCmd.Flags().Uint64Var(&stream, "stream", 0, "engine stream, replays a saved scenario step with --seed")
	runCmd.Flags().BoolVar(&save, "save", false, "save the run")
	runCmd.Flags().BoolVar(&plot, "plot", false, "draw the scatter and strip plots")

	trialsCmd := &cobra.Command{
		Use:   "trials",
		Short: "repeat the experiment and aggregate the effect",
		Args:  cobra.NoArgs,
		RunE:  runTrials,
	}
	paramFlags(trialsCmd)
	trialFlags(trialsCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run trials across measurement error values",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	paramFlags(sweepCmd)
	trialFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&errValues, "errors", []float64{0, 2.5, 5, 7.5, 10, 12.5, 15}, "measurement error values")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run individuals to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportXLSXCmd := &cobra.Command{
		Use:   "export-xlsx [run_id] [path]",
		Short: "export run data to an Excel workbook",
		Args:  cobra.ExactArgs(2),
		RunE:  exportXLSX,
	}

	svgCmd := &cobra.Command{
		Use:   "svg [run_id] [path]",
		Short: "export the run scatter, or the strip with --strip, as SVG",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}
	svgCmd.Flags().BoolVar(&strip, "strip", false, "draw the parent to child strip instead of the scatter")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 for fresh randomness)")
	scenarioCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "concurrent trials")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 for fresh randomness)")
	serveCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "concurrent trials")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive terminal mode",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}
	paramFlags(tuiCmd)

	rootCmd.AddCommand(runCmd, trialsCmd, sweepCmd, listCmd, showCmd, exportCSVCmd, exportJSONCmd,
		exportXLSXCmd, svgCmd, presetsCmd, scenarioCmd, serveCmd, tuiCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func paramFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&mean, "mean", sim.DefaultPopulationMean, "population mean")
	cmd.Flags().Float64Var(&sd, "sd", sim.DefaultPopulationSD, "population standard deviation")
	cmd.Flags().Float64Var(&errAmount, "error", sim.DefaultMeasurementError, "measurement error standard deviation")
	cmd.Flags().IntVar(&people, "people", sim.DefaultPopulationSize, "population size")
	cmd.Flags().IntVar(&count, "count", sim.DefaultSelectionCount, "number of extremes to select")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 for fresh randomness)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset parameters")
}

func trialFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&trialCount, "trials", config.DefaultTrials, "number of trials")
	cmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "concurrent trials")
}

// setup loads .env, resolves the data directory and log level, and builds
// the logger. Explicit flags win over the environment.
func setup(cmd *cobra.Command, args []string) error {
	// a missing .env is normal
	_ = godotenv.Load()

	flags := cmd.Flags()
	if v := os.Getenv("RTMSIM_DATA"); v != "" && !flags.Changed("data") {
		dataDir = v
	}
	if v := os.Getenv("RTMSIM_LOG_LEVEL"); v != "" && !flags.Changed("log-level") {
		logLevel = v
	}
	logger = logging.NewLogger(logLevel, os.Stderr)
	logger.Debug("setup", "data", dataDir, "log_level", logLevel)
	return nil
}

// resolveConfig applies preset, then config file, then explicitly set
// flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p, ok := config.GetPreset(preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg.Params = p
	}

	if configFile != "" {
		var err error
		cfg, err = config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if configFile != "" && cfg.DataDir != "" && !flags.Changed("data") && os.Getenv("RTMSIM_DATA") == "" {
		dataDir = cfg.DataDir
	}
	if configFile != "" && cfg.LogLevel != "" && !flags.Changed("log-level") && os.Getenv("RTMSIM_LOG_LEVEL") == "" {
		logLevel = cfg.LogLevel
		logger = logging.NewLogger(logLevel, os.Stderr)
	}
	if flags.Changed("mean") {
		cfg.Params.PopulationMean = mean
	}
	if flags.Changed("sd") {
		cfg.Params.PopulationSD = sd
	}
	if flags.Changed("error") {
		cfg.Params.MeasurementError = errAmount
	}
	if flags.Changed("people") {
		cfg.Params.PopulationSize = people
	}
	if flags.Changed("count") {
		cfg.Params.SelectionCount = count
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Lookup("trials") != nil && flags.Changed("trials") {
		cfg.Trials = trialCount
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Workers = workers
	}

	logger.Debug("resolved config",
		"preset", preset,
		"config", configFile,
		"params", cfg.Params,
		"seed", cfg.Seed,
	)
	return cfg, nil
}

func newEngine(seed uint64) *sim.Engine {
	if seed != 0 {
		return sim.New(sim.WithSeed(seed))
	}
	return sim.New()
}

func runTUI(cmd *cobra.Command, args []string) error {
	p := sim.DefaultParams()
	if cmd.Flags().Lookup("mean") != nil {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		p = cfg.Params
		seed = cfg.Seed
	}
	return tui.Run(newEngine(seed), p)
}
