// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/weitrix/internal/config"
	"github.com/katalvlaran/weitrix/internal/telemetry"
	"github.com/katalvlaran/weitrix/parallel"
)

const version = "v0.4.0"

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	rec   *telemetry.Recorder
	runID string
	exec  parallel.Executor

	stderr io.Writer

	configPath  string
	logLevel    string
	metricsFile string
	workers     int
	blockRows   int
}

func newRootCmd() *cobra.Command { return newRoot(os.Stderr) }

// newRoot builds the command tree logging to stderr.
func newRoot(stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	root := &cobra.Command{
		Use:     "weitrix",
		Short:   "Weighted matrix components, dispersion and weight calibration",
		Version: version,
		Long: `weitrix works on a measurement matrix paired with a weight matrix.

It finds components of variation by weighted alternating least squares,
estimates per-row dispersion, and calibrates weights so that dispersion no
longer trends with covariates such as total weight.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (trace|debug|info|warn|error)")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on success")
	pf.IntVar(&a.workers, "workers", 1, "Row-block workers; 0 uses all CPUs")
	pf.IntVar(&a.blockRows, "block-rows", 0, "Rows per block; 0 uses the default")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Calibrate weights against a dispersion trend",
	}
	calibrateCmd.AddCommand(newCalibrateTrendCmd(a), newCalibrateAllCmd(a))

	root.AddCommand(
		newComponentsCmd(a),
		newExploreCmd(a),
		newDispersionCmd(a),
		calibrateCmd,
		newRandomizeCmd(a),
		newExportCmd(a),
		newSimulateCmd(a),
	)

	return root
}

// setup loads configuration, applies flag overrides and builds the logger,
// recorder and executor.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File = a.metricsFile
	}
	if flags.Changed("workers") {
		cfg.Parallel.Workers = a.workers
	}
	if flags.Changed("block-rows") {
		cfg.Parallel.BlockRows = a.blockRows
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	var out io.Writer = zerolog.ConsoleWriter{Out: a.stderr, TimeFormat: time.Kitchen}
	if cfg.Log.JSON {
		out = a.stderr
	}
	a.runID = uuid.New().String()
	a.log = zerolog.New(out).Level(level).With().
		Timestamp().
		Str("run_id", a.runID).
		Logger()

	a.rec = telemetry.New(cfg.Metrics.Namespace)
	a.rec.SetRun(a.runID, cmd.CommandPath())

	if cfg.Parallel.Workers == 1 {
		a.exec = parallel.Serial{}
	} else {
		a.exec = parallel.NewPool(cfg.Parallel.Workers)
	}
	a.log.Debug().
		Str("command", cmd.CommandPath()).
		Int("workers", cfg.Parallel.Workers).
		Int("block_rows", cfg.Parallel.BlockRows).
		Msg("starting")

	return nil
}

func (a *app) finish() error {
	if a.cfg.Metrics.File == "" {
		return nil
	}
	if err := a.rec.WriteTextfile(a.cfg.Metrics.File); err != nil {
		return err
	}
	a.log.Info().Str("path", a.cfg.Metrics.File).Msg("metrics written")

	return nil
}
