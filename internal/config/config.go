// SPDX-License-Identifier: MIT

// Package config holds the YAML configuration of the weitrix command.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Unknown keys are rejected so typos surface early.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/weitrix/calibrate"
	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/design"
	"github.com/katalvlaran/weitrix/glm"
)

// ErrInvalid indicates a configuration value out of range.
var ErrInvalid = errors.New("config: invalid value")

// Config is the full command configuration.
type Config struct {
	Components ComponentsConfig `yaml:"components"`
	Calibrate  CalibrateConfig  `yaml:"calibrate"`
	Parallel   ParallelConfig   `yaml:"parallel"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ComponentsConfig drives components, explore and the fits behind
// dispersion and calibration.
type ComponentsConfig struct {
	// Design is a formula over column covariates.
	Design    string  `yaml:"design"`
	P         int     `yaml:"p"`
	MaxP      int     `yaml:"max_p"`
	Tolerance float64 `yaml:"tolerance"`
	MaxIter   int     `yaml:"max_iter"`
	Varimax   bool    `yaml:"varimax"`
	Seed      int64   `yaml:"seed"`
	RCond     float64 `yaml:"rcond"`
}

// CalibrateConfig drives calibrate trend and calibrate all.
type CalibrateConfig struct {
	// TrendFormula is evaluated per row.
	TrendFormula string `yaml:"trend_formula"`
	// CellFormula is evaluated per observed cell.
	CellFormula        string `yaml:"cell_formula"`
	Family             string `yaml:"family"`
	MaxIter            int    `yaml:"max_iter"`
	ResidualCorrection bool   `yaml:"residual_correction"`
}

// ParallelConfig selects the row-block executor.
type ParallelConfig struct {
	// Workers is the pool size; 1 runs serially, 0 uses GOMAXPROCS.
	Workers   int `yaml:"workers"`
	BlockRows int `yaml:"block_rows"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level string `yaml:"level"`
	// JSON disables the console writer.
	JSON bool `yaml:"json"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	// File is written after the command finishes; empty disables export.
	File      string `yaml:"file"`
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Components: ComponentsConfig{
			Design:    "~ 1",
			P:         0,
			MaxP:      6,
			Tolerance: components.DefaultTolerance,
			MaxIter:   components.DefaultMaxIter,
			Varimax:   components.DefaultVarimax,
			Seed:      components.DefaultSeed,
		},
		Calibrate: CalibrateConfig{
			TrendFormula: "~ spline(log(total_weight), 3)",
			CellFormula:  "~ col + offset(-log(weight))",
			Family:       calibrate.DefaultFamily.String(),
		},
		Parallel: ParallelConfig{Workers: 1},
		Log:      LogConfig{Level: zerolog.LevelInfoValue},
		Metrics:  MetricsConfig{Namespace: "weitrix"},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read decodes YAML from r over Default and validates the result.
// An empty document yields Default.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config.Read: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks ranges and that both formulas parse.
func (c Config) Validate() error {
	cc := c.Components
	switch {
	case cc.P < 0:
		return invalidf("components.p = %d must be >= 0", cc.P)
	case cc.MaxP < 0:
		return invalidf("components.max_p = %d must be >= 0", cc.MaxP)
	case math.IsNaN(cc.Tolerance) || math.IsInf(cc.Tolerance, 0) || cc.Tolerance < 0:
		return invalidf("components.tolerance = %g must be finite and >= 0", cc.Tolerance)
	case cc.MaxIter < 1:
		return invalidf("components.max_iter = %d must be >= 1", cc.MaxIter)
	case cc.RCond < 0:
		return invalidf("components.rcond = %g must be >= 0", cc.RCond)
	case c.Calibrate.MaxIter < 0:
		return invalidf("calibrate.max_iter = %d must be >= 0", c.Calibrate.MaxIter)
	case c.Parallel.Workers < 0:
		return invalidf("parallel.workers = %d must be >= 0", c.Parallel.Workers)
	case c.Parallel.BlockRows < 0:
		return invalidf("parallel.block_rows = %d must be >= 0", c.Parallel.BlockRows)
	}
	for key, src := range map[string]string{
		"components.design":       cc.Design,
		"calibrate.trend_formula": c.Calibrate.TrendFormula,
		"calibrate.cell_formula":  c.Calibrate.CellFormula,
	} {
		if _, err := design.Parse(src); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, key, err)
		}
	}
	if _, err := glm.ParseFamily(c.Calibrate.Family); err != nil {
		return fmt.Errorf("%w: calibrate.family: %w", ErrInvalid, err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}

	return nil
}

// Family returns the parsed calibration family. Valid after Validate.
func (c Config) Family() glm.Family {
	f, _ := glm.ParseFamily(c.Calibrate.Family)

	return f
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config.Marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("config.Marshal: %w", err)
	}

	return buf.Bytes(), nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
