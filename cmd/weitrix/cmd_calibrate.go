// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/weitrix/calibrate"
	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/glm"
	"github.com/katalvlaran/weitrix/internal/tsv"
	"github.com/katalvlaran/weitrix/table"
	"github.com/katalvlaran/weitrix/weitrix"
)

type calibrateFunc func(ctx context.Context, pair *weitrix.Pair, comp *components.Components,
	formula string, opts ...calibrate.Option) (*weitrix.Pair, *calibrate.TrendModel, error)

// calibrateFlags are shared by calibrate trend and calibrate all.
type calibrateFlags struct {
	in      input
	fit     fitFlags
	formula string
	family  string
}

func (cf *calibrateFlags) register(cmd *cobra.Command) {
	cf.in.register(cmd)
	cf.fit.register(cmd, true)
	cmd.Flags().StringVar(&cf.formula, "formula", "", "Trend formula (default from config)")
	cmd.Flags().StringVar(&cf.family, "family", "", "GLM family: gamma or quasipoisson (default from config)")
}

func newCalibrateTrendCmd(a *app) *cobra.Command {
	var cf calibrateFlags
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Rescale each row's weights by a fitted dispersion trend",
		Long: `Fit components, estimate row dispersion, fit a log-link GLM of dispersion
on a row formula and divide every row's weights by its fitted trend. The
calibrated pair is written as <out>x.tsv, <out>w.tsv, <out>rows.tsv and
<out>cols.tsv; the row table gains the dispersion diagnostics. The trend
coefficients go to <out>trend.tsv.

Row formulas may use row covariates, total_weight and mu.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formula := a.cfg.Calibrate.TrendFormula
			if cmd.Flags().Changed("formula") {
				formula = cf.formula
			}

			return a.runCalibrate(cmd, &cf, formula, calibrate.Trend)
		},
	}
	cf.register(cmd)

	return cmd
}

func newCalibrateAllCmd(a *app) *cobra.Command {
	var (
		cf         calibrateFlags
		correction bool
	)
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Replace every weight by a fitted squared-residual model",
		Long: `Fit components, then fit a log-link GLM of squared residuals on a cell
formula over every observed cell and set each weight to the reciprocal of
its fitted value. Rows without residual degrees of freedom get weight 0.
Outputs are laid out as for calibrate trend.

Cell formulas may use row and column covariates, row, col, weight and mu.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formula := a.cfg.Calibrate.CellFormula
			if cmd.Flags().Changed("formula") {
				formula = cf.formula
			}
			if cmd.Flags().Changed("residual-correction") {
				a.cfg.Calibrate.ResidualCorrection = correction
			}

			return a.runCalibrate(cmd, &cf, formula, calibrate.All)
		},
	}
	cf.register(cmd)
	cmd.Flags().BoolVar(&correction, "residual-correction", false,
		"Scale squared residuals by n/df of their row (default from config)")

	return cmd
}

func (a *app) runCalibrate(cmd *cobra.Command, cf *calibrateFlags, formula string, run calibrateFunc) error {
	ctx := cmd.Context()
	family := a.cfg.Family()
	if cmd.Flags().Changed("family") {
		var err error
		if family, err = glm.ParseFamily(cf.family); err != nil {
			return err
		}
	}

	pair, err := a.readPair(&cf.in)
	if err != nil {
		return err
	}
	p, design := cf.fit.resolve(cmd, a)
	c, err := a.fit(ctx, pair, design, p)
	if err != nil {
		return err
	}

	opts := []calibrate.Option{
		calibrate.WithFamily(family),
		calibrate.WithExecutor(a.exec),
		calibrate.WithBlockRows(a.cfg.Parallel.BlockRows),
		calibrate.WithLogger(a.log),
		calibrate.WithObserver(a.rec),
		calibrate.WithResidualCorrection(a.cfg.Calibrate.ResidualCorrection),
	}
	if a.cfg.Calibrate.MaxIter > 0 {
		opts = append(opts, calibrate.WithMaxIter(a.cfg.Calibrate.MaxIter))
	}
	out, model, err := run(ctx, pair, c, formula, opts...)
	if err != nil {
		return err
	}
	a.log.Info().Str("model", model.String()).Msg("calibrated")

	if err = tsv.WritePair(cf.in.out, out); err != nil {
		return err
	}
	coef, err := coefficientTable(model)
	if err != nil {
		return err
	}

	return a.writeOut(&cf.in, "trend.tsv", func(w io.Writer) error {
		return tsv.WriteTable(w, "term", coef)
	})
}

// coefficientTable lists the GLM coefficients by design column.
func coefficientTable(m *calibrate.TrendModel) (*table.Table, error) {
	t, err := table.New(m.Design.Names())
	if err != nil {
		return nil, err
	}

	return t.WithFloat("estimate", m.GLM.Coef)
}
