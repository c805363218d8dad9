// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/design"
	"github.com/katalvlaran/weitrix/internal/tsv"
	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/table"
	"github.com/katalvlaran/weitrix/weitrix"
)

var errDesignOffset = errors.New("weitrix: offset() is not allowed in a column design")

// input holds the flags naming a pair and the output prefix.
type input struct {
	files tsv.PairFiles
	out   string
}

func (in *input) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&in.files.X, "x", "", "Measurement matrix TSV (required)")
	f.StringVar(&in.files.W, "w", "", "Weight matrix TSV; default 1 where x is present")
	f.StringVar(&in.files.RowInfo, "row-info", "", "Row covariates TSV")
	f.StringVar(&in.files.ColInfo, "col-info", "", "Column covariates TSV")
	f.StringVar(&in.out, "out", "weitrix_", "Output path prefix")
	_ = cmd.MarkFlagRequired("x")
}

func (a *app) readPair(in *input) (*weitrix.Pair, error) {
	p, err := tsv.ReadPair(in.files)
	if err != nil {
		return nil, err
	}
	a.log.Info().
		Int("rows", p.Rows()).
		Int("cols", p.Cols()).
		Str("x", in.files.X).
		Msg("pair loaded")

	return p, nil
}

// fitFlags are shared by every command that fits components first.
type fitFlags struct {
	p      int
	design string
}

func (ff *fitFlags) register(cmd *cobra.Command, withP bool) {
	if withP {
		cmd.Flags().IntVar(&ff.p, "p", 0, "Number of novel components (default from config)")
	}
	cmd.Flags().StringVar(&ff.design, "design", "", "Column design formula (default from config)")
}

// resolve applies the flags over the components configuration.
func (ff *fitFlags) resolve(cmd *cobra.Command, a *app) (p int, formula string) {
	p, formula = a.cfg.Components.P, a.cfg.Components.Design
	if f := cmd.Flags().Lookup("p"); f != nil && f.Changed {
		p = ff.p
	}
	if cmd.Flags().Changed("design") {
		formula = ff.design
	}

	return p, formula
}

// columnDesign evaluates formula over the column covariates of pair.
func columnDesign(pair *weitrix.Pair, formula string) (*matrix.Dense, []string, error) {
	f, err := design.Parse(formula)
	if err != nil {
		return nil, nil, err
	}
	fr, err := design.ColumnFrame(pair.ColInfo())
	if err != nil {
		return nil, nil, err
	}
	b, err := design.Bind(f, fr)
	if err != nil {
		return nil, nil, err
	}
	if b.HasOffset() {
		return nil, nil, fmt.Errorf("%q: %w", formula, errDesignOffset)
	}
	m, _, err := b.Matrix(fr)
	if err != nil {
		return nil, nil, err
	}

	return m, b.Names(), nil
}

func (a *app) componentOptions(names []string) []components.Option {
	cc := a.cfg.Components
	opts := []components.Option{
		components.WithTolerance(cc.Tolerance),
		components.WithMaxIter(cc.MaxIter),
		components.WithVarimax(cc.Varimax),
		components.WithSeed(cc.Seed),
		components.WithExecutor(a.exec),
		components.WithBlockRows(a.cfg.Parallel.BlockRows),
		components.WithLogger(a.log),
		components.WithObserver(a.rec),
		components.WithDesignNames(names...),
	}
	if cc.RCond > 0 {
		opts = append(opts, components.WithRCond(cc.RCond))
	}

	return opts
}

// fit runs Fit with the configured design and p.
func (a *app) fit(ctx context.Context, pair *weitrix.Pair, formula string, p int) (*components.Components, error) {
	d, names, err := columnDesign(pair, formula)
	if err != nil {
		return nil, err
	}
	c, err := components.Fit(ctx, pair, d, p, a.componentOptions(names)...)
	if err != nil {
		return nil, err
	}
	a.log.Info().
		Str("design", formula).
		Int("p", p).
		Int("iterations", c.Iterations).
		Bool("converged", c.Converged).
		Float64("rss", c.RSS).
		Msg("components fitted")

	return c, nil
}

// writeOut writes one output file under the prefix and logs it.
func (a *app) writeOut(in *input, name string, write func(io.Writer) error) error {
	path := in.out + name
	if err := tsv.WriteFile(path, write); err != nil {
		return err
	}
	a.log.Info().Str("path", path).Msg("written")

	return nil
}

// indexTable is a table keyed "0".."n-1".
func indexTable(n int) *table.Table {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	t, _ := table.New(ids)

	return t
}
