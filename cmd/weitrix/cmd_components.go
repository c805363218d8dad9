// SPDX-License-Identifier: MIT

package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/internal/tsv"
	"github.com/katalvlaran/weitrix/table"
)

func newComponentsCmd(a *app) *cobra.Command {
	var (
		in input
		ff fitFlags
	)
	cmd := &cobra.Command{
		Use:   "components",
		Short: "Fit design plus p novel components",
		Long: `Fit the column design plus p novel components by weighted alternating
least squares. Writes <out>row.tsv (per-row coefficients) and <out>col.tsv
(design columns followed by component scores).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := a.readPair(&in)
			if err != nil {
				return err
			}
			p, formula := ff.resolve(cmd, a)
			c, err := a.fit(cmd.Context(), pair, formula, p)
			if err != nil {
				return err
			}
			if err = a.writeOut(&in, "row.tsv", func(w io.Writer) error {
				return tsv.WriteMatrix(w, "id", c.Row, c.RowIDs, c.Names)
			}); err != nil {
				return err
			}

			return a.writeOut(&in, "col.tsv", func(w io.Writer) error {
				return tsv.WriteMatrix(w, "id", c.Col, c.ColIDs, c.Names)
			})
		},
	}
	in.register(cmd)
	ff.register(cmd, true)

	return cmd
}

func newExploreCmd(a *app) *cobra.Command {
	var (
		in         input
		ff         fitFlags
		maxP       int
		randomized bool
		seed       int64
	)
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Fit p = 0..max-p and report variance explained",
		Long: `Fit every p from 0 to max-p with the same design and write
<out>explore.tsv with the weighted RSS and R² of each fit. With --randomized
the same statistics are added for a copy of the data whose measurements were
replaced by N(0, 1/w) noise, as a baseline for choosing p.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := a.readPair(&in)
			if err != nil {
				return err
			}
			_, formula := ff.resolve(cmd, a)
			if !cmd.Flags().Changed("max-p") {
				maxP = a.cfg.Components.MaxP
			}
			d, names, err := columnDesign(pair, formula)
			if err != nil {
				return err
			}
			opts := a.componentOptions(names)
			seq, err := components.Explore(cmd.Context(), pair, d, maxP, opts...)
			if err != nil {
				return err
			}
			t, err := sequenceTable(indexTable(seq.MaxP()+1), "", seq)
			if err != nil {
				return err
			}
			if randomized {
				if !cmd.Flags().Changed("random-seed") {
					seed = a.cfg.Components.Seed
				}
				rnd, err := components.ExploreRandomized(cmd.Context(), pair, d, maxP, seed, opts...)
				if err != nil {
					return err
				}
				if t, err = sequenceTable(t, "random_", rnd); err != nil {
					return err
				}
			}
			a.log.Info().
				Int("max_p", seq.MaxP()).
				Floats64("r_squared", seq.RSquared()).
				Bool("randomized", randomized).
				Msg("explore finished")

			return a.writeOut(&in, "explore.tsv", func(w io.Writer) error {
				return tsv.WriteTable(w, "p", t)
			})
		},
	}
	in.register(cmd)
	ff.register(cmd, false)
	cmd.Flags().IntVar(&maxP, "max-p", 0, "Largest p to fit (default from config)")
	cmd.Flags().BoolVar(&randomized, "randomized", false, "Also explore a randomized copy")
	cmd.Flags().Int64Var(&seed, "random-seed", 0, "Random seed (default components seed)")

	return cmd
}

// sequenceTable appends the statistics of seq to t, one row per p.
func sequenceTable(t *table.Table, prefix string, seq *components.Sequence) (*table.Table, error) {
	iters := make([]float64, len(seq.Fits))
	converged := make([]float64, len(seq.Fits))
	for p, c := range seq.Fits {
		iters[p] = float64(c.Iterations)
		if c.Converged {
			converged[p] = 1
		}
	}
	cols := []struct {
		name string
		v    []float64
	}{
		{"rss", seq.RSS()},
		{"r_squared", seq.RSquared()},
		{"r_squared_null", seq.RSquaredNull()},
		{"iterations", iters},
		{"converged", converged},
	}
	var err error
	for _, c := range cols {
		if t, err = t.WithFloat(prefix+c.name, c.v); err != nil {
			return nil, err
		}
	}

	return t, nil
}
