// SPDX-License-Identifier: MIT

package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/weitrix/dispersion"
	"github.com/katalvlaran/weitrix/internal/tsv"
	"github.com/katalvlaran/weitrix/table"
)

func newDispersionCmd(a *app) *cobra.Command {
	var (
		in        input
		ff        fitFlags
		residuals bool
	)
	cmd := &cobra.Command{
		Use:   "dispersion",
		Short: "Estimate per-row dispersion after fitting components",
		Long: `Fit components, then write <out>dispersion.tsv with the residual
degrees of freedom, weighted RSS and dispersion of every row. Dispersion is
NA for rows with no residual degrees of freedom.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pair, err := a.readPair(&in)
			if err != nil {
				return err
			}
			p, formula := ff.resolve(cmd, a)
			c, err := a.fit(ctx, pair, formula, p)
			if err != nil {
				return err
			}
			opts := []dispersion.Option{
				dispersion.WithExecutor(a.exec),
				dispersion.WithBlockRows(a.cfg.Parallel.BlockRows),
				dispersion.WithLogger(a.log),
			}
			res, err := dispersion.Estimate(ctx, pair, c, opts...)
			if err != nil {
				return err
			}
			a.log.Info().
				Int("available", res.NAvailable()).
				Int("rows", pair.Rows()).
				Msg("dispersion estimated")

			t, err := table.New(pair.RowIDs())
			if err != nil {
				return err
			}
			if t, err = t.WithFloat("degrees_of_freedom", res.DF); err != nil {
				return err
			}
			if t, err = t.WithFloat("weighted_rss", res.WeightedRSS); err != nil {
				return err
			}
			if t, err = t.WithFloat("dispersion", res.Dispersion); err != nil {
				return err
			}
			if err = a.writeOut(&in, "dispersion.tsv", func(w io.Writer) error {
				return tsv.WriteTable(w, "id", t)
			}); err != nil {
				return err
			}
			if !residuals {
				return nil
			}
			r, err := dispersion.Residuals(ctx, pair, c, opts...)
			if err != nil {
				return err
			}

			return a.writeOut(&in, "residuals.tsv", func(w io.Writer) error {
				return tsv.WriteMatrix(w, "id", r, pair.RowIDs(), pair.ColIDs())
			})
		},
	}
	in.register(cmd)
	ff.register(cmd, true)
	cmd.Flags().BoolVar(&residuals, "residuals", false, "Also write residuals x - fitted to <out>residuals.tsv")

	return cmd
}
