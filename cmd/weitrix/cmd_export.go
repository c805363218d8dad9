// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/weitrix/calibrate"
	"github.com/katalvlaran/weitrix/internal/tsv"
	"github.com/katalvlaran/weitrix/table"
	"github.com/katalvlaran/weitrix/weitrix"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		in      input
		dfPrior float64
		dfCol   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write measurements and weights for a downstream regression tool",
		Long: `Check that every weighted cell holds a finite measurement and write
<out>E.tsv and <out>weights.tsv. When the row table carries a degrees of
freedom column (as written by calibrate trend) it is copied to <out>df.tsv
together with the optional prior.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := a.readPair(&in)
			if err != nil {
				return err
			}
			var opts []weitrix.ExportOption
			if cmd.Flags().Changed("df-prior") {
				opts = append(opts, weitrix.WithDFPrior(dfPrior))
			}
			if pair.RowInfo().Has(dfCol) {
				df, err := pair.RowInfo().Float(dfCol)
				if err != nil {
					return err
				}
				opts = append(opts, weitrix.WithRowDF(df))
			}
			ri, err := weitrix.Export(pair, opts...)
			if err != nil {
				return err
			}
			if err = a.writeOut(&in, "E.tsv", func(w io.Writer) error {
				return tsv.WriteMatrix(w, "id", ri.E, ri.RowIDs, ri.ColIDs)
			}); err != nil {
				return err
			}
			if err = a.writeOut(&in, "weights.tsv", func(w io.Writer) error {
				return tsv.WriteMatrix(w, "id", ri.Weights, ri.RowIDs, ri.ColIDs)
			}); err != nil {
				return err
			}
			if ri.DF == nil && math.IsNaN(ri.DFPrior) {
				return nil
			}
			t, err := table.New(ri.RowIDs)
			if err != nil {
				return err
			}
			if ri.DF != nil {
				if t, err = t.WithFloat("df", ri.DF); err != nil {
					return err
				}
			}
			prior := make([]float64, len(ri.RowIDs))
			for i := range prior {
				prior[i] = ri.DFPrior
			}
			if t, err = t.WithFloat("df_prior", prior); err != nil {
				return err
			}

			return a.writeOut(&in, "df.tsv", func(w io.Writer) error {
				return tsv.WriteTable(w, "id", t)
			})
		},
	}
	in.register(cmd)
	cmd.Flags().Float64Var(&dfPrior, "df-prior", 0, "Prior degrees of freedom")
	cmd.Flags().StringVar(&dfCol, "df-column", calibrate.ColDF, "Row table column holding residual degrees of freedom")

	return cmd
}
