// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/katalvlaran/weitrix/internal/tsv"
	"github.com/katalvlaran/weitrix/weitrix"
)

func newRandomizeCmd(a *app) *cobra.Command {
	var (
		in   input
		seed int64
	)
	cmd := &cobra.Command{
		Use:   "randomize",
		Short: "Replace measurements by pure noise matching the weights",
		Long: `Write a copy of the pair whose measurements are drawn from N(0, 1/w).
Weights and side-tables are kept; cells with weight 0 become NA. Useful as
a null dataset for explore.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := a.readPair(&in)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = a.cfg.Components.Seed
			}
			out, err := weitrix.RandomizeSeed(pair, seed)
			if err != nil {
				return err
			}
			a.log.Info().Int64("seed", seed).Msg("randomized")

			return tsv.WritePair(in.out, out)
		},
	}
	in.register(cmd)
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default components seed)")

	return cmd
}
