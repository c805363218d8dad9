// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/weitrix/internal/tsv"
	"github.com/katalvlaran/weitrix/synth"
)

var errBadFlag = errors.New("weitrix: invalid flag value")

func newSimulateCmd(a *app) *cobra.Command {
	var (
		out        string
		rows, cols int
		p          int
		seed       int64
		missing    float64
		noise      float64
		power      float64
		rowPeriod  int
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a synthetic pair with planted components",
		Long: `Generate a rows×cols pair with p planted components and Gaussian noise
whose variance is noise²/w^power. Power 1 gives calibrated weights; lower
values give weights that calibrate trend should correct. Writes the pair
like randomize plus <out>loadings.tsv and <out>scores.tsv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case p < 0:
				return fmt.Errorf("--p %d: %w", p, errBadFlag)
			case !(missing >= 0 && missing < 1):
				return fmt.Errorf("--missing %g must be in [0,1): %w", missing, errBadFlag)
			case noise < 0:
				return fmt.Errorf("--noise %g: %w", noise, errBadFlag)
			case math.IsNaN(power) || math.IsInf(power, 0):
				return fmt.Errorf("--variance-power %g: %w", power, errBadFlag)
			}
			opts := []synth.Option{
				synth.WithSeed(seed),
				synth.WithComponents(p, 1),
				synth.WithRowMeans(1),
				synth.WithMissing(missing),
				synth.WithNoise(noise),
				synth.WithVariancePower(power),
				synth.WithIDs(synth.PrefixIDFn("g"), synth.PrefixIDFn("s")),
			}
			if rowPeriod > 0 {
				opts = append(opts, synth.WithWeightFn(synth.RowWeightFn(rowPeriod)))
			}
			tr, err := synth.Generate(rows, cols, opts...)
			if err != nil {
				return err
			}
			a.log.Info().
				Int("rows", rows).
				Int("cols", cols).
				Int("p", p).
				Int64("seed", seed).
				Msg("simulated")

			if err = tsv.WritePair(out, tr.Pair); err != nil {
				return err
			}
			names := make([]string, p)
			for k := range names {
				names[k] = synth.PrefixIDFn("C")(k + 1)
			}
			in := &input{out: out}
			if err = a.writeOut(in, "loadings.tsv", func(w io.Writer) error {
				return tsv.WriteMatrix(w, "id", tr.Loadings, tr.Pair.RowIDs(), names)
			}); err != nil {
				return err
			}

			return a.writeOut(in, "scores.tsv", func(w io.Writer) error {
				return tsv.WriteMatrix(w, "id", tr.Scores, tr.Pair.ColIDs(), names)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", "weitrix_", "Output path prefix")
	f.IntVar(&rows, "rows", 1000, "Number of rows")
	f.IntVar(&cols, "cols", 20, "Number of columns")
	f.IntVar(&p, "p", 2, "Planted components")
	f.Int64Var(&seed, "seed", synth.DefaultSeed, "Random seed")
	f.Float64Var(&missing, "missing", 0, "Probability a cell is unobserved")
	f.Float64Var(&noise, "noise", synth.DefaultNoise, "Noise sd at weight 1")
	f.Float64Var(&power, "variance-power", synth.DefaultVariancePower, "Noise variance is noise²/w^power")
	f.IntVar(&rowPeriod, "row-weight-period", 0, "Give row i weight 1+i%period; 0 keeps weight 1")

	return cmd
}
