// SPDX-License-Identifier: MIT

package calibrate_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/weitrix"
)

// miscalibratedPair builds a rows×cols pair where row i has constant weight
// w_i = 1 + i%20 but true noise variance 1/sqrt(w_i), so the dispersion
// w·σ² grows as sqrt(w_i).
func miscalibratedPair(t testing.TB, rows, cols int, seed int64) *weitrix.Pair {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, rows)
	w := make([][]float64, rows)
	for i := range x {
		wi := float64(1 + i%20)
		sd := math.Sqrt(1 / math.Sqrt(wi))
		mu := 5 * rng.NormFloat64()
		x[i] = make([]float64, cols)
		w[i] = make([]float64, cols)
		for j := range x[i] {
			w[i][j] = wi
			x[i][j] = mu + sd*rng.NormFloat64()
		}
	}
	p, err := weitrix.FromRows(x, w)
	require.NoError(t, err)

	return p
}

// columnScaledPair builds a rows×cols pair with weights from {0, 1, 5, 20}
// and true variance scale_j/w_ij, scale cycling through 1, 2, 4. The
// column table carries the scale as a covariate.
func columnScaledPair(t testing.TB, rows, cols int, seed int64) (*weitrix.Pair, []float64) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	levels := []float64{0, 1, 5, 20}
	scale := make([]float64, cols)
	for j := range scale {
		scale[j] = []float64{1, 2, 4}[j%3]
	}
	x := make([][]float64, rows)
	w := make([][]float64, rows)
	for i := range x {
		mu := 3 * rng.NormFloat64()
		x[i] = make([]float64, cols)
		w[i] = make([]float64, cols)
		for j := range x[i] {
			w[i][j] = levels[rng.Intn(len(levels))]
			if w[i][j] == 0 {
				x[i][j] = math.NaN()
				continue
			}
			x[i][j] = mu + math.Sqrt(scale[j]/w[i][j])*rng.NormFloat64()
		}
	}
	p, err := weitrix.FromRows(x, w)
	require.NoError(t, err)
	info, err := p.ColInfo().WithFloat("scale", scale)
	require.NoError(t, err)
	p, err = p.WithColInfo(info)
	require.NoError(t, err)

	return p, scale
}

func interceptFit(t testing.TB, p *weitrix.Pair) *components.Components {
	t.Helper()
	c, err := components.Fit(context.Background(), p, components.Intercept(p.Cols()), 0)
	require.NoError(t, err)

	return c
}

func logAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Log(x)
	}

	return out
}

type iterationCounter struct{ n int }

func (c *iterationCounter) GLMIteration(int, float64) { c.n++ }
