// SPDX-License-Identifier: MIT

package components_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/weitrix"
)

var (
	linearTruth = []float64{-2.5, -1.5, -0.5, 0.5, 1.5, 2.5}
	stepTruth   = []float64{-1, -1, -1, 1, 1, 1}
)

// twoComponentPair builds a rows×6 pair with a per-row offset plus a linear
// and a step component, noise sd 1/sqrt(w), and w drawn from {1, 5, 20}.
func twoComponentPair(t testing.TB, rows int, seed int64) *weitrix.Pair {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	levels := []float64{1, 5, 20}
	x := make([][]float64, rows)
	w := make([][]float64, rows)
	for i := range x {
		mu := 2 * rng.NormFloat64()
		a := 3 * rng.NormFloat64()
		b := 3 * rng.NormFloat64()
		x[i] = make([]float64, 6)
		w[i] = make([]float64, 6)
		for j := 0; j < 6; j++ {
			w[i][j] = levels[rng.Intn(len(levels))]
			x[i][j] = mu + a*linearTruth[j] + b*stepTruth[j] + rng.NormFloat64()/math.Sqrt(w[i][j])
		}
	}
	p, err := weitrix.FromRows(x, w)
	require.NoError(t, err)

	return p
}

// withHoles zeroes the weight of every cell where (i+2j)%7 == 0 and puts
// fill in its measurement.
func withHoles(t testing.TB, p *weitrix.Pair, fill float64) *weitrix.Pair {
	t.Helper()
	x, w := p.X(), p.W()
	for i := 0; i < p.Rows(); i++ {
		for j := 0; j < p.Cols(); j++ {
			if (i+2*j)%7 == 0 {
				x.RawRowView(i)[j] = fill
				w.RawRowView(i)[j] = 0
			}
		}
	}
	out, err := weitrix.New(x, w, p.RowIDs(), p.ColIDs())
	require.NoError(t, err)

	return out
}

// spanCorrelation is |P v| / |v| where P projects onto the orthonormal
// columns of basis: the multiple correlation of v with span(basis).
func spanCorrelation(basis *matrix.Dense, v []float64) float64 {
	n, p := basis.Rows(), basis.Cols()
	proj := make([]float64, n)
	for c := 0; c < p; c++ {
		var dot float64
		for j := 0; j < n; j++ {
			dot += basis.RawRowView(j)[c] * v[j]
		}
		for j := 0; j < n; j++ {
			proj[j] += dot * basis.RawRowView(j)[c]
		}
	}

	return math.Sqrt(matrix.Dot(proj, proj) / matrix.Dot(v, v))
}

// exampleLinearPair is an exact rank-one pattern on top of row offsets.
func exampleLinearPair() *weitrix.Pair {
	x := [][]float64{
		{1, 2, 3, 4},
		{5, 3, 1, -1},
		{0, 0.5, 1, 1.5},
		{2, 2.5, 3, 3.5},
	}
	w := [][]float64{
		{1, 1, 1, 1},
		{1, 1, 1, 1},
		{1, 1, 1, 1},
		{1, 1, 1, 1},
	}
	p, _ := weitrix.FromRows(x, w)

	return p
}
