// SPDX-License-Identifier: MIT

package weitrix

import (
	"math"
	"math/rand"
)

// Randomize returns a pair with the same weights, identifiers and side-tables
// as p, whose measurements are drawn from N(0, 1/w). Cells with w == 0 get NaN.
// Draws happen in row-major order from rng, so a fixed seed reproduces the
// result exactly.
func Randomize(p *Pair, rng *rand.Rand) (*Pair, error) {
	c := p.Cols()
	w := p.w.RawData()
	x, err := p.x.Apply(func(i, j int, _ float64) float64 {
		if wij := w[i*c+j]; wij > 0 {
			return rng.NormFloat64() / math.Sqrt(wij)
		}

		return math.NaN()
	})
	if err != nil {
		return nil, pairErrorf("Randomize", err)
	}

	return &Pair{x: x, w: p.w, rows: p.rows, cols: p.cols}, nil
}

// RandomizeSeed is Randomize with a fresh source seeded by seed.
func RandomizeSeed(p *Pair, seed int64) (*Pair, error) {
	return Randomize(p, rand.New(rand.NewSource(seed)))
}
