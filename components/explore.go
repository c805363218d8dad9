// SPDX-License-Identifier: MIT

package components

import (
	"context"
	"math"

	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/weitrix"
)

// Sequence holds independent fits for p = 0..MaxP.
type Sequence struct {
	Fits []*Components
	// RSSNull is Σ w·x² over observed cells: the fit with no design at all.
	RSSNull float64
}

// MaxP is the largest p in the sequence.
func (s *Sequence) MaxP() int { return len(s.Fits) - 1 }

// RSS returns the weighted RSS per p.
func (s *Sequence) RSS() []float64 {
	out := make([]float64, len(s.Fits))
	for p, c := range s.Fits {
		out[p] = c.RSS
	}

	return out
}

// RSquared is 1 - RSS(p)/RSS(0): variance explained beyond the design.
// Entries are NaN when the design-only fit is already exact.
func (s *Sequence) RSquared() []float64 {
	return explained(s.RSS(), s.Fits[0].RSS)
}

// RSquaredNull is 1 - RSS(p)/RSSNull: variance explained including the design.
func (s *Sequence) RSquaredNull() []float64 {
	return explained(s.RSS(), s.RSSNull)
}

func explained(rss []float64, base float64) []float64 {
	out := make([]float64, len(rss))
	for i, r := range rss {
		if base == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = 1 - r/base
	}

	return out
}

// Explore fits p = 0..maxP independently with the same design and options.
func Explore(ctx context.Context, pair *weitrix.Pair, design *matrix.Dense, maxP int, opts ...Option) (*Sequence, error) {
	if maxP < 0 {
		return nil, componentsErrorf("Explore", ErrNegativeP)
	}
	if pair == nil {
		return nil, componentsErrorf("Explore", matrix.ErrNilMatrix)
	}
	o := gatherOptions(opts...)
	seq := &Sequence{Fits: make([]*Components, 0, maxP+1), RSSNull: nullRSS(pair)}
	for p := 0; p <= maxP; p++ {
		c, err := Fit(ctx, pair, design, p, opts...)
		if err != nil {
			return nil, componentsErrorf("Explore", err)
		}
		o.log.Debug().Int("p", p).Float64("rss", c.RSS).Bool("converged", c.Converged).Msg("explore step")
		seq.Fits = append(seq.Fits, c)
	}

	return seq, nil
}

// ExploreRandomized runs Explore on weitrix.RandomizeSeed(pair, seed), the
// null baseline for a screeplot.
func ExploreRandomized(ctx context.Context, pair *weitrix.Pair, design *matrix.Dense, maxP int, seed int64, opts ...Option) (*Sequence, error) {
	r, err := weitrix.RandomizeSeed(pair, seed)
	if err != nil {
		return nil, componentsErrorf("ExploreRandomized", err)
	}

	return Explore(ctx, r, design, maxP, opts...)
}

func nullRSS(pair *weitrix.Pair) float64 {
	var s float64
	for i := 0; i < pair.Rows(); i++ {
		x, w := pair.XRow(i), pair.WRow(i)
		for j, wj := range w {
			if wj > 0 {
				s += wj * x[j] * x[j]
			}
		}
	}

	return s
}
