// SPDX-License-Identifier: MIT

package design

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// naturalSpline is a natural cubic spline basis (linear beyond the boundary
// knots) in the truncated-power form
//
//	N_1(u) = u,  N_{k+2}(u) = d_k(u) − d_{K−2}(u),
//	d_k(u) = ((u−ξ_k)³₊ − (u−ξ_{K−1})³₊) / (ξ_{K−1} − ξ_k)
//
// on u = (x−lo)/(hi−lo), so the boundary knots are 0 and 1.
type naturalSpline struct {
	lo, hi float64
	knots  []float64
}

// newNaturalSpline places df−1 interior knots at the quantiles k/df of x.
// Tied quantiles are merged, which can reduce the width below df.
func newNaturalSpline(x []float64, df int) (*naturalSpline, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("spline of empty data: %w", ErrBadArgument)
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if !(hi > lo) {
		return nil, fmt.Errorf("spline of a constant (%g): %w", lo, ErrBadArgument)
	}

	knots := []float64{0}
	for k := 1; k < df; k++ {
		q := stat.Quantile(float64(k)/float64(df), stat.LinInterp, sorted, nil)
		u := (q - lo) / (hi - lo)
		if u > knots[len(knots)-1] && u < 1 {
			knots = append(knots, u)
		}
	}
	knots = append(knots, 1)

	return &naturalSpline{lo: lo, hi: hi, knots: knots}, nil
}

func (s *naturalSpline) width() int { return len(s.knots) - 1 }

func cube3(v float64) float64 {
	if v <= 0 {
		return 0
	}

	return v * v * v
}

// eval writes the width() basis values at x into dst.
func (s *naturalSpline) eval(x float64, dst []float64) {
	u := (x - s.lo) / (s.hi - s.lo)
	dst[0] = u
	K := len(s.knots)
	last := s.knots[K-1]
	d := func(k int) float64 {
		return (cube3(u-s.knots[k]) - cube3(u-last)) / (last - s.knots[k])
	}
	dRef := d(K - 2)
	for k := 0; k <= K-3; k++ {
		dst[k+1] = d(k) - dRef
	}
}
