// SPDX-License-Identifier: MIT

package calibrate

import (
	"fmt"
	"math"
	"sort"
)

type pool struct {
	sw, swy float64
	lo, hi  int // range of tie groups
}

func (p pool) mean() float64 { return p.swy / p.sw }

// Isotonic returns the weighted least-squares fit of y that is
// non-decreasing in x (pool adjacent violators). Entries with equal x share
// one fitted value. A nil w means unit weights. Entries with a non-finite x
// or y, or with w ≤ 0, are ignored and get NaN.
func Isotonic(x, y, w []float64) ([]float64, error) {
	if len(y) != len(x) || (w != nil && len(w) != len(x)) {
		return nil, calibrateErrorf("Isotonic", fmt.Errorf("x %d, y %d, w %d: %w", len(x), len(y), len(w), ErrLength))
	}
	fit := make([]float64, len(x))
	order := make([]int, 0, len(x))
	for i := range x {
		fit[i] = math.NaN()
		if finite(x[i]) && finite(y[i]) && weight(w, i) > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	// Tie groups: members order[start[g]:start[g+1]].
	start := make([]int, 0, len(order)+1)
	for k := range order {
		if k == 0 || x[order[k]] != x[order[k-1]] {
			start = append(start, k)
		}
	}
	start = append(start, len(order))

	stack := make([]pool, 0, len(start))
	for g := 0; g+1 < len(start); g++ {
		p := pool{lo: g, hi: g + 1}
		for _, i := range order[start[g]:start[g+1]] {
			wi := weight(w, i)
			p.sw += wi
			p.swy += wi * y[i]
		}
		for len(stack) > 0 && stack[len(stack)-1].mean() >= p.mean() {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			p = pool{sw: top.sw + p.sw, swy: top.swy + p.swy, lo: top.lo, hi: p.hi}
		}
		stack = append(stack, p)
	}
	for _, p := range stack {
		m := p.mean()
		for _, i := range order[start[p.lo]:start[p.hi]] {
			fit[i] = m
		}
	}

	return fit, nil
}

// TrendSpread measures how strongly y still moves with x: the better (lower
// weighted squared error) of the increasing and decreasing isotonic fits is
// taken, and its change from the smallest to the largest x is divided by
// the weighted mean of y. Zero means no monotone trend. NaN is returned
// when fewer than two usable entries exist.
func TrendSpread(x, y, w []float64) (float64, error) {
	up, err := Isotonic(x, y, w)
	if err != nil {
		return math.NaN(), calibrateErrorf("TrendSpread", err)
	}
	neg := make([]float64, len(y))
	for i, v := range y {
		neg[i] = -v
	}
	down, err := Isotonic(x, neg, w)
	if err != nil {
		return math.NaN(), calibrateErrorf("TrendSpread", err)
	}

	var sseUp, sseDown, sw, swy float64
	first, last, n := -1, -1, 0
	for i := range y {
		if math.IsNaN(up[i]) {
			continue
		}
		wi := weight(w, i)
		sseUp += wi * (y[i] - up[i]) * (y[i] - up[i])
		sseDown += wi * (y[i] + down[i]) * (y[i] + down[i])
		sw += wi
		swy += wi * y[i]
		if first < 0 || x[i] < x[first] {
			first = i
		}
		if last < 0 || x[i] > x[last] {
			last = i
		}
		n++
	}
	if n < 2 || swy == 0 {
		return math.NaN(), nil
	}
	change := up[last] - up[first]
	if sseDown < sseUp {
		change = down[first] - down[last]
	}

	return change / (swy / sw), nil
}

func weight(w []float64, i int) float64 {
	if w == nil {
		return 1
	}

	return w[i]
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
