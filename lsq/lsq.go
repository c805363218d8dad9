// SPDX-License-Identifier: MIT

// Package lsq solves small weighted least-squares problems with a truncated
// SVD pseudo-inverse.
//
// The solver is the inner kernel of every row and column fit in this module.
// It never fails on rank deficiency: singular values at or below
// RCond*s_max are dropped, giving the minimum-norm solution among all
// minimizers, and the numerical rank is reported so callers can account for
// the lost degrees of freedom.
//
// Cells with weight 0 are skipped entirely; their response may be NaN.
package lsq

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultRCond is the relative singular-value cutoff.
const DefaultRCond = 1e-10

// ErrShape is returned when slice lengths disagree with n and k.
var ErrShape = errors.New("lsq: inconsistent problem shape")

// Result of one weighted solve.
type Result struct {
	Beta []float64 // length k
	Rank int       // numerical rank of the weighted design
	NObs int       // rows with positive weight
	RSS  float64   // Σ w (y - a·beta)² over observed rows
}

// Solver carries scratch buffers for repeated solves with the same k.
// A Solver is not safe for concurrent use; give each goroutine its own.
type Solver struct {
	k     int
	rcond float64
	a     []float64
	b     []float64
	sv    []float64
	svd   mat.SVD
	u, v  mat.Dense
}

// NewSolver returns a Solver for k unknowns. rcond <= 0 selects DefaultRCond.
func NewSolver(k int, rcond float64) *Solver {
	if rcond <= 0 {
		rcond = DefaultRCond
	}

	return &Solver{k: k, rcond: rcond}
}

// Solve minimizes Σ_i w[i]·(y[i] - Σ_j a[i*k+j]·beta[j])² over rows with w[i] > 0.
// a is row-major n×k with n = len(y).
func (s *Solver) Solve(a, y, w []float64) (Result, error) {
	n, k := len(y), s.k
	if len(w) != n || len(a) != n*k {
		return Result{}, fmt.Errorf("lsq.Solve: n=%d k=%d len(a)=%d len(w)=%d: %w", n, k, len(a), len(w), ErrShape)
	}
	res := Result{Beta: make([]float64, k)}

	// Stage 1: gather sqrt(w)-scaled observed rows.
	s.a, s.b = s.a[:0], s.b[:0]
	var i int
	for i = 0; i < n; i++ {
		if w[i] <= 0 {
			continue
		}
		sw := math.Sqrt(w[i])
		row := a[i*k : (i+1)*k]
		for _, v := range row {
			s.a = append(s.a, sw*v)
		}
		s.b = append(s.b, sw*y[i])
	}
	m := len(s.b)
	res.NObs = m
	if m == 0 || k == 0 {
		res.RSS = floats.Dot(s.b, s.b)
		return res, nil
	}

	// Stage 2: thin SVD of the scaled design.
	A := mat.NewDense(m, k, s.a)
	if ok := s.svd.Factorize(A, mat.SVDThin); !ok {
		// Gonum only fails on non-finite input.
		return Result{}, fmt.Errorf("lsq.Solve: SVD did not converge: %w", ErrShape)
	}
	s.sv = s.svd.Values(nil)
	s.u.Reset()
	s.v.Reset()
	s.svd.UTo(&s.u)
	s.svd.VTo(&s.v)

	// Stage 3: beta = V diag(1/s) Uᵀ b over the retained singular values.
	cut := s.rcond * s.sv[0]
	var j, r int
	for r = 0; r < len(s.sv); r++ {
		if s.sv[r] <= cut || s.sv[r] == 0 {
			break
		}
		var ub float64
		for i = 0; i < m; i++ {
			ub += s.u.At(i, r) * s.b[i]
		}
		ub /= s.sv[r]
		for j = 0; j < k; j++ {
			res.Beta[j] += s.v.At(j, r) * ub
		}
	}
	res.Rank = r

	// Stage 4: weighted RSS on the scaled system.
	for i = 0; i < m; i++ {
		e := s.b[i] - floats.Dot(s.a[i*k:(i+1)*k], res.Beta)
		res.RSS += e * e
	}

	return res, nil
}

// Weighted is a one-shot Solve with a fresh Solver.
func Weighted(a []float64, k int, y, w []float64, rcond float64) (Result, error) {
	return NewSolver(k, rcond).Solve(a, y, w)
}
