// SPDX-License-Identifier: MIT
// Package: weitrix/synth
//
// synth.go: Generate and the Truth it returns.
//
// Draw order (fixed, so a seed reproduces a dataset exactly):
//   1. row means, 2. row loadings (row-major), 3. column scores,
//   4. per cell in row-major order: weight, missingness, noise.

package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/weitrix"
)

var (
	// ErrTooSmall indicates a dimension below the minimum for the request.
	ErrTooSmall = errors.New("synth: dimension too small")
)

// Truth is a generated pair together with the parameters that produced it.
type Truth struct {
	Pair *weitrix.Pair
	// Mean is the per-row mean.
	Mean []float64
	// Loadings is rows×p, Scores is cols×p with orthonormal columns that are
	// also orthogonal to the constant vector.
	Loadings *matrix.Dense
	Scores   *matrix.Dense
	// Variance is the true noise variance per cell, NaN where unobserved.
	Variance *matrix.Dense
}

// Generate draws a rows×cols pair: x_ij = mean_i + Σ_k L_ik S_jk + ε_ij with
// ε_ij ~ N(0, noise²·scale_j / w_ij^power). Cells drawn as missing, and
// cells whose weight is 0, hold NaN with weight 0.
//
// Errors: ErrTooSmall when rows or cols < 1, or cols <= p.
func Generate(rows, cols int, opts ...Option) (*Truth, error) {
	c := newConfig(opts...)
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("synth.Generate: %dx%d: %w", rows, cols, ErrTooSmall)
	}
	if c.p > 0 && cols <= c.p {
		return nil, fmt.Errorf("synth.Generate: %d columns for %d components: %w", cols, c.p, ErrTooSmall)
	}
	rng := rand.New(rand.NewSource(c.seed))

	mean := make([]float64, rows)
	for i := range mean {
		mean[i] = c.meanSD * rng.NormFloat64()
	}
	loadings := make([]float64, rows*c.p)
	for k := range loadings {
		loadings[k] = c.loadingSD * rng.NormFloat64()
	}
	scores, err := orthonormalScores(cols, c.p, rng)
	if err != nil {
		return nil, fmt.Errorf("synth.Generate: %w", err)
	}

	x := make([]float64, rows*cols)
	w := make([]float64, rows*cols)
	v := make([]float64, rows*cols)
	var i, j, k int
	for i = 0; i < rows; i++ {
		for j = 0; j < cols; j++ {
			at := i*cols + j
			wij := c.weightFn(i, j, rng)
			if c.missing > 0 && rng.Float64() < c.missing {
				wij = 0
			}
			if !(wij > 0) || math.IsInf(wij, 0) {
				x[at], v[at] = math.NaN(), math.NaN()
				continue
			}
			signal := mean[i]
			s := scores.RawRowView(j)
			for k = 0; k < c.p; k++ {
				signal += loadings[i*c.p+k] * s[k]
			}
			variance := c.noise * c.noise / math.Pow(wij, c.power)
			if c.colScale != nil {
				variance *= c.colScale(j)
			}
			w[at], v[at] = wij, variance
			x[at] = signal + math.Sqrt(variance)*rng.NormFloat64()
		}
	}

	return assemble(c, rows, cols, x, w, v, mean, loadings, scores)
}

func assemble(c config, rows, cols int, x, w, v, mean, loadings []float64, scores *matrix.Dense) (*Truth, error) {
	xd, err := matrix.NewDenseFrom(rows, cols, x, matrix.WithNoValidateNaNInf())
	if err != nil {
		return nil, fmt.Errorf("synth.Generate: %w", err)
	}
	wd, err := matrix.NewDenseFrom(rows, cols, w)
	if err != nil {
		return nil, fmt.Errorf("synth.Generate: %w", err)
	}
	rowIDs, colIDs := make([]string, rows), make([]string, cols)
	for i := range rowIDs {
		rowIDs[i] = c.rowID(i)
	}
	for j := range colIDs {
		colIDs[j] = c.colID(j)
	}
	pair, err := weitrix.New(xd, wd, rowIDs, colIDs)
	if err != nil {
		return nil, fmt.Errorf("synth.Generate: %w", err)
	}

	t := &Truth{Pair: pair, Mean: mean, Scores: scores}
	if t.Loadings, err = matrix.NewDenseFrom(rows, c.p, loadings); err != nil {
		return nil, fmt.Errorf("synth.Generate: %w", err)
	}
	if t.Variance, err = matrix.NewDenseFrom(rows, cols, v, matrix.WithNoValidateNaNInf()); err != nil {
		return nil, fmt.Errorf("synth.Generate: %w", err)
	}

	return t, nil
}

// orthonormalScores returns cols×p orthonormal columns orthogonal to the
// constant vector: the Q factor of [1 | G] with G Gaussian, first column dropped.
func orthonormalScores(cols, p int, rng *rand.Rand) (*matrix.Dense, error) {
	if p == 0 {
		return matrix.NewDense(cols, 0)
	}
	a := mat.NewDense(cols, p+1, nil)
	for j := 0; j < cols; j++ {
		a.Set(j, 0, 1)
		for k := 1; k <= p; k++ {
			a.Set(j, k, rng.NormFloat64())
		}
	}
	var (
		qr mat.QR
		q  mat.Dense
	)
	qr.Factorize(a)
	qr.QTo(&q)

	return matrix.FromGonum(q.Slice(0, cols, 1, p+1))
}
