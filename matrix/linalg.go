// SPDX-License-Identifier: MIT
// Package matrix provides deterministic linear-algebra kernels used by the
// components engine: Mul, MulT, MatVec, Gram, Jacobi Eigen.
//
// Purpose:
//   - Declare the canonical kernels and their operation tags.
//   - Keep every kernel allocation-explicit: inputs are never mutated.
//
// Notes:
//   - Kernels operate on *Dense flat buffers; generic Matrix inputs are
//     first materialized via asDense (one copy).

package matrix

import (
	"fmt"
	"math"
	"sort"
)

// Operation name constants for unified error wrapping.
const (
	opMul    = "Mul"
	opMatVec = "MatVec"
	opGram   = "Gram"
	opEigen  = "Eigen"
)

// matrixErrorf wraps err with an operation tag, preserving it for errors.Is.
// Only call with err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// asDense returns m itself when it is a *Dense, otherwise a Dense copy.
func asDense(m Matrix) (*Dense, error) {
	if d, ok := m.(*Dense); ok {
		return d, nil
	}
	out, err := NewDense(m.Rows(), m.Cols(), WithNoValidateNaNInf())
	if err != nil {
		return nil, err
	}
	var i, j int
	var v float64
	for i = 0; i < m.Rows(); i++ {
		for j = 0; j < m.Cols(); j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, err
			}
			out.data[i*out.c+j] = v
		}
	}

	return out, nil
}

// Mul computes the product a×b into a fresh *Dense.
// Implementation:
//   - Stage 1: ValidateMulCompatible.
//   - Stage 2: i→k→j loop over flat buffers (row-major friendly).
//
// Complexity:
//   - Time O(r*k*c), Space O(r*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	ad, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	bd, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	r, inner, c := ad.r, ad.c, bd.c
	out, err := NewDense(r, c, WithNoValidateNaNInf())
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	var i, k, j int
	var aik float64
	for i = 0; i < r; i++ {
		orow := out.data[i*c : (i+1)*c]
		for k = 0; k < inner; k++ {
			aik = ad.data[i*inner+k]
			if aik == 0 {
				continue
			}
			brow := bd.data[k*c : (k+1)*c]
			for j = 0; j < c; j++ {
				orow[j] += aik * brow[j]
			}
		}
	}

	return out, nil
}

// MulT computes a×bᵀ without materializing the transpose.
// Both operands must share the column count.
// Complexity: O(ra*rb*c).
func MulT(a, b Matrix) (*Dense, error) {
	if err := ValidateNotNil(a); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	if err := ValidateNotNil(b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	if a.Cols() != b.Cols() {
		return nil, matrixErrorf(opMul, ErrDimensionMismatch)
	}
	ad, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	bd, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	out, err := NewDense(ad.r, bd.r, WithNoValidateNaNInf())
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	c := ad.c
	var i, j int
	for i = 0; i < ad.r; i++ {
		arow := ad.data[i*c : (i+1)*c]
		for j = 0; j < bd.r; j++ {
			out.data[i*bd.r+j] = Dot(arow, bd.data[j*c:(j+1)*c])
		}
	}

	return out, nil
}

// MatVec computes y = m·x.
// Complexity: O(r*c).
func MatVec(m Matrix, x []float64) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err := ValidateVecLen(x, m.Cols()); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := make([]float64, d.r)
	for i := 0; i < d.r; i++ {
		y[i] = Dot(d.data[i*d.c:(i+1)*d.c], x)
	}

	return y, nil
}

// Gram computes mᵀ·diag(w)·m (c×c, symmetric). A nil w means unit weights.
// Only the upper triangle is accumulated, then mirrored.
// Complexity: O(r*c^2).
func Gram(m Matrix, w []float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opGram, err)
	}
	if w != nil {
		if err := ValidateVecLen(w, m.Rows()); err != nil {
			return nil, matrixErrorf(opGram, err)
		}
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opGram, err)
	}
	c := d.c
	out, err := NewDense(c, c, WithNoValidateNaNInf())
	if err != nil {
		return nil, matrixErrorf(opGram, err)
	}
	var i, a, b int
	var wi float64
	for i = 0; i < d.r; i++ {
		wi = 1
		if w != nil {
			wi = w[i]
		}
		if wi == 0 {
			continue
		}
		row := d.data[i*c : (i+1)*c]
		for a = 0; a < c; a++ {
			va := wi * row[a]
			for b = a; b < c; b++ {
				out.data[a*c+b] += va * row[b]
			}
		}
	}
	for a = 0; a < c; a++ {
		for b = a + 1; b < c; b++ {
			out.data[b*c+a] = out.data[a*c+b]
		}
	}

	return out, nil
}

// Dot returns Σ a[i]*b[i] over the shorter length.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}

	return s
}

// Eigen computes eigenvalues and eigenvectors of a symmetric matrix via Jacobi rotations.
// Implementation:
//   - Stage 1: Validate symmetric square input within tol.
//   - Stage 2: Repeatedly pick (p,q) with the largest |A[p,q]| in i→j order and
//     apply a Jacobi rotation, accumulating it into Q.
//   - Stage 3: Verify the off-diagonal mass fell below tol.
//
// Returns:
//   - []float64: eigenvalues (diagonal of the rotated matrix), unsorted.
//   - *Dense: Q whose columns are the matching eigenvectors.
//
// Errors:
//   - ErrNonSquare, ErrAsymmetry, ErrMatrixEigenFailed.
//
// Determinism:
//   - Fixed pivot scan and update order give stable results.
//
// Complexity:
//   - Time O(maxIter * n^2), Space O(n^2).
func Eigen(m Matrix, tol float64, maxIter int) ([]float64, *Dense, error) {
	if err := ValidateSymmetric(m, tol); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	src, err := asDense(m)
	if err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	n := src.r
	a := src.Copy().data // working copy; input stays untouched
	q, _ := NewDense(n, n)
	for i := 0; i < n; i++ {
		q.data[i*n+i] = 1
	}

	var (
		iter, i, j, p, r   int
		maxOff, off        float64
		app, aqq, apq      float64
		aip, aiq, qip, qiq float64
		theta, t, c, s     float64
	)
	for iter = 0; iter < maxIter; iter++ {
		// J.1: pivot with maximal |A[p,r]|
		maxOff = 0
		for i = 0; i < n; i++ {
			for j = i + 1; j < n; j++ {
				if off = math.Abs(a[i*n+j]); off > maxOff {
					maxOff, p, r = off, i, j
				}
			}
		}
		// J.2: converged (maxOff == 0 covers tol == 0 on diagonal input)
		if maxOff < tol || maxOff == 0 {
			break
		}
		// J.3: rotation parameters
		app, aqq, apq = a[p*n+p], a[r*n+r], a[p*n+r]
		theta = (aqq - app) / (2 * apq)
		t = math.Copysign(1.0/(math.Abs(theta)+math.Hypot(theta, 1)), theta)
		c = 1.0 / math.Sqrt(t*t+1)
		s = t * c
		// J.4: rotate rows/cols p and r of A
		for i = 0; i < n; i++ {
			if i == p || i == r {
				continue
			}
			aip, aiq = a[i*n+p], a[i*n+r]
			a[i*n+p], a[p*n+i] = c*aip-s*aiq, c*aip-s*aiq
			a[i*n+r], a[r*n+i] = s*aip+c*aiq, s*aip+c*aiq
		}
		a[p*n+p] = c*c*app - 2*c*s*apq + s*s*aqq
		a[r*n+r] = s*s*app + 2*c*s*apq + c*c*aqq
		a[p*n+r], a[r*n+p] = 0, 0
		// J.5: accumulate into Q
		for i = 0; i < n; i++ {
			qip, qiq = q.data[i*n+p], q.data[i*n+r]
			q.data[i*n+p] = c*qip - s*qiq
			q.data[i*n+r] = s*qip + c*qiq
		}
	}

	maxOff = 0
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			maxOff = math.Max(maxOff, math.Abs(a[i*n+j]))
		}
	}
	if maxOff >= tol && maxOff > 0 {
		return nil, nil, matrixErrorf(opEigen, ErrMatrixEigenFailed)
	}

	eigs := make([]float64, n)
	for i = 0; i < n; i++ {
		eigs[i] = a[i*n+i]
	}

	return eigs, q, nil
}

// EigenSorted is Eigen with eigenpairs ordered by descending eigenvalue.
// Ties keep their Jacobi order (stable sort).
func EigenSorted(m Matrix, tol float64, maxIter int) ([]float64, *Dense, error) {
	vals, vecs, err := Eigen(m, tol, maxIter)
	if err != nil {
		return nil, nil, err
	}
	n := len(vals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool { return vals[order[x]] > vals[order[y]] })

	sortedVals := make([]float64, n)
	sortedVecs, _ := NewDense(n, n)
	for k, src := range order {
		sortedVals[k] = vals[src]
		for i := 0; i < n; i++ {
			sortedVecs.data[i*n+k] = vecs.data[i*n+src]
		}
	}

	return sortedVals, sortedVecs, nil
}
