// SPDX-License-Identifier: MIT
// Package matrix: public convenience constructors and comparisons.
//
// Facades never change the loop orders or numeric policy of the kernels they
// delegate to.

package matrix

import "math"

// NewIdentity returns I_n.
// Complexity: O(n^2) zeroing + O(n) diagonal writes.
func NewIdentity(n int) (*Dense, error) {
	I, err := NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		I.data[i*n+i] = 1
	}

	return I, nil
}

// NewConstant returns an r×c matrix filled with v (e.g. an intercept design).
func NewConstant(rows, cols int, v float64) (*Dense, error) {
	d, err := NewDense(rows, cols)
	if err != nil {
		return nil, err
	}
	for k := range d.data {
		d.data[k] = v
	}

	return d, nil
}

// AllClose reports |a-b| ≤ atol + rtol*|b| element-wise.
// NaN never compares close. Shapes must match.
// Complexity: O(r*c).
func AllClose(a, b Matrix, rtol, atol float64) (bool, error) {
	if err := ValidateSameShape(a, b); err != nil {
		return false, err
	}
	ad, err := asDense(a)
	if err != nil {
		return false, err
	}
	bd, err := asDense(b)
	if err != nil {
		return false, err
	}
	for k, av := range ad.data {
		bv := bd.data[k]
		if math.IsNaN(av) || math.IsNaN(bv) || math.Abs(av-bv) > atol+rtol*math.Abs(bv) {
			return false, nil
		}
	}

	return true, nil
}
