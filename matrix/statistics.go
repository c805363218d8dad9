// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Provide row/column reductions and weighted summaries used by the
//     weighted-matrix packages (row totals, weighted row means).
//
// Determinism & Performance:
//   - Fixed i→j traversal; flat-buffer loops only.
//   - Cells with zero weight never contribute, so NaN placeholders in the
//     value matrix are never read into an accumulator.

package matrix

const (
	opRowSums          = "RowSums"
	opWeightedRowMeans = "WeightedRowMeans"
)

// RowSums returns Σ_j m[i,j] for every row.
// Complexity: O(r*c).
func RowSums(m Matrix) ([]float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opRowSums, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opRowSums, err)
	}
	out := make([]float64, d.r)
	for i := 0; i < d.r; i++ {
		for _, v := range d.data[i*d.c : (i+1)*d.c] {
			out[i] += v
		}
	}

	return out, nil
}

// WeightedRowMeans returns Σ_j w·x / Σ_j w per row, skipping w == 0 cells.
// Rows without positive weight get ok[i] == false and mean 0.
// Complexity: O(r*c).
func WeightedRowMeans(x, w Matrix) (means []float64, ok []bool, err error) {
	if err = ValidateSameShape(x, w); err != nil {
		return nil, nil, matrixErrorf(opWeightedRowMeans, err)
	}
	xd, err := asDense(x)
	if err != nil {
		return nil, nil, matrixErrorf(opWeightedRowMeans, err)
	}
	wd, err := asDense(w)
	if err != nil {
		return nil, nil, matrixErrorf(opWeightedRowMeans, err)
	}
	means = make([]float64, xd.r)
	ok = make([]bool, xd.r)
	c := xd.c
	var i, j int
	var sw, swx float64
	for i = 0; i < xd.r; i++ {
		sw, swx = 0, 0
		for j = 0; j < c; j++ {
			if wij := wd.data[i*c+j]; wij > 0 {
				sw += wij
				swx += wij * xd.data[i*c+j]
			}
		}
		if sw > 0 {
			means[i], ok[i] = swx/sw, true
		}
	}

	return means, ok, nil
}

