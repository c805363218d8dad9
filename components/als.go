// SPDX-License-Identifier: MIT

package components

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/weitrix/lsq"
	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/parallel"
	"github.com/katalvlaran/weitrix/weitrix"
)

// degenerateRatio marks a score column as collapsed when projection removes
// all but this fraction of its norm.
const degenerateRatio = 1e-8

// maxRedraws bounds random replacements of a collapsed column.
const maxRedraws = 64

// rowFit is the output of one row pass.
type rowFit struct {
	coef *matrix.Dense // n_rows × K
	rank []int
	rss  float64
}

type rowBlock struct {
	coef []float64
	rank []int
	rss  float64
}

// fitRows solves, for every row independently, the weighted least-squares
// problem x[i,·] ≈ coef[i,·]·colᵀ over the row's observed cells.
func (e *engine) fitRows(ctx context.Context, col *matrix.Dense) (*rowFit, error) {
	K := col.Cols()
	a := col.RawData()
	blocks, err := parallel.MapRows(ctx, e.o.exec, e.pair, e.o.blockRows,
		func(_ context.Context, b parallel.Block, part *weitrix.Pair) (rowBlock, error) {
			s := lsq.NewSolver(K, e.o.rcond)
			out := rowBlock{coef: make([]float64, b.Len()*K), rank: make([]int, b.Len())}
			for i := 0; i < part.Rows(); i++ {
				r, err := s.Solve(a, part.XRow(i), part.WRow(i))
				if err != nil {
					return rowBlock{}, err
				}
				copy(out.coef[i*K:(i+1)*K], r.Beta)
				out.rank[i] = r.Rank
				out.rss += r.RSS
			}

			return out, nil
		})
	if err != nil {
		return nil, err
	}

	fit := &rowFit{rank: make([]int, 0, e.pair.Rows())}
	flat := make([]float64, 0, e.pair.Rows()*K)
	for _, b := range blocks {
		flat = append(flat, b.coef...)
		fit.rank = append(fit.rank, b.rank...)
		fit.rss += b.rss
	}
	if fit.coef, err = matrix.NewDenseFrom(e.pair.Rows(), K, flat); err != nil {
		return nil, err
	}

	return fit, nil
}

// fitCols re-estimates the novel scores column by column with the design
// block and all row coefficients held fixed.
func (e *engine) fitCols(ctx context.Context, coef *matrix.Dense) (*matrix.Dense, error) {
	nRows, nCols := e.pair.Rows(), e.pair.Cols()
	k, p, K := e.k, e.p, e.k+e.p
	scores, err := matrix.NewDense(nCols, p)
	if err != nil {
		return nil, err
	}
	out := scores.RawData()
	cf := coef.RawData()
	dz := e.design.RawData()

	// novel block of the row coefficients, n_rows × p, shared read-only
	a := make([]float64, nRows*p)
	for i := 0; i < nRows; i++ {
		copy(a[i*p:(i+1)*p], cf[i*K+k:(i+1)*K])
	}

	size := e.o.blockRows
	if size == 0 {
		size = parallel.DefaultBlockRows
	}
	blocks, err := parallel.Partition(nCols, size)
	if err != nil {
		return nil, err
	}
	_, err = parallel.Map(ctx, e.o.exec, blocks, func(_ context.Context, b parallel.Block) (struct{}, error) {
		s := lsq.NewSolver(p, e.o.rcond)
		y := make([]float64, nRows)
		w := make([]float64, nRows)
		for j := b.Lo; j < b.Hi; j++ {
			d := dz[j*k : (j+1)*k]
			for i := 0; i < nRows; i++ {
				w[i] = e.pair.WAt(i, j)
				if w[i] <= 0 {
					continue
				}
				y[i] = e.pair.XAt(i, j) - matrix.Dot(cf[i*K:i*K+k], d)
			}
			r, err := s.Solve(a, y, w)
			if err != nil {
				return struct{}{}, err
			}
			copy(out[j*p:(j+1)*p], r.Beta)
		}

		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}

	return scores, nil
}

// seed builds the initial novel scores: the leading right singular vectors
// of X with missing cells filled by the row's weighted mean, after removing
// the span of the design. Columns the data cannot supply are drawn at random.
func (e *engine) seed() (*matrix.Dense, error) {
	nRows, nCols, p := e.pair.Rows(), e.pair.Cols(), e.p
	scores, err := matrix.NewDense(nCols, p)
	if err != nil {
		return nil, err
	}
	out := scores.RawData()
	got := 0

	if nRows > 0 {
		means, _, err := matrix.WeightedRowMeans(e.pair.X(), e.pair.W())
		if err != nil {
			return nil, err
		}
		filled := make([]float64, nRows*nCols)
		for i := 0; i < nRows; i++ {
			x, w := e.pair.XRow(i), e.pair.WRow(i)
			row := filled[i*nCols : (i+1)*nCols]
			for j, wj := range w {
				if wj > 0 {
					row[j] = x[j]
				} else {
					row[j] = means[i]
				}
			}
			e.projectOut(row, nil, 0)
		}

		var svd mat.SVD
		if svd.Factorize(mat.NewDense(nRows, nCols, filled), mat.SVDThin) {
			sv := svd.Values(nil)
			var v mat.Dense
			svd.VTo(&v)
			for c := 0; c < p && c < len(sv); c++ {
				if sv[c] <= lsq.DefaultRCond*sv[0] || sv[c] == 0 {
					break
				}
				for j := 0; j < nCols; j++ {
					out[j*p+c] = v.At(j, c)
				}
				got++
			}
		}
	}
	e.o.log.Debug().Int("from_data", got).Int("random", p-got).Msg("components seed")
	e.normalize(scores)

	return scores, nil
}

// projectOut removes from v its components along the design basis and along
// the first upto columns of the row-major n_cols × stride matrix prev.
func (e *engine) projectOut(v []float64, prev []float64, upto int) {
	k := e.basis.Cols()
	q := e.basis.RawData()
	n := len(v)
	var j, c int
	var dot float64
	for c = 0; c < k; c++ {
		dot = 0
		for j = 0; j < n; j++ {
			dot += q[j*k+c] * v[j]
		}
		for j = 0; j < n; j++ {
			v[j] -= dot * q[j*k+c]
		}
	}
	if upto == 0 {
		return
	}
	stride := len(prev) / n
	for c = 0; c < upto; c++ {
		dot = 0
		for j = 0; j < n; j++ {
			dot += prev[j*stride+c] * v[j]
		}
		for j = 0; j < n; j++ {
			v[j] -= dot * prev[j*stride+c]
		}
	}
}

// normalize makes the score columns orthonormal and orthogonal to the design
// (Gram-Schmidt, applied twice). A column that collapses is replaced by a
// random direction. span(design ∪ scores) is unchanged for healthy columns.
func (e *engine) normalize(scores *matrix.Dense) {
	n, p := scores.Rows(), scores.Cols()
	data := scores.RawData()
	v := make([]float64, n)
	var j, c int
	for c = 0; c < p; c++ {
		for j = 0; j < n; j++ {
			v[j] = data[j*p+c]
		}
		for attempt := 0; attempt < maxRedraws; attempt++ {
			before := math.Sqrt(matrix.Dot(v, v))
			e.projectOut(v, data, c)
			e.projectOut(v, data, c)
			after := math.Sqrt(matrix.Dot(v, v))
			if after > 0 && after > degenerateRatio*before {
				for j = 0; j < n; j++ {
					data[j*p+c] = v[j] / after
				}

				break
			}
			for j = 0; j < n; j++ {
				v[j] = e.rng.NormFloat64()
			}
		}
	}
}

// orthonormalBasis returns an orthonormal basis of span(d) and its rank.
func orthonormalBasis(d *matrix.Dense) (*matrix.Dense, int, error) {
	n := d.Rows()
	g, ok := d.Gonum()
	if !ok {
		b, err := matrix.NewDense(n, 0)
		return b, 0, err
	}
	var svd mat.SVD
	if !svd.Factorize(g, mat.SVDThin) {
		return nil, 0, ErrDesignRank
	}
	sv := svd.Values(nil)
	rank := 0
	for rank < len(sv) && sv[rank] > lsq.DefaultRCond*sv[0] {
		rank++
	}
	var u mat.Dense
	svd.UTo(&u)
	basis, err := matrix.NewDense(n, rank)
	if err != nil {
		return nil, 0, err
	}
	for i := 0; i < n; i++ {
		for c := 0; c < rank; c++ {
			_ = basis.Set(i, c, u.At(i, c))
		}
	}

	return basis, rank, nil
}
