// SPDX-License-Identifier: MIT

package components

import (
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/weitrix/matrix"
)

// rotate applies the post-convergence rotation to the novel block of c and
// orients every novel axis. Row×Colᵀ is unchanged because the same
// orthogonal T multiplies both blocks.
func (e *engine) rotate(c *Components) error {
	k, p := c.K, c.P
	if p == 0 {
		return nil
	}
	loadings, err := c.Row.SliceCols(k, k+p)
	if err != nil {
		return err
	}
	scores, err := c.Col.SliceCols(k, k+p)
	if err != nil {
		return err
	}

	var t *matrix.Dense
	if e.o.varimax {
		t = varimax(loadings, varimaxEps, varimaxMaxIter)
	} else if t, err = principalAxes(loadings); err != nil {
		return err
	}
	if loadings, err = matrix.Mul(loadings, t); err != nil {
		return err
	}
	if scores, err = matrix.Mul(scores, t); err != nil {
		return err
	}
	orient(loadings, scores)

	writeBlock(c.Row, loadings, k)
	writeBlock(c.Col, scores, k)

	return nil
}

func writeBlock(dst, block *matrix.Dense, off int) {
	w := block.Cols()
	for i := 0; i < dst.Rows(); i++ {
		copy(dst.RawRowView(i)[off:off+w], block.RawRowView(i))
	}
}

// orient flips axis c in both blocks when Σ loading³ < 0.
func orient(loadings, scores *matrix.Dense) {
	p := loadings.Cols()
	l, s := loadings.RawData(), scores.RawData()
	for c := 0; c < p; c++ {
		var skew float64
		for i := 0; i < loadings.Rows(); i++ {
			v := l[i*p+c]
			skew += v * v * v
		}
		if skew >= 0 {
			continue
		}
		for i := 0; i < loadings.Rows(); i++ {
			l[i*p+c] = -l[i*p+c]
		}
		for j := 0; j < scores.Rows(); j++ {
			s[j*p+c] = -s[j*p+c]
		}
	}
}

// principalAxes returns the eigenvectors of LᵀL ordered by descending
// eigenvalue. Rotating by them makes the loading columns orthogonal with
// decreasing sums of squares; with orthonormal scores these are the
// explained variances.
func principalAxes(loadings *matrix.Dense) (*matrix.Dense, error) {
	g, err := matrix.Gram(loadings, nil)
	if err != nil {
		return nil, err
	}
	p := g.Rows()
	var trace float64
	for i := 0; i < p; i++ {
		v, _ := g.At(i, i)
		trace += v
	}
	_, q, err := matrix.EigenSorted(g, 1e-14*trace, 100*p*p+100)
	if err != nil {
		return nil, err
	}

	return q, nil
}

// varimax returns the orthogonal p×p rotation maximizing the variance of the
// squared loadings (raw criterion, no row normalization).
//
// Iteration: Z = L·T, B = Lᵀ(Z∘Z∘Z − Z·diag(colSums(Z∘Z))/n), T = U·Vᵀ from
// the SVD of B; stop when Σ singular values grows by less than a factor
// (1+eps).
func varimax(loadings *matrix.Dense, eps float64, maxIter int) *matrix.Dense {
	n, p := loadings.Rows(), loadings.Cols()
	t, _ := matrix.NewIdentity(p)
	if p < 2 || n == 0 {
		return t
	}
	l, _ := loadings.Gonum()
	rot := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		rot.Set(i, i, 1)
	}

	var (
		z, target, b mat.Dense
		u, v         mat.Dense
		svd          mat.SVD
		d, dPast     float64
	)
	colSq := make([]float64, p)
	for iter := 0; iter < maxIter; iter++ {
		z.Mul(l, rot)
		for c := range colSq {
			colSq[c] = 0
		}
		for i := 0; i < n; i++ {
			for c := 0; c < p; c++ {
				zc := z.At(i, c)
				colSq[c] += zc * zc
			}
		}
		target.Reset()
		target.ReuseAs(n, p)
		for i := 0; i < n; i++ {
			for c := 0; c < p; c++ {
				zc := z.At(i, c)
				target.Set(i, c, zc*zc*zc-zc*colSq[c]/float64(n))
			}
		}
		b.Reset()
		b.Mul(l.T(), &target)
		if !svd.Factorize(&b, mat.SVDFull) {
			break
		}
		u.Reset()
		v.Reset()
		svd.UTo(&u)
		svd.VTo(&v)
		rot.Mul(&u, v.T())

		dPast = d
		d = 0
		for _, s := range svd.Values(nil) {
			d += s
		}
		if iter > 0 && d <= dPast*(1+eps) {
			break
		}
	}

	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			_ = t.Set(i, j, rot.At(i, j))
		}
	}

	return t
}
