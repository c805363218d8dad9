// SPDX-License-Identifier: MIT

package components

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/weitrix"
)

// Components is the result of Fit. It is never modified after Fit returns.
type Components struct {
	// Row holds per-row coefficients, n_rows × (K+P).
	Row *matrix.Dense
	// Col holds the design followed by the novel scores, n_cols × (K+P).
	Col *matrix.Dense
	// K is the number of design columns, P the number of novel components.
	K, P int
	// Names labels the K+P axes: design names, then C1..CP.
	Names []string
	// RowRank is the numerical rank of each row solve; below K+P means the
	// row had too few observed cells and got a minimum-norm solution.
	RowRank []int

	RowIDs, ColIDs []string

	Iterations int
	Converged  bool
	// RSS is the weighted residual sum of squares over observed cells.
	RSS        float64
	RSSHistory []float64
}

// NAxes is K+P.
func (c *Components) NAxes() int { return c.K + c.P }

// FittedRow writes row i of Row×Colᵀ into dst (allocated when too short).
func (c *Components) FittedRow(i int, dst []float64) []float64 {
	n, m := c.Col.Rows(), c.NAxes()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	r := c.Row.RawRowView(i)
	for j := 0; j < n; j++ {
		dst[j] = matrix.Dot(r, c.Col.RawRowView(j)[:m])
	}

	return dst
}

// Fitted returns the full reconstruction Row×Colᵀ.
func (c *Components) Fitted() (*matrix.Dense, error) {
	return matrix.MulT(c.Row, c.Col)
}

// Check reports ErrComponentsShape when c cannot describe p.
func (c *Components) Check(p *weitrix.Pair) error {
	if c == nil || c.Row == nil || c.Col == nil || p == nil {
		return componentsErrorf("Check", matrix.ErrNilMatrix)
	}
	if c.Row.Rows() != p.Rows() || c.Col.Rows() != p.Cols() ||
		c.Row.Cols() != c.NAxes() || c.Col.Cols() != c.NAxes() {
		return componentsErrorf("Check", fmt.Errorf("row %dx%d col %dx%d for %dx%d pair: %w",
			c.Row.Rows(), c.Row.Cols(), c.Col.Rows(), c.Col.Cols(), p.Rows(), p.Cols(), ErrComponentsShape))
	}

	return nil
}

// Intercept returns the n×1 all-ones design.
func Intercept(n int) *matrix.Dense {
	d, _ := matrix.NewConstant(n, 1, 1)

	return d
}

// NoDesign returns the n×0 design.
func NoDesign(n int) *matrix.Dense {
	d, _ := matrix.NewDense(n, 0)

	return d
}

// Fit factorizes pair into the fixed design plus p novel components.
//
// Errors (configuration, returned before any fitting):
//   - ErrDesignRows: design.Rows() != pair.Cols().
//   - ErrNegativeP, ErrUnidentifiable (k+p > pair.Cols()).
//   - ErrDesignRank: the design is not of full column rank.
//   - weitrix.ErrNonFiniteObserved, matrix.ErrNaNInf (non-finite design).
//
// Non-convergence is not an error: Converged is false, a warning is logged
// and the best fit found is returned.
func Fit(ctx context.Context, pair *weitrix.Pair, design *matrix.Dense, p int, opts ...Option) (*Components, error) {
	start := time.Now()
	o := gatherOptions(opts...)
	if pair == nil {
		return nil, componentsErrorf("Fit", matrix.ErrNilMatrix)
	}
	if design == nil {
		design = NoDesign(pair.Cols())
	}
	e, err := newEngine(pair, design, p, o)
	if err != nil {
		return nil, componentsErrorf("Fit", err)
	}

	c, err := e.run(ctx)
	if err != nil {
		return nil, componentsErrorf("Fit", err)
	}
	o.observer.FitDone(p, c.Iterations, c.Converged, time.Since(start))
	o.log.Info().
		Int("k", c.K).Int("p", c.P).
		Int("iterations", c.Iterations).
		Bool("converged", c.Converged).
		Float64("rss", c.RSS).
		Dur("elapsed", time.Since(start)).
		Msg("components fit")

	return c, nil
}

// engine holds the read-only inputs shared by the row and column passes.
type engine struct {
	pair   *weitrix.Pair
	design *matrix.Dense
	basis  *matrix.Dense // orthonormal basis of span(design), n_cols × k
	k, p   int
	o      Options
	rng    *rand.Rand
}

func newEngine(pair *weitrix.Pair, design *matrix.Dense, p int, o Options) (*engine, error) {
	n := pair.Cols()
	k := design.Cols()
	switch {
	case design.Rows() != n:
		return nil, fmt.Errorf("design has %d rows, matrix has %d columns: %w", design.Rows(), n, ErrDesignRows)
	case p < 0:
		return nil, fmt.Errorf("p=%d: %w", p, ErrNegativeP)
	case k+p > n:
		return nil, fmt.Errorf("k=%d p=%d cols=%d: %w", k, p, n, ErrUnidentifiable)
	}
	if err := matrix.ValidateFinite(design); err != nil {
		return nil, err
	}
	if err := pair.CheckObserved(); err != nil {
		return nil, err
	}
	basis, rank, err := orthonormalBasis(design)
	if err != nil {
		return nil, err
	}
	if rank < k {
		return nil, fmt.Errorf("rank %d < %d columns: %w", rank, k, ErrDesignRank)
	}

	return &engine{
		pair:   pair,
		design: design,
		basis:  basis,
		k:      k,
		p:      p,
		o:      o,
		rng:    rand.New(rand.NewSource(o.seed)),
	}, nil
}

// run drives Stages 2..5.
func (e *engine) run(ctx context.Context) (*Components, error) {
	res := &Components{
		K:      e.k,
		P:      e.p,
		Names:  e.names(),
		RowIDs: e.pair.RowIDs(),
		ColIDs: e.pair.ColIDs(),
	}

	// p == 0: one row pass against the design is the closed-form answer.
	if e.p == 0 {
		col := e.design.Copy()
		rows, err := e.fitRows(ctx, col)
		if err != nil {
			return nil, err
		}
		res.Row, res.Col, res.RowRank = rows.coef, col, rows.rank
		res.RSS, res.RSSHistory, res.Converged = rows.rss, []float64{rows.rss}, true

		return res, nil
	}

	scores, err := e.seed()
	if err != nil {
		return nil, err
	}

	var (
		best     *rowFit
		bestCol  *matrix.Dense
		prevRSS  = math.Inf(1)
		iter     int
		rel      float64
		finished bool
	)
	for iter = 1; iter <= e.o.maxIter; iter++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		col, err := matrix.HStack(e.design, scores)
		if err != nil {
			return nil, err
		}
		rows, err := e.fitRows(ctx, col)
		if err != nil {
			return nil, err
		}
		res.RSSHistory = append(res.RSSHistory, rows.rss)
		if best == nil || rows.rss <= best.rss {
			best, bestCol = rows, col
		}
		rel = relativeDecrease(prevRSS, rows.rss)
		e.o.observer.IterationDone(iter, rows.rss)
		e.o.log.Debug().Int("iter", iter).Float64("rss", rows.rss).Float64("rel_change", rel).Msg("components iteration")
		if rel < 0 {
			e.o.log.Warn().Int("iter", iter).Float64("rss", rows.rss).Float64("prev_rss", prevRSS).
				Msg("components rss increased")
		}
		if convergedStep(rows.rss, rel, e.o.tol) {
			finished = true
			break
		}
		prevRSS = rows.rss

		if scores, err = e.fitCols(ctx, rows.coef); err != nil {
			return nil, err
		}
		e.normalize(scores)
	}
	if !finished {
		iter = e.o.maxIter
		e.o.log.Warn().
			Int("max_iter", e.o.maxIter).
			Float64("rel_change", rel).
			Float64("tolerance", e.o.tol).
			Msg("components did not converge; returning best fit")
	}
	res.Iterations, res.Converged = iter, finished
	res.Row, res.Col, res.RowRank, res.RSS = best.coef, bestCol, best.rank, best.rss

	if err = e.rotate(res); err != nil {
		return nil, err
	}

	return res, nil
}

// convergedStep reports whether an iteration ending at rss with relative
// decrease rel stops the fit. An increase never counts as convergence.
func convergedStep(rss, rel, tol float64) bool {
	return rss == 0 || (rel >= 0 && rel < tol)
}

func relativeDecrease(prev, cur float64) float64 {
	if math.IsInf(prev, 1) {
		return math.Inf(1)
	}
	if prev == 0 {
		return 0
	}

	return (prev - cur) / prev
}

func (e *engine) names() []string {
	out := make([]string, 0, e.k+e.p)
	for j := 0; j < e.k; j++ {
		if j < len(e.o.designNames) && e.o.designNames[j] != "" {
			out = append(out, e.o.designNames[j])
		} else {
			out = append(out, "D"+strconv.Itoa(j+1))
		}
	}
	for j := 0; j < e.p; j++ {
		out = append(out, "C"+strconv.Itoa(j+1))
	}

	return out
}
