// SPDX-License-Identifier: MIT

package calibrate

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/design"
	"github.com/katalvlaran/weitrix/glm"
	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/parallel"
	"github.com/katalvlaran/weitrix/weitrix"
)

// cells holds the observed cells of a block of rows, row-major.
type cells struct {
	ri, cj   []int
	y, w, mu []float64
	nRows    int // rows with residual degrees of freedom
	nSkipped int // observed cells in rows without residual degrees of freedom
}

// All fits a Gamma log-link GLM of the squared residual of every observed
// cell against formula, evaluated at Cell level, and sets each observed
// cell's weight to 1/fitted.
//
// Besides row and column covariates the formula can use row and col
// (identity factors), weight (the current weight) and mu (the fitted
// value). A common choice is "~ row + col + offset(-log(weight))".
//
// Rows whose residual degrees of freedom are not positive fit exactly, so
// their residuals carry no information: their cells are left out of the fit
// and get weight zero, like rows without a dispersion in Trend.
//
// The training frame has one entry per observed cell.
func All(ctx context.Context, pair *weitrix.Pair, comp *components.Components, formula string, opts ...Option) (*weitrix.Pair, *TrendModel, error) {
	o := gather(opts)
	f, err := design.Parse(formula)
	if err != nil {
		return nil, nil, calibrateErrorf("All", fmt.Errorf("%w: %w", ErrFormula, err))
	}
	if err = comp.Check(pair); err != nil {
		return nil, nil, calibrateErrorf("All", err)
	}
	empty, err := design.CellFrame(pair.RowInfo(), pair.ColInfo(), nil, nil, map[string][]float64{
		design.NameWeight: {},
		design.NameMu:     {},
	})
	if err != nil {
		return nil, nil, calibrateErrorf("All", err)
	}
	if err = design.Check(f, empty); err != nil {
		return nil, nil, calibrateErrorf("All", fmt.Errorf("%w: %w: %w", ErrFormula, ErrTrendDegenerate, err))
	}

	c, err := collectCells(ctx, &o, pair, comp)
	if err != nil {
		return nil, nil, calibrateErrorf("All", err)
	}
	if len(c.y) == 0 {
		return nil, nil, calibrateErrorf("All", fmt.Errorf("no observed cell in a row with residual degrees of freedom: %w", ErrTrendDegenerate))
	}

	fr, err := design.CellFrame(pair.RowInfo(), pair.ColInfo(), c.ri, c.cj, map[string][]float64{
		design.NameWeight: c.w,
		design.NameMu:     c.mu,
	})
	if err != nil {
		return nil, nil, calibrateErrorf("All", err)
	}
	bound, err := design.Bind(f, fr)
	if err != nil {
		return nil, nil, calibrateErrorf("All", fmt.Errorf("%w: %w", ErrTrendDegenerate, err))
	}
	x, offset, err := bound.Matrix(fr)
	if err != nil {
		return nil, nil, calibrateErrorf("All", fmt.Errorf("%w: %w", ErrTrendDegenerate, err))
	}
	fit, err := glm.Fit(ctx, glm.Data{X: x, Y: c.y, Offset: offset}, o.glmOptions(glm.Gamma)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, calibrateErrorf("All", ctxErr)
		}

		return nil, nil, calibrateErrorf("All", fmt.Errorf("%w: %w", ErrTrendDegenerate, err))
	}
	fitted, err := fit.Predict(x, offset)
	if err != nil {
		return nil, nil, calibrateErrorf("All", err)
	}

	w, err := matrix.NewDense(pair.Rows(), pair.Cols())
	if err != nil {
		return nil, nil, calibrateErrorf("All", err)
	}
	for k, v := range fitted {
		if v > 0 && !math.IsInf(v, 0) {
			w.RawRowView(c.ri[k])[c.cj[k]] = 1 / v
		}
	}
	out, err := pair.WithWeights(w)
	if err != nil {
		return nil, nil, calibrateErrorf("All", err)
	}

	model := &TrendModel{Design: bound, GLM: fit, NTrain: len(c.y)}
	if !fit.Converged {
		o.log.Warn().Int("iterations", fit.Iterations).Str("formula", f.String()).
			Msg("element-wise GLM did not converge")
	}
	o.log.Info().Int("cells", len(c.y)).Int("rows", c.nRows).Int("skipped_cells", c.nSkipped).
		Int("coefficients", bound.Width()).Float64("scale", fit.Scale).
		Msg("element-wise calibration done")

	return out, model, nil
}

// collectCells gathers the observed cells of rows with positive residual
// degrees of freedom, with their squared residuals, row-parallel.
func collectCells(ctx context.Context, o *options, pair *weitrix.Pair, comp *components.Components) (cells, error) {
	params := comp.NAxes()
	parts, err := parallel.MapRows(ctx, o.exec, pair, o.blockRows,
		func(_ context.Context, b parallel.Block, part *weitrix.Pair) (cells, error) {
			var out cells
			var fitted []float64
			for i := 0; i < part.Rows(); i++ {
				nObs := part.NObserved(i)
				nu := nObs - params
				if nu <= 0 {
					out.nSkipped += nObs
					continue
				}
				scale := 1.0
				if o.dfCorrected {
					scale = float64(nObs) / float64(nu)
				}
				out.nRows++
				fitted = comp.FittedRow(b.Lo+i, fitted)
				x := part.XRow(i)
				for j, wj := range part.WRow(i) {
					if wj <= 0 {
						continue
					}
					e := x[j] - fitted[j]
					out.ri = append(out.ri, b.Lo+i)
					out.cj = append(out.cj, j)
					out.y = append(out.y, e*e*scale)
					out.w = append(out.w, wj)
					out.mu = append(out.mu, fitted[j])
				}
			}

			return out, nil
		})
	if err != nil {
		return cells{}, err
	}

	var all cells
	for _, p := range parts {
		all.ri = append(all.ri, p.ri...)
		all.cj = append(all.cj, p.cj...)
		all.y = append(all.y, p.y...)
		all.w = append(all.w, p.w...)
		all.mu = append(all.mu, p.mu...)
		all.nRows += p.nRows
		all.nSkipped += p.nSkipped
	}

	return all, nil
}
