// SPDX-License-Identifier: MIT

package calibrate

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/design"
	"github.com/katalvlaran/weitrix/dispersion"
	"github.com/katalvlaran/weitrix/glm"
	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/parallel"
	"github.com/katalvlaran/weitrix/table"
	"github.com/katalvlaran/weitrix/weitrix"
)

// Trend fits a log-link GLM of per-row dispersion against formula and
// returns a pair whose row i weights are multiplied by 1/trend_i.
//
// The formula is evaluated at Row level over the row table plus the
// derived covariates total_weight (Σ_j w_ij) and mu (weighted mean of the
// fitted values of the row). Only rows with an available dispersion enter
// the fit, with weights equal to their residual degrees of freedom; the
// other rows get weight zero.
//
// Errors:
//   - ErrFormula: the formula does not parse or names an unknown covariate.
//     An unknown covariate also wraps ErrTrendDegenerate.
//   - ErrTrendDegenerate: no row has a dispersion, or binding or the GLM fails.
//   - components.ErrComponentsShape: comp was not fit on pair.
func Trend(ctx context.Context, pair *weitrix.Pair, comp *components.Components, formula string, opts ...Option) (*weitrix.Pair, *TrendModel, error) {
	o := gather(opts)
	f, err := design.Parse(formula)
	if err != nil {
		return nil, nil, calibrateErrorf("Trend", fmt.Errorf("%w: %w", ErrFormula, err))
	}
	if err = comp.Check(pair); err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}

	derived, err := rowCovariates(ctx, &o, pair, comp)
	if err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}
	full, err := design.RowFrame(pair.RowInfo(), derived)
	if err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}
	if err = design.Check(f, full); err != nil {
		return nil, nil, calibrateErrorf("Trend", fmt.Errorf("%w: %w: %w", ErrFormula, ErrTrendDegenerate, err))
	}

	disp, err := dispersion.Estimate(ctx, pair, comp, o.dispersionOptions()...)
	if err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}
	avail := make([]int, 0, len(disp.Dispersion))
	for i := range disp.Dispersion {
		if disp.Available(i) {
			avail = append(avail, i)
		}
	}
	if len(avail) == 0 {
		return nil, nil, calibrateErrorf("Trend", fmt.Errorf("no row of %d has a dispersion estimate: %w", pair.Rows(), ErrTrendDegenerate))
	}

	model, trendAvail, err := fitRowTrend(ctx, &o, f, pair, derived, disp, avail)
	if err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}
	trend := make([]float64, pair.Rows())
	for i := range trend {
		trend[i] = math.NaN()
	}
	for k, i := range avail {
		trend[i] = trendAvail[k]
	}

	w, err := scaleRows(ctx, &o, pair, trend)
	if err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}
	out, err := pair.WithWeights(w)
	if err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}
	info, err := diagnostics(pair, disp, trend)
	if err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}
	if out, err = out.WithRowInfo(info); err != nil {
		return nil, nil, calibrateErrorf("Trend", err)
	}

	if !model.GLM.Converged {
		o.log.Warn().Int("iterations", model.GLM.Iterations).Str("formula", f.String()).
			Msg("trend GLM did not converge")
	}
	o.log.Info().Int("rows", pair.Rows()).Int("available", len(avail)).
		Str("family", model.GLM.Family.String()).Float64("scale", model.GLM.Scale).
		Msg("trend calibrated")

	return out, model, nil
}

// rowCovariates computes total_weight and mu for every row.
func rowCovariates(ctx context.Context, o *options, pair *weitrix.Pair, comp *components.Components) (map[string][]float64, error) {
	type block struct{ tw, mu []float64 }
	parts, err := parallel.MapRows(ctx, o.exec, pair, o.blockRows,
		func(_ context.Context, b parallel.Block, part *weitrix.Pair) (block, error) {
			out := block{tw: make([]float64, b.Len()), mu: make([]float64, b.Len())}
			var fitted []float64
			for i := 0; i < part.Rows(); i++ {
				fitted = comp.FittedRow(b.Lo+i, fitted)
				var sw, swf float64
				for j, wj := range part.WRow(i) {
					sw += wj
					swf += wj * fitted[j]
				}
				out.tw[i] = sw
				out.mu[i] = math.NaN()
				if sw > 0 {
					out.mu[i] = swf / sw
				}
			}

			return out, nil
		})
	if err != nil {
		return nil, err
	}
	tw := make([][]float64, len(parts))
	mu := make([][]float64, len(parts))
	for k, p := range parts {
		tw[k], mu[k] = p.tw, p.mu
	}

	return map[string][]float64{
		design.NameTotalWeight: parallel.Concat(tw),
		design.NameMu:          parallel.Concat(mu),
	}, nil
}

// fitRowTrend fits the GLM over the available rows and returns the fitted
// trend for each of them.
func fitRowTrend(ctx context.Context, o *options, f *design.Formula, pair *weitrix.Pair,
	derived map[string][]float64, disp *dispersion.Result, avail []int) (*TrendModel, []float64, error) {
	rows, err := pair.RowInfo().Subset(avail)
	if err != nil {
		return nil, nil, err
	}
	sub := make(map[string][]float64, len(derived))
	for name, v := range derived {
		sub[name] = pick(v, avail)
	}
	fr, err := design.RowFrame(rows, sub)
	if err != nil {
		return nil, nil, err
	}
	bound, err := design.Bind(f, fr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTrendDegenerate, err)
	}
	x, offset, err := bound.Matrix(fr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTrendDegenerate, err)
	}

	fit, err := glm.Fit(ctx, glm.Data{
		X:       x,
		Y:       pick(disp.Dispersion, avail),
		Weights: pick(disp.DF, avail),
		Offset:  offset,
	}, o.glmOptions(o.family)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}

		return nil, nil, fmt.Errorf("%w: %w", ErrTrendDegenerate, err)
	}
	trend, err := fit.Predict(x, offset)
	if err != nil {
		return nil, nil, err
	}

	return &TrendModel{Design: bound, GLM: fit, NTrain: len(avail)}, trend, nil
}

// scaleRows multiplies row i of the weights by 1/trend[i], or zeroes it when
// the trend is not a positive finite number.
func scaleRows(ctx context.Context, o *options, pair *weitrix.Pair, trend []float64) (*matrix.Dense, error) {
	w, err := matrix.NewDense(pair.Rows(), pair.Cols())
	if err != nil {
		return nil, err
	}
	_, err = parallel.MapRows(ctx, o.exec, pair, o.blockRows,
		func(_ context.Context, b parallel.Block, part *weitrix.Pair) (struct{}, error) {
			for i := 0; i < part.Rows(); i++ {
				t := trend[b.Lo+i]
				if !(t > 0) || math.IsInf(t, 0) {
					continue
				}
				dst := w.RawRowView(b.Lo + i)
				for j, wj := range part.WRow(i) {
					dst[j] = wj / t
				}
			}

			return struct{}{}, nil
		})
	if err != nil {
		return nil, err
	}

	return w, nil
}

func diagnostics(pair *weitrix.Pair, disp *dispersion.Result, trend []float64) (*table.Table, error) {
	after := make([]float64, len(trend))
	for i, t := range trend {
		after[i] = disp.Dispersion[i] / t
	}
	info := pair.RowInfo()
	var err error
	for _, c := range []struct {
		name string
		v    []float64
	}{
		{ColDF, disp.DF},
		{ColDispersionBefore, disp.Dispersion},
		{ColDispersionTrend, trend},
		{ColDispersionAfter, after},
	} {
		if info, err = info.WithFloat(c.name, c.v); err != nil {
			return nil, err
		}
	}

	return info, nil
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = v[i]
	}

	return out
}
