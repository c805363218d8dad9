// SPDX-License-Identifier: MIT

package calibrate_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/calibrate"
	"github.com/katalvlaran/weitrix/components"
	"github.com/katalvlaran/weitrix/design"
	"github.com/katalvlaran/weitrix/dispersion"
	"github.com/katalvlaran/weitrix/glm"
	"github.com/katalvlaran/weitrix/parallel"
	"github.com/katalvlaran/weitrix/weitrix"
)

func TestTrend_FlattensDispersion(t *testing.T) {
	ctx := context.Background()
	p := miscalibratedPair(t, 1000, 20, 7)
	comp := interceptFit(t, p)

	out, model, err := calibrate.Trend(ctx, p, comp, "~ log(total_weight)")
	require.NoError(t, err)
	assert.True(t, model.GLM.Converged)
	assert.Equal(t, 1000, model.NTrain)
	assert.Equal(t, design.Row, model.Level())
	assert.InDelta(t, 0.5, model.Coefficients()["log(total_weight)"], 0.1)

	logTW := logAll(p.TotalWeight())
	before, err := out.RowInfo().Float(calibrate.ColDispersionBefore)
	require.NoError(t, err)
	spreadBefore, err := calibrate.TrendSpread(logTW, before, nil)
	require.NoError(t, err)
	assert.Greater(t, spreadBefore, 0.8)

	// Re-estimate on the calibrated pair against the same design.
	refit := interceptFit(t, out)
	disp, err := dispersion.Estimate(ctx, out, refit)
	require.NoError(t, err)
	spreadAfter, err := calibrate.TrendSpread(logTW, disp.Dispersion, nil)
	require.NoError(t, err)
	assert.Less(t, math.Abs(spreadAfter), 0.3)

	after, err := out.RowInfo().Float(calibrate.ColDispersionAfter)
	require.NoError(t, err)
	for i := range after {
		assert.InEpsilon(t, after[i], disp.Dispersion[i], 1e-8, "row %d", i)
	}
}

func TestTrend_MeasurementsAndIdentityPreserved(t *testing.T) {
	p := miscalibratedPair(t, 60, 8, 11)
	out, _, err := calibrate.Trend(context.Background(), p, interceptFit(t, p), "~ log(total_weight)")
	require.NoError(t, err)

	assert.Equal(t, p.X().RawData(), out.X().RawData())
	assert.Equal(t, p.RowIDs(), out.RowIDs())
	assert.Equal(t, p.ColIDs(), out.ColIDs())
	assert.False(t, p.RowInfo().Has(calibrate.ColDispersionTrend), "input row table untouched")
	for _, name := range []string{calibrate.ColDF, calibrate.ColDispersionBefore, calibrate.ColDispersionTrend, calibrate.ColDispersionAfter} {
		assert.True(t, out.RowInfo().Has(name), name)
	}

	trend, err := out.RowInfo().Float(calibrate.ColDispersionTrend)
	require.NoError(t, err)
	for i := 0; i < p.Rows(); i++ {
		for j := 0; j < p.Cols(); j++ {
			assert.InEpsilon(t, p.WAt(i, j)/trend[i], out.WAt(i, j), 1e-12)
		}
	}

	// Calibrating again only refreshes the diagnostics.
	again, _, err := calibrate.Trend(context.Background(), out, interceptFit(t, out), "~ log(total_weight)")
	require.NoError(t, err)
	assert.Equal(t, out.RowInfo().Names(), again.RowInfo().Names())
	assert.Equal(t, p.X().RawData(), again.X().RawData())
}

func TestTrend_UnavailableRowsGetZeroWeight(t *testing.T) {
	x := [][]float64{
		{1, 2, 3, 4},
		{2, 2.5, 2, 3},
		{5, 4, 6, 5.5},
		{9, 0, 0, 0},
	}
	w := [][]float64{
		{1, 1, 1, 1},
		{2, 2, 2, 2},
		{4, 4, 4, 4},
		{3, 0, 0, 0},
	}
	p, err := weitrix.FromRows(x, w)
	require.NoError(t, err)

	out, model, err := calibrate.Trend(context.Background(), p, interceptFit(t, p), "~ 1")
	require.NoError(t, err)
	assert.Equal(t, 3, model.NTrain)
	for j := 0; j < 4; j++ {
		assert.Equal(t, 0.0, out.WAt(3, j))
	}
	trend, err := out.RowInfo().Float(calibrate.ColDispersionTrend)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(trend[3]))
	df, err := out.RowInfo().Float(calibrate.ColDF)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 3, 0}, df)

	// Intercept-only trend is the df-weighted mean dispersion.
	before, err := out.RowInfo().Float(calibrate.ColDispersionBefore)
	require.NoError(t, err)
	mean := (before[0] + before[1] + before[2]) / 3
	for i := 0; i < 3; i++ {
		assert.InEpsilon(t, mean, trend[i], 1e-6)
	}
}

func TestTrend_AllWeightsZero(t *testing.T) {
	x := [][]float64{{1, 2, 3}, {4, 5, 6}}
	w := [][]float64{{0, 0, 0}, {0, 0, 0}}
	p, err := weitrix.FromRows(x, w)
	require.NoError(t, err)

	_, _, err = calibrate.Trend(context.Background(), p, interceptFit(t, p), "~ log(total_weight)")
	assert.ErrorIs(t, err, calibrate.ErrTrendDegenerate)
}

func TestTrend_FormulaErrors(t *testing.T) {
	p := miscalibratedPair(t, 20, 5, 3)
	comp := interceptFit(t, p)
	ctx := context.Background()

	_, _, err := calibrate.Trend(ctx, p, comp, "~ spline(total_weight")
	assert.ErrorIs(t, err, calibrate.ErrFormula)
	assert.ErrorIs(t, err, design.ErrSyntax)

	_, _, err = calibrate.Trend(ctx, p, comp, "~ log(depth)")
	assert.ErrorIs(t, err, calibrate.ErrFormula)
	assert.ErrorIs(t, err, calibrate.ErrTrendDegenerate)
	assert.ErrorIs(t, err, design.ErrUnknownCovariate)

	_, _, err = calibrate.Trend(ctx, p, comp, "~ log(weight)")
	assert.ErrorIs(t, err, design.ErrUnavailableAtLevel)

	other := miscalibratedPair(t, 21, 5, 3)
	_, _, err = calibrate.Trend(ctx, other, comp, "~ 1")
	assert.ErrorIs(t, err, components.ErrComponentsShape)
}

func TestTrend_ParallelMatchesSerial(t *testing.T) {
	p := miscalibratedPair(t, 90, 6, 5)
	comp := interceptFit(t, p)
	ctx := context.Background()
	formula := "~ spline(log(total_weight), 3)"

	serial, m1, err := calibrate.Trend(ctx, p, comp, formula)
	require.NoError(t, err)
	pooled, m2, err := calibrate.Trend(ctx, p, comp, formula,
		calibrate.WithExecutor(parallel.NewPool(4)), calibrate.WithBlockRows(7))
	require.NoError(t, err)

	assert.Equal(t, m1.GLM.Coef, m2.GLM.Coef)
	assert.Equal(t, serial.W().RawData(), pooled.W().RawData())
}

func TestTrend_ModelPredictsOnNewRows(t *testing.T) {
	p := miscalibratedPair(t, 200, 10, 9)
	counter := &iterationCounter{}
	_, model, err := calibrate.Trend(context.Background(), p, interceptFit(t, p), "~ log(total_weight)",
		calibrate.WithFamily(glm.QuasiPoisson), calibrate.WithObserver(counter))
	require.NoError(t, err)
	assert.Equal(t, glm.QuasiPoisson, model.GLM.Family)
	assert.Equal(t, model.GLM.Iterations, counter.n)
	assert.Contains(t, model.String(), "log(total_weight)")

	fr := design.NewFrame(design.Row, 3)
	require.NoError(t, fr.AddFloat(design.NameTotalWeight, []float64{10, 100, 1000}))
	pred, err := model.Predict(fr)
	require.NoError(t, err)
	assert.Less(t, pred[0], pred[1])
	assert.Less(t, pred[1], pred[2])

	_, err = model.Predict(design.NewFrame(design.Column, 1))
	assert.ErrorIs(t, err, design.ErrUnavailableAtLevel)
}
