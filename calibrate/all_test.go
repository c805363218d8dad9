// SPDX-License-Identifier: MIT

package calibrate_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/calibrate"
	"github.com/katalvlaran/weitrix/design"
	"github.com/katalvlaran/weitrix/weitrix"
)

func TestAll_RecoversColumnScale(t *testing.T) {
	p, scale := columnScaledPair(t, 300, 24, 21)
	comp := interceptFit(t, p)

	out, model, err := calibrate.All(context.Background(), p, comp,
		"~ log(scale) + offset(-log(weight))", calibrate.WithResidualCorrection(true))
	require.NoError(t, err)
	assert.True(t, model.GLM.Converged)
	assert.Equal(t, design.Cell, model.Level())

	coef := model.Coefficients()
	assert.InDelta(t, 1, coef["log(scale)"], 0.15)
	assert.InDelta(t, 0, coef["(Intercept)"], 0.2)

	// fitted = e^a·scale^b/w, so new/old weight depends on the column alone.
	a, b := coef["(Intercept)"], coef["log(scale)"]
	for j := 0; j < p.Cols(); j++ {
		want := 1 / (math.Exp(a) * math.Pow(scale[j], b))
		for i := 0; i < p.Rows(); i++ {
			if p.WAt(i, j) == 0 {
				assert.Equal(t, 0.0, out.WAt(i, j))
				continue
			}
			assert.InEpsilon(t, want, out.WAt(i, j)/p.WAt(i, j), 1e-9, "row %d col %d", i, j)
		}
	}
}

func TestAll_MeasurementsUntouched(t *testing.T) {
	p, _ := columnScaledPair(t, 40, 6, 4)
	out, _, err := calibrate.All(context.Background(), p, interceptFit(t, p), "~ col + log(weight)")
	require.NoError(t, err)

	before, after := p.X().RawData(), out.X().RawData()
	require.Len(t, after, len(before))
	for k := range before {
		if math.IsNaN(before[k]) {
			assert.True(t, math.IsNaN(after[k]))
			continue
		}
		assert.Equal(t, before[k], after[k])
	}
	assert.Equal(t, p.RowInfo().Names(), out.RowInfo().Names())
}

func TestAll_WithRowCovariates(t *testing.T) {
	p, _ := columnScaledPair(t, 40, 6, 9)
	depth := make([]float64, p.Rows())
	batch := make([]string, p.Rows())
	for i := range depth {
		depth[i] = float64(10 + i)
		batch[i] = []string{"b1", "b2"}[i%2]
	}
	info, err := p.RowInfo().WithFloat("depth", depth)
	require.NoError(t, err)
	info, err = info.WithFactor("batch", batch)
	require.NoError(t, err)
	p, err = p.WithRowInfo(info)
	require.NoError(t, err)
	comp := interceptFit(t, p)
	ctx := context.Background()

	out, model, err := calibrate.All(ctx, p, comp, "~ col + log(weight)")
	require.NoError(t, err)
	assert.Equal(t, p.Rows(), out.Rows())
	assert.Contains(t, model.Design.Names(), "log(weight)")

	_, model, err = calibrate.All(ctx, p, comp, "~ log(scale) + log(depth) + batch + offset(-log(weight))")
	require.NoError(t, err)
	assert.Equal(t, []string{"(Intercept)", "log(scale)", "log(depth)", "batchb2"}, model.Design.Names())
	for i := 0; i < out.Rows(); i++ {
		for j := 0; j < out.Cols(); j++ {
			if p.WAt(i, j) == 0 {
				assert.Equal(t, 0.0, out.WAt(i, j))
			}
		}
	}
}

func TestAll_SkipsRowsWithoutDF(t *testing.T) {
	x := [][]float64{
		{1, 2, 3, 4},
		{2, 3, 1, 0},
		{7, 0, 0, 0},
		{3, 3.5, 2, 2.5},
	}
	w := [][]float64{
		{1, 2, 1, 2},
		{2, 1, 2, 1},
		{5, 0, 0, 0},
		{1, 1, 4, 4},
	}
	p, err := weitrix.FromRows(x, w)
	require.NoError(t, err)

	out, model, err := calibrate.All(context.Background(), p, interceptFit(t, p), "~ 1")
	require.NoError(t, err)
	assert.Equal(t, 12, model.NTrain)
	assert.Equal(t, 0.0, out.WAt(2, 0))
	assert.Greater(t, out.WAt(0, 0), 0.0)
}

func TestAll_Errors(t *testing.T) {
	p, _ := columnScaledPair(t, 10, 6, 2)
	comp := interceptFit(t, p)
	ctx := context.Background()

	_, _, err := calibrate.All(ctx, p, comp, "~ log(depth)")
	assert.ErrorIs(t, err, calibrate.ErrFormula)
	assert.ErrorIs(t, err, calibrate.ErrTrendDegenerate)
	assert.ErrorIs(t, err, design.ErrUnknownCovariate)

	_, _, err = calibrate.All(ctx, p, comp, "~ total_weight")
	assert.ErrorIs(t, err, design.ErrUnknownCovariate)

	_, _, err = calibrate.All(ctx, p, comp, "~ row +")
	assert.ErrorIs(t, err, design.ErrSyntax)

	zero, err := weitrix.FromRows([][]float64{{1, 2}, {3, 4}}, [][]float64{{0, 0}, {0, 0}})
	require.NoError(t, err)
	_, _, err = calibrate.All(ctx, zero, interceptFit(t, zero), "~ col")
	assert.ErrorIs(t, err, calibrate.ErrTrendDegenerate)
}
