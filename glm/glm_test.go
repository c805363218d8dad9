// SPDX-License-Identifier: MIT

package glm_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/glm"
	"github.com/katalvlaran/weitrix/matrix"
)

func designRows(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	d, err := matrix.NewDenseRows(rows)
	require.NoError(t, err)

	return d
}

func TestFit_InterceptIsLogWeightedMean(t *testing.T) {
	x := designRows(t, [][]float64{{1}, {1}, {1}, {1}})
	y := []float64{1, 2, 4, 100}
	w := []float64{1, 1, 2, 0}
	for _, fam := range []glm.Family{glm.Gamma, glm.QuasiPoisson} {
		m, err := glm.Fit(context.Background(), glm.Data{X: x, Y: y, Weights: w}, glm.WithFamily(fam))
		require.NoError(t, err)
		require.True(t, m.Converged, fam.String())
		assert.InDelta(t, math.Log((1+2+8)/4.0), m.Coef[0], 1e-8, fam.String())
		assert.Equal(t, 3, m.NObs)
		assert.Equal(t, 2, m.DFResidual())
	}
}

func TestFit_RecoversExactLogLinear(t *testing.T) {
	rows := make([][]float64, 8)
	y := make([]float64, 8)
	for i := range rows {
		xi := float64(i) / 2
		rows[i] = []float64{1, xi}
		y[i] = math.Exp(1 + 0.5*xi)
	}
	m, err := glm.Fit(context.Background(), glm.Data{X: designRows(t, rows), Y: y})
	require.NoError(t, err)
	assert.InDelta(t, 1, m.Coef[0], 1e-7)
	assert.InDelta(t, 0.5, m.Coef[1], 1e-7)
	assert.InDelta(t, 0, m.Scale, 1e-10)

	pred, err := m.Predict(designRows(t, [][]float64{{1, 10}}), nil)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(6), pred[0], 1e-4)
}

func TestFit_GammaScaleMatchesNoise(t *testing.T) {
	// y = μ·ε with E ε = 1 and Var ε = 0.25, so the gamma scale is about 0.25
	rng := rand.New(rand.NewSource(3))
	n := 4000
	rows := make([][]float64, n)
	y := make([]float64, n)
	for i := range rows {
		xi := rng.Float64()*4 - 2
		rows[i] = []float64{1, xi}
		eps := 1 + 0.5*rng.NormFloat64()
		if eps < 0.01 {
			eps = 0.01
		}
		y[i] = math.Exp(0.3-0.8*xi) * eps
	}
	m, err := glm.Fit(context.Background(), glm.Data{X: designRows(t, rows), Y: y})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, m.Coef[0], 0.05)
	assert.InDelta(t, -0.8, m.Coef[1], 0.05)
	assert.InDelta(t, 0.25, m.Scale, 0.03)
}

func TestFit_Offset(t *testing.T) {
	x := designRows(t, [][]float64{{1}, {1}, {1}})
	off := []float64{0, math.Log(2), math.Log(4)}
	y := []float64{3, 6, 12}
	m, err := glm.Fit(context.Background(), glm.Data{X: x, Y: y, Offset: off})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(3), m.Coef[0], 1e-8)
	pred, err := m.Predict(x, off)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, pred, 1e-6)
}

func TestFit_Errors(t *testing.T) {
	x := designRows(t, [][]float64{{1}, {1}})
	ctx := context.Background()

	_, err := glm.Fit(ctx, glm.Data{X: x, Y: []float64{1, 2}, Weights: []float64{0, 0}})
	require.ErrorIs(t, err, glm.ErrNoObservations)

	_, err = glm.Fit(ctx, glm.Data{X: x, Y: []float64{1, -2}})
	require.ErrorIs(t, err, glm.ErrNegativeResponse)

	_, err = glm.Fit(ctx, glm.Data{X: x, Y: []float64{0, 0}})
	require.ErrorIs(t, err, glm.ErrDegenerate)

	_, err = glm.Fit(ctx, glm.Data{X: x, Y: []float64{1}})
	require.ErrorIs(t, err, glm.ErrShape)

	// negative response is ignored where the weight is zero
	_, err = glm.Fit(ctx, glm.Data{X: x, Y: []float64{1, -2}, Weights: []float64{1, 0}})
	require.NoError(t, err)
}

type iterCounter struct{ n int }

func (c *iterCounter) GLMIteration(int, float64) { c.n++ }

func TestFit_ObserverAndNonConvergence(t *testing.T) {
	x := designRows(t, [][]float64{{1, 0}, {1, 1}, {1, 2}, {1, 3}})
	y := []float64{1, 3, 2, 7}
	obs := &iterCounter{}
	m, err := glm.Fit(context.Background(), glm.Data{X: x, Y: y}, glm.WithMaxIter(1), glm.WithObserver(obs))
	require.NoError(t, err)
	assert.False(t, m.Converged)
	assert.Equal(t, 1, m.Iterations)
	assert.Equal(t, 1, obs.n)
}

func TestParseFamily(t *testing.T) {
	f, err := glm.ParseFamily("quasipoisson")
	require.NoError(t, err)
	assert.Equal(t, glm.QuasiPoisson, f)
	_, err = glm.ParseFamily("gaussian")
	require.Error(t, err)
}
