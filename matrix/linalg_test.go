// SPDX-License-Identifier: MIT

package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/matrix"
)

func TestMul_DenseAndGenericPathsAgree(t *testing.T) {
	t.Parallel()

	a := NewFilledDense(t, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := NewFilledDense(t, 3, 2, []float64{7, 8, 9, 10, 11, 12})
	want := []float64{58, 64, 139, 154}

	fast, err := matrix.Mul(a, b)
	require.NoError(t, err)
	sliceClose(t, fast.RawData(), want, 0, 1e-12)

	slow, err := matrix.Mul(hide{a}, hide{b})
	require.NoError(t, err)
	sliceClose(t, slow.RawData(), want, 0, 1e-12)

	_, err = matrix.Mul(a, a)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestMulT_EqualsMulTranspose(t *testing.T) {
	t.Parallel()

	a := NewFilledDense(t, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := NewFilledDense(t, 4, 3, []float64{1, 0, 2, -1, 3, 1, 0, 0, 1, 2, 2, 2})
	bt := NewFilledDense(t, 3, 4, []float64{1, -1, 0, 2, 0, 3, 0, 2, 2, 1, 1, 2})
	want, err := matrix.Mul(hide{a}, bt)
	require.NoError(t, err)
	got, err := matrix.MulT(a, b)
	require.NoError(t, err)
	sliceClose(t, got.RawData(), want.RawData(), 0, 1e-12)
}

func TestGram_WeightedAndSymmetric(t *testing.T) {
	t.Parallel()

	m := NewFilledDense(t, 3, 2, []float64{1, 2, 3, 4, 5, 6})
	g, err := matrix.Gram(m, []float64{1, 0, 2})
	require.NoError(t, err)
	// rows 0 and 2 only: 1*[1,2]ᵀ[1,2] + 2*[5,6]ᵀ[5,6]
	sliceClose(t, g.RawData(), []float64{51, 62, 62, 76}, 0, 1e-12)

	u, err := matrix.Gram(m, nil)
	require.NoError(t, err)
	sliceClose(t, u.RawData(), []float64{35, 44, 44, 56}, 0, 1e-12)

	_, err = matrix.Gram(m, []float64{1})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestMatVecAndDot(t *testing.T) {
	t.Parallel()

	m := NewFilledDense(t, 2, 2, []float64{2, 0, 1, 3})
	y, err := matrix.MatVec(m, []float64{1, 2})
	require.NoError(t, err)
	sliceClose(t, y, []float64{2, 7}, 0, 0)
	require.Equal(t, 11.0, matrix.Dot([]float64{1, 2, 3}, []float64{3, 4}))
}

func TestEigen_Reconstructs(t *testing.T) {
	t.Parallel()

	a := NewFilledDense(t, 3, 3, []float64{
		4, 1, 0.5,
		1, 3, 0.25,
		0.5, 0.25, 2,
	})
	vals, vecs, err := matrix.Eigen(a, 1e-12, 500)
	require.NoError(t, err)

	// A·q_k == λ_k·q_k for each column.
	n := 3
	for k := 0; k < n; k++ {
		col, err := vecs.Col(k)
		require.NoError(t, err)
		av, err := matrix.MatVec(a, col)
		require.NoError(t, err)
		want := make([]float64, n)
		for i := range want {
			want[i] = vals[k] * col[i]
		}
		sliceClose(t, av, want, 0, 1e-9)
	}

	// Q is orthonormal.
	qtq, err := matrix.Gram(vecs, nil)
	require.NoError(t, err)
	id, _ := matrix.NewIdentity(n)
	ok, err := matrix.AllClose(qtq, id, 0, 1e-10)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEigenSorted_DescendingAndDiagonalInput(t *testing.T) {
	t.Parallel()

	d := NewFilledDense(t, 3, 3, []float64{1, 0, 0, 0, 5, 0, 0, 0, 3})
	vals, vecs, err := matrix.EigenSorted(d, 0, 10)
	require.NoError(t, err)
	sliceClose(t, vals, []float64{5, 3, 1}, 0, 0)
	require.Equal(t, 1.0, math.Abs(MustAt(t, vecs, 1, 0)))
	require.Equal(t, 1.0, math.Abs(MustAt(t, vecs, 2, 1)))

	asym := NewFilledDense(t, 2, 2, []float64{1, 2, 3, 4})
	_, _, err = matrix.Eigen(asym, 1e-9, 10)
	require.ErrorIs(t, err, matrix.ErrAsymmetry)
}

func BenchmarkGram(b *testing.B) {
	m, _ := matrix.NewDense(500, 20)
	for i := 0; i < 500; i++ {
		for j := 0; j < 20; j++ {
			_ = m.Set(i, j, float64((i*31+j*7)%13))
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = matrix.Gram(m, nil)
	}
}
