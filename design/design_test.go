// SPDX-License-Identifier: MIT

package design_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/design"
	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/table"
)

func mustTable(t *testing.T, ids []string, floats map[string][]float64, factors map[string][]string) *table.Table {
	t.Helper()
	tb, err := table.New(ids)
	require.NoError(t, err)
	for name, v := range floats {
		tb, err = tb.WithFloat(name, v)
		require.NoError(t, err)
	}
	for name, v := range factors {
		tb, err = tb.WithFactor(name, v)
		require.NoError(t, err)
	}

	return tb
}

func column(t *testing.T, m *matrix.Dense, j int) []float64 {
	t.Helper()
	out := make([]float64, m.Rows())
	for i := range out {
		v, err := m.At(i, j)
		require.NoError(t, err)
		out[i] = v
	}

	return out
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}

	return out
}

func TestParse(t *testing.T) {
	cases := []struct {
		src       string
		intercept bool
		terms     int
		offsets   int
		canonical string
	}{
		{"", true, 0, 0, "~ 1"},
		{"~ 1", true, 0, 0, "~ 1"},
		{"~ 0", false, 0, 0, "~ 0"},
		{"x", true, 1, 0, "~ 1 + x"},
		{"~ x - 1", false, 1, 0, "~ 0 + x"},
		{"-1 + x", false, 1, 0, "~ 0 + x"},
		{"~ 0 + group + log(dose)", false, 2, 0, "~ 0 + group + log(dose)"},
		{"~ spline(time, 3) + poly(sqrt(n),2)", true, 2, 0, "~ 1 + spline(time,3) + poly(sqrt(n),2)"},
		{"~ factor(batch) + offset(log(size))", true, 1, 1, "~ 1 + factor(batch) + offset(log(size))"},
		{"~ log(-x) + 2.5e-1", true, 0, 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			f, err := design.Parse(tc.src)
			if tc.canonical == "" {
				require.ErrorIs(t, err, design.ErrSyntax)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.intercept, f.Intercept)
			assert.Len(t, f.Terms, tc.terms)
			assert.Len(t, f.Offsets, tc.offsets)
			assert.Equal(t, tc.canonical, f.String())

			again, err := design.Parse(f.String())
			require.NoError(t, err)
			assert.Equal(t, f.String(), again.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"~ x +",
		"~ x $ y",
		"~ foo(x)",
		"~ spline(x, 0)",
		"~ spline(x)",
		"~ poly(x, 1.5)",
		"~ -x",
		"~ 2",
		"~ factor(log(x))",
		"~ log(spline(x, 2))",
		"~ (x)",
		"~ x y",
	} {
		_, err := design.Parse(src)
		assert.ErrorIs(t, err, design.ErrSyntax, src)
	}
	assert.Panics(t, func() { design.MustParse("~ +") })
}

func TestFormulaNames(t *testing.T) {
	f := design.MustParse("~ log(dose) + spline(time, 2) + group + offset(sqrt(size))")
	assert.Equal(t, []string{"dose", "time", "group", "size"}, f.Names())
}

func TestFactorCoding(t *testing.T) {
	cols := mustTable(t, ids(4), nil, map[string][]string{"group": {"ctl", "trt", "ctl", "alt"}})
	fr, err := design.ColumnFrame(cols)
	require.NoError(t, err)

	b, err := design.Bind(design.MustParse("~ group"), fr)
	require.NoError(t, err)
	// Sorted levels: alt is the baseline.
	assert.Equal(t, []string{"(Intercept)", "groupctl", "grouptrt"}, b.Names())
	m, off, err := b.Matrix(fr)
	require.NoError(t, err)
	assert.Nil(t, off)
	assert.Equal(t, []float64{1, 1, 1, 1}, column(t, m, 0))
	assert.Equal(t, []float64{1, 0, 1, 0}, column(t, m, 1))
	assert.Equal(t, []float64{0, 1, 0, 0}, column(t, m, 2))

	b, err = design.Bind(design.MustParse("~ 0 + group"), fr)
	require.NoError(t, err)
	assert.Equal(t, []string{"groupalt", "groupctl", "grouptrt"}, b.Names())
	m, _, err = b.Matrix(fr)
	require.NoError(t, err)
	for i := 0; i < m.Rows(); i++ {
		row, _ := m.Row(i)
		assert.Equal(t, 1.0, row[0]+row[1]+row[2], "row %d", i)
	}
}

func TestFactorOfNumeric(t *testing.T) {
	cols := mustTable(t, ids(4), map[string][]float64{"dose": {0, 10, 0, 2.5}}, nil)
	fr, err := design.ColumnFrame(cols)
	require.NoError(t, err)

	b, err := design.Bind(design.MustParse("~ factor(dose)"), fr)
	require.NoError(t, err)
	assert.Equal(t, "(Intercept)", b.Names()[0])
	assert.Equal(t, 3, b.Width())

	b, err = design.Bind(design.MustParse("~ dose"), fr)
	require.NoError(t, err)
	assert.Equal(t, []string{"(Intercept)", "dose"}, b.Names())
}

func TestNumericTransforms(t *testing.T) {
	cols := mustTable(t, ids(3), map[string][]float64{"dose": {1, math.E, 4}}, nil)
	fr, err := design.ColumnFrame(cols)
	require.NoError(t, err)

	b, err := design.Bind(design.MustParse("~ 0 + log(dose) + sqrt(dose) + sqrt(log(dose))"), fr)
	require.NoError(t, err)
	m, _, err := b.Matrix(fr)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, math.Log(4)}, column(t, m, 0), 1e-12)
	assert.InDeltaSlice(t, []float64{1, math.Sqrt(math.E), 2}, column(t, m, 1), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 1, math.Sqrt(math.Log(4))}, column(t, m, 2), 1e-12)
}

func TestPoly(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	cols := mustTable(t, ids(5), map[string][]float64{"x": x}, nil)
	fr, err := design.ColumnFrame(cols)
	require.NoError(t, err)

	b, err := design.Bind(design.MustParse("~ poly(x, 2)"), fr)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Width())
	m, _, err := b.Matrix(fr)
	require.NoError(t, err)

	sd := math.Sqrt(2.5)
	for i, v := range x {
		z := (v - 3) / sd
		row, _ := m.Row(i)
		assert.InDelta(t, z, row[1], 1e-12)
		assert.InDelta(t, z*z, row[2], 1e-12)
	}
}

func TestSpline(t *testing.T) {
	x := make([]float64, 40)
	for i := range x {
		x[i] = float64(i) / 4
	}
	fr := design.NewFrame(design.Row, len(x))
	require.NoError(t, fr.AddFloat("t", x))

	b, err := design.Bind(design.MustParse("~ spline(t, 4)"), fr)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Width())
	m, _, err := b.Matrix(fr)
	require.NoError(t, err)
	for j := 1; j < b.Width(); j++ {
		c := column(t, m, j)
		for _, v := range c {
			assert.False(t, math.IsNaN(v))
		}
	}

	// Beyond both boundary knots every basis column is linear.
	for _, probe := range [][]float64{{12, 15, 18}, {-9, -6, -3}} {
		nf := design.NewFrame(design.Row, 3)
		require.NoError(t, nf.AddFloat("t", probe))
		pm, _, err := b.Matrix(nf)
		require.NoError(t, err)
		for j := 0; j < b.Width(); j++ {
			c := column(t, pm, j)
			assert.InDelta(t, 0, c[0]-2*c[1]+c[2], 1e-9, "column %d at %v", j, probe)
		}
	}
}

func TestSplineTiedKnotsMerge(t *testing.T) {
	fr := design.NewFrame(design.Row, 10)
	require.NoError(t, fr.AddFloat("t", []float64{0, 0, 0, 0, 0, 0, 0, 0, 1, 2}))

	b, err := design.Bind(design.MustParse("~ spline(t, 3)"), fr)
	require.NoError(t, err)
	assert.Less(t, b.Width(), 4)

	fr = design.NewFrame(design.Row, 3)
	require.NoError(t, fr.AddFloat("t", []float64{5, 5, 5}))
	_, err = design.Bind(design.MustParse("~ spline(t, 3)"), fr)
	assert.ErrorIs(t, err, design.ErrBadArgument)
}

func TestOffset(t *testing.T) {
	rows := mustTable(t, ids(3), map[string][]float64{"size": {1, 10, 100}}, nil)
	fr, err := design.RowFrame(rows, map[string][]float64{design.NameMu: {1, 2, 3}})
	require.NoError(t, err)

	b, err := design.Bind(design.MustParse("~ log(mu) + offset(log(size)) + offset(1)"), fr)
	require.NoError(t, err)
	assert.True(t, b.HasOffset())
	assert.Equal(t, 2, b.Width())
	_, off, err := b.Matrix(fr)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1 + math.Log(10), 1 + math.Log(100)}, off, 1e-12)
}

func TestResolutionErrors(t *testing.T) {
	rows := mustTable(t, ids(3), map[string][]float64{"batch": {1, 2, 3}, "zero": {0, 1, 2}}, map[string][]string{"kind": {"p", "q", "p"}})
	cols := mustTable(t, []string{"s1", "s2"}, map[string][]float64{"batch": {1, 2}}, nil)

	rowFrame, err := design.RowFrame(rows, map[string][]float64{
		design.NameMu:          {1, 2, 3},
		design.NameTotalWeight: {4, 5, 6},
	})
	require.NoError(t, err)

	cases := []struct {
		name    string
		formula string
		want    error
	}{
		{"unknown", "~ nope", design.ErrUnknownCovariate},
		{"weight at row level", "~ log(weight)", design.ErrUnavailableAtLevel},
		{"col at row level", "~ col", design.ErrUnavailableAtLevel},
		{"log of zero", "~ log(zero)", design.ErrNonFinite},
		{"sqrt of negative", "~ sqrt(-batch)", design.ErrNonFinite},
		{"numeric use of factor", "~ log(kind)", design.ErrBadArgument},
		{"bad offset", "~ offset(log(zero))", design.ErrNonFinite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := design.Bind(design.MustParse(tc.formula), rowFrame)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err = design.Bind(design.MustParse("~ log(mu) + total_weight"), rowFrame)
	assert.NoError(t, err)

	colFrame, err := design.ColumnFrame(cols)
	require.NoError(t, err)
	_, err = design.Bind(design.MustParse("~ mu"), colFrame)
	assert.ErrorIs(t, err, design.ErrUnavailableAtLevel)

	cellFrame, err := design.CellFrame(rows, cols, []int{0, 1, 2}, []int{0, 1, 1}, map[string][]float64{
		design.NameWeight: {1, 1, 1},
		design.NameMu:     {1, 2, 3},
	})
	require.NoError(t, err)
	_, err = design.Bind(design.MustParse("~ batch"), cellFrame)
	assert.ErrorIs(t, err, design.ErrAmbiguousCovariate)
	_, err = design.Bind(design.MustParse("~ factor(batch)"), cellFrame)
	assert.ErrorIs(t, err, design.ErrAmbiguousCovariate)
	_, err = design.Bind(design.MustParse("~ log(weight) + kind"), cellFrame)
	assert.NoError(t, err)
}

func TestCellFrameIdentityFactors(t *testing.T) {
	rows := mustTable(t, []string{"g1", "g2"}, nil, nil)
	cols := mustTable(t, []string{"s1", "s2", "s3"}, map[string][]float64{"depth": {10, 20, 30}}, nil)
	ri := []int{0, 0, 1, 1}
	cj := []int{0, 2, 1, 2}
	fr, err := design.CellFrame(rows, cols, ri, cj, map[string][]float64{design.NameWeight: {1, 2, 3, 4}})
	require.NoError(t, err)
	assert.Equal(t, design.Cell, fr.Level())
	assert.Equal(t, 4, fr.Len())

	b, err := design.Bind(design.MustParse("~ 0 + row + depth + weight"), fr)
	require.NoError(t, err)
	assert.Equal(t, []string{"rowg1", "rowg2", "depth", "weight"}, b.Names())
	m, _, err := b.Matrix(fr)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0, 0}, column(t, m, 0))
	assert.Equal(t, []float64{10, 30, 20, 30}, column(t, m, 2))
	assert.Equal(t, []float64{1, 2, 3, 4}, column(t, m, 3))

	_, err = design.CellFrame(rows, cols, []int{0}, []int{0, 1}, nil)
	assert.ErrorIs(t, err, design.ErrBadArgument)
}

func TestCellFrameWithoutEntries(t *testing.T) {
	rows := mustTable(t, []string{"g1", "g2"}, map[string][]float64{"length": {100, 250}}, nil)
	cols := mustTable(t, []string{"s1", "s2", "s3"},
		map[string][]float64{"depth": {10, 20, 30}},
		map[string][]string{"group": {"a", "b", "a"}})
	fr, err := design.CellFrame(rows, cols, nil, nil, map[string][]float64{design.NameWeight: {}})
	require.NoError(t, err)
	assert.Equal(t, 0, fr.Len())

	assert.NoError(t, design.Check(design.MustParse("~ log(length) + group + depth + col + weight"), fr))
	assert.ErrorIs(t, design.Check(design.MustParse("~ batch"), fr), design.ErrUnknownCovariate)
}

func TestBoundOnNewFrame(t *testing.T) {
	train := mustTable(t, ids(4), map[string][]float64{"x": {0, 1, 2, 3}}, map[string][]string{"g": {"a", "b", "a", "b"}})
	fr, err := design.ColumnFrame(train)
	require.NoError(t, err)
	b, err := design.Bind(design.MustParse("~ g + poly(x, 1)"), fr)
	require.NoError(t, err)

	fresh := mustTable(t, []string{"n1", "n2"}, map[string][]float64{"x": {1.5, 10}}, map[string][]string{"g": {"b", "b"}})
	nf, err := design.ColumnFrame(fresh)
	require.NoError(t, err)
	m, _, err := b.Matrix(nf)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, column(t, m, 1))
	// Scaling is frozen from the binding data, not recomputed.
	sd := math.Sqrt(5.0 / 3.0)
	assert.InDeltaSlice(t, []float64{0, (10 - 1.5) / sd}, column(t, m, 2), 1e-12)

	unseen := mustTable(t, []string{"n3"}, map[string][]float64{"x": {1}}, map[string][]string{"g": {"c"}})
	nf, err = design.ColumnFrame(unseen)
	require.NoError(t, err)
	_, _, err = b.Matrix(nf)
	assert.ErrorIs(t, err, design.ErrBadArgument)

	rowFrame := design.NewFrame(design.Row, 2)
	_, _, err = b.Matrix(rowFrame)
	assert.ErrorIs(t, err, design.ErrUnavailableAtLevel)
}

func TestFrameLengthChecks(t *testing.T) {
	fr := design.NewFrame(design.Column, 3)
	assert.ErrorIs(t, fr.AddFloat("x", []float64{1}), design.ErrBadArgument)
	assert.ErrorIs(t, fr.AddFactor("g", []string{"a"}), design.ErrBadArgument)
	require.NoError(t, fr.AddFactor("x", []string{"a", "b", "c"}))
	require.NoError(t, fr.AddFloat("x", []float64{1, 2, 3}))

	b, err := design.Bind(design.MustParse("~ x"), fr)
	require.NoError(t, err)
	assert.Equal(t, []string{"(Intercept)", "x"}, b.Names())
	assert.Equal(t, "column", design.Column.String())
	assert.Equal(t, "cell", design.Cell.String())
}

func TestCheck(t *testing.T) {
	rows := mustTable(t, ids(2), map[string][]float64{"depth": {1, 2}}, nil)
	fr, err := design.RowFrame(rows, map[string][]float64{design.NameTotalWeight: {0, 3}})
	require.NoError(t, err)

	// total_weight holds a zero, but Check does not evaluate log.
	assert.NoError(t, design.Check(design.MustParse("~ log(total_weight) + depth"), fr))
	assert.ErrorIs(t, design.Check(design.MustParse("~ depth + offset(size)"), fr), design.ErrUnknownCovariate)
	assert.ErrorIs(t, design.Check(design.MustParse("~ row"), fr), design.ErrUnavailableAtLevel)
}
