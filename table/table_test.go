// SPDX-License-Identifier: MIT

package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/table"
)

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := table.New([]string{"a", "b", "a"})
	require.ErrorIs(t, err, table.ErrDuplicateKey)

	tb, err := table.New([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Len())
	i, ok := tb.Index("b")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestWithFloat_ValueSemantics(t *testing.T) {
	base, err := table.New([]string{"r1", "r2"})
	require.NoError(t, err)

	v := []float64{1, 2}
	t1, err := base.WithFloat("depth", v)
	require.NoError(t, err)
	v[0] = 99

	got, err := t1.Float("depth")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)
	assert.False(t, base.Has("depth"), "receiver must not change")

	got[1] = -1
	again, _ := t1.Float("depth")
	assert.Equal(t, 2.0, again[1], "accessor returns a copy")

	t2, err := t1.WithFloat("depth", []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"depth"}, t2.Names(), "replacement keeps a single column")
	old, _ := t1.Float("depth")
	assert.Equal(t, []float64{1, 2}, old)

	_, err = t1.WithFloat("x", []float64{1})
	require.ErrorIs(t, err, table.ErrLength)
}

func TestFactorAndKinds(t *testing.T) {
	tb, _ := table.New([]string{"s1", "s2", "s3"})
	tb, err := tb.WithFactor("group", []string{"b", "a", "b"})
	require.NoError(t, err)

	lv, err := tb.Levels("group")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lv)

	_, err = tb.Float("group")
	require.ErrorIs(t, err, table.ErrKind)
	_, err = tb.Factor("nope")
	require.ErrorIs(t, err, table.ErrUnknownColumn)

	k, err := tb.Kind("group")
	require.NoError(t, err)
	assert.Equal(t, "factor", k.String())
}

func TestSubsetConcatRoundTrip(t *testing.T) {
	tb, _ := table.New([]string{"a", "b", "c", "d"})
	tb, _ = tb.WithFloat("x", []float64{1, 2, 3, 4})
	tb, _ = tb.WithFactor("g", []string{"u", "v", "u", "v"})

	lo, err := tb.Range(0, 1)
	require.NoError(t, err)
	hi, err := tb.Range(1, 4)
	require.NoError(t, err)
	back, err := table.Concat(lo, hi)
	require.NoError(t, err)

	assert.Equal(t, tb.IDs(), back.IDs())
	x, _ := back.Float("x")
	assert.Equal(t, []float64{1, 2, 3, 4}, x)
	g, _ := back.Factor("g")
	assert.Equal(t, []string{"u", "v", "u", "v"}, g)

	_, err = table.Concat(lo, lo)
	require.ErrorIs(t, err, table.ErrDuplicateKey)

	sub, err := tb.Subset([]int{3, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b"}, sub.IDs())

	assert.False(t, tb.Without("x").Has("x"))
	assert.True(t, tb.Has("x"))
}
