// SPDX-License-Identifier: MIT

package tsv_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/weitrix/internal/tsv"
	"github.com/katalvlaran/weitrix/table"
	"github.com/katalvlaran/weitrix/weitrix"
)

const matrixText = "gene\ts1\ts2\ts3\n" +
	"g1\t1.5\tNA\t3\n" +
	"g2\t-2\t0\t\n"

func TestReadMatrix(t *testing.T) {
	m, err := tsv.ReadMatrix(strings.NewReader(matrixText))
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, m.RowIDs)
	assert.Equal(t, []string{"s1", "s2", "s3"}, m.ColIDs)

	data := m.Data.RawData()
	assert.Equal(t, 1.5, data[0])
	assert.True(t, math.IsNaN(data[1]))
	assert.Equal(t, -2.0, data[3])
	assert.True(t, math.IsNaN(data[5]))
}

func TestReadMatrixErrors(t *testing.T) {
	cases := map[string]string{
		"empty":  "",
		"ragged": "id\ta\tb\nr1\t1\n",
		"text":   "id\ta\nr1\tlots\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tsv.ReadMatrix(strings.NewReader(src))
			assert.ErrorIs(t, err, tsv.ErrFormat)
		})
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	m, err := tsv.ReadMatrix(strings.NewReader(matrixText))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tsv.WriteMatrix(&buf, "gene", m.Data, m.RowIDs, m.ColIDs))
	assert.Equal(t, "gene\ts1\ts2\ts3\ng1\t1.5\tNA\t3\ng2\t-2\t0\tNA\n", buf.String())

	err = tsv.WriteMatrix(&buf, "gene", m.Data, m.RowIDs[:1], m.ColIDs)
	assert.ErrorIs(t, err, tsv.ErrIDMismatch)
}

func TestReadTableKinds(t *testing.T) {
	src := "sample\tdepth\tbatch\tlane\n" +
		"s1\t10\tA\t1\n" +
		"s2\tNA\tB\t2\n" +
		"s3\t2.5e3\tA\tx\n"
	tab, err := tsv.ReadTable(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"depth", "batch", "lane"}, tab.Names())

	kind, err := tab.Kind("depth")
	require.NoError(t, err)
	assert.Equal(t, table.Float, kind)
	depth, err := tab.Float("depth")
	require.NoError(t, err)
	assert.Equal(t, 2500.0, depth[2])
	assert.True(t, math.IsNaN(depth[1]))

	for _, name := range []string{"batch", "lane"} {
		kind, err = tab.Kind(name)
		require.NoError(t, err)
		assert.Equal(t, table.Factor, kind, name)
	}

	var buf bytes.Buffer
	require.NoError(t, tsv.WriteTable(&buf, "sample", tab))
	assert.Equal(t, "sample\tdepth\tbatch\tlane\ns1\t10\tA\t1\ns2\tNA\tB\t2\ns3\t2500\tA\tx\n", buf.String())

	_, err = tsv.ReadTable(strings.NewReader("id\tv\na\t1\na\t2\n"))
	assert.ErrorIs(t, err, table.ErrDuplicateKey)
}

func write(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))

	return path
}

func TestReadPairDefaultWeights(t *testing.T) {
	dir := t.TempDir()
	p, err := tsv.ReadPair(tsv.PairFiles{X: write(t, dir, "x.tsv", matrixText)})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1, 1, 1, 0}, p.W().RawData())
	assert.Equal(t, []string{"g1", "g2"}, p.RowIDs())
}

func TestReadPairSideTables(t *testing.T) {
	dir := t.TempDir()
	files := tsv.PairFiles{
		X:       write(t, dir, "x.tsv", matrixText),
		W:       write(t, dir, "w.tsv", "gene\ts1\ts2\ts3\ng1\t2\t0\t1\ng2\t1\t1\t0\n"),
		RowInfo: write(t, dir, "rows.tsv", "gene\tlength\ng2\t300\ng1\t120\ng9\t1\n"),
		ColInfo: write(t, dir, "cols.tsv", "sample\tgroup\ns3\tb\ns1\ta\ns2\ta\n"),
	}
	p, err := tsv.ReadPair(files)
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.WAt(0, 0))

	length, err := p.RowInfo().Float("length")
	require.NoError(t, err)
	assert.Equal(t, []float64{120, 300}, length)
	group, err := p.ColInfo().Factor("group")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "b"}, group)

	files.ColInfo = write(t, dir, "short.tsv", "sample\tgroup\ns1\ta\n")
	_, err = tsv.ReadPair(files)
	assert.ErrorIs(t, err, tsv.ErrIDMismatch)

	files.ColInfo = ""
	files.W = write(t, dir, "w2.tsv", "gene\ts1\ts2\ts3\ng1\t1\t1\t1\ng2\t1\t1\t1\n")
	_, err = tsv.ReadPair(files)
	assert.ErrorIs(t, err, weitrix.ErrNonFiniteObserved)

	files.W = write(t, dir, "w3.tsv", "gene\ts1\ts3\ts2\ng1\t1\t1\t1\ng2\t1\t1\t1\n")
	_, err = tsv.ReadPair(files)
	assert.ErrorIs(t, err, tsv.ErrIDMismatch)
}

func TestWritePairRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := tsv.ReadPair(tsv.PairFiles{
		X:       write(t, dir, "x.tsv", matrixText),
		ColInfo: write(t, dir, "cols.tsv", "sample\tdose\ns1\t1\ns2\t2\ns3\t4\n"),
	})
	require.NoError(t, err)

	prefix := filepath.Join(dir, "out_")
	require.NoError(t, tsv.WritePair(prefix, p))

	back, err := tsv.ReadPair(tsv.PairFiles{
		X:       prefix + "x.tsv",
		W:       prefix + "w.tsv",
		RowInfo: prefix + "rows.tsv",
		ColInfo: prefix + "cols.tsv",
	})
	require.NoError(t, err)
	assert.Equal(t, p.W().RawData(), back.W().RawData())
	assert.Equal(t, p.ColInfo().Names(), back.ColInfo().Names())
	assert.Empty(t, back.RowInfo().Names())
}
