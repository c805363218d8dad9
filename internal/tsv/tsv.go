// SPDX-License-Identifier: MIT

// Package tsv reads and writes labelled matrices and side-tables as
// tab-separated text.
//
// A matrix file has a header line whose first cell is a free label and whose
// remaining cells are column identifiers; every following line starts with a
// row identifier. "NA" and empty cells read as NaN, and NaN is written as NA.
// Tables use the same layout with covariate names in the header.
package tsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/table"
)

// NA is the text of a missing value.
const NA = "NA"

var (
	// ErrFormat indicates a malformed file.
	ErrFormat = errors.New("tsv: malformed input")

	// ErrIDMismatch indicates two files disagree on identifiers.
	ErrIDMismatch = errors.New("tsv: identifiers do not match")
)

// Labeled is a matrix with its row and column identifiers.
type Labeled struct {
	Data   *matrix.Dense
	RowIDs []string
	ColIDs []string
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	return cr
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	return cw
}

// records reads the header and body, enforcing a rectangular layout.
func records(r io.Reader) (header []string, body [][]string, err error) {
	all, err := newReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%w: missing header", ErrFormat)
	}

	return all[0], all[1:], nil
}

// ParseValue parses one cell. NA and the empty string are NaN.
func ParseValue(s string) (float64, error) {
	if s == NA || s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrFormat, s)
	}

	return v, nil
}

// FormatValue renders v in the shortest exact form, NaN as NA.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return NA
	}

	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadMatrix reads a labelled numeric matrix.
func ReadMatrix(r io.Reader) (*Labeled, error) {
	header, body, err := records(r)
	if err != nil {
		return nil, fmt.Errorf("tsv.ReadMatrix: %w", err)
	}
	cols := len(header) - 1
	out := &Labeled{
		RowIDs: make([]string, len(body)),
		ColIDs: append([]string(nil), header[1:]...),
	}
	data := make([]float64, 0, len(body)*cols)
	for i, rec := range body {
		out.RowIDs[i] = rec[0]
		for j, cell := range rec[1:] {
			v, err := ParseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("tsv.ReadMatrix: row %q column %d: %w", rec[0], j+1, err)
			}
			data = append(data, v)
		}
	}
	if out.Data, err = matrix.NewDenseFrom(len(body), cols, data, matrix.WithNoValidateNaNInf()); err != nil {
		return nil, fmt.Errorf("tsv.ReadMatrix: %w", err)
	}

	return out, nil
}

// WriteMatrix writes m with corner as the first header cell.
func WriteMatrix(w io.Writer, corner string, m *matrix.Dense, rowIDs, colIDs []string) error {
	if len(rowIDs) != m.Rows() || len(colIDs) != m.Cols() {
		return fmt.Errorf("tsv.WriteMatrix: %d×%d labels for %d×%d matrix: %w",
			len(rowIDs), len(colIDs), m.Rows(), m.Cols(), ErrIDMismatch)
	}
	cw := newWriter(w)
	rec := make([]string, m.Cols()+1)
	rec[0] = corner
	copy(rec[1:], colIDs)
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("tsv.WriteMatrix: %w", err)
	}
	for i := 0; i < m.Rows(); i++ {
		rec[0] = rowIDs[i]
		for j, v := range m.RawRowView(i) {
			rec[j+1] = FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("tsv.WriteMatrix: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("tsv.WriteMatrix: %w", err)
	}

	return nil
}

// ReadTable reads a side-table. A column whose cells all parse as numbers
// (or NA) becomes Float; any other column is a Factor.
func ReadTable(r io.Reader) (*table.Table, error) {
	header, body, err := records(r)
	if err != nil {
		return nil, fmt.Errorf("tsv.ReadTable: %w", err)
	}
	ids := make([]string, len(body))
	for i, rec := range body {
		ids[i] = rec[0]
	}
	t, err := table.New(ids)
	if err != nil {
		return nil, fmt.Errorf("tsv.ReadTable: %w", err)
	}
	for j, name := range header[1:] {
		cells := make([]string, len(body))
		for i, rec := range body {
			cells[i] = rec[j+1]
		}
		if floats, ok := numeric(cells); ok {
			t, err = t.WithFloat(name, floats)
		} else {
			t, err = t.WithFactor(name, cells)
		}
		if err != nil {
			return nil, fmt.Errorf("tsv.ReadTable: %w", err)
		}
	}

	return t, nil
}

func numeric(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, s := range cells {
		v, err := ParseValue(s)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}

	return out, true
}

// WriteTable writes every column of t.
func WriteTable(w io.Writer, corner string, t *table.Table) error {
	names := t.Names()
	cols := make([][]string, len(names))
	for k, name := range names {
		kind, err := t.Kind(name)
		if err != nil {
			return fmt.Errorf("tsv.WriteTable: %w", err)
		}
		if kind == table.Factor {
			if cols[k], err = t.Factor(name); err != nil {
				return fmt.Errorf("tsv.WriteTable: %w", err)
			}
			continue
		}
		floats, err := t.Float(name)
		if err != nil {
			return fmt.Errorf("tsv.WriteTable: %w", err)
		}
		cols[k] = make([]string, len(floats))
		for i, v := range floats {
			cols[k][i] = FormatValue(v)
		}
	}

	cw := newWriter(w)
	rec := append([]string{corner}, names...)
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("tsv.WriteTable: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		rec[0] = t.ID(i)
		for k := range cols {
			rec[k+1] = cols[k][i]
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("tsv.WriteTable: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("tsv.WriteTable: %w", err)
	}

	return nil
}

// Reorder returns t restricted and ordered to ids. Every id must be present.
func Reorder(t *table.Table, ids []string) (*table.Table, error) {
	idx := make([]int, len(ids))
	for k, id := range ids {
		i, ok := t.Index(id)
		if !ok {
			return nil, fmt.Errorf("tsv.Reorder: %q missing: %w", id, ErrIDMismatch)
		}
		idx[k] = i
	}
	out, err := t.Subset(idx)
	if err != nil {
		return nil, fmt.Errorf("tsv.Reorder: %w", err)
	}

	return out, nil
}

// ReadFile opens path and hands it to read.
func ReadFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}

	return v, nil
}

// WriteFile creates path and hands it to write. Close errors are reported.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err = write(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}
