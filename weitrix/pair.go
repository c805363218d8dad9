// SPDX-License-Identifier: MIT

package weitrix

import (
	"fmt"
	"math"
	"strconv"

	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/table"
)

// Pair is a measurement matrix with an identically shaped weight matrix.
// The zero value is not usable; construct with New.
type Pair struct {
	x    *matrix.Dense // measurements, NaN allowed where w == 0
	w    *matrix.Dense // weights, finite and >= 0
	rows *table.Table
	cols *table.Table
}

// DefaultIDs returns "1".."n".
func DefaultIDs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}

	return out
}

// New builds a Pair from measurements x and weights w.
// Both matrices are copied. Nil identifier slices default to "1".."n".
//
// Errors: ErrShapeMismatch, ErrInvalidWeight, ErrIDCount, ErrDuplicateID.
func New(x, w matrix.Matrix, rowIDs, colIDs []string) (*Pair, error) {
	if err := matrix.ValidateNotNil(x); err != nil {
		return nil, pairErrorf("New", err)
	}
	if err := matrix.ValidateNotNil(w); err != nil {
		return nil, pairErrorf("New", err)
	}
	if x.Rows() != w.Rows() || x.Cols() != w.Cols() {
		return nil, pairErrorf("New", fmt.Errorf("%dx%d vs %dx%d: %w",
			x.Rows(), x.Cols(), w.Rows(), w.Cols(), ErrShapeMismatch))
	}
	if err := matrix.ValidateNonNegative(w); err != nil {
		return nil, pairErrorf("New", fmt.Errorf("%w: %w", ErrInvalidWeight, err))
	}
	xd, err := copyDense(x, matrix.WithNoValidateNaNInf())
	if err != nil {
		return nil, pairErrorf("New", err)
	}
	wd, err := copyDense(w)
	if err != nil {
		return nil, pairErrorf("New", err)
	}
	rows, err := idTable(rowIDs, xd.Rows())
	if err != nil {
		return nil, pairErrorf("New: rows", err)
	}
	cols, err := idTable(colIDs, xd.Cols())
	if err != nil {
		return nil, pairErrorf("New: cols", err)
	}

	return &Pair{x: xd, w: wd, rows: rows, cols: cols}, nil
}

// FromRows is New over nested slices, with default identifiers.
func FromRows(x, w [][]float64) (*Pair, error) {
	xd, err := matrix.NewDenseRows(x, matrix.WithNoValidateNaNInf())
	if err != nil {
		return nil, pairErrorf("FromRows", err)
	}
	wd, err := matrix.NewDenseRows(w, matrix.WithNoValidateNaNInf())
	if err != nil {
		return nil, pairErrorf("FromRows", err)
	}

	return New(xd, wd, nil, nil)
}

func copyDense(m matrix.Matrix, opts ...matrix.Option) (*matrix.Dense, error) {
	out, err := matrix.NewDense(m.Rows(), m.Cols(), opts...)
	if err != nil {
		return nil, err
	}
	buf := out.RawData()
	c := m.Cols()
	var i, j int
	for i = 0; i < m.Rows(); i++ {
		for j = 0; j < c; j++ {
			if buf[i*c+j], err = m.At(i, j); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

func idTable(ids []string, n int) (*table.Table, error) {
	if ids == nil {
		ids = DefaultIDs(n)
	}
	if len(ids) != n {
		return nil, fmt.Errorf("%d ids for %d entries: %w", len(ids), n, ErrIDCount)
	}
	t, err := table.New(ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDuplicateID, err)
	}

	return t, nil
}

// Rows is the number of rows.
func (p *Pair) Rows() int { return p.x.Rows() }

// Cols is the number of columns.
func (p *Pair) Cols() int { return p.x.Cols() }

// X returns a copy of the measurement matrix.
func (p *Pair) X() *matrix.Dense { return p.x.Copy() }

// W returns a copy of the weight matrix.
func (p *Pair) W() *matrix.Dense { return p.w.Copy() }

// XRow returns row i of the measurements without copying. Read only.
func (p *Pair) XRow(i int) []float64 { return p.x.RawRowView(i) }

// WRow returns row i of the weights without copying. Read only.
func (p *Pair) WRow(i int) []float64 { return p.w.RawRowView(i) }

// XAt returns the measurement at (i,j).
func (p *Pair) XAt(i, j int) float64 { return p.x.RawRowView(i)[j] }

// WAt returns the weight at (i,j).
func (p *Pair) WAt(i, j int) float64 { return p.w.RawRowView(i)[j] }

// RowInfo is the row side-table.
func (p *Pair) RowInfo() *table.Table { return p.rows }

// ColInfo is the column side-table.
func (p *Pair) ColInfo() *table.Table { return p.cols }

// RowIDs returns the row identifiers.
func (p *Pair) RowIDs() []string { return p.rows.IDs() }

// ColIDs returns the column identifiers.
func (p *Pair) ColIDs() []string { return p.cols.IDs() }

// NObserved counts cells with positive weight in row i.
func (p *Pair) NObserved(i int) int {
	n := 0
	for _, w := range p.w.RawRowView(i) {
		if w > 0 {
			n++
		}
	}

	return n
}

// TotalWeight returns Σ_j w[i,j] for every row.
func (p *Pair) TotalWeight() []float64 {
	out, _ := matrix.RowSums(p.w)

	return out
}

// CheckObserved returns ErrNonFiniteObserved naming the first observed cell
// whose measurement is NaN or ±Inf.
func (p *Pair) CheckObserved() error {
	c := p.Cols()
	x, w := p.x.RawData(), p.w.RawData()
	for k := range x {
		if w[k] > 0 && (math.IsNaN(x[k]) || math.IsInf(x[k], 0)) {
			return pairErrorf("CheckObserved", fmt.Errorf("row %q col %q: %w",
				p.rows.ID(k/c), p.cols.ID(k%c), ErrNonFiniteObserved))
		}
	}

	return nil
}

// WithWeights returns a Pair sharing measurements and side-tables with p but
// carrying the new weights w.
func (p *Pair) WithWeights(w matrix.Matrix) (*Pair, error) {
	if err := matrix.ValidateNotNil(w); err != nil {
		return nil, pairErrorf("WithWeights", err)
	}
	if w.Rows() != p.Rows() || w.Cols() != p.Cols() {
		return nil, pairErrorf("WithWeights", ErrShapeMismatch)
	}
	if err := matrix.ValidateNonNegative(w); err != nil {
		return nil, pairErrorf("WithWeights", fmt.Errorf("%w: %w", ErrInvalidWeight, err))
	}
	wd, err := copyDense(w)
	if err != nil {
		return nil, pairErrorf("WithWeights", err)
	}

	return &Pair{x: p.x, w: wd, rows: p.rows, cols: p.cols}, nil
}

// WithRowInfo replaces the row side-table. t must carry the same identifiers
// in the same order.
func (p *Pair) WithRowInfo(t *table.Table) (*Pair, error) {
	if err := sameIDs(p.rows, t); err != nil {
		return nil, pairErrorf("WithRowInfo", err)
	}

	return &Pair{x: p.x, w: p.w, rows: t, cols: p.cols}, nil
}

// WithColInfo replaces the column side-table.
func (p *Pair) WithColInfo(t *table.Table) (*Pair, error) {
	if err := sameIDs(p.cols, t); err != nil {
		return nil, pairErrorf("WithColInfo", err)
	}

	return &Pair{x: p.x, w: p.w, rows: p.rows, cols: t}, nil
}

func sameIDs(a, b *table.Table) error {
	if b == nil || a.Len() != b.Len() {
		return ErrIDCount
	}
	for i := 0; i < a.Len(); i++ {
		if a.ID(i) != b.ID(i) {
			return fmt.Errorf("position %d: %q vs %q: %w", i, a.ID(i), b.ID(i), ErrIDMismatch)
		}
	}

	return nil
}

// SliceRows returns rows lo..hi-1 as a Pair. Matrix storage is shared with p.
func (p *Pair) SliceRows(lo, hi int) (*Pair, error) {
	if lo < 0 || hi > p.Rows() || lo > hi {
		return nil, pairErrorf("SliceRows", fmt.Errorf("[%d,%d) of %d: %w", lo, hi, p.Rows(), ErrRowRange))
	}
	x, err := p.x.SliceRows(lo, hi)
	if err != nil {
		return nil, pairErrorf("SliceRows", err)
	}
	w, err := p.w.SliceRows(lo, hi)
	if err != nil {
		return nil, pairErrorf("SliceRows", err)
	}
	rows, err := p.rows.Range(lo, hi)
	if err != nil {
		return nil, pairErrorf("SliceRows", err)
	}

	return &Pair{x: x, w: w, rows: rows, cols: p.cols}, nil
}

// BindRows stacks pairs that share column identifiers. The column side-table
// of the first part is kept.
func BindRows(parts ...*Pair) (*Pair, error) {
	if len(parts) == 0 {
		return nil, pairErrorf("BindRows", ErrIDCount)
	}
	xs := make([]*matrix.Dense, len(parts))
	ws := make([]*matrix.Dense, len(parts))
	ts := make([]*table.Table, len(parts))
	for k, part := range parts {
		if err := sameIDs(parts[0].cols, part.cols); err != nil {
			return nil, pairErrorf("BindRows", err)
		}
		xs[k], ws[k], ts[k] = part.x, part.w, part.rows
	}
	x, err := matrix.StackRows(xs...)
	if err != nil {
		return nil, pairErrorf("BindRows", err)
	}
	w, err := matrix.StackRows(ws...)
	if err != nil {
		return nil, pairErrorf("BindRows", err)
	}
	rows, err := table.Concat(ts...)
	if err != nil {
		return nil, pairErrorf("BindRows", fmt.Errorf("%w: %w", ErrDuplicateID, err))
	}

	return &Pair{x: x, w: w, rows: rows, cols: parts[0].cols}, nil
}
