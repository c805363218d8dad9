// SPDX-License-Identifier: MIT

// Package matrix - Dense storage (row-major) & safe accessors.
//
// Purpose:
//   - Provide a cache-friendly row-major buffer with the explicit index formula i*cols + j.
//   - Guarantee safety at the public surface: At/Set return errors instead of panicking.
//   - Keep algorithmic determinism (fixed loop orders, no map iteration).
//   - Support zero-copy row windows (SliceRows) for row-block partitioning.
//   - Enforce a numeric policy (optional rejection of NaN/Inf) per matrix.
//
// Complexity quicksheet:
//   - NewDense: O(r*c) zero-init; At/Set: O(1); Clone: O(r*c); SliceRows: O(1).

package matrix

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ---------- error context tags ----------

const (
	ctxAt        = "At"
	ctxSet       = "Set"
	ctxNewFrom   = "NewDenseFrom"
	ctxRow       = "Row"
	ctxCol       = "Col"
	ctxSliceRows = "SliceRows"
	ctxSliceCols = "SliceCols"
	ctxStack     = "StackRows"
	ctxApply     = "Apply"
)

// ---------- Formatting literals ----------
const (
	_fmtRowOpen  = "["
	_fmtRowClose = "]\n"
	_fmtSep      = ", "
)

// denseErrorf wraps an error with a uniform Dense context and callsite indices.
// Stable, human-friendly messages; preserves the sentinel via %w.
func denseErrorf(method string, row, col int, err error) error {
	return fmt.Errorf("Dense.%s(%d,%d): %w", method, row, col, err)
}

// Dense is a concrete row-major matrix.
//   - r,c hold dimensions (rows, cols); either may be zero.
//   - data is a flat buffer of length r*c in row-major order (offset = i*c + j).
//   - validateNaNInf enables NaN/Inf rejection in Set (policy from options.go).
type Dense struct {
	r, c           int       // row and column counts (>= 0)
	data           []float64 // contiguous row-major storage (len == r*c)
	validateNaNInf bool      // numeric guard: reject NaN/Inf in Set when true
}

// Compile-time assertions for interface & fmt.Stringer conformance.
var (
	_ Matrix       = (*Dense)(nil)
	_ fmt.Stringer = (*Dense)(nil)
)

// NewDense creates an r×c zero matrix using row-major storage.
// Implementation:
//   - Stage 1: validate rows>=0 && cols>=0; else ErrInvalidDimensions.
//   - Stage 2: allocate zero-filled buffer and resolve the numeric policy.
//
// Behavior highlights:
//   - Zero-sized shapes are legal: a design with no columns is an n×0 matrix.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func NewDense(rows, cols int, opts ...Option) (*Dense, error) {
	if rows < 0 || cols < 0 {
		return nil, ErrInvalidDimensions
	}
	o := gatherOptions(opts...)

	return &Dense{
		r:              rows,
		c:              cols,
		data:           make([]float64, rows*cols), // make() zero-fills deterministically
		validateNaNInf: o.validateNaNInf,
	}, nil
}

// NewDenseFrom creates an r×c matrix holding a copy of data (row-major).
// Implementation:
//   - Stage 1: validate shape and len(data) == rows*cols.
//   - Stage 2: under the finite policy, reject the first NaN/Inf with coordinates.
//   - Stage 3: copy data so the caller keeps ownership of its slice.
//
// Errors:
//   - ErrInvalidDimensions, ErrNaNInf (wrapped with coordinates).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func NewDenseFrom(rows, cols int, data []float64, opts ...Option) (*Dense, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, denseErrorf(ctxNewFrom, rows, cols, ErrInvalidDimensions)
	}
	o := gatherOptions(opts...)
	if o.validateNaNInf {
		for k, v := range data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, denseErrorf(ctxNewFrom, k/cols, k%cols, ErrNaNInf)
			}
		}
	}
	buf := make([]float64, len(data))
	copy(buf, data)

	return &Dense{r: rows, c: cols, data: buf, validateNaNInf: o.validateNaNInf}, nil
}

// NewDenseRows builds a matrix from a slice of equal-length rows.
// An empty slice yields a 0×0 matrix.
func NewDenseRows(rows [][]float64, opts ...Option) (*Dense, error) {
	if len(rows) == 0 {
		return NewDense(0, 0, opts...)
	}
	c := len(rows[0])
	flat := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, denseErrorf(ctxNewFrom, i, len(row), ErrDimensionMismatch)
		}
		flat = append(flat, row...)
	}

	return NewDenseFrom(len(rows), c, flat, opts...)
}

// FromGonum copies any gonum matrix into a new Dense.
// Complexity: O(r*c).
func FromGonum(m mat.Matrix, opts ...Option) (*Dense, error) {
	r, c := m.Dims()
	data := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = m.At(i, j)
		}
	}

	return NewDenseFrom(r, c, data, opts...)
}

// Rows returns the row count.
func (m *Dense) Rows() int { return m.r }

// Cols returns the column count.
func (m *Dense) Cols() int { return m.c }

// indexOf computes the row-major offset or returns ErrOutOfRange wrapped with
// the caller's method context.
func (m *Dense) indexOf(method string, row, col int) (int, error) {
	if row < 0 || row >= m.r || col < 0 || col >= m.c {
		return 0, denseErrorf(method, row, col, ErrOutOfRange)
	}

	return row*m.c + col, nil
}

// At returns the value at (row, col) or ErrOutOfRange.
// Complexity: O(1).
func (m *Dense) At(row, col int) (float64, error) {
	idx, err := m.indexOf(ctxAt, row, col)
	if err != nil {
		return 0, err
	}

	return m.data[idx], nil
}

// Set assigns v at (row, col).
// Errors: ErrOutOfRange; ErrNaNInf when the finite policy is enabled.
// Complexity: O(1).
func (m *Dense) Set(row, col int, v float64) error {
	idx, err := m.indexOf(ctxSet, row, col)
	if err != nil {
		return err
	}
	if m.validateNaNInf && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return denseErrorf(ctxSet, row, col, ErrNaNInf)
	}
	m.data[idx] = v

	return nil
}

// Clone returns a deep copy with the same numeric policy.
// Complexity: O(r*c).
func (m *Dense) Clone() Matrix {
	return m.Copy()
}

// Copy is Clone with the concrete return type.
func (m *Dense) Copy() *Dense {
	buf := make([]float64, len(m.data))
	copy(buf, m.data)

	return &Dense{r: m.r, c: m.c, data: buf, validateNaNInf: m.validateNaNInf}
}

// Row returns a copy of row i.
func (m *Dense) Row(i int) ([]float64, error) {
	if i < 0 || i >= m.r {
		return nil, denseErrorf(ctxRow, i, 0, ErrOutOfRange)
	}
	out := make([]float64, m.c)
	copy(out, m.data[i*m.c:(i+1)*m.c])

	return out, nil
}

// RawRowView returns row i as a slice aliasing the backing buffer.
// Callers must treat the slice as read-only unless they own the matrix.
// Panics when i is out of range, mirroring slice indexing (programmer error).
func (m *Dense) RawRowView(i int) []float64 {
	return m.data[i*m.c : (i+1)*m.c : (i+1)*m.c]
}

// RawData exposes the row-major backing buffer (len == Rows*Cols).
// Mutations are visible in m; intended for hot kernels inside weitrix packages.
func (m *Dense) RawData() []float64 { return m.data }

// Col returns a copy of column j.
func (m *Dense) Col(j int) ([]float64, error) {
	if j < 0 || j >= m.c {
		return nil, denseErrorf(ctxCol, 0, j, ErrOutOfRange)
	}
	out := make([]float64, m.r)
	for i := 0; i < m.r; i++ {
		out[i] = m.data[i*m.c+j]
	}

	return out, nil
}

// SliceRows returns rows [lo, hi) as a matrix sharing storage with m.
// Row-major layout makes the window contiguous, so no copy is needed.
// Complexity: O(1).
func (m *Dense) SliceRows(lo, hi int) (*Dense, error) {
	if lo < 0 || hi > m.r || lo > hi {
		return nil, denseErrorf(ctxSliceRows, lo, hi, ErrOutOfRange)
	}

	return &Dense{
		r:              hi - lo,
		c:              m.c,
		data:           m.data[lo*m.c : hi*m.c : hi*m.c],
		validateNaNInf: m.validateNaNInf,
	}, nil
}

// SliceCols returns a copy of columns [lo, hi).
// Complexity: O(r*(hi-lo)).
func (m *Dense) SliceCols(lo, hi int) (*Dense, error) {
	if lo < 0 || hi > m.c || lo > hi {
		return nil, denseErrorf(ctxSliceCols, lo, hi, ErrOutOfRange)
	}
	w := hi - lo
	buf := make([]float64, m.r*w)
	for i := 0; i < m.r; i++ {
		copy(buf[i*w:(i+1)*w], m.data[i*m.c+lo:i*m.c+hi])
	}

	return &Dense{r: m.r, c: w, data: buf, validateNaNInf: m.validateNaNInf}, nil
}

// StackRows concatenates matrices vertically in argument order.
// All parts must share the column count; the policy of the first part wins.
func StackRows(parts ...*Dense) (*Dense, error) {
	if len(parts) == 0 {
		return NewDense(0, 0)
	}
	c, rows := parts[0].c, 0
	for k, p := range parts {
		if p == nil {
			return nil, denseErrorf(ctxStack, k, 0, ErrNilMatrix)
		}
		if p.c != c {
			return nil, denseErrorf(ctxStack, k, p.c, ErrDimensionMismatch)
		}
		rows += p.r
	}
	buf := make([]float64, 0, rows*c)
	for _, p := range parts {
		buf = append(buf, p.data...)
	}

	return &Dense{r: rows, c: c, data: buf, validateNaNInf: parts[0].validateNaNInf}, nil
}

// HStack concatenates matrices horizontally (same row count).
func HStack(parts ...*Dense) (*Dense, error) {
	if len(parts) == 0 {
		return NewDense(0, 0)
	}
	r, c := parts[0].r, 0
	for k, p := range parts {
		if p == nil {
			return nil, denseErrorf(ctxStack, k, 0, ErrNilMatrix)
		}
		if p.r != r {
			return nil, denseErrorf(ctxStack, k, p.r, ErrDimensionMismatch)
		}
		c += p.c
	}
	out := &Dense{r: r, c: c, data: make([]float64, r*c), validateNaNInf: parts[0].validateNaNInf}
	off := 0
	for _, p := range parts {
		for i := 0; i < r; i++ {
			copy(out.data[i*c+off:i*c+off+p.c], p.data[i*p.c:(i+1)*p.c])
		}
		off += p.c
	}

	return out, nil
}

// Apply returns a new matrix with fn applied to every element (i→j order).
// The result keeps m's policy; a non-finite result under the finite policy
// yields ErrNaNInf with coordinates.
func (m *Dense) Apply(fn func(i, j int, v float64) float64) (*Dense, error) {
	out := &Dense{r: m.r, c: m.c, data: make([]float64, len(m.data)), validateNaNInf: m.validateNaNInf}
	var i, j int
	var v float64
	for i = 0; i < m.r; i++ {
		base := i * m.c
		for j = 0; j < m.c; j++ {
			v = fn(i, j, m.data[base+j])
			if m.validateNaNInf && (math.IsNaN(v) || math.IsInf(v, 0)) {
				return nil, denseErrorf(ctxApply, i, j, ErrNaNInf)
			}
			out.data[base+j] = v
		}
	}

	return out, nil
}

// Gonum returns a *mat.Dense that shares m's backing buffer.
// Gonum rejects zero-length dimensions, so ok is false for empty matrices.
func (m *Dense) Gonum() (g *mat.Dense, ok bool) {
	if m.r == 0 || m.c == 0 {
		return nil, false
	}

	return mat.NewDense(m.r, m.c, m.data), true
}

// String implements fmt.Stringer for debugging.
// Complexity: O(r*c).
func (m *Dense) String() string {
	var sb strings.Builder
	var i, j int
	for i = 0; i < m.r; i++ {
		sb.WriteString(_fmtRowOpen)
		for j = 0; j < m.c; j++ {
			if j > 0 {
				sb.WriteString(_fmtSep)
			}
			fmt.Fprintf(&sb, "%g", m.data[i*m.c+j])
		}
		sb.WriteString(_fmtRowClose)
	}

	return sb.String()
}
