// SPDX-License-Identifier: MIT

package design

import (
	"fmt"

	"github.com/katalvlaran/weitrix/table"
)

// Level is the unit a Frame has one entry for.
type Level int

const (
	Column Level = iota
	Row
	Cell
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Column:
		return "column"
	case Row:
		return "row"
	case Cell:
		return "cell"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Special names provided by calibration frames.
const (
	NameRow         = "row"
	NameCol         = "col"
	NameWeight      = "weight"
	NameMu          = "mu"
	NameTotalWeight = "total_weight"
)

// specialLevels lists where each special name can exist.
var specialLevels = map[string][]Level{
	NameRow:    {Cell},
	NameCol:    {Cell},
	NameWeight: {Cell},
	NameMu:     {Row, Cell},
}

// Frame is a set of named covariates of equal length at one Level.
type Frame struct {
	level     Level
	n         int
	floats    map[string][]float64
	factors   map[string][]string
	ambiguous map[string]bool
}

// NewFrame returns an empty frame of n entries.
func NewFrame(level Level, n int) *Frame {
	return &Frame{
		level:     level,
		n:         n,
		floats:    map[string][]float64{},
		factors:   map[string][]string{},
		ambiguous: map[string]bool{},
	}
}

// Level returns the frame level.
func (f *Frame) Level() Level { return f.level }

// Len is the number of entries.
func (f *Frame) Len() int { return f.n }

// AddFloat adds or replaces a numeric covariate. The slice is not copied.
func (f *Frame) AddFloat(name string, v []float64) error {
	if len(v) != f.n {
		return fmt.Errorf("AddFloat(%q): %d values for %d entries: %w", name, len(v), f.n, ErrBadArgument)
	}
	delete(f.factors, name)
	f.floats[name] = v

	return nil
}

// AddFactor adds or replaces a categorical covariate. The slice is not copied.
func (f *Frame) AddFactor(name string, v []string) error {
	if len(v) != f.n {
		return fmt.Errorf("AddFactor(%q): %d values for %d entries: %w", name, len(v), f.n, ErrBadArgument)
	}
	delete(f.floats, name)
	f.factors[name] = v

	return nil
}

// addTable copies every column of t. With expand set, entry k takes the
// value of table row idx[k]; a nil idx then means zero entries.
func (f *Frame) addTable(t *table.Table, idx []int, expand bool) error {
	for _, name := range t.Names() {
		kind, err := t.Kind(name)
		if err != nil {
			return err
		}
		if f.has(name) {
			f.ambiguous[name] = true
			continue
		}
		switch kind {
		case table.Float:
			v, _ := t.Float(name)
			if expand {
				v = expandFloat(v, idx)
			}
			err = f.AddFloat(name, v)
		case table.Factor:
			v, _ := t.Factor(name)
			if expand {
				v = expandString(v, idx)
			}
			err = f.AddFactor(name, v)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (f *Frame) has(name string) bool {
	_, a := f.floats[name]
	_, b := f.factors[name]

	return a || b
}

func expandFloat(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = v[i]
	}

	return out
}

func expandString(v []string, idx []int) []string {
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = v[i]
	}

	return out
}

// lookupErr explains why name is not resolvable in f.
func (f *Frame) lookupErr(name string) error {
	if f.ambiguous[name] {
		return fmt.Errorf("%q is both a row and a column covariate: %w", name, ErrAmbiguousCovariate)
	}
	if levels, ok := specialLevels[name]; ok {
		return fmt.Errorf("%q is available at %v, not at %s level: %w", name, levels, f.level, ErrUnavailableAtLevel)
	}

	return fmt.Errorf("%q at %s level: %w", name, f.level, ErrUnknownCovariate)
}

// float returns the numeric covariate name.
func (f *Frame) float(name string) ([]float64, error) {
	if f.ambiguous[name] {
		return nil, f.lookupErr(name)
	}
	if v, ok := f.floats[name]; ok {
		return v, nil
	}
	if _, ok := f.factors[name]; ok {
		return nil, fmt.Errorf("%q is categorical, not numeric: %w", name, ErrBadArgument)
	}

	return nil, f.lookupErr(name)
}

// ColumnFrame exposes column side-table covariates at Column level.
func ColumnFrame(cols *table.Table) (*Frame, error) {
	f := NewFrame(Column, cols.Len())
	if err := f.addTable(cols, nil, false); err != nil {
		return nil, err
	}

	return f, nil
}

// RowFrame exposes row side-table covariates plus derived numeric columns
// (for example total_weight and mu) at Row level. Derived names shadow
// table columns of the same name.
func RowFrame(rows *table.Table, derived map[string][]float64) (*Frame, error) {
	f := NewFrame(Row, rows.Len())
	if err := f.addTable(rows, nil, false); err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(derived) {
		if err := f.AddFloat(name, derived[name]); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// CellFrame exposes one entry per cell (ri[k], cj[k]). Row and column
// covariates are expanded; names present in both tables are ambiguous.
// The identity factors row and col are added; cell-level numeric values
// (weight, mu, ...) come from cells. Nil indices give a frame of zero
// entries that still knows every covariate name, which is enough for Check.
func CellFrame(rows, cols *table.Table, ri, cj []int, cells map[string][]float64) (*Frame, error) {
	if len(ri) != len(cj) {
		return nil, fmt.Errorf("CellFrame: %d row indices, %d column indices: %w", len(ri), len(cj), ErrBadArgument)
	}
	f := NewFrame(Cell, len(ri))
	if err := f.addTable(rows, ri, true); err != nil {
		return nil, err
	}
	if err := f.addTable(cols, cj, true); err != nil {
		return nil, err
	}
	if err := f.AddFactor(NameRow, expandString(rows.IDs(), ri)); err != nil {
		return nil, err
	}
	if err := f.AddFactor(NameCol, expandString(cols.IDs(), cj)); err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(cells) {
		if err := f.AddFloat(name, cells[name]); err != nil {
			return nil, err
		}
	}

	return f, nil
}
