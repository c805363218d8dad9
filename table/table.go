// SPDX-License-Identifier: MIT

// Package table holds row or column side-tables keyed by unique identifiers.
//
// A Table is immutable. WithFloat and WithFactor return a new Table that
// shares unchanged columns with the receiver; accessors hand out copies, so
// no caller can reach another table's storage.
package table

import "sort"

// Kind tells whether a column holds numbers or categorical labels.
type Kind int

const (
	// Float columns hold real covariates.
	Float Kind = iota
	// Factor columns hold categorical labels.
	Factor
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Factor:
		return "factor"
	default:
		return "unknown"
	}
}

type column struct {
	name   string
	kind   Kind
	floats []float64
	labels []string
}

// Table is an ordered set of identifiers with named covariate columns.
type Table struct {
	ids   []string
	index map[string]int
	cols  []column
	names map[string]int
}

// New builds a table with no columns over ids. Identifiers must be unique.
func New(ids []string) (*Table, error) {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := index[id]; dup {
			return nil, tableErrorf("New", id, ErrDuplicateKey)
		}
		index[id] = i
	}
	own := make([]string, len(ids))
	copy(own, ids)

	return &Table{ids: own, index: index, names: map[string]int{}}, nil
}

// Len is the number of identifiers.
func (t *Table) Len() int { return len(t.ids) }

// IDs returns a copy of the identifiers in order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)

	return out
}

// ID returns the identifier at position i.
func (t *Table) ID(i int) string { return t.ids[i] }

// Index returns the position of id.
func (t *Table) Index(id string) (int, bool) {
	i, ok := t.index[id]

	return i, ok
}

// Names lists column names in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}

	return out
}

// Has reports whether a column called name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.names[name]

	return ok
}

// Kind returns the kind of column name.
func (t *Table) Kind(name string) (Kind, error) {
	c, err := t.lookup("Kind", name)
	if err != nil {
		return 0, err
	}

	return c.kind, nil
}

func (t *Table) lookup(op, name string) (*column, error) {
	i, ok := t.names[name]
	if !ok {
		return nil, tableErrorf(op, name, ErrUnknownColumn)
	}

	return &t.cols[i], nil
}

// Float returns a copy of a numeric column.
func (t *Table) Float(name string) ([]float64, error) {
	c, err := t.lookup("Float", name)
	if err != nil {
		return nil, err
	}
	if c.kind != Float {
		return nil, tableErrorf("Float", name, ErrKind)
	}
	out := make([]float64, len(c.floats))
	copy(out, c.floats)

	return out, nil
}

// Factor returns a copy of a categorical column.
func (t *Table) Factor(name string) ([]string, error) {
	c, err := t.lookup("Factor", name)
	if err != nil {
		return nil, err
	}
	if c.kind != Factor {
		return nil, tableErrorf("Factor", name, ErrKind)
	}
	out := make([]string, len(c.labels))
	copy(out, c.labels)

	return out, nil
}

// Levels returns the sorted distinct labels of a factor column.
func (t *Table) Levels(name string) ([]string, error) {
	labels, err := t.Factor(name)
	if err != nil {
		return nil, err
	}

	return SortedLevels(labels), nil
}

// SortedLevels returns the distinct values of labels in ascending order.
func SortedLevels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Strings(out)

	return out
}

// WithFloat returns a new table where column name holds values.
// An existing column with that name is replaced in place of order.
func (t *Table) WithFloat(name string, values []float64) (*Table, error) {
	if len(values) != len(t.ids) {
		return nil, tableErrorf("WithFloat", name, ErrLength)
	}
	own := make([]float64, len(values))
	copy(own, values)

	return t.with(column{name: name, kind: Float, floats: own}), nil
}

// WithFactor returns a new table where column name holds labels.
func (t *Table) WithFactor(name string, labels []string) (*Table, error) {
	if len(labels) != len(t.ids) {
		return nil, tableErrorf("WithFactor", name, ErrLength)
	}
	own := make([]string, len(labels))
	copy(own, labels)

	return t.with(column{name: name, kind: Factor, labels: own}), nil
}

func (t *Table) with(c column) *Table {
	out := &Table{
		ids:   t.ids,
		index: t.index,
		cols:  make([]column, len(t.cols), len(t.cols)+1),
		names: make(map[string]int, len(t.names)+1),
	}
	copy(out.cols, t.cols)
	for k, v := range t.names {
		out.names[k] = v
	}
	if i, ok := out.names[c.name]; ok {
		out.cols[i] = c
	} else {
		out.names[c.name] = len(out.cols)
		out.cols = append(out.cols, c)
	}

	return out
}

// Without returns a new table lacking column name. Missing names are ignored.
func (t *Table) Without(name string) *Table {
	out, _ := New(nil)
	out.ids, out.index = t.ids, t.index
	for _, c := range t.cols {
		if c.name == name {
			continue
		}
		out.names[c.name] = len(out.cols)
		out.cols = append(out.cols, c)
	}

	return out
}

// Subset returns the rows at positions idx, in that order.
// Positions must be distinct; repeated positions would duplicate identifiers.
func (t *Table) Subset(idx []int) (*Table, error) {
	ids := make([]string, len(idx))
	for k, i := range idx {
		ids[k] = t.ids[i]
	}
	out, err := New(ids)
	if err != nil {
		return nil, tableErrorf("Subset", "", err)
	}
	for _, c := range t.cols {
		nc := column{name: c.name, kind: c.kind}
		switch c.kind {
		case Float:
			nc.floats = make([]float64, len(idx))
			for k, i := range idx {
				nc.floats[k] = c.floats[i]
			}
		case Factor:
			nc.labels = make([]string, len(idx))
			for k, i := range idx {
				nc.labels[k] = c.labels[i]
			}
		}
		out.names[c.name] = len(out.cols)
		out.cols = append(out.cols, nc)
	}

	return out, nil
}

// Range returns rows lo..hi-1.
func (t *Table) Range(lo, hi int) (*Table, error) {
	idx := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		idx = append(idx, i)
	}

	return t.Subset(idx)
}

// Concat stacks tables with identical column names and kinds.
// Identifiers must stay unique across all parts.
func Concat(parts ...*Table) (*Table, error) {
	if len(parts) == 0 {
		return New(nil)
	}
	var ids []string
	for _, p := range parts {
		ids = append(ids, p.ids...)
	}
	out, err := New(ids)
	if err != nil {
		return nil, tableErrorf("Concat", "", err)
	}
	head := parts[0]
	for _, c := range head.cols {
		nc := column{name: c.name, kind: c.kind}
		for _, p := range parts {
			pc, err := p.lookup("Concat", c.name)
			if err != nil {
				return nil, err
			}
			if pc.kind != c.kind {
				return nil, tableErrorf("Concat", c.name, ErrKind)
			}
			nc.floats = append(nc.floats, pc.floats...)
			nc.labels = append(nc.labels, pc.labels...)
		}
		out.names[c.name] = len(out.cols)
		out.cols = append(out.cols, nc)
	}

	return out, nil
}
