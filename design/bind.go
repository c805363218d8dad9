// SPDX-License-Identifier: MIT

package design

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/weitrix/matrix"
	"github.com/katalvlaran/weitrix/table"
)

// boundTerm is a Term with its data-dependent state frozen.
type boundTerm struct {
	kind   TermKind // resolved; never TermAuto
	expr   *Expr
	names  []string
	levels []string // factor: full sorted level set
	keep   []string // factor: levels that get a column
	spline *naturalSpline
	center float64 // poly
	scale  float64 // poly
	degree int     // poly
}

// Bound is a Formula resolved against a Frame.
type Bound struct {
	Formula *Formula
	Level   Level
	terms   []boundTerm
	names   []string
}

// Names returns the design column names.
func (b *Bound) Names() []string { return append([]string(nil), b.names...) }

// Width is the number of design columns.
func (b *Bound) Width() int { return len(b.names) }

// HasOffset reports whether the formula contains offset terms.
func (b *Bound) HasOffset() bool { return len(b.Formula.Offsets) > 0 }

// Check reports the first name in f that fr cannot resolve. Values are not
// evaluated, so it is safe to call before the data is final.
func Check(f *Formula, fr *Frame) error {
	for _, name := range f.Names() {
		if fr.ambiguous[name] || !fr.has(name) {
			return fmt.Errorf("design.Check: %w", fr.lookupErr(name))
		}
	}

	return nil
}

// Bind resolves every name in f against fr and freezes spline knots,
// polynomial scaling and factor levels from fr's data.
func Bind(f *Formula, fr *Frame) (*Bound, error) {
	b := &Bound{Formula: f, Level: fr.level}
	if f.Intercept {
		b.names = append(b.names, "(Intercept)")
	}
	fullDummies := !f.Intercept
	for _, t := range f.Terms {
		bt, err := bindTerm(t, fr, &fullDummies)
		if err != nil {
			return nil, fmt.Errorf("design.Bind %s: %w", t, err)
		}
		b.terms = append(b.terms, bt)
		b.names = append(b.names, bt.names...)
	}
	for _, o := range f.Offsets {
		if _, err := evalExpr(o, fr); err != nil {
			return nil, fmt.Errorf("design.Bind offset(%s): %w", o, err)
		}
	}

	return b, nil
}

func bindTerm(t Term, fr *Frame, fullDummies *bool) (boundTerm, error) {
	kind := t.Kind
	if kind == TermAuto {
		name := t.Expr.Name
		if _, isFactor := fr.factors[name]; isFactor && !fr.ambiguous[name] {
			kind = TermFactor
		} else {
			kind = TermNumeric
		}
	}
	bt := boundTerm{kind: kind, expr: t.Expr}

	switch kind {
	case TermFactor:
		labels, err := factorLabels(t.Expr.Name, fr)
		if err != nil {
			return bt, err
		}
		bt.levels = table.SortedLevels(labels)
		bt.keep = bt.levels
		if !*fullDummies && len(bt.keep) > 0 {
			bt.keep = bt.keep[1:]
		}
		*fullDummies = false
		for _, l := range bt.keep {
			bt.names = append(bt.names, t.Expr.Name+l)
		}

		return bt, nil
	}

	x, err := evalExpr(t.Expr, fr)
	if err != nil {
		return bt, err
	}
	switch kind {
	case TermNumeric:
		bt.names = []string{t.Expr.String()}
	case TermSpline:
		if bt.spline, err = newNaturalSpline(x, t.Arg); err != nil {
			return bt, err
		}
		for k := 1; k <= bt.spline.width(); k++ {
			bt.names = append(bt.names, t.String()+strconv.Itoa(k))
		}
	case TermPoly:
		if len(x) == 0 {
			return bt, fmt.Errorf("poly of empty data: %w", ErrBadArgument)
		}
		bt.degree = t.Arg
		bt.center = stat.Mean(x, nil)
		bt.scale = stat.StdDev(x, nil)
		if !(bt.scale > 0) {
			bt.scale = 1
		}
		for k := 1; k <= bt.degree; k++ {
			bt.names = append(bt.names, t.String()+strconv.Itoa(k))
		}
	}

	return bt, nil
}

// factorLabels reads name as categorical; numeric covariates are formatted.
func factorLabels(name string, fr *Frame) ([]string, error) {
	if fr.ambiguous[name] {
		return nil, fr.lookupErr(name)
	}
	if v, ok := fr.factors[name]; ok {
		return v, nil
	}
	if v, ok := fr.floats[name]; ok {
		out := make([]string, len(v))
		for i, x := range v {
			out[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}

		return out, nil
	}

	return nil, fr.lookupErr(name)
}

// evalExpr evaluates e on every entry of fr.
func evalExpr(e *Expr, fr *Frame) ([]float64, error) {
	switch e.Op {
	case OpName:
		v, err := fr.float(e.Name)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(v))
		copy(out, v)

		return out, nil
	case OpNumber:
		out := make([]float64, fr.n)
		for i := range out {
			out[i] = e.Value
		}

		return out, nil
	}

	v, err := evalExpr(e.Arg, fr)
	if err != nil {
		return nil, err
	}
	for i, x := range v {
		switch e.Op {
		case OpNeg:
			v[i] = -x
		case OpLog:
			v[i] = math.Log(x)
		case OpSqrt:
			v[i] = math.Sqrt(x)
		}
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return nil, fmt.Errorf("%s at entry %d (input %g): %w", e, i, x, ErrNonFinite)
		}
	}

	return v, nil
}

// Matrix evaluates the bound design on fr (usually the frame it was bound
// on, or new data at the same level). The offset is nil when the formula
// has no offset terms.
func (b *Bound) Matrix(fr *Frame) (*matrix.Dense, []float64, error) {
	if fr.level != b.Level {
		return nil, nil, fmt.Errorf("design.Matrix: bound at %s level, frame is %s: %w", b.Level, fr.level, ErrUnavailableAtLevel)
	}
	n, width := fr.n, len(b.names)
	out, err := matrix.NewDense(n, width)
	if err != nil {
		return nil, nil, err
	}
	data := out.RawData()
	col := 0
	if b.Formula.Intercept {
		for i := 0; i < n; i++ {
			data[i*width] = 1
		}
		col++
	}
	for _, bt := range b.terms {
		if err = bt.fill(fr, data, width, col); err != nil {
			return nil, nil, fmt.Errorf("design.Matrix: %w", err)
		}
		col += len(bt.names)
	}

	var offset []float64
	for _, o := range b.Formula.Offsets {
		v, err := evalExpr(o, fr)
		if err != nil {
			return nil, nil, fmt.Errorf("design.Matrix: offset(%s): %w", o, err)
		}
		if offset == nil {
			offset = v
			continue
		}
		for i := range offset {
			offset[i] += v[i]
		}
	}

	return out, offset, nil
}

func (bt *boundTerm) fill(fr *Frame, data []float64, width, col int) error {
	if bt.kind == TermFactor {
		labels, err := factorLabels(bt.expr.Name, fr)
		if err != nil {
			return err
		}
		pos := make(map[string]int, len(bt.keep))
		for k, l := range bt.keep {
			pos[l] = k
		}
		known := make(map[string]bool, len(bt.levels))
		for _, l := range bt.levels {
			known[l] = true
		}
		for i, l := range labels {
			if !known[l] {
				return fmt.Errorf("%s: level %q was not seen when binding: %w", bt.expr.Name, l, ErrBadArgument)
			}
			if k, ok := pos[l]; ok {
				data[i*width+col+k] = 1
			}
		}

		return nil
	}

	x, err := evalExpr(bt.expr, fr)
	if err != nil {
		return err
	}
	switch bt.kind {
	case TermNumeric:
		for i, v := range x {
			data[i*width+col] = v
		}
	case TermSpline:
		for i, v := range x {
			bt.spline.eval(v, data[i*width+col:i*width+col+bt.spline.width()])
		}
	case TermPoly:
		for i, v := range x {
			z := (v - bt.center) / bt.scale
			p := 1.0
			for k := 0; k < bt.degree; k++ {
				p *= z
				data[i*width+col+k] = p
			}
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}
