// SPDX-License-Identifier: MIT

package design

import (
	"strconv"
	"strings"
)

// ExprOp is the operator of an Expr node.
type ExprOp int

const (
	OpName ExprOp = iota
	OpNumber
	OpNeg
	OpLog
	OpSqrt
)

// Expr is a numeric expression over one covariate.
type Expr struct {
	Op    ExprOp
	Name  string
	Value float64
	Arg   *Expr
}

// String renders e in formula syntax.
func (e *Expr) String() string {
	switch e.Op {
	case OpName:
		return e.Name
	case OpNumber:
		return strconv.FormatFloat(e.Value, 'g', -1, 64)
	case OpNeg:
		return "-" + e.Arg.String()
	case OpLog:
		return "log(" + e.Arg.String() + ")"
	case OpSqrt:
		return "sqrt(" + e.Arg.String() + ")"
	default:
		return "?"
	}
}

// names appends every covariate name used by e.
func (e *Expr) names(dst []string) []string {
	if e.Op == OpName {
		return append(dst, e.Name)
	}
	if e.Arg != nil {
		return e.Arg.names(dst)
	}

	return dst
}

// TermKind says how a term expands into columns.
type TermKind int

const (
	// TermAuto is a bare name: numeric or factor depending on the covariate.
	TermAuto TermKind = iota
	// TermNumeric is a transformed numeric expression, one column.
	TermNumeric
	// TermFactor forces categorical coding.
	TermFactor
	// TermSpline is a natural cubic spline with Arg degrees of freedom.
	TermSpline
	// TermPoly is a polynomial of degree Arg.
	TermPoly
)

// Term is one additive model term.
type Term struct {
	Kind TermKind
	Expr *Expr
	Arg  int
}

// String renders t in formula syntax.
func (t Term) String() string {
	switch t.Kind {
	case TermFactor:
		return "factor(" + t.Expr.String() + ")"
	case TermSpline:
		return "spline(" + t.Expr.String() + "," + strconv.Itoa(t.Arg) + ")"
	case TermPoly:
		return "poly(" + t.Expr.String() + "," + strconv.Itoa(t.Arg) + ")"
	default:
		return t.Expr.String()
	}
}

// Formula is a parsed model formula.
type Formula struct {
	Source    string
	Intercept bool
	Terms     []Term
	Offsets   []*Expr
}

// String renders f in canonical form.
func (f *Formula) String() string {
	parts := make([]string, 0, len(f.Terms)+len(f.Offsets)+1)
	if f.Intercept {
		parts = append(parts, "1")
	} else {
		parts = append(parts, "0")
	}
	for _, t := range f.Terms {
		parts = append(parts, t.String())
	}
	for _, o := range f.Offsets {
		parts = append(parts, "offset("+o.String()+")")
	}

	return "~ " + strings.Join(parts, " + ")
}

// Names lists every covariate name referenced by f, in order of appearance.
func (f *Formula) Names() []string {
	var out []string
	for _, t := range f.Terms {
		out = t.Expr.names(out)
	}
	for _, o := range f.Offsets {
		out = o.names(out)
	}

	return out
}
