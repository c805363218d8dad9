// SPDX-License-Identifier: MIT

package design

import (
	"strconv"
	"unicode"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokPlus
	tokMinus
	tokTilde
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var out []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			out = append(out, token{tokLParen, "(", i})
			i++
		case r == ')':
			out = append(out, token{tokRParen, ")", i})
			i++
		case r == ',':
			out = append(out, token{tokComma, ",", i})
			i++
		case r == '+':
			out = append(out, token{tokPlus, "+", i})
			i++
		case r == '-':
			out = append(out, token{tokMinus, "-", i})
			i++
		case r == '~':
			out = append(out, token{tokTilde, "~", i})
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.' || rs[j] == 'e' || rs[j] == 'E' ||
				((rs[j] == '-' || rs[j] == '+') && j > i && (rs[j-1] == 'e' || rs[j-1] == 'E'))) {
				j++
			}
			out = append(out, token{tokNumber, string(rs[i:j]), i})
			i = j
		case unicode.IsLetter(r) || r == '_' || r == '.':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '.') {
				j++
			}
			out = append(out, token{tokIdent, string(rs[i:j]), i})
			i = j
		default:
			return nil, syntaxErrorf(src, i, "unexpected %q", r)
		}
	}

	return append(out, token{tokEOF, "", len(rs)}), nil
}

type parser struct {
	src  string
	toks []token
	at   int
}

func (p *parser) peek() token { return p.toks[p.at] }

func (p *parser) next() token {
	t := p.toks[p.at]
	if t.kind != tokEOF {
		p.at++
	}

	return t
}

func (p *parser) expect(k tokKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, syntaxErrorf(p.src, t.pos, "expected %s, got %q", what, t.text)
	}

	return t, nil
}

// Parse parses a formula.
func Parse(src string) (*Formula, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	f := &Formula{Source: src, Intercept: true}

	if p.peek().kind == tokTilde {
		p.next()
	}
	if p.peek().kind == tokEOF {
		return f, nil
	}
	negate := false
	if p.peek().kind == tokMinus {
		p.next()
		negate = true
	}
	for {
		if err = p.term(f, negate); err != nil {
			return nil, err
		}
		t := p.next()
		switch t.kind {
		case tokEOF:
			return f, nil
		case tokPlus:
			negate = false
		case tokMinus:
			negate = true
		default:
			return nil, syntaxErrorf(src, t.pos, "expected + or -, got %q", t.text)
		}
	}
}

// MustParse is Parse that panics; for formulas fixed at compile time.
func MustParse(src string) *Formula {
	f, err := Parse(src)
	if err != nil {
		panic(err)
	}

	return f
}

func (p *parser) term(f *Formula, negate bool) error {
	t := p.peek()
	if t.kind == tokNumber {
		p.next()
		switch {
		case t.text == "1" && !negate:
			f.Intercept = true
		case t.text == "1" && negate, t.text == "0" && !negate:
			f.Intercept = false
		default:
			return syntaxErrorf(p.src, t.pos, "only 0, 1 and -1 may appear as terms")
		}

		return nil
	}
	if negate {
		return syntaxErrorf(p.src, t.pos, "only the intercept can be removed")
	}
	if t.kind != tokIdent {
		return syntaxErrorf(p.src, t.pos, "expected a term, got %q", t.text)
	}
	if p.toks[p.at+1].kind != tokLParen {
		p.next()
		f.Terms = append(f.Terms, Term{Kind: TermAuto, Expr: &Expr{Op: OpName, Name: t.text}})

		return nil
	}

	switch t.text {
	case "log", "sqrt":
		e, err := p.expr()
		if err != nil {
			return err
		}
		f.Terms = append(f.Terms, Term{Kind: TermNumeric, Expr: e})
	case "offset":
		p.next()
		p.next()
		e, err := p.expr()
		if err != nil {
			return err
		}
		if _, err = p.expect(tokRParen, ")"); err != nil {
			return err
		}
		f.Offsets = append(f.Offsets, e)
	case "factor":
		p.next()
		p.next()
		name, err := p.expect(tokIdent, "covariate name")
		if err != nil {
			return err
		}
		if _, err = p.expect(tokRParen, ")"); err != nil {
			return err
		}
		f.Terms = append(f.Terms, Term{Kind: TermFactor, Expr: &Expr{Op: OpName, Name: name.text}})
	case "spline", "poly":
		p.next()
		p.next()
		e, err := p.expr()
		if err != nil {
			return err
		}
		if _, err = p.expect(tokComma, ","); err != nil {
			return err
		}
		nt, err := p.expect(tokNumber, "integer")
		if err != nil {
			return err
		}
		n, convErr := strconv.Atoi(nt.text)
		if convErr != nil || n < 1 {
			return syntaxErrorf(p.src, nt.pos, "%s needs a positive integer, got %q", t.text, nt.text)
		}
		if _, err = p.expect(tokRParen, ")"); err != nil {
			return err
		}
		kind := TermSpline
		if t.text == "poly" {
			kind = TermPoly
		}
		f.Terms = append(f.Terms, Term{Kind: kind, Expr: e, Arg: n})
	default:
		return syntaxErrorf(p.src, t.pos, "unknown function %q", t.text)
	}

	return nil
}

func (p *parser) expr() (*Expr, error) {
	t := p.next()
	switch t.kind {
	case tokMinus:
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}

		return &Expr{Op: OpNeg, Arg: arg}, nil
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, syntaxErrorf(p.src, t.pos, "bad number %q", t.text)
		}

		return &Expr{Op: OpNumber, Value: v}, nil
	case tokIdent:
		if p.peek().kind != tokLParen {
			return &Expr{Op: OpName, Name: t.text}, nil
		}
		var op ExprOp
		switch t.text {
		case "log":
			op = OpLog
		case "sqrt":
			op = OpSqrt
		default:
			return nil, syntaxErrorf(p.src, t.pos, "function %q is not allowed inside an expression", t.text)
		}
		p.next()
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}

		return &Expr{Op: op, Arg: arg}, nil
	default:
		return nil, syntaxErrorf(p.src, t.pos, "expected an expression, got %q", t.text)
	}
}
