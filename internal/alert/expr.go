package alert

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a parsed alert condition. Conditions are boolean expressions
// over named numeric variables, e.g. "zscore > 2 && volume > 1000".
// Parsing happens once when the rule is registered; evaluation is a
// tree walk over the supplied variable map.
type Expr interface {
	eval(vars map[string]float64) (float64, error)
}

// ParseCondition compiles a condition string. Supported grammar, in
// precedence order: || < && < comparisons (< <= > >= == !=) <
// additive (+ -) < multiplicative (* /) < unary minus < atoms
// (number, identifier, parenthesized expression).
func ParseCondition(input string) (Expr, error) {
	p := &parser{input: input}
	p.next()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", p.tok.text, p.tok.pos)
	}
	return expr, nil
}

type numberExpr struct{ value float64 }

func (e numberExpr) eval(map[string]float64) (float64, error) {
	return e.value, nil
}

type varExpr struct{ name string }

func (e varExpr) eval(vars map[string]float64) (float64, error) {
	v, ok := vars[e.name]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", e.name)
	}
	return v, nil
}

type unaryExpr struct{ operand Expr }

func (e unaryExpr) eval(vars map[string]float64) (float64, error) {
	v, err := e.operand.eval(vars)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

type binaryExpr struct {
	op          string
	left, right Expr
}

func (e binaryExpr) eval(vars map[string]float64) (float64, error) {
	l, err := e.left.eval(vars)
	if err != nil {
		return 0, err
	}

	// Short-circuit the logical operators.
	switch e.op {
	case "&&":
		if !truthy(l) {
			return 0, nil
		}
		r, err := e.right.eval(vars)
		if err != nil {
			return 0, err
		}
		return boolVal(truthy(r)), nil
	case "||":
		if truthy(l) {
			return 1, nil
		}
		r, err := e.right.eval(vars)
		if err != nil {
			return 0, err
		}
		return boolVal(truthy(r)), nil
	}

	r, err := e.right.eval(vars)
	if err != nil {
		return 0, err
	}
	switch e.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "<":
		return boolVal(l < r), nil
	case "<=":
		return boolVal(l <= r), nil
	case ">":
		return boolVal(l > r), nil
	case ">=":
		return boolVal(l >= r), nil
	case "==":
		return boolVal(l == r), nil
	case "!=":
		return boolVal(l != r), nil
	}
	return 0, fmt.Errorf("unknown operator %q", e.op)
}

func truthy(v float64) bool { return v != 0 }

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Eval evaluates a compiled condition against the variable map and
// reports whether it holds.
func Eval(e Expr, vars map[string]float64) (bool, error) {
	v, err := e.eval(vars)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type parser struct {
	input string
	pos   int
	tok   token
	err   error
}

func (p *parser) next() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.input) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}

	c := p.input[p.pos]
	switch {
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	case c >= '0' && c <= '9' || c == '.':
		for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
			p.pos++
		}
		p.tok = token{kind: tokNumber, text: p.input[start:p.pos], pos: start}
	case isIdentStart(c):
		for p.pos < len(p.input) && isIdentPart(p.input[p.pos]) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.input[start:p.pos], pos: start}
	default:
		// Two-character operators first.
		if p.pos+1 < len(p.input) {
			two := p.input[p.pos : p.pos+2]
			switch two {
			case "&&", "||", "<=", ">=", "==", "!=":
				p.pos += 2
				p.tok = token{kind: tokOp, text: two, pos: start}
				return
			}
		}
		if strings.ContainsRune("+-*/<>", rune(c)) {
			p.pos++
			p.tok = token{kind: tokOp, text: string(c), pos: start}
			return
		}
		p.err = fmt.Errorf("invalid character %q at position %d", c, start)
		p.tok = token{kind: tokEOF, pos: start}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && p.tok.text == "||" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && p.tok.text == "&&" {
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp {
		op := p.tok.text
		switch op {
		case "<", "<=", ">", ">=", "==", "!=":
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/") {
		op := p.tok.text
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.tok.kind == tokOp && p.tok.text == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{operand: operand}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Expr, error) {
	if p.err != nil {
		return nil, p.err
	}
	switch p.tok.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", p.tok.text, p.tok.pos)
		}
		p.next()
		return numberExpr{value: v}, nil
	case tokIdent:
		name := p.tok.text
		p.next()
		return varExpr{name: name}, nil
	case tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis at position %d", p.tok.pos)
		}
		p.next()
		return inner, nil
	case tokEOF:
		if p.err != nil {
			return nil, p.err
		}
		return nil, fmt.Errorf("unexpected end of condition")
	default:
		return nil, fmt.Errorf("unexpected %q at position %d", p.tok.text, p.tok.pos)
	}
}
