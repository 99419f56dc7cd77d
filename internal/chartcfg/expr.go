package chartcfg

import (
	"fmt"
	"strconv"
	"strings"
)

// The derived-formula grammar is deliberately tiny: numeric literals, metric
// identifiers, unary +/-, binary + - * /, and parentheses. Anything else is a
// grammar violation naming the offending token.
//
//	expr   := term (('+'|'-') term)*
//	term   := unary (('*'|'/'|'×'|'÷') unary)*
//	unary  := ('+'|'-') unary | primary
//	primary:= NUMBER | IDENT | '(' expr ')'

// Expr is a parsed formula node.
type Expr interface {
	// Eval computes the node over metric values. Division by zero yields
	// (0, false): undefined, not Inf.
	Eval(vars map[string]float64) (float64, bool)
}

type numLit float64

func (n numLit) Eval(map[string]float64) (float64, bool) { return float64(n), true }

type ident string

func (id ident) Eval(vars map[string]float64) (float64, bool) {
	v, ok := vars[string(id)]
	return v, ok
}

type unaryExpr struct {
	op rune
	x  Expr
}

func (u unaryExpr) Eval(vars map[string]float64) (float64, bool) {
	v, ok := u.x.Eval(vars)
	if !ok {
		return 0, false
	}
	if u.op == '-' {
		return -v, true
	}
	return v, true
}

type binaryExpr struct {
	op   rune
	l, r Expr
}

func (b binaryExpr) Eval(vars map[string]float64) (float64, bool) {
	lv, ok := b.l.Eval(vars)
	if !ok {
		return 0, false
	}
	rv, ok := b.r.Eval(vars)
	if !ok {
		return 0, false
	}
	switch b.op {
	case '+':
		return lv + rv, true
	case '-':
		return lv - rv, true
	case '*':
		return lv * rv, true
	default:
		if rv == 0 {
			return 0, false
		}
		return lv / rv, true
	}
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	op   rune
	num  float64
}

// lex tokenizes a formula. An unrecognizable character is returned verbatim
// so the validator can name it.
func lex(src string) ([]token, *ValidationError) {
	var toks []token
	rs := []rune(src)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case r == ' ' || r == '\t':
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '×' || r == '÷':
			op := r
			if r == '×' {
				op = '*'
			}
			if r == '÷' {
				op = '/'
			}
			toks = append(toks, token{kind: tokOp, text: string(r), op: op})
			i++
		case r >= '0' && r <= '9' || r == '.':
			start := i
			for i < len(rs) && (rs[i] >= '0' && rs[i] <= '9' || rs[i] == '.') {
				i++
			}
			text := string(rs[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, grammarErr(text, "malformed number")
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: n})
		case isIdentStart(r):
			start := i
			for i < len(rs) && isIdentRune(rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start:i])})
		default:
			return nil, grammarErr(string(r), "unexpected character")
		}
	}
	toks = append(toks, token{kind: tokEOF, text: "end of formula"})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || r >= '0' && r <= '9'
}

func grammarErr(tok, detail string) *ValidationError {
	return &ValidationError{
		Reason: ReasonGrammarViolation,
		Field:  "derived_formula",
		Detail: fmt.Sprintf("%s: %q", detail, tok),
	}
}

type parser struct {
	toks []token
	pos  int
	// allowed restricts identifiers to metric keys named by the config.
	allowed map[string]bool
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// ParseFormula parses src, restricting identifiers to the allowed metric
// keys. It returns the expression tree or a grammar ValidationError.
func ParseFormula(src string, allowed []string) (Expr, *ValidationError) {
	if strings.TrimSpace(src) == "" {
		return nil, grammarErr("", "empty formula")
	}
	toks, verr := lex(src)
	if verr != nil {
		return nil, verr
	}
	p := &parser{toks: toks, allowed: make(map[string]bool, len(allowed))}
	for _, k := range allowed {
		p.allowed[k] = true
	}
	e, verr := p.parseExpr()
	if verr != nil {
		return nil, verr
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, grammarErr(t.text, "unexpected token")
	}
	return e, nil
}

func (p *parser) parseExpr() (Expr, *ValidationError) {
	l, verr := p.parseTerm()
	if verr != nil {
		return nil, verr
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.op != '+' && t.op != '-') {
			return l, nil
		}
		p.next()
		r, verr := p.parseTerm()
		if verr != nil {
			return nil, verr
		}
		l = binaryExpr{op: t.op, l: l, r: r}
	}
}

func (p *parser) parseTerm() (Expr, *ValidationError) {
	l, verr := p.parseUnary()
	if verr != nil {
		return nil, verr
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.op != '*' && t.op != '/') {
			return l, nil
		}
		p.next()
		r, verr := p.parseUnary()
		if verr != nil {
			return nil, verr
		}
		l = binaryExpr{op: t.op, l: l, r: r}
	}
}

func (p *parser) parseUnary() (Expr, *ValidationError) {
	t := p.peek()
	if t.kind == tokOp && (t.op == '+' || t.op == '-') {
		p.next()
		x, verr := p.parseUnary()
		if verr != nil {
			return nil, verr
		}
		return unaryExpr{op: t.op, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, *ValidationError) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numLit(t.num), nil
	case tokIdent:
		if !p.allowed[t.text] {
			return nil, grammarErr(t.text, "identifier is not a metric named by this config")
		}
		return ident(t.text), nil
	case tokLParen:
		e, verr := p.parseExpr()
		if verr != nil {
			return nil, verr
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, grammarErr(closing.text, "expected closing parenthesis")
		}
		return e, nil
	default:
		return nil, grammarErr(t.text, "expected number, metric, or parenthesis")
	}
}
