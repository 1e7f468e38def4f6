// Package formula evaluates the restricted quantity formulas attached to
// template items.
//
// The grammar is closed on purpose: numbers, + - * / ( ), one variable
// ("quantity", the ordered amount) and one function ("ceil"). There is no
// ambient scope, no I/O and no control flow, so a formula can never be an
// injection vector.
//
//	expr    := term (('+'|'-') term)*
//	term    := unary (('*'|'/') unary)*
//	unary   := '-' unary | primary
//	primary := number | 'quantity' | 'ceil' '(' expr ')' | '(' expr ')'
package formula

import (
	"math"
	"strings"
	"unicode"

	"printq/internal/core/apperror"
)

// QuantityVar is the literal token substituted with the ordered quantity.
const QuantityVar = "quantity"

// Eval evaluates a formula at the given ordered quantity.
// The result must be finite and non-negative.
func Eval(formula string, quantity float64) (float64, error) {
	if strings.TrimSpace(formula) == "" {
		return 0, apperror.NewInvalidFormula(formula, "empty formula")
	}
	if err := checkWhitelist(formula); err != nil {
		return 0, err
	}

	p := &parser{input: formula, quantity: quantity}
	val, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, apperror.NewInvalidFormula(formula, "unexpected trailing input")
	}

	if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
		return 0, apperror.NewInvalidFormula(formula, "result is negative or not finite").
			WithDetail("quantity", quantity)
	}
	return val, nil
}

// Validate checks a formula without caring about the ordered quantity.
// Used when template items are saved.
func Validate(formula string) error {
	_, err := Eval(formula, 1)
	return err
}

// checkWhitelist rejects any character outside the allowed class before
// parsing even starts.
func checkWhitelist(formula string) error {
	for _, r := range formula {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == '*' || r == '/':
		case r == '(' || r == ')' || r == '.':
		case r == '_':
		case unicode.IsSpace(r):
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return apperror.NewInvalidFormula(formula, "character outside whitelist").
				WithDetail("char", string(r))
		}
	}
	return nil
}

type parser struct {
	input    string
	pos      int
	quantity float64
}

func (p *parser) errf(reason string) error {
	return apperror.NewInvalidFormula(p.input, reason).WithDetail("pos", p.pos)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, p.errf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (float64, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	p.skipSpace()
	c := p.peek()

	switch {
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, p.errf("missing closing parenthesis")
		}
		p.pos++
		return v, nil

	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()

	case isIdentStart(c):
		return p.parseIdent()
	}

	return 0, p.errf("expected number, variable or parenthesis")
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	seenDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' {
			if seenDot {
				return 0, p.errf("malformed number")
			}
			seenDot = true
			p.pos++
			continue
		}
		break
	}
	tok := p.input[start:p.pos]
	if tok == "." || tok == "" {
		return 0, p.errf("malformed number")
	}
	var val float64
	var frac float64 = 0
	intDone := false
	scale := 0.1
	for i := 0; i < len(tok); i++ {
		if tok[i] == '.' {
			intDone = true
			continue
		}
		d := float64(tok[i] - '0')
		if !intDone {
			val = val*10 + d
		} else {
			frac += d * scale
			scale /= 10
		}
	}
	return val + frac, nil
}

func (p *parser) parseIdent() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentChar(p.input[p.pos]) {
		p.pos++
	}
	ident := p.input[start:p.pos]

	switch ident {
	case QuantityVar:
		return p.quantity, nil
	case "ceil":
		p.skipSpace()
		if p.peek() != '(' {
			return 0, p.errf("ceil requires parentheses")
		}
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, p.errf("missing closing parenthesis")
		}
		p.pos++
		return math.Ceil(v), nil
	}

	return 0, apperror.NewInvalidFormula(p.input, "unknown identifier").
		WithDetail("identifier", ident)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
