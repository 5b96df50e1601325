package query

import (
	"strconv"
)

// Parse parses query text into a Predicate.
// Malformed input returns a *SyntaxError wrapping ErrSyntax.
func Parse(text string) (Predicate, error) {
	p := &parser{lex: newLexer(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.typ == tokenEOF {
		return nil, &SyntaxError{Offset: 0, Msg: "empty query"}
	}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokenEOF {
		return nil, p.unexpected("end of query")
	}
	return pred, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level query constants.
func MustParse(text string) Predicate {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) unexpected(want string) error {
	got := p.tok.typ.String()
	if p.tok.typ != tokenEOF && p.tok.val != "" {
		got += " " + strconv.Quote(p.tok.val)
	}
	return &SyntaxError{Offset: p.tok.pos, Msg: "expected " + want + ", found " + got}
}

func (p *parser) expect(tt tokenType) error {
	if p.tok.typ != tt {
		return p.unexpected(tt.String())
	}
	return p.advance()
}

func (p *parser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokenOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or(left, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (Predicate, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokenAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And(left, right)
	}
	return left, nil
}

func (p *parser) parseUnary() (Predicate, error) {
	switch p.tok.typ {
	case tokenNot:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not(operand), nil
	case tokenParenOpen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokenParenClose); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return p.parseComparison()
	}
}

func (p *parser) parseComparison() (Predicate, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	var op CompareOp
	switch p.tok.typ {
	case tokenEqual:
		op = OpEq
	case tokenNotEqual:
		op = OpNeq
	case tokenLess:
		op = OpLt
	case tokenGreater:
		op = OpGt
	default:
		return nil, p.unexpected("comparison operator")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &ComparisonPredicate{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseValue() (Expression, error) {
	tok := p.tok
	switch tok.typ {
	case tokenString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Lit(String(tok.val)), nil
	case tokenNumber:
		f, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			return nil, &SyntaxError{Offset: tok.pos, Msg: "invalid number " + strconv.Quote(tok.val)}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Lit(Number(f)), nil
	case tokenTrue, tokenFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Lit(Bool(tok.typ == tokenTrue)), nil
	case tokenNull:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Lit(Null()), nil
	case tokenName:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if op, ok := transformOp(tok); ok && p.tok.typ == tokenParenOpen {
			return p.parseTransform(op)
		}
		return Field(tok.val), nil
	default:
		return nil, p.unexpected("value")
	}
}

func (p *parser) parseTransform(op TransformOp) (Expression, error) {
	if err := p.expect(tokenParenOpen); err != nil {
		return nil, err
	}
	inner, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokenParenClose); err != nil {
		return nil, err
	}
	return &TransformExpr{Op: op, Inner: inner}, nil
}

func transformOp(tok token) (TransformOp, bool) {
	if tok.quoted {
		return 0, false
	}
	switch tok.val {
	case "upper":
		return UpperCase, true
	case "lower":
		return LowerCase, true
	}
	return 0, false
}
