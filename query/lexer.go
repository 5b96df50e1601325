package query

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenType uint8

const (
	tokenEOF tokenType = iota
	tokenName
	tokenString
	tokenNumber
	tokenTrue
	tokenFalse
	tokenNull
	tokenParenOpen
	tokenParenClose
	tokenEqual    // ==
	tokenNotEqual // !=
	tokenLess     // <
	tokenGreater  // >
	tokenNot      // !
	tokenAnd      // &&
	tokenOr       // ||
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "end of query"
	case tokenName:
		return "name"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenTrue, tokenFalse:
		return "boolean"
	case tokenNull:
		return "null"
	case tokenParenOpen:
		return `"("`
	case tokenParenClose:
		return `")"`
	case tokenEqual:
		return `"=="`
	case tokenNotEqual:
		return `"!="`
	case tokenLess:
		return `"<"`
	case tokenGreater:
		return `">"`
	case tokenNot:
		return `"!"`
	case tokenAnd:
		return `"&&"`
	case tokenOr:
		return `"||"`
	default:
		return "token"
	}
}

type token struct {
	typ tokenType
	val string // unescaped text for names and strings, raw text otherwise
	pos int

	// quoted is set for backtick names, which never denote functions.
	quoted bool
}

// lexer splits query text into tokens. Scanning stops at the first error.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) next() (token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]

	if tt, width := symbol(l.input[l.pos:]); width > 0 {
		l.pos += width
		return token{typ: tt, val: l.input[start:l.pos], pos: start}, nil
	}

	switch {
	case c == '"':
		return l.scanString()
	case c == '`':
		return l.scanEscapedName()
	case c == '-' || c == '+' || isDigit(c):
		return l.scanNumber()
	case isNameStart(c):
		return l.scanName(), nil
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return token{}, &SyntaxError{Offset: start, Msg: "unexpected character " + strconv.QuoteRune(r)}
}

func symbol(s string) (tokenType, int) {
	if len(s) >= 2 {
		switch s[:2] {
		case "==":
			return tokenEqual, 2
		case "!=":
			return tokenNotEqual, 2
		case "&&":
			return tokenAnd, 2
		case "||":
			return tokenOr, 2
		}
	}
	switch s[0] {
	case '(':
		return tokenParenOpen, 1
	case ')':
		return tokenParenClose, 1
	case '<':
		return tokenLess, 1
	case '>':
		return tokenGreater, 1
	case '!':
		return tokenNot, 1
	}
	return tokenEOF, 0
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) scanString() (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{typ: tokenString, val: sb.String(), pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.input) {
				return token{}, &SyntaxError{Offset: l.pos, Msg: "unterminated escape sequence"}
			}
			switch l.input[l.pos+1] {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				return token{}, &SyntaxError{Offset: l.pos, Msg: "unknown escape sequence \\" + string(l.input[l.pos+1])}
			}
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, &SyntaxError{Offset: start, Msg: "unterminated string"}
}

// scanEscapedName reads a backtick-quoted name. A doubled backtick stands
// for one backtick in the name.
func (l *lexer) scanEscapedName() (token, error) {
	start := l.pos
	l.pos++ // opening backtick
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		l.pos++
		if c != '`' {
			sb.WriteByte(c)
			continue
		}
		if l.pos < len(l.input) && l.input[l.pos] == '`' {
			sb.WriteByte('`')
			l.pos++
			continue
		}
		if sb.Len() == 0 {
			return token{}, &SyntaxError{Offset: start, Msg: "empty quoted name"}
		}
		return token{typ: tokenName, val: sb.String(), pos: start, quoted: true}, nil
	}
	return token{}, &SyntaxError{Offset: start, Msg: "unterminated quoted name"}
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	if c := l.input[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	digits := l.acceptDigits()
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		digits += l.acceptDigits()
	}
	if digits == 0 {
		return token{}, &SyntaxError{Offset: start, Msg: "malformed number"}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '-' || l.input[l.pos] == '+') {
			l.pos++
		}
		if l.acceptDigits() == 0 {
			return token{}, &SyntaxError{Offset: start, Msg: "malformed number exponent"}
		}
	}
	return token{typ: tokenNumber, val: l.input[start:l.pos], pos: start}, nil
}

func (l *lexer) acceptDigits() int {
	n := 0
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
		n++
	}
	return n
}

func (l *lexer) scanName() token {
	start := l.pos
	for l.pos < len(l.input) && isNamePart(l.input[l.pos]) {
		l.pos++
	}
	name := l.input[start:l.pos]
	switch name {
	case "true":
		return token{typ: tokenTrue, val: name, pos: start}
	case "false":
		return token{typ: tokenFalse, val: name, pos: start}
	case "null":
		return token{typ: tokenNull, val: name, pos: start}
	}
	return token{typ: tokenName, val: name, pos: start}
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isNameStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNamePart(c byte) bool  { return isNameStart(c) || isDigit(c) || c == '.' }

// quoteIdent renders a field name so that the lexer reads it back as the
// same name.
func quoteIdent(name string) string {
	if needsQuoting(name) {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return name
}

func needsQuoting(name string) bool {
	if name == "" || !isNameStart(name[0]) {
		return true
	}
	for i := 1; i < len(name); i++ {
		if !isNamePart(name[i]) {
			return true
		}
	}
	switch name {
	case "true", "false", "null", "upper", "lower":
		return true
	}
	return false
}
