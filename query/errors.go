package query

import (
	"errors"
	"strconv"
)

var (
	// ErrSyntax is wrapped by every SyntaxError returned from Parse.
	ErrSyntax = errors.New("syntax error")

	// ErrUnsupportedValue indicates a Go value that has no scalar Value form.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// SyntaxError reports malformed query text.
type SyntaxError struct {
	// Offset is the byte offset in the query text where the error was detected.
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return "syntax error at offset " + strconv.Itoa(e.Offset) + ": " + e.Msg
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }
