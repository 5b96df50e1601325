package vm

import (
	"errors"
	"strconv"
)

var (
	// ErrMalformedProgram indicates a program that cannot run to completion
	// with exactly one result. It signals a compiler or codec bug, not a
	// property of the record.
	ErrMalformedProgram = errors.New("malformed program")

	// ErrNotBoolean is returned by Match when a well-formed program produces
	// a value that is not a boolean.
	ErrNotBoolean = errors.New("program result is not a boolean")

	// ErrInvalidEncoding indicates bytes that do not decode to a program.
	ErrInvalidEncoding = errors.New("invalid program encoding")
)

// MalformedProgramError describes where a program broke its stack discipline.
type MalformedProgramError struct {
	PC     int // instruction index; len(Code) for end-of-program checks
	Op     Opcode
	Depth  int // stack depth before the instruction ran
	Reason string
}

func (e *MalformedProgramError) Error() string {
	msg := "malformed program at " + strconv.Itoa(e.PC)
	if e.Op != 0 {
		msg += " (" + e.Op.String() + ")"
	}
	return msg + ": " + e.Reason + ", stack depth " + strconv.Itoa(e.Depth)
}

func (e *MalformedProgramError) Unwrap() error { return ErrMalformedProgram }
