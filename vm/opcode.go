// Package vm compiles predicates from package query into a linear
// stack-machine program and executes it against records.
//
// A Program is built once per query and reused for any number of records.
// It is read-only after compilation and safe for concurrent use.
//
//	prog := vm.Compile(pred)
//	for _, rec := range records {
//	    ok, err := prog.Match(rec)
//	    if err != nil {
//	        return err // malformed program, never caused by the data
//	    }
//	    ...
//	}
//
// Programs are straight-line: the compiler emits operands in post-order and
// never emits jumps. As a consequence And and Or run after both operands have
// been evaluated, so an absent right operand makes the connective absent even
// when the left operand already decides it. The tree-walking evaluator in
// package query short-circuits instead.
package vm

import "strconv"

// Opcode identifies a stack-machine instruction.
type Opcode uint8

const (
	OpPushField   Opcode = iota + 1 // push rec[Name]; absent if missing
	OpPushLiteral                   // push Value
	OpUpperCase                     // pop string, push upper-cased
	OpLowerCase                     // pop string, push lower-cased
	OpEq                            // pop r, l; push l == r
	OpNeq                           // pop r, l; push l != r
	OpLt                            // pop r, l; push l < r (integers)
	OpGt                            // pop r, l; push l > r (integers)
	OpNot                           // pop bool, push negation
	OpAnd                           // pop r, l; push l && r
	OpOr                            // pop r, l; push l || r
)

var opcodeNames = [...]string{
	OpPushField:   "PUSH_FIELD",
	OpPushLiteral: "PUSH_LITERAL",
	OpUpperCase:   "UPPER",
	OpLowerCase:   "LOWER",
	OpEq:          "EQ",
	OpNeq:         "NEQ",
	OpLt:          "LT",
	OpGt:          "GT",
	OpNot:         "NOT",
	OpAnd:         "AND",
	OpOr:          "OR",
}

// String returns the mnemonic used in disassembly.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "OP(" + strconv.Itoa(int(op)) + ")"
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op >= OpPushField && op <= OpOr
}

// arity is the number of operands an opcode pops.
func (op Opcode) arity() int {
	switch op {
	case OpPushField, OpPushLiteral:
		return 0
	case OpUpperCase, OpLowerCase, OpNot:
		return 1
	default:
		return 2
	}
}
