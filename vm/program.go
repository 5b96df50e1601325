package vm

import (
	"strconv"
	"strings"

	"github.com/hugr-lab/recfilter/query"
)

// Instruction is a single opcode with its immediate operand.
// Name is set for OpPushField, Value for OpPushLiteral.
type Instruction struct {
	Op    Opcode
	Name  string
	Value query.Value
}

// String renders the instruction in disassembly form.
func (in Instruction) String() string {
	switch in.Op {
	case OpPushField:
		return in.Op.String() + " " + strconv.Quote(in.Name)
	case OpPushLiteral:
		return in.Op.String() + " " + in.Value.String()
	default:
		return in.Op.String()
	}
}

// Program is a compiled instruction sequence.
type Program struct {
	Code []Instruction
}

// Len returns the number of instructions.
func (p *Program) Len() int { return len(p.Code) }

// String returns a disassembly listing, one instruction per line.
func (p *Program) String() string {
	var sb strings.Builder
	for i, in := range p.Code {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString("\t")
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Equal reports whether two programs contain the same instructions.
func (p *Program) Equal(o *Program) bool {
	if len(p.Code) != len(o.Code) {
		return false
	}
	for i := range p.Code {
		a, b := p.Code[i], o.Code[i]
		if a.Op != b.Op || a.Name != b.Name || !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}

// Validate simulates stack depth without a record and reports the first
// instruction that would underflow, or a final depth other than one.
// Execute performs the same checks at run time; Validate lets callers reject
// a decoded program before scanning.
func (p *Program) Validate() error {
	depth := 0
	for i, in := range p.Code {
		if !in.Op.Valid() {
			return &MalformedProgramError{PC: i, Op: in.Op, Depth: depth, Reason: "unknown opcode"}
		}
		n := in.Op.arity()
		if depth < n {
			return &MalformedProgramError{PC: i, Op: in.Op, Depth: depth, Reason: "stack underflow"}
		}
		depth = depth - n + 1
	}
	if depth != 1 {
		return &MalformedProgramError{PC: len(p.Code), Depth: depth, Reason: "program must leave exactly one value"}
	}
	return nil
}
