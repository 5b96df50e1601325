package vm

import (
	"github.com/hugr-lab/recfilter/query"
)

// initialStack is the starting operand stack capacity. Predicates rarely
// nest deeper.
const initialStack = 20

// Execute runs the program against rec.
//
// ok is false when the record has no result: a field is missing or a value
// has the wrong kind for an instruction. err is non-nil only for a
// malformed program (stack underflow or a final stack depth other than one)
// and wraps ErrMalformedProgram.
func (p *Program) Execute(rec query.Record) (v query.Value, ok bool, err error) {
	m := machine{stack: make([]query.Value, 0, initialStack)}
	return m.run(p.Code, rec)
}

// Match runs the program and reports whether it produced Bool(true).
// An absent result does not match.
func (p *Program) Match(rec query.Record) (bool, error) {
	v, ok, err := p.Execute(rec)
	if err != nil || !ok {
		return false, err
	}
	b, isBool := v.AsBool()
	if !isBool {
		return false, ErrNotBoolean
	}
	return b, nil
}

type machine struct {
	stack []query.Value
}

func (m *machine) push(v query.Value) {
	m.stack = append(m.stack, v)
}

func (m *machine) pop() (query.Value, bool) {
	n := len(m.stack)
	if n == 0 {
		return query.Value{}, false
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v, true
}

func (m *machine) run(code []Instruction, rec query.Record) (query.Value, bool, error) {
	for pc, in := range code {
		if len(m.stack) < in.Op.arity() {
			return query.Value{}, false, &MalformedProgramError{
				PC: pc, Op: in.Op, Depth: len(m.stack), Reason: "stack underflow",
			}
		}

		switch in.Op {
		case OpPushField:
			v, ok := rec.Get(in.Name)
			if !ok {
				return query.Value{}, false, nil
			}
			m.push(v)

		case OpPushLiteral:
			m.push(in.Value)

		case OpUpperCase, OpLowerCase:
			operand, _ := m.pop()
			op := query.UpperCase
			if in.Op == OpLowerCase {
				op = query.LowerCase
			}
			v, ok := query.ApplyTransform(op, operand)
			if !ok {
				return query.Value{}, false, nil
			}
			m.push(v)

		case OpEq, OpNeq:
			first, _ := m.pop()
			second, _ := m.pop()
			if in.Op == OpEq {
				m.push(query.Bool(first.Equal(second)))
			} else {
				m.push(query.Bool(first.NotEqual(second)))
			}

		case OpLt, OpGt:
			// first is the right operand, second the left one.
			first, _ := m.pop()
			second, _ := m.pop()
			r, ok := first.AsInteger()
			if !ok {
				return query.Value{}, false, nil
			}
			l, ok := second.AsInteger()
			if !ok {
				return query.Value{}, false, nil
			}
			if in.Op == OpLt {
				m.push(query.Bool(r > l))
			} else {
				m.push(query.Bool(r < l))
			}

		case OpNot:
			operand, _ := m.pop()
			b, ok := operand.AsBool()
			if !ok {
				return query.Value{}, false, nil
			}
			m.push(query.Bool(!b))

		case OpAnd, OpOr:
			first, _ := m.pop()
			second, _ := m.pop()
			r, ok := first.AsBool()
			if !ok {
				return query.Value{}, false, nil
			}
			l, ok := second.AsBool()
			if !ok {
				return query.Value{}, false, nil
			}
			if in.Op == OpAnd {
				m.push(query.Bool(l && r))
			} else {
				m.push(query.Bool(l || r))
			}

		default:
			return query.Value{}, false, &MalformedProgramError{
				PC: pc, Op: in.Op, Depth: len(m.stack), Reason: "unknown opcode",
			}
		}
	}

	if len(m.stack) != 1 {
		return query.Value{}, false, &MalformedProgramError{
			PC: len(code), Depth: len(m.stack), Reason: "program must leave exactly one value",
		}
	}
	return m.stack[0], true, nil
}
