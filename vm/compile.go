package vm

import "github.com/hugr-lab/recfilter/query"

// Compile lowers a predicate into a program. Compilation is total and
// deterministic; each tree node emits exactly one instruction.
func Compile(pred query.Predicate) *Program {
	c := &compiler{code: make([]Instruction, 0, query.NodeCount(pred))}
	c.predicate(pred)
	return &Program{Code: c.code}
}

// CompileExpression lowers a value expression into a program that leaves
// the expression's value on the stack.
func CompileExpression(expr query.Expression) *Program {
	c := &compiler{}
	c.expression(expr)
	return &Program{Code: c.code}
}

type compiler struct {
	code []Instruction
}

func (c *compiler) emit(in Instruction) {
	c.code = append(c.code, in)
}

func (c *compiler) expression(expr query.Expression) {
	switch e := expr.(type) {
	case *query.FieldExpr:
		c.emit(Instruction{Op: OpPushField, Name: e.Name})
	case *query.LiteralExpr:
		c.emit(Instruction{Op: OpPushLiteral, Value: e.Value})
	case *query.TransformExpr:
		c.expression(e.Inner)
		switch e.Op {
		case query.UpperCase:
			c.emit(Instruction{Op: OpUpperCase})
		case query.LowerCase:
			c.emit(Instruction{Op: OpLowerCase})
		}
	}
}

func (c *compiler) predicate(pred query.Predicate) {
	switch p := pred.(type) {
	case *query.ComparisonPredicate:
		c.expression(p.Left)
		c.expression(p.Right)
		c.emit(Instruction{Op: compareOpcode(p.Op)})
	case *query.NotPredicate:
		c.predicate(p.Operand)
		c.emit(Instruction{Op: OpNot})
	case *query.LogicalPredicate:
		c.predicate(p.Left)
		c.predicate(p.Right)
		if p.Op == query.OpOr {
			c.emit(Instruction{Op: OpOr})
		} else {
			c.emit(Instruction{Op: OpAnd})
		}
	}
}

func compareOpcode(op query.CompareOp) Opcode {
	switch op {
	case query.OpNeq:
		return OpNeq
	case query.OpLt:
		return OpLt
	case query.OpGt:
		return OpGt
	default:
		return OpEq
	}
}
