package query

import "strings"

// EvalExpression evaluates expr against rec.
// ok is false when the expression has no result for this record.
func EvalExpression(expr Expression, rec Record) (v Value, ok bool) {
	switch e := expr.(type) {
	case *FieldExpr:
		return rec.Get(e.Name)
	case *LiteralExpr:
		return e.Value, true
	case *TransformExpr:
		inner, ok := EvalExpression(e.Inner, rec)
		if !ok {
			return Value{}, false
		}
		return ApplyTransform(e.Op, inner)
	default:
		return Value{}, false
	}
}

// ApplyTransform case-maps a String. Any other kind has no result.
func ApplyTransform(op TransformOp, v Value) (Value, bool) {
	s, ok := v.AsText()
	if !ok {
		return Value{}, false
	}
	switch op {
	case UpperCase:
		return String(strings.ToUpper(s)), true
	case LowerCase:
		return String(strings.ToLower(s)), true
	default:
		return Value{}, false
	}
}

// EvalPredicate evaluates pred against rec.
// ok is false when the predicate has no result for this record.
func EvalPredicate(pred Predicate, rec Record) (result bool, ok bool) {
	switch p := pred.(type) {
	case *ComparisonPredicate:
		return evalComparison(p, rec)
	case *NotPredicate:
		b, ok := EvalPredicate(p.Operand, rec)
		if !ok {
			return false, false
		}
		return !b, true
	case *LogicalPredicate:
		l, ok := EvalPredicate(p.Left, rec)
		if !ok {
			return false, false
		}
		switch p.Op {
		case OpAnd:
			if !l {
				return false, true
			}
		case OpOr:
			if l {
				return true, true
			}
		default:
			return false, false
		}
		return EvalPredicate(p.Right, rec)
	default:
		return false, false
	}
}

func evalComparison(p *ComparisonPredicate, rec Record) (bool, bool) {
	l, ok := EvalExpression(p.Left, rec)
	if !ok {
		return false, false
	}
	r, ok := EvalExpression(p.Right, rec)
	if !ok {
		return false, false
	}
	return Compare(p.Op, l, r)
}

// Compare applies op to two present values. Lt and Gt require both values
// to be integral numbers; otherwise there is no result.
func Compare(op CompareOp, l, r Value) (bool, bool) {
	switch op {
	case OpEq:
		return l.Equal(r), true
	case OpNeq:
		return l.NotEqual(r), true
	case OpLt, OpGt:
		li, ok := l.AsInteger()
		if !ok {
			return false, false
		}
		ri, ok := r.AsInteger()
		if !ok {
			return false, false
		}
		if op == OpLt {
			return li < ri, true
		}
		return li > ri, true
	default:
		return false, false
	}
}

// Match reports whether pred holds for rec. An absent result does not match.
func Match(pred Predicate, rec Record) bool {
	b, ok := EvalPredicate(pred, rec)
	return ok && b
}
