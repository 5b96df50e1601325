// Package query defines the record predicate language: scalar values,
// records, the expression and predicate trees, a tree-walking evaluator
// and the text parser.
//
// # Basic Usage
//
// Parse a query and evaluate it against a record:
//
//	pred, err := query.Parse(`size > 20 || range == "antarctic"`)
//	if err != nil {
//	    return err // *query.SyntaxError
//	}
//
//	rec := query.Record{
//	    "size":  query.Number(25),
//	    "range": query.String("pacific"),
//	}
//	if query.Match(pred, rec) {
//	    // record selected
//	}
//
// # Absence
//
// Evaluation never fails. A missing field, a transform applied to a
// non-string, or an ordering comparison over values that are not integers
// yields "no result", reported as ok == false by EvalExpression and
// EvalPredicate. Drivers treat an absent result the same as false: the
// record is excluded.
//
// # Short-circuit
//
// And and Or evaluate left to right. And stops at a false left operand and
// Or stops at a true one, so the right operand is never evaluated and its
// absence cannot affect the result. An absent left operand makes the whole
// connective absent.
//
// The compiled form in package vm evaluates both operands before the
// connective runs and therefore reports absence in cases where this
// package returns a definite answer.
//
// # Grammar
//
//	predicate  := or
//	or         := and ( "||" and )*
//	and        := unary ( "&&" unary )*
//	unary      := "!" unary | "(" or ")" | comparison
//	comparison := value ( "==" | "!=" | "<" | ">" ) value
//	value      := IDENT | STRING | NUMBER | true | false | null
//	            | upper "(" value ")" | lower "(" value ")"
package query
