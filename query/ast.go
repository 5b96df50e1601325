package query

// TransformOp identifies a string transform.
type TransformOp uint8

const (
	UpperCase TransformOp = iota
	LowerCase
)

// String returns the function name used in query text.
func (op TransformOp) String() string {
	switch op {
	case UpperCase:
		return "upper"
	case LowerCase:
		return "lower"
	default:
		return "transform?"
	}
}

// CompareOp identifies a value comparison.
type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpGt
)

// String returns the operator symbol used in query text.
func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	default:
		return "?"
	}
}

// LogicalOp identifies a boolean connective.
type LogicalOp uint8

const (
	OpAnd LogicalOp = iota
	OpOr
)

// String returns the operator symbol used in query text.
func (op LogicalOp) String() string {
	if op == OpOr {
		return "||"
	}
	return "&&"
}

// Expression is a tree node producing a Value from a Record.
// The set of implementations is closed: *FieldExpr, *LiteralExpr and
// *TransformExpr.
type Expression interface {
	// String renders the expression in query syntax.
	String() string

	expressionMarker()
}

// Predicate is a tree node producing a boolean from a Record.
// The set of implementations is closed: *ComparisonPredicate, *NotPredicate
// and *LogicalPredicate.
type Predicate interface {
	// String renders the predicate in query syntax.
	String() string

	predicateMarker()
}

// FieldExpr looks up a field in the record.
type FieldExpr struct {
	Name string
}

// LiteralExpr is a constant value.
type LiteralExpr struct {
	Value Value
}

// TransformExpr applies a string transform to the value of Inner.
type TransformExpr struct {
	Op    TransformOp
	Inner Expression
}

func (*FieldExpr) expressionMarker()     {}
func (*LiteralExpr) expressionMarker()   {}
func (*TransformExpr) expressionMarker() {}

func (e *FieldExpr) String() string   { return quoteIdent(e.Name) }
func (e *LiteralExpr) String() string { return e.Value.String() }
func (e *TransformExpr) String() string {
	return e.Op.String() + "(" + e.Inner.String() + ")"
}

// ComparisonPredicate compares two expressions.
type ComparisonPredicate struct {
	Op    CompareOp
	Left  Expression
	Right Expression
}

// NotPredicate negates its operand.
type NotPredicate struct {
	Operand Predicate
}

// LogicalPredicate joins two predicates with && or ||.
type LogicalPredicate struct {
	Op    LogicalOp
	Left  Predicate
	Right Predicate
}

func (*ComparisonPredicate) predicateMarker() {}
func (*NotPredicate) predicateMarker()        {}
func (*LogicalPredicate) predicateMarker()    {}

func (p *ComparisonPredicate) String() string {
	return p.Left.String() + " " + p.Op.String() + " " + p.Right.String()
}

func (p *NotPredicate) String() string {
	return "!(" + p.Operand.String() + ")"
}

func (p *LogicalPredicate) String() string {
	return "(" + p.Left.String() + " " + p.Op.String() + " " + p.Right.String() + ")"
}

// Field returns an expression reading the named field.
func Field(name string) Expression { return &FieldExpr{Name: name} }

// Lit returns a constant expression.
func Lit(v Value) Expression { return &LiteralExpr{Value: v} }

// Upper returns an expression upper-casing the string produced by inner.
func Upper(inner Expression) Expression { return &TransformExpr{Op: UpperCase, Inner: inner} }

// Lower returns an expression lower-casing the string produced by inner.
func Lower(inner Expression) Expression { return &TransformExpr{Op: LowerCase, Inner: inner} }

// Eq returns the predicate l == r.
func Eq(l, r Expression) Predicate { return &ComparisonPredicate{Op: OpEq, Left: l, Right: r} }

// Neq returns the predicate l != r.
func Neq(l, r Expression) Predicate { return &ComparisonPredicate{Op: OpNeq, Left: l, Right: r} }

// Lt returns the predicate l < r.
func Lt(l, r Expression) Predicate { return &ComparisonPredicate{Op: OpLt, Left: l, Right: r} }

// Gt returns the predicate l > r.
func Gt(l, r Expression) Predicate { return &ComparisonPredicate{Op: OpGt, Left: l, Right: r} }

// Not returns the negation of p.
func Not(p Predicate) Predicate { return &NotPredicate{Operand: p} }

// And returns the conjunction of l and r.
func And(l, r Predicate) Predicate { return &LogicalPredicate{Op: OpAnd, Left: l, Right: r} }

// Or returns the disjunction of l and r.
func Or(l, r Predicate) Predicate { return &LogicalPredicate{Op: OpOr, Left: l, Right: r} }

// NodeCount returns the number of nodes in the predicate tree, counting
// expression nodes.
func NodeCount(p Predicate) int {
	switch n := p.(type) {
	case *ComparisonPredicate:
		return 1 + exprNodeCount(n.Left) + exprNodeCount(n.Right)
	case *NotPredicate:
		return 1 + NodeCount(n.Operand)
	case *LogicalPredicate:
		return 1 + NodeCount(n.Left) + NodeCount(n.Right)
	default:
		return 0
	}
}

func exprNodeCount(e Expression) int {
	if t, ok := e.(*TransformExpr); ok {
		return 1 + exprNodeCount(t.Inner)
	}
	if e == nil {
		return 0
	}
	return 1
}

// Fields returns the distinct field names referenced by p in first-use order.
func Fields(p Predicate) []string {
	var names []string
	seen := map[string]bool{}
	var walkExpr func(Expression)
	walkExpr = func(e Expression) {
		switch n := e.(type) {
		case *FieldExpr:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *TransformExpr:
			walkExpr(n.Inner)
		}
	}
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch n := p.(type) {
		case *ComparisonPredicate:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *NotPredicate:
			walk(n.Operand)
		case *LogicalPredicate:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(p)
	return names
}
