package filter

import (
	"math"
	"strconv"
	"strings"

	"github.com/hugr-lab/recfilter/query"
)

// DuckDBEncoder encodes query predicates to DuckDB SQL syntax.
//
// The encoded condition is a pre-filter: every record the predicate matches
// satisfies the condition, but the condition may accept rows the predicate
// rejects. SQL has no notion of a value of the wrong kind, so operands are
// cast (TRY_CAST for numbers and booleans) and constructs that cannot be
// widened safely are dropped:
//   - For AND: unsupported children are skipped, others kept
//   - For OR: if any child is unsupported, the entire OR is skipped
//   - NOT and != over columns are skipped; != NULL becomes IS NOT NULL
//
// Callers must re-check the rows the condition returns with the predicate.
type DuckDBEncoder struct {
	opts *EncoderOptions
}

// NewDuckDBEncoder creates a new DuckDB SQL encoder.
// If opts is nil, default options are used.
func NewDuckDBEncoder(opts *EncoderOptions) *DuckDBEncoder {
	if opts == nil {
		opts = &EncoderOptions{}
	}
	return &DuckDBEncoder{opts: opts}
}

// EncodeFilters converts all filters to a WHERE clause body. Filters that
// cannot be translated into predicates are skipped.
func (e *DuckDBEncoder) EncodeFilters(fp *FilterPushdown) string {
	if fp == nil || len(fp.Filters) == 0 {
		return ""
	}

	var parts []string
	for _, f := range fp.Filters {
		pred, err := fp.predicate(f)
		if err != nil {
			continue
		}
		if encoded := e.Encode(pred); encoded != "" {
			parts = append(parts, encoded)
		}
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, ") AND (") + ")"
}

// Encode converts a predicate to a WHERE clause body.
// Returns empty string if the predicate places no encodable restriction.
func (e *DuckDBEncoder) Encode(pred query.Predicate) string {
	if pred == nil {
		return ""
	}

	// Predicates over literals only are decided here.
	if len(query.Fields(pred)) == 0 {
		if query.Match(pred, nil) {
			return "TRUE"
		}
		return "FALSE"
	}

	switch p := pred.(type) {
	case *query.ComparisonPredicate:
		return e.encodeComparison(p)
	case *query.LogicalPredicate:
		return e.encodeLogical(p)
	default:
		// NOT needs an exact operand encoding, which casts cannot provide.
		return ""
	}
}

func (e *DuckDBEncoder) encodeLogical(p *query.LogicalPredicate) string {
	left := e.Encode(p.Left)
	right := e.Encode(p.Right)

	if p.Op == query.OpOr {
		if left == "" || right == "" {
			return ""
		}
		return "(" + left + " OR " + right + ")"
	}

	switch {
	case left == "":
		return right
	case right == "":
		return left
	}
	return "(" + left + " AND " + right + ")"
}

func (e *DuckDBEncoder) encodeComparison(c *query.ComparisonPredicate) string {
	switch c.Op {
	case query.OpEq:
		return e.encodeEquality(c.Left, c.Right)
	case query.OpNeq:
		if isNullLiteral(c.Right) {
			return e.encodeValue(c.Left) + " IS NOT NULL"
		}
		if isNullLiteral(c.Left) {
			return e.encodeValue(c.Right) + " IS NOT NULL"
		}
		return ""
	case query.OpLt:
		return e.encodeOrdering(c.Left, c.Right, " < ")
	case query.OpGt:
		return e.encodeOrdering(c.Left, c.Right, " > ")
	}
	return ""
}

// encodeEquality casts the non-literal side to the literal's type. Column
// to column equality is not encoded: DuckDB renders numbers of different
// column types differently, so no common cast preserves equality.
func (e *DuckDBEncoder) encodeEquality(left, right query.Expression) string {
	lit, ok := right.(*query.LiteralExpr)
	other := left
	if !ok {
		lit, ok = left.(*query.LiteralExpr)
		other = right
	}
	if !ok {
		return ""
	}

	switch lit.Value.Kind() {
	case query.KindNull:
		if _, isTransform := other.(*query.TransformExpr); isTransform {
			// A transform yields a string or nothing, never null.
			return "FALSE"
		}
		return e.encodeValue(other) + " IS NULL"
	case query.KindBool:
		return "TRY_CAST(" + e.encodeValue(other) + " AS BOOLEAN) = " + formatLiteral(lit.Value)
	case query.KindNumber:
		return "TRY_CAST(" + e.encodeValue(other) + " AS DOUBLE) = " + formatLiteral(lit.Value)
	default:
		return e.encodeText(other) + " = " + formatLiteral(lit.Value)
	}
}

// encodeOrdering compares both sides as BIGINT. Operands that can never be
// integers (transforms, fractional literals) make the comparison false.
func (e *DuckDBEncoder) encodeOrdering(left, right query.Expression, op string) string {
	l, ok := e.encodeInteger(left)
	if !ok {
		return "FALSE"
	}
	r, ok := e.encodeInteger(right)
	if !ok {
		return "FALSE"
	}
	return l + op + r
}

func (e *DuckDBEncoder) encodeInteger(expr query.Expression) (string, bool) {
	switch ex := expr.(type) {
	case *query.LiteralExpr:
		n, ok := ex.Value.AsInteger()
		if !ok {
			return "", false
		}
		return strconv.FormatInt(n, 10), true
	case *query.TransformExpr:
		return "", false
	}
	return "TRY_CAST(" + e.encodeValue(expr) + " AS BIGINT)", true
}

// encodeText renders expr as VARCHAR.
func (e *DuckDBEncoder) encodeText(expr query.Expression) string {
	switch expr.(type) {
	case *query.TransformExpr:
		return e.encodeValue(expr)
	case *query.LiteralExpr:
		return e.encodeValue(expr)
	}
	return "CAST(" + e.encodeValue(expr) + " AS VARCHAR)"
}

func (e *DuckDBEncoder) encodeValue(expr query.Expression) string {
	switch ex := expr.(type) {
	case *query.FieldExpr:
		return e.encodeColumn(ex.Name)
	case *query.LiteralExpr:
		return formatLiteral(ex.Value)
	case *query.TransformExpr:
		fn := "upper"
		if ex.Op == query.LowerCase {
			fn = "lower"
		}
		return fn + "(" + e.encodeText(ex.Inner) + ")"
	}
	return "NULL"
}

func (e *DuckDBEncoder) encodeColumn(name string) string {
	// Check for expression mapping first (takes precedence)
	if e.opts.ColumnExpressions != nil {
		if expr, ok := e.opts.ColumnExpressions[name]; ok {
			return expr
		}
	}

	if e.opts.ColumnMapping != nil {
		if mapped, ok := e.opts.ColumnMapping[name]; ok {
			name = mapped
		}
	}

	return QuoteIdentifier(name)
}

// formatLiteral formats a Value as a SQL literal.
func formatLiteral(v query.Value) string {
	switch v.Kind() {
	case query.KindBool:
		if b, _ := v.AsBool(); b {
			return "TRUE"
		}
		return "FALSE"
	case query.KindNumber:
		if n, ok := v.AsInteger(); ok {
			return strconv.FormatInt(n, 10)
		}
		f, _ := v.AsNumber()
		switch {
		case math.IsNaN(f):
			return "'nan'::DOUBLE"
		case math.IsInf(f, 1):
			return "'inf'::DOUBLE"
		case math.IsInf(f, -1):
			return "'-inf'::DOUBLE"
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case query.KindString:
		s, _ := v.AsText()
		return quoteLiteral(s)
	default:
		return "NULL"
	}
}

func isNullLiteral(expr query.Expression) bool {
	lit, ok := expr.(*query.LiteralExpr)
	return ok && lit.Value.IsNull()
}
