package filter

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/recfilter/query"
)

// Parse parses filter pushdown JSON from the DuckDB Airport extension.
// Returns a FilterPushdown containing parsed expressions and column bindings.
//
// Error conditions:
//   - Invalid JSON syntax
//   - Malformed children of a known expression class
//
// Unknown expression classes and constants of types without a query.Value
// counterpart parse into *UnsupportedExpression.
func Parse(data []byte) (*FilterPushdown, error) {
	if len(data) == 0 {
		return &FilterPushdown{}, nil
	}

	var raw rawFilterPushdown
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("filter: invalid JSON: %w", err)
	}

	fp := &FilterPushdown{
		ColumnBindings: raw.ColumnBindings,
		Filters:        make([]Expression, 0, len(raw.Filters)),
	}

	for i, rawExpr := range raw.Filters {
		expr, err := parseExpression(rawExpr)
		if err != nil {
			return nil, fmt.Errorf("filter: error parsing filter %d: %w", i, err)
		}
		fp.Filters = append(fp.Filters, expr)
	}

	return fp, nil
}

type rawFilterPushdown struct {
	Filters        []json.RawMessage `json:"filters"`
	ColumnBindings []string          `json:"column_binding_names_by_index"`
}

// rawExpression is used for two-phase parsing to determine expression class.
type rawExpression struct {
	ExpressionClass string `json:"expression_class"`
	Type            string `json:"type"`
}

func (r rawExpression) base() BaseExpression {
	return BaseExpression{ExprClass: ExpressionClass(r.ExpressionClass), ExprType: ExpressionType(r.Type)}
}

func parseExpression(data json.RawMessage) (Expression, error) {
	var raw rawExpression
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}

	switch ExpressionClass(raw.ExpressionClass) {
	case ClassBoundComparison:
		return parseComparisonExpression(data)
	case ClassBoundConjunction:
		return parseConjunctionExpression(data)
	case ClassBoundConstant:
		return parseConstantExpression(data)
	case ClassBoundColumnRef:
		return parseColumnRefExpression(data)
	case ClassBoundFunction:
		return parseFunctionExpression(data)
	case ClassBoundOperator:
		return parseOperatorExpression(data)
	default:
		return &UnsupportedExpression{
			BaseExpression: raw.base(),
			Reason:         "expression class " + raw.ExpressionClass,
		}, nil
	}
}

type rawComparison struct {
	rawExpression
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`
}

func parseComparisonExpression(data json.RawMessage) (*ComparisonExpression, error) {
	var raw rawComparison
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid comparison expression: %w", err)
	}

	left, err := parseExpression(raw.Left)
	if err != nil {
		return nil, fmt.Errorf("invalid left operand: %w", err)
	}

	right, err := parseExpression(raw.Right)
	if err != nil {
		return nil, fmt.Errorf("invalid right operand: %w", err)
	}

	return &ComparisonExpression{BaseExpression: raw.base(), Left: left, Right: right}, nil
}

type rawChildren struct {
	rawExpression
	Name     string            `json:"name"`
	Children []json.RawMessage `json:"children"`
}

func parseChildren(raw []json.RawMessage) ([]Expression, error) {
	children := make([]Expression, 0, len(raw))
	for i, child := range raw {
		expr, err := parseExpression(child)
		if err != nil {
			return nil, fmt.Errorf("invalid child %d: %w", i, err)
		}
		children = append(children, expr)
	}
	return children, nil
}

func parseConjunctionExpression(data json.RawMessage) (*ConjunctionExpression, error) {
	var raw rawChildren
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid conjunction expression: %w", err)
	}
	children, err := parseChildren(raw.Children)
	if err != nil {
		return nil, err
	}
	return &ConjunctionExpression{BaseExpression: raw.base(), Children: children}, nil
}

func parseFunctionExpression(data json.RawMessage) (*FunctionExpression, error) {
	var raw rawChildren
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid function expression: %w", err)
	}
	children, err := parseChildren(raw.Children)
	if err != nil {
		return nil, err
	}
	return &FunctionExpression{BaseExpression: raw.base(), Name: raw.Name, Children: children}, nil
}

func parseOperatorExpression(data json.RawMessage) (*OperatorExpression, error) {
	var raw rawChildren
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid operator expression: %w", err)
	}
	children, err := parseChildren(raw.Children)
	if err != nil {
		return nil, err
	}
	return &OperatorExpression{BaseExpression: raw.base(), Children: children}, nil
}

type rawColumnRef struct {
	rawExpression
	Binding ColumnBinding `json:"binding"`
	Depth   int           `json:"depth"`
}

func parseColumnRefExpression(data json.RawMessage) (*ColumnRefExpression, error) {
	var raw rawColumnRef
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid column ref expression: %w", err)
	}
	return &ColumnRefExpression{BaseExpression: raw.base(), Binding: raw.Binding, Depth: raw.Depth}, nil
}

type rawConstant struct {
	rawExpression
	Value struct {
		Type struct {
			ID string `json:"id"`
		} `json:"type"`
		IsNull bool            `json:"is_null"`
		Value  json.RawMessage `json:"value"`
	} `json:"value"`
}

// base64String is how the extension sends VARCHAR values that are not
// valid UTF-8.
type base64String struct {
	Base64 string `json:"base64"`
}

func parseConstantExpression(data json.RawMessage) (Expression, error) {
	var raw rawConstant
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid constant expression: %w", err)
	}

	typeID := strings.ToUpper(raw.Value.Type.ID)
	c := &ConstantExpression{BaseExpression: raw.base(), TypeID: typeID}
	if raw.Value.IsNull || len(raw.Value.Value) == 0 || string(raw.Value.Value) == "null" {
		c.Value = query.Null()
		return c, nil
	}

	v, ok, err := parseValueData(raw.Value.Value, typeID)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", typeID, err)
	}
	if !ok {
		return &UnsupportedExpression{BaseExpression: raw.base(), Reason: "constant of type " + typeID}, nil
	}
	c.Value = v
	return c, nil
}

// parseValueData decodes the constant payload for the scalar types that map
// onto query.Value. ok is false for every other type.
func parseValueData(data json.RawMessage, typeID string) (v query.Value, ok bool, err error) {
	switch typeID {
	case "BOOLEAN", "BOOL":
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return query.Value{}, false, err
		}
		return query.Bool(b), true, nil

	case "TINYINT", "SMALLINT", "INTEGER", "INT", "BIGINT",
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT":
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return query.Value{}, false, err
		}
		f, err := n.Float64()
		if err != nil {
			return query.Value{}, false, err
		}
		return query.Number(f), true, nil

	case "FLOAT", "DOUBLE", "REAL", "DECIMAL":
		// DECIMAL arrives as a string or a number.
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return query.Value{}, false, err
			}
			return query.Number(f), true, nil
		}
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return query.Value{}, false, err
		}
		return query.Number(f), true, nil

	case "VARCHAR", "CHAR", "TEXT", "STRING":
		var b64 base64String
		if err := json.Unmarshal(data, &b64); err == nil && b64.Base64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(b64.Base64)
			if err != nil {
				return query.Value{}, false, fmt.Errorf("invalid base64: %w", err)
			}
			return query.String(string(decoded)), true, nil
		}
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return query.Value{}, false, err
		}
		return query.String(s), true, nil

	default:
		return query.Value{}, false, nil
	}
}
