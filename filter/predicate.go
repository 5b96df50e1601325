package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hugr-lab/recfilter/query"
)

// ErrUnsupported is returned when a pushed-down filter uses an operator,
// function or constant type that has no counterpart in package query.
var ErrUnsupported = errors.New("filter: unsupported expression")

// Predicate translates the pushed-down filters into a query predicate.
// Multiple filters are AND-ed together and multi-child conjunctions fold
// left. A pushdown without filters returns (nil, nil).
//
// Translation is all-or-nothing: any unsupported node fails the whole
// translation with an error wrapping ErrUnsupported.
func (fp *FilterPushdown) Predicate() (query.Predicate, error) {
	if fp == nil || len(fp.Filters) == 0 {
		return nil, nil
	}

	var pred query.Predicate
	for i, f := range fp.Filters {
		p, err := fp.predicate(f)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		if pred == nil {
			pred = p
		} else {
			pred = query.And(pred, p)
		}
	}
	return pred, nil
}

func (fp *FilterPushdown) predicate(expr Expression) (query.Predicate, error) {
	switch ex := expr.(type) {
	case *ComparisonExpression:
		left, err := fp.expression(ex.Left)
		if err != nil {
			return nil, err
		}
		right, err := fp.expression(ex.Right)
		if err != nil {
			return nil, err
		}
		switch ex.Type() {
		case TypeCompareEqual:
			return query.Eq(left, right), nil
		case TypeCompareNotEqual:
			return query.Neq(left, right), nil
		case TypeCompareLessThan:
			return query.Lt(left, right), nil
		case TypeCompareGreaterThan:
			return query.Gt(left, right), nil
		}
		return nil, fmt.Errorf("%w: comparison %s", ErrUnsupported, ex.Type())

	case *ConjunctionExpression:
		if len(ex.Children) == 0 {
			return nil, fmt.Errorf("%w: empty %s", ErrUnsupported, ex.Type())
		}
		join := query.And
		switch ex.Type() {
		case TypeConjunctionAnd:
		case TypeConjunctionOr:
			join = query.Or
		default:
			return nil, fmt.Errorf("%w: conjunction %s", ErrUnsupported, ex.Type())
		}
		var pred query.Predicate
		for _, child := range ex.Children {
			p, err := fp.predicate(child)
			if err != nil {
				return nil, err
			}
			if pred == nil {
				pred = p
			} else {
				pred = join(pred, p)
			}
		}
		return pred, nil

	case *OperatorExpression:
		if len(ex.Children) != 1 {
			return nil, fmt.Errorf("%w: operator %s with %d operands", ErrUnsupported, ex.Type(), len(ex.Children))
		}
		switch ex.Type() {
		case TypeOperatorNot:
			p, err := fp.predicate(ex.Children[0])
			if err != nil {
				return nil, err
			}
			return query.Not(p), nil
		case TypeOperatorIsNull, TypeOperatorIsNotNull:
			operand, err := fp.expression(ex.Children[0])
			if err != nil {
				return nil, err
			}
			if ex.Type() == TypeOperatorIsNull {
				return query.Eq(operand, query.Lit(query.Null())), nil
			}
			return query.Neq(operand, query.Lit(query.Null())), nil
		}
		return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, ex.Type())

	case *UnsupportedExpression:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ex.Reason)
	}
	return nil, fmt.Errorf("%w: %T is not a predicate", ErrUnsupported, expr)
}

func (fp *FilterPushdown) expression(expr Expression) (query.Expression, error) {
	switch ex := expr.(type) {
	case *ColumnRefExpression:
		name, err := fp.ColumnName(ex)
		if err != nil {
			return nil, err
		}
		return query.Field(name), nil

	case *ConstantExpression:
		return query.Lit(ex.Value), nil

	case *FunctionExpression:
		if len(ex.Children) != 1 {
			return nil, fmt.Errorf("%w: function %s with %d arguments", ErrUnsupported, ex.Name, len(ex.Children))
		}
		inner, err := fp.expression(ex.Children[0])
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(ex.Name) {
		case "upper", "ucase":
			return query.Upper(inner), nil
		case "lower", "lcase":
			return query.Lower(inner), nil
		}
		return nil, fmt.Errorf("%w: function %s", ErrUnsupported, ex.Name)

	case *UnsupportedExpression:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ex.Reason)
	}
	return nil, fmt.Errorf("%w: %T is not a value", ErrUnsupported, expr)
}
