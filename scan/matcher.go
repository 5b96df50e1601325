// Package scan evaluates a predicate over many records: Arrow record
// streams through a Scanner, or plain record slices through Records.
//
// Both evaluation strategies are available behind the Matcher interface:
// Interpreted walks the predicate tree per record, Compiled runs a vm
// program. Results are identical except for the documented And/Or
// divergence, where the compiled program is stricter.
package scan

import (
	"errors"
	"fmt"

	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/vm"
)

// Strategy names an evaluation strategy.
type Strategy string

const (
	// StrategyInterpreted evaluates the predicate tree directly.
	StrategyInterpreted Strategy = "ast"
	// StrategyCompiled runs the predicate compiled to a vm program.
	StrategyCompiled Strategy = "vm"
)

// ErrUnknownStrategy is returned by ParseStrategy for names other than
// "ast" and "vm".
var ErrUnknownStrategy = errors.New("unknown evaluation strategy")

// ParseStrategy validates a strategy name. The empty string selects
// StrategyCompiled.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyInterpreted:
		return StrategyInterpreted, nil
	case StrategyCompiled, "":
		return StrategyCompiled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Matcher decides whether a record is selected.
// Implementations MUST be safe for concurrent use.
type Matcher interface {
	// Match reports whether rec is selected. An error aborts the scan.
	Match(rec query.Record) (bool, error)

	// Strategy returns the evaluation strategy, used as a metrics label.
	Strategy() Strategy
}

type interpreted struct {
	pred query.Predicate
}

// Interpreted returns a Matcher walking pred for every record.
func Interpreted(pred query.Predicate) Matcher {
	return interpreted{pred: pred}
}

func (m interpreted) Match(rec query.Record) (bool, error) {
	return query.Match(m.pred, rec), nil
}

func (m interpreted) Strategy() Strategy { return StrategyInterpreted }

type compiled struct {
	prog *vm.Program
}

// Compiled returns a Matcher executing prog for every record.
func Compiled(prog *vm.Program) Matcher {
	return compiled{prog: prog}
}

func (m compiled) Match(rec query.Record) (bool, error) {
	ok, err := m.prog.Match(rec)
	if errors.Is(err, vm.ErrMalformedProgram) {
		malformedPrograms.Inc()
	}
	return ok, err
}

func (m compiled) Strategy() Strategy { return StrategyCompiled }

// NewMatcher builds the Matcher for strategy, compiling pred when needed.
func NewMatcher(strategy Strategy, pred query.Predicate) (Matcher, error) {
	switch strategy {
	case StrategyInterpreted:
		return Interpreted(pred), nil
	case StrategyCompiled:
		return Compiled(vm.Compile(pred)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}
