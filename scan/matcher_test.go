package scan

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/vm"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    Strategy
		wantErr bool
	}{
		{"ast", StrategyInterpreted, false},
		{"vm", StrategyCompiled, false},
		{"", StrategyCompiled, false},
		{"jit", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStrategy) {
					t.Errorf("expected ErrUnknownStrategy, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStrategy() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatchers(t *testing.T) {
	moby := query.Record{"name": query.String("Moby"), "size": query.Number(25)}
	tests := []struct {
		query string
		want  bool
	}{
		{`upper(name) == "MOBY"`, true},
		{`size > 20 && name != "Ahab"`, true},
		{`size < 20`, false},
		{`range == "antarctic"`, false},
	}

	for _, strategy := range []Strategy{StrategyInterpreted, StrategyCompiled} {
		for _, tt := range tests {
			t.Run(string(strategy)+"/"+tt.query, func(t *testing.T) {
				m, err := NewMatcher(strategy, query.MustParse(tt.query))
				if err != nil {
					t.Fatalf("NewMatcher() failed: %v", err)
				}
				if m.Strategy() != strategy {
					t.Errorf("Strategy() = %q, want %q", m.Strategy(), strategy)
				}
				got, err := m.Match(moby)
				if err != nil {
					t.Fatalf("Match() failed: %v", err)
				}
				if got != tt.want {
					t.Errorf("Match() = %v, want %v", got, tt.want)
				}
			})
		}
	}

	if _, err := NewMatcher("jit", query.MustParse(`a == 1`)); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

// TestMatchersDiverge checks the one place the strategies differ: a
// connective whose unevaluated side would be absent.
func TestMatchersDiverge(t *testing.T) {
	pred := query.MustParse(`size > 20 || range == "antarctic"`)
	rec := query.Record{"size": query.Number(25)}

	tree, _ := Interpreted(pred).Match(rec)
	compiled, _ := Compiled(vm.Compile(pred)).Match(rec)
	if !tree || compiled {
		t.Errorf("expected tree match and no compiled match, got tree=%v compiled=%v", tree, compiled)
	}
}

func TestCompiledMalformed(t *testing.T) {
	before := testutil.ToFloat64(malformedPrograms)

	prog := &vm.Program{Code: []vm.Instruction{{Op: vm.OpAnd}}}
	_, err := Compiled(prog).Match(query.Record{})
	if !errors.Is(err, vm.ErrMalformedProgram) {
		t.Fatalf("expected ErrMalformedProgram, got %v", err)
	}

	if got := testutil.ToFloat64(malformedPrograms) - before; got != 1 {
		t.Errorf("malformed counter increased by %v, want 1", got)
	}
}
