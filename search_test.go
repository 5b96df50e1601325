package recfilter

import (
	"context"
	"errors"
	"testing"

	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/scan"
	"github.com/hugr-lab/recfilter/vm"
)

func TestSearch(t *testing.T) {
	whales, err := catalog.LoadJSONFile("testdata/whales.json")
	if err != nil {
		t.Fatalf("LoadJSONFile() failed: %v", err)
	}

	tests := []struct {
		name     string
		text     string
		strategy string
		want     int
	}{
		{"big or antarctic ast", `size > 20 || range == "antarctic"`, "ast", 12},
		{"big or antarctic vm", `size > 20 || range == "antarctic"`, "vm", 12},
		{"default strategy", `size > 20 || range == "antarctic"`, "", 12},
		{"nothing", `size > 1000`, "ast", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Search(context.Background(), whales, tt.text, tt.strategy)
			if err != nil {
				t.Fatalf("Search() failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d records, got %d", tt.want, len(got))
			}
		})
	}

	if _, err := Search(context.Background(), whales, `size >`, "ast"); !errors.Is(err, query.ErrSyntax) {
		t.Errorf("expected ErrSyntax, got %v", err)
	}
	if _, err := Search(context.Background(), whales, `size > 1`, "jit"); !errors.Is(err, scan.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

// TestSearchStrategyDivergence pins the documented And/Or difference: the
// tree walker short-circuits past an absent right operand, the program
// does not.
func TestSearchStrategyDivergence(t *testing.T) {
	records := []query.Record{
		{"name": query.String("Narwhal"), "size": query.Number(5)},
		{"name": query.String("Blue whale"), "size": query.Number(30), "range": query.String("global")},
	}
	text := `size < 10 || range == "arctic"`

	ast, err := Search(context.Background(), records, text, "ast")
	if err != nil {
		t.Fatalf("Search(ast) failed: %v", err)
	}
	compiled, err := Search(context.Background(), records, text, "vm")
	if err != nil {
		t.Fatalf("Search(vm) failed: %v", err)
	}
	if len(ast) != 1 {
		t.Errorf("expected the narwhal under ast, got %d records", len(ast))
	}
	if len(compiled) != 0 {
		t.Errorf("expected no match under vm, got %d records", len(compiled))
	}
}

func TestCompile(t *testing.T) {
	prog, err := Compile(`name == "Orca"`)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if prog.Len() != 3 {
		t.Errorf("expected 3 instructions, got %d:\n%s", prog.Len(), prog)
	}
	if _, err := Compile(`name ==`); !errors.Is(err, query.ErrSyntax) {
		t.Errorf("expected ErrSyntax, got %v", err)
	}
}

func mustCompile(t testing.TB, text string) *vm.Program {
	t.Helper()
	prog, err := Compile(text)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", text, err)
	}
	return prog
}
