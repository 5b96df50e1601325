package vm

import (
	"errors"
	"testing"

	"github.com/hugr-lab/recfilter/query"
)

func TestExecuteOrdering(t *testing.T) {
	rec := query.Record{"a": query.Number(3), "b": query.Number(5)}
	tests := []struct {
		query string
		want  bool
	}{
		{`a < b`, true},
		{`a > b`, false},
		{`b < a`, false},
		{`b > a`, true},
		{`a < 3`, false},
		{`a > 2`, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			pred := query.MustParse(tt.query)
			got, err := Compile(pred).Match(rec)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("vm = %v, want %v", got, tt.want)
			}
			if tree := query.Match(pred, rec); tree != tt.want {
				t.Errorf("tree = %v, want %v", tree, tt.want)
			}
		})
	}
}

func TestExecuteNeqDiffersFromEq(t *testing.T) {
	rec := query.Record{"range": query.String("antarctic")}
	eq := Compile(query.MustParse(`range == "antarctic"`))
	neq := Compile(query.MustParse(`range != "antarctic"`))

	eqOK, err := eq.Match(rec)
	if err != nil {
		t.Fatal(err)
	}
	neqOK, err := neq.Match(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !eqOK || neqOK {
		t.Errorf("== gave %v, != gave %v; want true, false", eqOK, neqOK)
	}
}

func TestExecuteAbsence(t *testing.T) {
	rec := query.Record{"name": query.String("Moby"), "size": query.Number(25), "frac": query.Number(2.5)}
	tests := []struct {
		name  string
		query string
	}{
		{"missing field", `missing == 1`},
		{"missing on right", `size == missing`},
		{"upper of number", `upper(size) == "25"`},
		{"lt of string", `name < 3`},
		{"gt of fraction", `frac > 1`},
		{"not of absent", `!(missing == 1)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := Compile(query.MustParse(tt.query)).Execute(rec)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if ok {
				t.Error("expected an absent result")
			}
		})
	}
}

func TestExecuteEagerConnectives(t *testing.T) {
	rec := query.Record{"flag": query.Bool(false), "on": query.Bool(true)}
	tests := []struct {
		name     string
		pred     query.Predicate
		treeWant bool
	}{
		{"and false absent", query.And(query.Eq(query.Field("flag"), query.Lit(query.Bool(true))), query.Eq(query.Field("missing"), query.Lit(query.Number(1)))), false},
		{"or true absent", query.Or(query.Eq(query.Field("on"), query.Lit(query.Bool(true))), query.Eq(query.Field("missing"), query.Lit(query.Number(1)))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := query.EvalPredicate(tt.pred, rec)
			if !ok || got != tt.treeWant {
				t.Errorf("tree = (%v, %v), want (%v, true)", got, ok, tt.treeWant)
			}

			_, ok, err := Compile(tt.pred).Execute(rec)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if ok {
				t.Error("vm should evaluate the right operand and yield absent")
			}
		})
	}
}

func TestExecuteMalformed(t *testing.T) {
	rec := query.Record{"a": query.Bool(true)}
	tests := []struct {
		name string
		code []Instruction
		pc   int
	}{
		{"empty", nil, 0},
		{"dangling and", []Instruction{{Op: OpPushField, Name: "a"}, {Op: OpAnd}}, 1},
		{"not on empty stack", []Instruction{{Op: OpNot}}, 0},
		{"leftover values", []Instruction{{Op: OpPushField, Name: "a"}, {Op: OpPushField, Name: "a"}}, 2},
		{"unknown opcode", []Instruction{{Op: OpPushField, Name: "a"}, {Op: Opcode(42)}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &Program{Code: tt.code}
			_, ok, err := prog.Execute(rec)
			if ok {
				t.Error("malformed program produced a result")
			}
			if !errors.Is(err, ErrMalformedProgram) {
				t.Fatalf("Execute() error = %v, want ErrMalformedProgram", err)
			}
			var me *MalformedProgramError
			if !errors.As(err, &me) {
				t.Fatalf("error %T is not *MalformedProgramError", err)
			}
			if me.PC != tt.pc {
				t.Errorf("PC = %d, want %d", me.PC, tt.pc)
			}

			if err := prog.Validate(); !errors.Is(err, ErrMalformedProgram) {
				t.Errorf("Validate() error = %v, want ErrMalformedProgram", err)
			}
			if _, err := prog.Match(rec); !errors.Is(err, ErrMalformedProgram) {
				t.Errorf("Match() error = %v, want ErrMalformedProgram", err)
			}
		})
	}
}

func TestMatchNotBoolean(t *testing.T) {
	prog := &Program{Code: []Instruction{{Op: OpPushLiteral, Value: query.Number(1)}}}
	if _, err := prog.Match(query.Record{}); !errors.Is(err, ErrNotBoolean) {
		t.Errorf("Match() error = %v, want ErrNotBoolean", err)
	}
}

func TestProgramReuse(t *testing.T) {
	prog := Compile(query.MustParse(`size > 20 || range == "antarctic"`))
	records := []query.Record{
		{"size": query.Number(25), "range": query.String("pacific")},
		{"size": query.Number(5), "range": query.String("antarctic")},
		{"size": query.Number(5), "range": query.String("pacific")},
	}
	want := []bool{true, true, false}
	for round := 0; round < 2; round++ {
		for i, rec := range records {
			got, err := prog.Match(rec)
			if err != nil {
				t.Fatal(err)
			}
			if got != want[i] {
				t.Errorf("round %d record %d = %v, want %v", round, i, got, want[i])
			}
		}
	}
}
