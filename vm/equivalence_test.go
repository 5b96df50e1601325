package vm

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/hugr-lab/recfilter/query"
)

// predicateGen builds random predicates whose operands are always defined
// for the records produced by recordGen. Under that restriction the eager
// connectives of the machine and the short-circuit connectives of the tree
// walker must agree.
type predicateGen struct {
	rnd *rand.Rand
}

var (
	intFields  = []string{"a", "b", "size"}
	textFields = []string{"name", "range"}
	words      = []string{"moby", "MOBY", "Antarctic", "antarctic", "pacific", ""}
)

func (g *predicateGen) pick(s []string) string { return s[g.rnd.Intn(len(s))] }

func (g *predicateGen) intOperand() query.Expression {
	if g.rnd.Intn(2) == 0 {
		return query.Field(g.pick(intFields))
	}
	return query.Lit(query.Number(float64(g.rnd.Intn(11) - 5)))
}

func (g *predicateGen) textOperand(depth int) query.Expression {
	var e query.Expression
	if g.rnd.Intn(2) == 0 {
		e = query.Field(g.pick(textFields))
	} else {
		e = query.Lit(query.String(g.pick(words)))
	}
	if depth > 0 {
		switch g.rnd.Intn(3) {
		case 0:
			return query.Upper(e)
		case 1:
			return query.Lower(e)
		}
	}
	return e
}

func (g *predicateGen) anyOperand() query.Expression {
	if g.rnd.Intn(2) == 0 {
		return g.intOperand()
	}
	return g.textOperand(1)
}

func (g *predicateGen) predicate(depth int) query.Predicate {
	if depth == 0 {
		switch g.rnd.Intn(4) {
		case 0:
			return query.Eq(g.anyOperand(), g.anyOperand())
		case 1:
			return query.Neq(g.anyOperand(), g.anyOperand())
		case 2:
			return query.Lt(g.intOperand(), g.intOperand())
		default:
			return query.Gt(g.intOperand(), g.intOperand())
		}
	}
	switch g.rnd.Intn(4) {
	case 0:
		return query.Not(g.predicate(depth - 1))
	case 1:
		return query.And(g.predicate(depth-1), g.predicate(g.rnd.Intn(depth)))
	case 2:
		return query.Or(g.predicate(g.rnd.Intn(depth)), g.predicate(depth-1))
	default:
		return g.predicate(0)
	}
}

func recordGen(rnd *rand.Rand) query.Record {
	return query.Record{
		"a":     query.Number(float64(rnd.Intn(11) - 5)),
		"b":     query.Number(float64(rnd.Intn(11) - 5)),
		"size":  query.Number(float64(rnd.Intn(40))),
		"name":  query.String(words[rnd.Intn(len(words))]),
		"range": query.String(words[rnd.Intn(len(words))]),
	}
}

func TestTreeAndMachineAgree(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	gen := &predicateGen{rnd: rnd}

	records := make([]query.Record, 32)
	for i := range records {
		records[i] = recordGen(rnd)
	}

	for i := 0; i < 500; i++ {
		pred := gen.predicate(rnd.Intn(5))
		prog := Compile(pred)
		if prog.Len() != query.NodeCount(pred) {
			t.Fatalf("%s: program length %d, node count %d", pred, prog.Len(), query.NodeCount(pred))
		}

		for j, rec := range records {
			want, wantOK := query.EvalPredicate(pred, rec)

			v, ok, err := prog.Execute(rec)
			if err != nil {
				t.Fatalf("%s: Execute() error = %v", pred, err)
			}
			if ok != wantOK {
				t.Fatalf("%s on record %d: vm present = %v, tree present = %v", pred, j, ok, wantOK)
			}
			if !ok {
				continue
			}
			got, isBool := v.AsBool()
			if !isBool {
				t.Fatalf("%s: vm produced %s", pred, v)
			}
			if got != want {
				t.Fatalf("%s on record %d: vm = %v, tree = %v\n%s", pred, j, got, want, prog)
			}
		}
	}
}

func TestCompileIdempotentOverCorpus(t *testing.T) {
	gen := &predicateGen{rnd: rand.New(rand.NewSource(2))}
	for i := 0; i < 100; i++ {
		pred := gen.predicate(4)
		if !Compile(pred).Equal(Compile(pred)) {
			t.Fatalf("%s compiled to different programs", pred)
		}
		// The rendered query parses back into a tree with the same program.
		reparsed, err := query.Parse(pred.String())
		if err != nil {
			t.Fatalf("Parse(%s) error = %v", pred, err)
		}
		if !Compile(reparsed).Equal(Compile(pred)) {
			t.Fatalf("%s: reparsed program differs", pred)
		}
	}
}

func benchRecords(n int) []query.Record {
	ranges := []string{"antarctic", "pacific", "atlantic", "indian"}
	records := make([]query.Record, n)
	for i := range records {
		records[i] = query.Record{
			"name":  query.String("whale-" + strconv.Itoa(i)),
			"size":  query.Number(float64(i % 35)),
			"range": query.String(ranges[i%len(ranges)]),
		}
	}
	return records
}

func BenchmarkTreeWalker(b *testing.B) {
	pred := query.MustParse(`size > 20 || range == "antarctic"`)
	records := benchRecords(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, rec := range records {
			query.Match(pred, rec)
		}
	}
}

func BenchmarkMachine(b *testing.B) {
	prog := Compile(query.MustParse(`size > 20 || range == "antarctic"`))
	records := benchRecords(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, rec := range records {
			if _, err := prog.Match(rec); err != nil {
				b.Fatal(err)
			}
		}
	}
}
