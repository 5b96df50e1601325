package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/vm"
)

func loadWhales(t testing.TB) []query.Record {
	t.Helper()
	records, err := catalog.LoadJSONFile("../testdata/whales.json")
	if err != nil {
		t.Fatalf("LoadJSONFile() failed: %v", err)
	}
	return records
}

func scanTable(t *testing.T, table catalog.Table, batchSize int) array.RecordReader {
	t.Helper()
	reader, err := table.Scan(context.Background(), &catalog.ScanOptions{BatchSize: batchSize})
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	t.Cleanup(reader.Release)
	return reader
}

func collectNames(t *testing.T, batches []arrow.RecordBatch) []string {
	t.Helper()
	var names []string
	for _, b := range batches {
		records, err := catalog.RecordsFromBatch(b)
		if err != nil {
			t.Fatalf("RecordsFromBatch() failed: %v", err)
		}
		for _, rec := range records {
			name, _ := rec["name"].AsText()
			names = append(names, name)
		}
		b.Release()
	}
	return names
}

func TestScannerWhales(t *testing.T) {
	whales := loadWhales(t)
	table := catalog.NewRecordTable("whales", "", whales)
	pred := query.MustParse(`size > 20 || range == "antarctic"`)

	var want []string
	for _, rec := range whales {
		if query.Match(pred, rec) {
			name, _ := rec["name"].AsText()
			want = append(want, name)
		}
	}
	if len(want) != 12 {
		t.Fatalf("expected 12 matching whales, got %d", len(want))
	}

	tests := []struct {
		name      string
		workers   int
		batchSize int
		matcher   Matcher
	}{
		{"ast single worker", 1, 5, Interpreted(pred)},
		{"ast many workers", 8, 3, Interpreted(pred)},
		{"vm single batch", 4, 1024, Compiled(vm.Compile(pred))},
		{"vm one row batches", 4, 1, Compiled(vm.Compile(pred))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewScanner(&Options{Workers: tt.workers})

			var batches []arrow.RecordBatch
			stats, err := scanner.Scan(context.Background(), scanTable(t, table, tt.batchSize), tt.matcher,
				func(b arrow.RecordBatch) error {
					b.Retain()
					batches = append(batches, b)
					return nil
				})
			if err != nil {
				t.Fatalf("Scan() failed: %v", err)
			}

			if stats.Scanned != int64(len(whales)) {
				t.Errorf("expected %d scanned rows, got %d", len(whales), stats.Scanned)
			}
			if stats.Matched != int64(len(want)) {
				t.Errorf("expected %d matched rows, got %d", len(want), stats.Matched)
			}

			got := collectNames(t, batches)
			if len(got) != len(want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("row %d: expected %q, got %q (order must follow input)", i, want[i], got[i])
				}
			}
		})
	}
}

func TestScannerMetrics(t *testing.T) {
	whales := loadWhales(t)
	table := catalog.NewRecordTable("whales", "", whales)
	pred := query.MustParse(`size > 20 || range == "antarctic"`)

	scanned := rowsScanned.WithLabelValues("ast")
	matched := rowsMatched.WithLabelValues("ast")
	beforeScanned, beforeMatched := testutil.ToFloat64(scanned), testutil.ToFloat64(matched)

	_, err := NewScanner(nil).Scan(context.Background(), scanTable(t, table, 10), Interpreted(pred),
		func(arrow.RecordBatch) error { return nil })
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	if got := testutil.ToFloat64(scanned) - beforeScanned; got != float64(len(whales)) {
		t.Errorf("scanned counter increased by %v, want %d", got, len(whales))
	}
	if got := testutil.ToFloat64(matched) - beforeMatched; got != 12 {
		t.Errorf("matched counter increased by %v, want 12", got)
	}
}

func TestScannerEmitError(t *testing.T) {
	table := catalog.NewRecordTable("whales", "", loadWhales(t))
	stop := errors.New("stop")

	calls := 0
	_, err := NewScanner(&Options{Workers: 2}).Scan(context.Background(), scanTable(t, table, 2),
		Interpreted(query.MustParse(`size > 0`)),
		func(arrow.RecordBatch) error {
			calls++
			return stop
		})
	if !errors.Is(err, stop) {
		t.Fatalf("expected emit error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected emit to be called once, got %d", calls)
	}
}

func TestScannerMalformedProgram(t *testing.T) {
	table := catalog.NewRecordTable("whales", "", loadWhales(t))
	prog := &vm.Program{Code: []vm.Instruction{{Op: vm.OpPushLiteral, Value: query.Bool(true)}, {Op: vm.OpOr}}}

	_, err := NewScanner(nil).Scan(context.Background(), scanTable(t, table, 4), Compiled(prog),
		func(arrow.RecordBatch) error { return nil })
	if !errors.Is(err, vm.ErrMalformedProgram) {
		t.Errorf("expected ErrMalformedProgram, got %v", err)
	}
}

func TestScannerCancelled(t *testing.T) {
	table := catalog.NewRecordTable("whales", "", loadWhales(t))
	reader := scanTable(t, table, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(nil).Scan(ctx, reader, Interpreted(query.MustParse(`size > 0`)),
		func(arrow.RecordBatch) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScannerNoMatches(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	records := loadWhales(t)
	batch, err := catalog.BuildBatch(mem, catalog.InferSchema(records), records)
	if err != nil {
		t.Fatalf("BuildBatch() failed: %v", err)
	}
	reader, err := array.NewRecordReader(batch.Schema(), []arrow.RecordBatch{batch})
	batch.Release()
	if err != nil {
		t.Fatalf("NewRecordReader() failed: %v", err)
	}
	defer reader.Release()

	stats, err := NewScanner(nil).Scan(context.Background(), reader, Interpreted(query.MustParse(`size > 100`)),
		func(arrow.RecordBatch) error {
			t.Error("emit called without matches")
			return nil
		})
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if stats.Matched != 0 || stats.Scanned != int64(len(records)) {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRecords(t *testing.T) {
	whales := loadWhales(t)
	pred := query.MustParse(`size > 20 || range == "antarctic"`)

	got, err := Records(context.Background(), whales, Compiled(vm.Compile(pred)))
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}
	// Only the dwarf sperm whale lacks a range, and it does not match under
	// either strategy.
	if len(got) != 12 {
		t.Errorf("expected 12 whales, got %d", len(got))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Records(ctx, whales, Interpreted(pred)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// failingMatcher fails on the record whose id is bad and matches the rest.
type failingMatcher struct {
	bad float64
}

func (m failingMatcher) Match(rec query.Record) (bool, error) {
	if rec["id"].Equal(query.Number(m.bad)) {
		return false, errors.New("boom")
	}
	return true, nil
}

func (m failingMatcher) Strategy() Strategy { return StrategyInterpreted }

func TestScannerErrorReleasesBatches(t *testing.T) {
	const batches = 65

	tests := []struct {
		name    string
		matcher Matcher
		emit    EmitFunc
	}{
		{
			name:    "match error",
			matcher: failingMatcher{bad: 0},
			emit:    func(arrow.RecordBatch) error { return nil },
		},
		{
			name:    "emit error",
			matcher: Interpreted(query.MustParse(`id > -1`)),
			emit:    func(arrow.RecordBatch) error { return errors.New("stop") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)

			var input []arrow.RecordBatch
			for i := 0; i < batches; i++ {
				records := make([]query.Record, 16)
				for j := range records {
					records[j] = query.Record{"id": query.Number(float64(i*16 + j))}
				}
				batch, err := catalog.BuildBatch(mem, catalog.InferSchema(records), records)
				if err != nil {
					t.Fatalf("BuildBatch() failed: %v", err)
				}
				input = append(input, batch)
			}
			reader, err := array.NewRecordReader(input[0].Schema(), input)
			for _, b := range input {
				b.Release()
			}
			if err != nil {
				t.Fatalf("NewRecordReader() failed: %v", err)
			}
			defer reader.Release()

			if _, err := NewScanner(&Options{Workers: 8}).Scan(context.Background(), reader, tt.matcher, tt.emit); err == nil {
				t.Fatal("expected scan error")
			}
		})
	}
}

func TestScanRecords(t *testing.T) {
	records := []query.Record{
		{"id": query.Number(1), "range": query.String("arctic"), "v": query.Number(3)},
		{"id": query.Number(2), "v": query.String("s")},
		{"id": query.Number(3), "range": query.String("pacific"), "v": query.Number(3)},
	}
	schema := catalog.InferSchema(records)

	tests := []struct {
		query string
		ids   []int64
	}{
		{`range != "arctic"`, []int64{3}},
		{`v == 3`, []int64{1, 3}},
		{`v == "3"`, nil},
	}

	for _, tt := range tests {
		for _, strategy := range []Strategy{StrategyInterpreted, StrategyCompiled} {
			t.Run(string(strategy)+" "+tt.query, func(t *testing.T) {
				mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
				defer mem.AssertSize(t, 0)

				m, err := NewMatcher(strategy, query.MustParse(tt.query))
				if err != nil {
					t.Fatalf("NewMatcher() failed: %v", err)
				}
				build := func(matched []query.Record) (arrow.RecordBatch, error) {
					return catalog.BuildBatch(mem, schema, matched)
				}

				var ids []int64
				stats, err := NewScanner(nil).ScanRecords(context.Background(), records, m, 2, build,
					func(b arrow.RecordBatch) error {
						col := b.Column(schema.FieldIndices("id")[0]).(*array.Int64)
						ids = append(ids, col.Int64Values()...)
						return nil
					})
				if err != nil {
					t.Fatalf("ScanRecords() failed: %v", err)
				}
				if stats.Scanned != 3 || stats.Batches != 2 {
					t.Errorf("unexpected stats %+v", stats)
				}
				if len(ids) != len(tt.ids) {
					t.Fatalf("expected ids %v, got %v", tt.ids, ids)
				}
				for i := range ids {
					if ids[i] != tt.ids[i] {
						t.Errorf("row %d: expected id %d, got %d", i, tt.ids[i], ids[i])
					}
				}

				direct, err := Records(context.Background(), records, m)
				if err != nil {
					t.Fatalf("Records() failed: %v", err)
				}
				if int64(len(direct)) != stats.Matched {
					t.Errorf("ScanRecords matched %d, Records matched %d", stats.Matched, len(direct))
				}
			})
		}
	}
}

func TestScannerMissingFieldsFromBatches(t *testing.T) {
	whales := loadWhales(t)
	table := catalog.NewRecordTable("whales", "", whales)
	pred := query.MustParse(`range != "arctic"`)

	want, err := Records(context.Background(), whales, Interpreted(pred))
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}

	var batches []arrow.RecordBatch
	stats, err := NewScanner(nil).Scan(context.Background(), scanTable(t, table, 7), Interpreted(pred),
		func(b arrow.RecordBatch) error {
			b.Retain()
			batches = append(batches, b)
			return nil
		})
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if stats.Matched != int64(len(want)) {
		t.Errorf("expected %d matches, got %d", len(want), stats.Matched)
	}
	for _, name := range collectNames(t, batches) {
		if name == "Dwarf sperm whale" {
			t.Error("whale without a range matched")
		}
	}
}
