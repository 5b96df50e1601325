package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recfilter/query"
)

var _ RecordSource = (*RecordTable)(nil)

// RecordTable is an in-memory table over a fixed slice of records.
// Its schema is inferred once with InferSchema. Scans ignore
// ScanOptions.Predicate and return every record, in order.
type RecordTable struct {
	name    string
	comment string
	schema  *arrow.Schema
	records []query.Record
	alloc   memory.Allocator
}

// NewRecordTable creates a table serving records. The slice is retained and
// must not be modified afterwards.
func NewRecordTable(name, comment string, records []query.Record) *RecordTable {
	return &RecordTable{
		name:    name,
		comment: comment,
		schema:  InferSchema(records),
		records: records,
		alloc:   memory.DefaultAllocator,
	}
}

func (t *RecordTable) Name() string              { return t.name }
func (t *RecordTable) Comment() string           { return t.comment }
func (t *RecordTable) ArrowSchema() *arrow.Schema { return t.schema }

// Records returns the records backing the table.
func (t *RecordTable) Records() []query.Record { return t.records }

// Scan builds batches of at most opts.BatchSize rows, projected to
// opts.Columns and truncated to opts.Limit.
func (t *RecordTable) Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error) {
	schema := ProjectSchema(t.schema, opts.columns())

	records := t.records
	if opts != nil && opts.Limit > 0 && int64(len(records)) > opts.Limit {
		records = records[:opts.Limit]
	}

	size := opts.batchSize()
	batches := make([]arrow.RecordBatch, 0, (len(records)+size-1)/size)
	release := func() {
		for _, b := range batches {
			b.Release()
		}
	}
	for start := 0; start < len(records); start += size {
		if err := ctx.Err(); err != nil {
			release()
			return nil, err
		}
		end := min(start+size, len(records))
		batch, err := BuildBatch(t.alloc, schema, records[start:end])
		if err != nil {
			release()
			return nil, err
		}
		batches = append(batches, batch)
	}

	reader, err := array.NewRecordReader(schema, batches)
	// The reader retains its own references.
	release()
	if err != nil {
		return nil, err
	}
	return reader, nil
}
