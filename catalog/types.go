package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/recfilter/query"
)

// ScanOptions provides options for table scans.
type ScanOptions struct {
	// Columns to return. If nil/empty, return all columns.
	Columns []string

	// Predicate the caller will evaluate over the returned rows.
	// Tables MAY use it to skip rows early (SQLTable pushes it into the
	// WHERE clause) but MUST NOT drop rows it matches.
	// If nil, no filtering.
	Predicate query.Predicate

	// Limit is maximum rows to return.
	// If 0 or negative, no limit.
	Limit int64

	// BatchSize is hint for RecordReader batch size.
	// If 0, implementation chooses default.
	// Implementations MAY ignore this hint.
	BatchSize int
}

// DefaultBatchSize is the number of rows per batch when ScanOptions.BatchSize
// is not set.
const DefaultBatchSize = 1024

func (o *ScanOptions) batchSize() int {
	if o == nil || o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

func (o *ScanOptions) columns() []string {
	if o == nil {
		return nil
	}
	return o.Columns
}

// ScanFunc is a function type for table data retrieval.
// User implements this to connect to their data source.
type ScanFunc func(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
