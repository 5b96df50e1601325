package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/recfilter/query"
)

// Table represents a queryable table with fixed schema.
// Implementations MUST be goroutine-safe.
type Table interface {
	// Name returns the table name (e.g., "whales").
	// MUST return non-empty string.
	Name() string

	// Comment returns optional table documentation.
	// Returns empty string if no comment provided.
	Comment() string

	// ArrowSchema returns the logical schema describing table columns.
	// MUST return valid *arrow.Schema.
	ArrowSchema() *arrow.Schema

	// Scan executes a scan operation and returns a RecordReader.
	// Context allows cancellation; implementation MUST respect ctx.Done().
	// Caller MUST call reader.Release() to free memory.
	// Returned RecordReader schema MUST match ArrowSchema() projected to
	// ScanOptions.Columns.
	Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
}

// RecordSource is implemented by tables that hold query records rather than
// Arrow data. Filters should match Records directly: the Arrow form of the
// table reads missing fields and null values back as missing, and stores
// mixed-kind columns as strings.
type RecordSource interface {
	Table

	// Records returns the rows in scan order. The slice MUST NOT be modified.
	Records() []query.Record
}

// ProjectSchema returns a projected schema containing only the specified columns.
// If columns is nil or empty, returns the full schema unchanged.
// Column order in the returned schema matches the order in columns slice.
// Original schema metadata is preserved in the projected schema.
func ProjectSchema(schema *arrow.Schema, columns []string) *arrow.Schema {
	if len(columns) == 0 {
		return schema
	}

	fields := make([]arrow.Field, 0, len(columns))
	for _, col := range columns {
		if idx := schema.FieldIndices(col); len(idx) > 0 {
			fields = append(fields, schema.Field(idx[0]))
		}
	}

	if len(fields) == 0 {
		// No matching columns - return original schema
		return schema
	}

	meta := schema.Metadata()
	return arrow.NewSchema(fields, &meta)
}
