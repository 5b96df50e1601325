package serialize

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recfilter/catalog"
)

// TablesSchema is the layout of a serialized table listing.
var TablesSchema = arrow.NewSchema([]arrow.Field{
	{Name: "schema_name", Type: arrow.BinaryTypes.String},
	{Name: "table_name", Type: arrow.BinaryTypes.String},
	{Name: "comment", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "columns", Type: arrow.BinaryTypes.String},
}, nil)

// SerializeTables lists every table of cat as a single Arrow IPC stream
// laid out as TablesSchema. When schemaName is not empty only that schema is
// listed. The columns cell holds the comma-separated column names.
func SerializeTables(ctx context.Context, cat catalog.Catalog, schemaName string, mem memory.Allocator) ([]byte, error) {
	schemas, err := cat.Schemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get schemas: %w", err)
	}

	builder := array.NewRecordBuilder(mem, TablesSchema)
	defer builder.Release()

	schemaNames := builder.Field(0).(*array.StringBuilder)
	tableNames := builder.Field(1).(*array.StringBuilder)
	comments := builder.Field(2).(*array.StringBuilder)
	columns := builder.Field(3).(*array.StringBuilder)

	for _, schema := range schemas {
		if schemaName != "" && schema.Name() != schemaName {
			continue
		}
		tables, err := schema.Tables(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get tables for schema %s: %w", schema.Name(), err)
		}
		for _, table := range tables {
			schemaNames.Append(schema.Name())
			tableNames.Append(table.Name())
			if c := table.Comment(); c != "" {
				comments.Append(c)
			} else {
				comments.AppendNull()
			}
			columns.Append(columnList(table.ArrowSchema()))
		}
	}

	batch := builder.NewRecordBatch()
	defer batch.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(TablesSchema), ipc.WithAllocator(mem))
	if err := writer.Write(batch); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write IPC batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return buf.Bytes(), nil
}

func columnList(schema *arrow.Schema) string {
	var buf bytes.Buffer
	for i, f := range schema.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(f.Name)
	}
	return buf.String()
}

// ReadTables decodes a listing produced by SerializeTables. The caller
// releases the returned batches.
func ReadTables(data []byte, mem memory.Allocator) ([]arrow.RecordBatch, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(mem), ipc.WithSchema(TablesSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to open IPC reader: %w", err)
	}
	defer reader.Release()

	var batches []arrow.RecordBatch
	for reader.Next() {
		batch := reader.RecordBatch()
		batch.Retain()
		batches = append(batches, batch)
	}
	if err := reader.Err(); err != nil {
		for _, b := range batches {
			b.Release()
		}
		return nil, fmt.Errorf("failed to read IPC stream: %w", err)
	}
	return batches, nil
}
