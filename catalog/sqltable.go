package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recfilter/filter"
	"github.com/hugr-lab/recfilter/query"
)

// SQLTable scans a table of a database/sql connection, typically DuckDB.
// The scan predicate is pushed into the WHERE clause through the DuckDB
// encoder. The encoded condition keeps every row the predicate matches but
// may keep others, so callers still evaluate the predicate on the result.
type SQLTable struct {
	db      *sql.DB
	name    string
	table   string
	schema  *arrow.Schema
	encoder *filter.DuckDBEncoder
	alloc   memory.Allocator
}

// NewSQLTable exposes the database table under name. The Arrow schema is
// read from the result columns of an empty SELECT.
func NewSQLTable(ctx context.Context, db *sql.DB, name, table string) (*SQLTable, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+filter.QuoteIdentifier(table)+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	fields := make([]arrow.Field, len(types))
	for i, ct := range types {
		fields[i] = arrow.Field{Name: ct.Name(), Type: sqlArrowType(ct.DatabaseTypeName()), Nullable: true}
	}

	return &SQLTable{
		db:      db,
		name:    name,
		table:   table,
		schema:  arrow.NewSchema(fields, nil),
		encoder: filter.NewDuckDBEncoder(nil),
		alloc:   memory.DefaultAllocator,
	}, nil
}

func sqlArrowType(dbType string) arrow.DataType {
	dbType = strings.ToUpper(dbType)
	switch {
	case dbType == "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case dbType == "TINYINT", dbType == "SMALLINT", dbType == "INTEGER", dbType == "BIGINT",
		dbType == "UTINYINT", dbType == "USMALLINT", dbType == "UINTEGER":
		return arrow.PrimitiveTypes.Int64
	case dbType == "FLOAT", dbType == "DOUBLE", dbType == "REAL", dbType == "UBIGINT",
		dbType == "HUGEINT", strings.HasPrefix(dbType, "DECIMAL"):
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func (t *SQLTable) Name() string              { return t.name }
func (t *SQLTable) Comment() string           { return "" }
func (t *SQLTable) ArrowSchema() *arrow.Schema { return t.schema }

// Statement returns the SELECT issued for opts.
func (t *SQLTable) Statement(opts *ScanOptions) string {
	schema := ProjectSchema(t.schema, opts.columns())

	cols := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		cols[i] = filter.QuoteIdentifier(f.Name)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(filter.QuoteIdentifier(t.table))
	if opts != nil && opts.Predicate != nil {
		if where := t.encoderFor(opts.Predicate).Encode(opts.Predicate); where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
	}
	if opts != nil && opts.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", opts.Limit)
	}
	return sb.String()
}

// encoderFor returns the encoder for pred. Fields the table does not have
// are encoded as NULL: they are missing from every row, and a NULL operand
// never satisfies a comparison.
func (t *SQLTable) encoderFor(pred query.Predicate) *filter.DuckDBEncoder {
	var unknown map[string]string
	for _, name := range query.Fields(pred) {
		if len(t.schema.FieldIndices(name)) > 0 {
			continue
		}
		if unknown == nil {
			unknown = map[string]string{}
		}
		unknown[name] = "NULL"
	}
	if unknown == nil {
		return t.encoder
	}
	return filter.NewDuckDBEncoder(&filter.EncoderOptions{ColumnExpressions: unknown})
}

// Scan runs Statement(opts) and collects the rows into batches of
// opts.BatchSize rows.
func (t *SQLTable) Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error) {
	schema := ProjectSchema(t.schema, opts.columns())

	rows, err := t.db.QueryContext(ctx, t.Statement(opts))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.name, err)
	}
	defer rows.Close()

	builder := array.NewRecordBuilder(t.alloc, schema)
	defer builder.Release()

	var batches []arrow.RecordBatch
	release := func() {
		for _, b := range batches {
			b.Release()
		}
	}

	size := opts.batchSize()
	cells := make([]any, schema.NumFields())
	ptrs := make([]any, len(cells))
	for i := range cells {
		ptrs[i] = &cells[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			release()
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		for c, cell := range cells {
			if err := appendSQLValue(builder.Field(c), cell); err != nil {
				release()
				return nil, fmt.Errorf("scan %s column %q: %w", t.name, schema.Field(c).Name, err)
			}
		}
		n++
		if n == size {
			batches = append(batches, builder.NewRecordBatch())
			n = 0
		}
	}
	if err := rows.Err(); err != nil {
		release()
		return nil, fmt.Errorf("scan %s: %w", t.name, err)
	}
	if n > 0 {
		batches = append(batches, builder.NewRecordBatch())
	}

	reader, err := array.NewRecordReader(schema, batches)
	release()
	if err != nil {
		return nil, err
	}
	return reader, nil
}

func appendSQLValue(b array.Builder, cell any) error {
	if cell == nil {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.BooleanBuilder:
		v, ok := cell.(bool)
		if !ok {
			return fmt.Errorf("%w: %T into boolean", ErrColumnType, cell)
		}
		fb.Append(v)
	case *array.Int64Builder:
		v, ok := sqlInteger(cell)
		if !ok {
			return fmt.Errorf("%w: %T into int64", ErrColumnType, cell)
		}
		fb.Append(v)
	case *array.Float64Builder:
		v, ok := sqlFloat(cell)
		if !ok {
			return fmt.Errorf("%w: %T into float64", ErrColumnType, cell)
		}
		fb.Append(v)
	case *array.StringBuilder:
		fb.Append(sqlText(cell))
	default:
		return fmt.Errorf("%w: unsupported builder %T", ErrColumnType, b)
	}
	return nil
}

func sqlInteger(cell any) (int64, bool) {
	switch v := cell.(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	}
	return 0, false
}

func sqlFloat(cell any) (float64, bool) {
	if v, ok := sqlInteger(cell); ok {
		return float64(v), true
	}
	switch v := cell.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case uint64:
		return float64(v), true
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f, true
	case interface{ Float64() float64 }:
		// DuckDB decimals
		return v.Float64(), true
	}
	return 0, false
}

func sqlText(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(cell)
}
