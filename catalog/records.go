package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recfilter/query"
)

// ErrColumnType is returned when a record value does not fit the Arrow type
// of its column.
var ErrColumnType = errors.New("value does not match column type")

// cellFunc reads row i of a column as a query value.
type cellFunc func(i int) (query.Value, error)

// RecordsFromBatch converts every row of batch into a query.Record keyed by
// column name. Null cells are left out of the record, so a predicate sees
// them as missing fields, the way SQL NULL never satisfies a comparison.
// Numeric columns (including decimals) become numbers, string columns
// strings, and geometry columns their WKT text. Columns of any other type
// are rendered with ValueStr.
func RecordsFromBatch(batch arrow.RecordBatch) ([]query.Record, error) {
	schema := batch.Schema()
	cols := make([]cellFunc, batch.NumCols())
	for c := range cols {
		cols[c] = columnReader(schema.Field(c), batch.Column(c))
	}

	rows := int(batch.NumRows())
	out := make([]query.Record, rows)
	for i := 0; i < rows; i++ {
		rec := make(query.Record, len(cols))
		for c, read := range cols {
			v, err := read(i)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, schema.Field(c).Name, err)
			}
			if v.IsNull() {
				continue
			}
			rec[schema.Field(c).Name] = v
		}
		out[i] = rec
	}
	return out, nil
}

func columnReader(field arrow.Field, arr arrow.Array) cellFunc {
	read := cellReader(field, arr)
	return func(i int) (query.Value, error) {
		if arr.IsNull(i) {
			return query.Null(), nil
		}
		return read(i)
	}
}

func number[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64](value func(int) T) cellFunc {
	return func(i int) (query.Value, error) {
		return query.Number(float64(value(i))), nil
	}
}

func cellReader(field arrow.Field, arr arrow.Array) cellFunc {
	switch a := arr.(type) {
	case *GeometryArray:
		return func(i int) (query.Value, error) {
			text, err := a.Text(i)
			if err != nil {
				return query.Value{}, err
			}
			return query.String(text), nil
		}
	case *array.Boolean:
		return func(i int) (query.Value, error) { return query.Bool(a.Value(i)), nil }
	case *array.Int8:
		return number(a.Value)
	case *array.Int16:
		return number(a.Value)
	case *array.Int32:
		return number(a.Value)
	case *array.Int64:
		return number(a.Value)
	case *array.Uint8:
		return number(a.Value)
	case *array.Uint16:
		return number(a.Value)
	case *array.Uint32:
		return number(a.Value)
	case *array.Uint64:
		return number(a.Value)
	case *array.Float16:
		return func(i int) (query.Value, error) { return query.Number(float64(a.Value(i).Float32())), nil }
	case *array.Float32:
		return number(a.Value)
	case *array.Float64:
		return number(a.Value)
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return func(i int) (query.Value, error) { return query.Number(a.Value(i).ToFloat64(scale)), nil }
	case *array.String:
		return func(i int) (query.Value, error) { return query.String(a.Value(i)), nil }
	case *array.LargeString:
		return func(i int) (query.Value, error) { return query.String(a.Value(i)), nil }
	case *array.Binary:
		if IsGeometryField(field) {
			return func(i int) (query.Value, error) {
				text, err := GeometryText(a.Value(i))
				if err != nil {
					return query.Value{}, err
				}
				return query.String(text), nil
			}
		}
	case *array.Dictionary:
		values := columnReader(field, a.Dictionary())
		return func(i int) (query.Value, error) { return values(a.GetValueIndex(i)) }
	}
	return func(i int) (query.Value, error) { return query.String(arr.ValueStr(i)), nil }
}

// FilterBatch returns zero-copy slices of batch covering the rows where mask
// is true. Adjacent matching rows share one slice. The caller owns the
// returned batches and must Release them.
func FilterBatch(batch arrow.RecordBatch, mask []bool) []arrow.RecordBatch {
	var out []arrow.RecordBatch
	start := -1
	for i, keep := range mask {
		switch {
		case keep && start < 0:
			start = i
		case !keep && start >= 0:
			out = append(out, batch.NewSlice(int64(start), int64(i)))
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, batch.NewSlice(int64(start), int64(len(mask))))
	}
	return out
}

// InferSchema derives an Arrow schema covering every field of records.
// Columns are sorted by name and always nullable. A column whose non-null
// values are all booleans is Boolean; all integral numbers gives Int64, other
// numbers Float64. Strings, columns with mixed kinds and columns holding only
// nulls are String.
func InferSchema(records []query.Record) *arrow.Schema {
	kinds := map[string]columnKind{}
	for _, rec := range records {
		for name, v := range rec {
			kinds[name] = kinds[name].observe(v)
		}
	}

	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: kinds[name].dataType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

type columnKind struct {
	seen     bool
	kind     query.Kind
	mixed    bool
	fraction bool
}

func (c columnKind) observe(v query.Value) columnKind {
	if v.IsNull() {
		return c
	}
	if !c.seen {
		c.seen = true
		c.kind = v.Kind()
	} else if c.kind != v.Kind() {
		c.mixed = true
	}
	if v.Kind() == query.KindNumber {
		if _, ok := v.AsInteger(); !ok {
			c.fraction = true
		}
	}
	return c
}

func (c columnKind) dataType() arrow.DataType {
	if !c.seen || c.mixed {
		return arrow.BinaryTypes.String
	}
	switch c.kind {
	case query.KindBool:
		return arrow.FixedWidthTypes.Boolean
	case query.KindNumber:
		if c.fraction {
			return arrow.PrimitiveTypes.Float64
		}
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.BinaryTypes.String
	}
}

// BuildBatch appends records to a new batch with the given schema. Fields
// missing from a record, and null values, become null cells. Values in a
// String column that are not strings are stored in query-literal form.
//
// The conversion is lossy for matching: null cells read back as missing
// fields and mixed-kind columns as strings. Match the records themselves
// (see RecordSource) when those distinctions matter.
func BuildBatch(mem memory.Allocator, schema *arrow.Schema, records []query.Record) (arrow.RecordBatch, error) {
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for c, field := range schema.Fields() {
		fb := builder.Field(c)
		fb.Reserve(len(records))
		for i, rec := range records {
			v, ok := rec[field.Name]
			if !ok || v.IsNull() {
				fb.AppendNull()
				continue
			}
			if err := appendValue(fb, v); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, field.Name, err)
			}
		}
	}
	return builder.NewRecordBatch(), nil
}

func appendValue(b array.Builder, v query.Value) error {
	switch fb := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.AsBool()
		if !ok {
			return fmt.Errorf("%w: %s into boolean", ErrColumnType, v.Kind())
		}
		fb.Append(x)
	case *array.Int64Builder:
		x, ok := v.AsInteger()
		if !ok {
			return fmt.Errorf("%w: %s into int64", ErrColumnType, v)
		}
		fb.Append(x)
	case *array.Float64Builder:
		x, ok := v.AsNumber()
		if !ok {
			return fmt.Errorf("%w: %s into float64", ErrColumnType, v.Kind())
		}
		fb.Append(x)
	case *array.StringBuilder:
		if s, ok := v.AsText(); ok {
			fb.Append(s)
		} else {
			fb.Append(v.String())
		}
	default:
		return fmt.Errorf("%w: unsupported builder %T", ErrColumnType, b)
	}
	return nil
}
