package catalog

import (
	"context"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// StaticCatalog is an immutable catalog implementation built from CatalogBuilder.
type StaticCatalog struct {
	schemas map[string]*staticSchema
}

// NewStaticCatalog creates a static catalog.
// This is exported for use by the recfilter package builder.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		schemas: make(map[string]*staticSchema),
	}
}

// AddSchema adds a schema to the static catalog.
// This is used during catalog building and must not race with lookups.
func (c *StaticCatalog) AddSchema(name, comment string, tables map[string]Table) {
	c.schemas[name] = &staticSchema{
		name:    name,
		comment: comment,
		tables:  tables,
	}
}

// NewStaticTable creates a static table.
// This is exported for use by the recfilter package builder.
func NewStaticTable(name, comment string, schema *arrow.Schema, scanFunc ScanFunc) *StaticTable {
	return &StaticTable{
		name:     name,
		comment:  comment,
		schema:   schema,
		scanFunc: scanFunc,
	}
}

// Schemas implements Catalog interface. Schemas are sorted by name.
func (c *StaticCatalog) Schemas(ctx context.Context) ([]Schema, error) {
	result := make([]Schema, 0, len(c.schemas))
	for _, schema := range c.schemas {
		result = append(result, schema)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

// Schema implements Catalog interface.
func (c *StaticCatalog) Schema(ctx context.Context, name string) (Schema, error) {
	schema, ok := c.schemas[name]
	if !ok {
		return nil, nil // Not found, not an error
	}
	return schema, nil
}

type staticSchema struct {
	name    string
	comment string
	tables  map[string]Table
}

func (s *staticSchema) Name() string {
	return s.name
}

func (s *staticSchema) Comment() string {
	return s.comment
}

// Tables implements Schema interface. Tables are sorted by name.
func (s *staticSchema) Tables(ctx context.Context) ([]Table, error) {
	result := make([]Table, 0, len(s.tables))
	for _, table := range s.tables {
		result = append(result, table)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

func (s *staticSchema) Table(ctx context.Context, name string) (Table, error) {
	table, ok := s.tables[name]
	if !ok {
		return nil, nil // Not found, not an error
	}
	return table, nil
}

// StaticTable is an immutable table implementation backed by a ScanFunc.
type StaticTable struct {
	name     string
	comment  string
	schema   *arrow.Schema
	scanFunc ScanFunc
}

// Name implements Table interface.
func (t *StaticTable) Name() string {
	return t.name
}

// Comment implements Table interface.
func (t *StaticTable) Comment() string {
	return t.comment
}

// ArrowSchema implements Table interface.
func (t *StaticTable) ArrowSchema() *arrow.Schema {
	return t.schema
}

// Scan implements Table interface.
func (t *StaticTable) Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error) {
	return t.scanFunc(ctx, opts)
}
