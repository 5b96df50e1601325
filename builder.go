package recfilter

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/query"
)

// SimpleTableDef defines a table with fixed schema.
// Used with SchemaBuilder.SimpleTable().
type SimpleTableDef struct {
	// Name is the table name (e.g., "whales").
	// REQUIRED: MUST be non-empty and unique within schema.
	Name string

	// Comment is optional table documentation.
	Comment string

	// Schema is the Arrow schema describing table columns.
	// REQUIRED: MUST NOT be nil.
	Schema *arrow.Schema

	// ScanFunc provides table data as RecordReader.
	// REQUIRED: MUST NOT be nil.
	ScanFunc catalog.ScanFunc
}

// CatalogBuilder builds static catalogs using fluent API.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	schemas []*schemaBuilder
	built   bool
}

// NewCatalogBuilder creates a new fluent catalog builder.
//
// Example:
//
//	cat, err := recfilter.NewCatalogBuilder().
//	    Schema("ocean").
//	        Records("whales", "Whale species", whales).
//	        Table(sqlTable).
//	    Build()
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// Schema starts defining a new schema.
// Schema name MUST be non-empty and unique within catalog.
func (cb *CatalogBuilder) Schema(name string) *SchemaBuilder {
	sb := &schemaBuilder{name: name, catalogBuilder: cb}
	cb.schemas = append(cb.schemas, sb)
	return &SchemaBuilder{builder: sb}
}

// Build validates the definitions and returns an immutable catalog.
// Can only be called once.
func (cb *CatalogBuilder) Build() (catalog.Catalog, error) {
	if cb.built {
		return nil, ErrCatalogBuilt
	}

	seenNames := make(map[string]bool)
	for _, sb := range cb.schemas {
		if sb.name == "" {
			return nil, fmt.Errorf("schema name cannot be empty")
		}
		if seenNames[sb.name] {
			return nil, fmt.Errorf("duplicate schema name: %s", sb.name)
		}
		seenNames[sb.name] = true

		tableNames := make(map[string]bool)
		for _, table := range sb.tables {
			if table.err != nil {
				return nil, fmt.Errorf("table %s.%s: %w", sb.name, table.name, table.err)
			}
			if table.name == "" {
				return nil, fmt.Errorf("table name cannot be empty in schema %s", sb.name)
			}
			if tableNames[table.name] {
				return nil, fmt.Errorf("duplicate table name %s in schema %s", table.name, sb.name)
			}
			tableNames[table.name] = true
		}
	}

	cb.built = true

	cat := catalog.NewStaticCatalog()
	for _, sb := range cb.schemas {
		tables := make(map[string]catalog.Table, len(sb.tables))
		for _, t := range sb.tables {
			tables[t.name] = t.table
		}
		cat.AddSchema(sb.name, sb.comment, tables)
	}
	return cat, nil
}

// SchemaBuilder builds a schema within a catalog.
// Not thread-safe - use only during initialization.
type SchemaBuilder struct {
	builder *schemaBuilder
}

type schemaBuilder struct {
	name           string
	comment        string
	tables         []tableEntry
	catalogBuilder *CatalogBuilder
}

// tableEntry is a table or the reason it could not be defined, reported
// by Build.
type tableEntry struct {
	name  string
	table catalog.Table
	err   error
}

// Comment sets optional schema documentation.
func (sb *SchemaBuilder) Comment(comment string) *SchemaBuilder {
	sb.builder.comment = comment
	return sb
}

// SimpleTable adds a table backed by a scan function.
//
// Example:
//
//	schema.SimpleTable(recfilter.SimpleTableDef{
//	    Name:     "whales",
//	    Schema:   whaleSchema,
//	    ScanFunc: scanWhales,
//	})
func (sb *SchemaBuilder) SimpleTable(def SimpleTableDef) *SchemaBuilder {
	entry := tableEntry{name: def.Name}
	switch {
	case def.Schema == nil:
		entry.err = fmt.Errorf("nil schema")
	case def.ScanFunc == nil:
		entry.err = fmt.Errorf("nil scan function")
	default:
		entry.table = catalog.NewStaticTable(def.Name, def.Comment, def.Schema, def.ScanFunc)
	}
	sb.builder.tables = append(sb.builder.tables, entry)
	return sb
}

// Records adds an in-memory table over records with an inferred schema.
func (sb *SchemaBuilder) Records(name, comment string, records []query.Record) *SchemaBuilder {
	sb.builder.tables = append(sb.builder.tables, tableEntry{
		name:  name,
		table: catalog.NewRecordTable(name, comment, records),
	})
	return sb
}

// Table adds an already constructed table, such as a catalog.SQLTable.
func (sb *SchemaBuilder) Table(table catalog.Table) *SchemaBuilder {
	entry := tableEntry{table: table}
	if table == nil {
		entry.err = fmt.Errorf("nil table")
	} else {
		entry.name = table.Name()
	}
	sb.builder.tables = append(sb.builder.tables, entry)
	return sb
}

// Schema starts a new schema definition (returns to CatalogBuilder).
// Allows chaining: Schema("a").Records(...).Schema("b").Table(...)
func (sb *SchemaBuilder) Schema(name string) *SchemaBuilder {
	return sb.builder.catalogBuilder.Schema(name)
}

// Build finalizes the catalog (returns to CatalogBuilder).
func (sb *SchemaBuilder) Build() (catalog.Catalog, error) {
	return sb.builder.catalogBuilder.Build()
}
