// Package catalog provides the record sources a Flight server scans: catalogs,
// schemas and tables, plus the conversions between Arrow record batches and
// query records.
//
// The catalog package follows an interface-based design:
//   - Static catalogs: Built using NewCatalogBuilder() fluent API (immutable, fast lookup)
//   - Record tables: In-memory tables built from []query.Record (NewRecordTable)
//   - SQL tables: database/sql tables that push predicates into DuckDB (NewSQLTable)
//
// All interfaces are goroutine-safe and support context-based cancellation.
package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a schema or table doesn't exist.
var ErrNotFound = errors.New("not found")

// Catalog represents the top-level metadata container.
// All methods MUST be goroutine-safe.
type Catalog interface {
	// Schemas returns all schemas visible in this catalog.
	// Returns empty slice (not nil) if no schemas available.
	// MUST respect context cancellation and deadlines.
	Schemas(ctx context.Context) ([]Schema, error)

	// Schema returns a specific schema by name.
	// Returns (nil, nil) if schema doesn't exist (not an error).
	// Returns (nil, err) if lookup fails for other reasons.
	Schema(ctx context.Context, name string) (Schema, error)
}

// Schema represents a named group of tables.
// Implementations MUST be goroutine-safe.
type Schema interface {
	// Name returns the schema name (e.g., "main", "ocean").
	// MUST return non-empty string.
	Name() string

	// Comment returns optional schema documentation.
	// Returns empty string if no comment provided.
	Comment() string

	// Tables returns all tables in this schema.
	// Returns empty slice (not nil) if no tables available.
	// MUST respect context cancellation.
	Tables(ctx context.Context) ([]Table, error)

	// Table returns a specific table by name.
	// Returns (nil, nil) if table doesn't exist (not an error).
	// Returns (nil, err) if lookup fails for other reasons.
	Table(ctx context.Context, name string) (Table, error)
}

// LookupTable resolves schema and table names in cat. It returns an error
// wrapping ErrNotFound when either is missing.
func LookupTable(ctx context.Context, cat Catalog, schemaName, tableName string) (Table, error) {
	schema, err := cat.Schema(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, fmt.Errorf("schema %q: %w", schemaName, ErrNotFound)
	}
	table, err := schema.Table(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("table %s.%s: %w", schemaName, tableName, ErrNotFound)
	}
	return table, nil
}
