package recfilter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/query"
)

// Test helper: creates a simple scan function for testing
func testScanFunc(schema *arrow.Schema) catalog.ScanFunc {
	return func(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
		builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		defer builder.Release()
		record := builder.NewRecordBatch()
		defer record.Release()
		return array.NewRecordReader(schema, []arrow.RecordBatch{record})
	}
}

var idSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
}, nil)

func TestCatalogBuilderMultipleSchemas(t *testing.T) {
	cat, err := NewCatalogBuilder().
		Schema("ocean").
		Comment("Marine mammals").
		Records("whales", "Whale species", []query.Record{
			{"name": query.String("Orca"), "size": query.Number(8)},
		}).
		Schema("lab").
		SimpleTable(SimpleTableDef{
			Name:     "samples",
			Schema:   idSchema,
			ScanFunc: testScanFunc(idSchema),
		}).
		Build()
	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}

	ctx := context.Background()
	schemas, err := cat.Schemas(ctx)
	if err != nil {
		t.Fatalf("Failed to get schemas: %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("Expected 2 schemas, got %d", len(schemas))
	}

	whales, err := catalog.LookupTable(ctx, cat, "ocean", "whales")
	if err != nil {
		t.Fatalf("LookupTable() failed: %v", err)
	}
	if whales.Comment() != "Whale species" {
		t.Errorf("Expected table comment, got %q", whales.Comment())
	}
	ocean, _ := cat.Schema(ctx, "ocean")
	if ocean.Comment() != "Marine mammals" {
		t.Errorf("Expected schema comment, got %q", ocean.Comment())
	}

	if _, err := catalog.LookupTable(ctx, cat, "lab", "samples"); err != nil {
		t.Errorf("LookupTable() failed: %v", err)
	}
	if _, err := catalog.LookupTable(ctx, cat, "lab", "whales"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCatalogBuilderValidation(t *testing.T) {
	records := []query.Record{{"id": query.Number(1)}}

	tests := []struct {
		name    string
		build   func() (catalog.Catalog, error)
		wantErr string
	}{
		{
			name: "empty schema name",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Schema("").Build()
			},
			wantErr: "schema name cannot be empty",
		},
		{
			name: "duplicate schema",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Schema("a").Schema("a").Build()
			},
			wantErr: "duplicate schema name",
		},
		{
			name: "duplicate table",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Schema("a").
					Records("t", "", records).
					Records("t", "", records).
					Build()
			},
			wantErr: "duplicate table name",
		},
		{
			name: "empty table name",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Schema("a").Records("", "", records).Build()
			},
			wantErr: "table name cannot be empty",
		},
		{
			name: "nil schema",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Schema("a").
					SimpleTable(SimpleTableDef{Name: "t", ScanFunc: testScanFunc(idSchema)}).
					Build()
			},
			wantErr: "nil schema",
		},
		{
			name: "nil scan function",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Schema("a").
					SimpleTable(SimpleTableDef{Name: "t", Schema: idSchema}).
					Build()
			},
			wantErr: "nil scan function",
		},
		{
			name: "nil table",
			build: func() (catalog.Catalog, error) {
				return NewCatalogBuilder().Schema("a").Table(nil).Build()
			},
			wantErr: "nil table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCatalogBuilderBuildTwice(t *testing.T) {
	builder := NewCatalogBuilder()
	builder.Schema("a")
	if _, err := builder.Build(); err != nil {
		t.Fatalf("First build failed: %v", err)
	}
	if _, err := builder.Build(); !errors.Is(err, ErrCatalogBuilt) {
		t.Errorf("Expected ErrCatalogBuilt, got %v", err)
	}
}

func TestCatalogBuilderTable(t *testing.T) {
	table := catalog.NewRecordTable("seals", "", []query.Record{{"name": query.String("Harbor seal")}})

	cat, err := NewCatalogBuilder().Schema("ocean").Table(table).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	got, err := catalog.LookupTable(context.Background(), cat, "ocean", "seals")
	if err != nil {
		t.Fatalf("LookupTable() failed: %v", err)
	}
	if got != catalog.Table(table) {
		t.Error("Expected the registered table instance")
	}
}
