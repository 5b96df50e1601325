package flight

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/vm"
)

// scanColumns returns the columns a table must produce so that out can be
// projected and the predicate evaluated. Nil means all columns.
func scanColumns(out *arrow.Schema, full *arrow.Schema, filterFields []string) []string {
	if out == full {
		return nil
	}
	seen := make(map[string]bool, out.NumFields()+len(filterFields))
	columns := make([]string, 0, out.NumFields()+len(filterFields))
	for _, f := range out.Fields() {
		seen[f.Name] = true
		columns = append(columns, f.Name)
	}
	for _, name := range filterFields {
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}
	return columns
}

// programFields returns the field names a program pushes, in first-use order.
func programFields(prog *vm.Program) []string {
	var names []string
	seen := make(map[string]bool)
	for _, in := range prog.Code {
		if in.Op == vm.OpPushField && !seen[in.Name] {
			seen[in.Name] = true
			names = append(names, in.Name)
		}
	}
	return names
}

// filterFields returns the fields a matcher reads.
func filterFields(pred query.Predicate, prog *vm.Program) []string {
	switch {
	case pred != nil:
		return query.Fields(pred)
	case prog != nil:
		return programFields(prog)
	}
	return nil
}

// projectBatch returns batch reduced to the columns of out, in out's order.
// The result must be released by the caller.
func projectBatch(batch arrow.RecordBatch, out *arrow.Schema) (arrow.RecordBatch, error) {
	in := batch.Schema()
	if in.Equal(out) {
		batch.Retain()
		return batch, nil
	}

	cols := make([]arrow.Array, out.NumFields())
	for i, f := range out.Fields() {
		idx := in.FieldIndices(f.Name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("scan result has no column %q", f.Name)
		}
		cols[i] = batch.Column(idx[0])
	}
	return array.NewRecordBatch(out, cols, batch.NumRows()), nil
}

// outputSchema is the schema streamed to the client for columns.
func outputSchema(full *arrow.Schema, columns []string) *arrow.Schema {
	return catalog.ProjectSchema(full, columns)
}
