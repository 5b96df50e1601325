package recfilter

import (
	"context"
	"fmt"

	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/scan"
	"github.com/hugr-lab/recfilter/vm"
)

// Search parses text and returns the records it selects, evaluated with
// the named strategy ("ast" or "vm"; empty means "vm"). The result keeps
// input order.
//
// Example:
//
//	big, err := recfilter.Search(ctx, whales, `size > 20 || range == "antarctic"`, "ast")
func Search(ctx context.Context, records []query.Record, text, strategy string) ([]query.Record, error) {
	s, err := scan.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	pred, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	m, err := scan.NewMatcher(s, pred)
	if err != nil {
		return nil, err
	}
	return scan.Records(ctx, records, m)
}

// Compile parses text and returns its vm program.
func Compile(text string) (*vm.Program, error) {
	pred, err := query.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", text, err)
	}
	return vm.Compile(pred), nil
}
