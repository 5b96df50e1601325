package flight

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/recfilter/scan"
)

// TicketData represents the decoded content of a Flight ticket.
// Tickets are JSON documents naming the table to scan and the filter to
// apply. At most one of Query, Program and Filters may be set; with none,
// every row is returned.
type TicketData struct {
	// Schema is the schema name (e.g., "main", "ocean")
	Schema string `json:"schema"`

	// Table is the table name (e.g., "whales")
	Table string `json:"table"`

	// Query is a predicate in query text form (optional)
	Query string `json:"query,omitempty"`

	// Strategy selects "ast" or "vm" evaluation for Query (optional)
	Strategy string `json:"strategy,omitempty"`

	// Program is a compiled program as produced by vm.Program.MarshalBinary
	// (optional). It always runs on the vm.
	Program []byte `json:"program,omitempty"`

	// Filters is a DuckDB filter pushdown document (optional). Columns
	// are resolved through its column_binding_names_by_index.
	Filters json.RawMessage `json:"filters,omitempty"`

	// Columns to return (optional, nil means all columns)
	Columns []string `json:"columns,omitempty"`
}

// Validate checks the ticket fields for consistency.
func (td *TicketData) Validate() error {
	if td.Schema == "" {
		return fmt.Errorf("%w: empty schema name", ErrInvalidTicket)
	}
	if td.Table == "" {
		return fmt.Errorf("%w: empty table name", ErrInvalidTicket)
	}
	filters := 0
	for _, set := range []bool{td.Query != "", len(td.Program) > 0, len(td.Filters) > 0} {
		if set {
			filters++
		}
	}
	if filters > 1 {
		return fmt.Errorf("%w: query, program and filters are mutually exclusive", ErrInvalidTicket)
	}
	strategy, err := scan.ParseStrategy(td.Strategy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if len(td.Program) > 0 && td.Strategy != "" && strategy != scan.StrategyCompiled {
		return fmt.Errorf("%w: programs run only with the %q strategy", ErrInvalidTicket, scan.StrategyCompiled)
	}
	return nil
}

// EncodeTicket creates an opaque ticket from td.
// The ticket is JSON-encoded for simplicity and transparency.
func EncodeTicket(td *TicketData) ([]byte, error) {
	if err := td.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(td)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses an opaque ticket produced by EncodeTicket.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	if len(ticketBytes) == 0 {
		return nil, fmt.Errorf("%w: ticket cannot be empty", ErrInvalidTicket)
	}

	var ticket TicketData
	if err := json.Unmarshal(ticketBytes, &ticket); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if err := ticket.Validate(); err != nil {
		return nil, err
	}
	return &ticket, nil
}
