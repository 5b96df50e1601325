package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GetFlightInfo returns the output schema and a DoGet ticket for a table.
//
// Two descriptor forms are accepted:
//   - PATH [schema_name, table_name]: the whole table
//   - CMD with a JSON ticket body (see TicketData): a filtered and
//     projected scan. The query is parsed here so syntax errors surface
//     before DoGet.
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)
	logger := s.logger.With(MetaFromContext(ctx).LogAttrs()...)

	var td *TicketData
	switch desc.GetType() {
	case flight.DescriptorPATH:
		path := desc.GetPath()
		if len(path) != 2 {
			return nil, status.Error(codes.InvalidArgument, "path must contain exactly 2 elements: [schema_name, table_name]")
		}
		td = &TicketData{Schema: path[0], Table: path[1]}
	case flight.DescriptorCMD:
		var err error
		if td, err = DecodeTicket(desc.GetCmd()); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if _, _, _, err := s.matcher(td); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid filter: %v", err)
		}
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unsupported descriptor type %v", desc.GetType())
	}

	table, err := s.lookupTable(ctx, td.Schema, td.Table)
	if err != nil {
		return nil, err
	}
	full := table.ArrowSchema()
	if full == nil {
		logger.Error("Table returned nil Arrow schema", "schema", td.Schema, "table", td.Table)
		return nil, status.Errorf(codes.Internal, "table %s.%s has nil Arrow schema", td.Schema, td.Table)
	}

	ticket, err := EncodeTicket(td)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	out := outputSchema(full, td.Columns)
	logger.Debug("GetFlightInfo successful",
		"schema", td.Schema,
		"table", td.Table,
		"num_fields", out.NumFields(),
		"filtered", td.Query != "" || len(td.Program) > 0,
	)

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(out, s.allocator),
		FlightDescriptor: desc,
		Endpoint: []*flight.FlightEndpoint{
			{Ticket: &flight.Ticket{Ticket: ticket}},
		},
		TotalRecords: -1, // Unknown until scan
		TotalBytes:   -1,
	}, nil
}
