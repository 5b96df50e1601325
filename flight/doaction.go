package flight

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/recfilter/internal/msgpack"
	"github.com/hugr-lab/recfilter/internal/serialize"
	"github.com/hugr-lab/recfilter/query"
)

// Action types served by DoAction.
const (
	// ActionCompile compiles a query and returns the encoded program,
	// ready to be placed in TicketData.Program.
	ActionCompile = "compile"
	// ActionExplain returns the program listing of a query as text.
	ActionExplain = "explain"
	// ActionListSchemas returns the schemas as a MessagePack array.
	ActionListSchemas = "list_schemas"
	// ActionListTables returns a ZStandard-compressed Arrow IPC listing
	// of the tables.
	ActionListTables = "list_tables"
)

var actionTypes = []*flight.ActionType{
	{Type: ActionCompile, Description: "Compile a query to an encoded program. Body: msgpack {query}."},
	{Type: ActionExplain, Description: "Show the compiled program of a query. Body: msgpack {query}."},
	{Type: ActionListSchemas, Description: "List schemas as msgpack [{name, comment}]."},
	{Type: ActionListTables, Description: "List tables as zstd-compressed Arrow IPC. Body: optional msgpack {schema_name}."},
}

// QueryRequest is the MessagePack body of compile and explain actions.
type QueryRequest struct {
	Query string `msgpack:"query"`
}

// SchemaInfo is an entry of the list_schemas response.
type SchemaInfo struct {
	Name    string `msgpack:"name"`
	Comment string `msgpack:"comment,omitempty"`
}

// ListActions advertises the supported action types.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	for _, at := range actionTypes {
		if err := stream.Send(at); err != nil {
			return err
		}
	}
	return nil
}

// DoAction executes server actions.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.Debug("DoAction called",
		"type", action.GetType(),
		"body_size", len(action.GetBody()),
	)

	var (
		body []byte
		err  error
	)
	switch action.GetType() {
	case ActionCompile:
		body, err = s.compileAction(action.GetBody())
	case ActionExplain:
		body, err = s.explainAction(action.GetBody())
	case ActionListSchemas:
		body, err = s.listSchemasAction(ctx)
	case ActionListTables:
		body, err = s.listTablesAction(ctx, action.GetBody())
	default:
		return status.Errorf(codes.Unimplemented, "%v: %s", ErrUnknownAction, action.GetType())
	}
	if err != nil {
		return err
	}
	return stream.Send(&flight.Result{Body: body})
}

func (s *Server) parseQueryRequest(body []byte) (*Query, error) {
	var req QueryRequest
	if err := msgpack.Decode(body, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
	}
	q, err := s.queries.Parse(req.Query)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid query: %v", err)
	}
	return q, nil
}

func (s *Server) compileAction(body []byte) ([]byte, error) {
	q, err := s.parseQueryRequest(body)
	if err != nil {
		return nil, err
	}
	encoded, err := q.Program.MarshalBinary()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode program: %v", err)
	}
	s.logger.Debug("Query compiled",
		"nodes", query.NodeCount(q.Predicate),
		"instructions", q.Program.Len(),
		"encoded_bytes", len(encoded),
	)
	return encoded, nil
}

func (s *Server) explainAction(body []byte) ([]byte, error) {
	q, err := s.parseQueryRequest(body)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("-- %s\n%s", q.Predicate, q.Program)), nil
}

func (s *Server) listSchemasAction(ctx context.Context) ([]byte, error) {
	schemas, err := s.catalog.Schemas(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list schemas: %v", err)
	}
	infos := make([]SchemaInfo, 0, len(schemas))
	for _, schema := range schemas {
		infos = append(infos, SchemaInfo{Name: schema.Name(), Comment: schema.Comment()})
	}
	data, err := msgpack.Encode(infos)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode schemas: %v", err)
	}
	return data, nil
}

func (s *Server) listTablesAction(ctx context.Context, body []byte) ([]byte, error) {
	var params struct {
		SchemaName string `msgpack:"schema_name"`
	}
	if len(body) > 0 {
		if err := msgpack.Decode(body, &params); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
		}
	}

	data, err := serialize.SerializeTables(ctx, s.catalog, params.SchemaName, s.allocator)
	if err != nil {
		s.logger.Error("Failed to serialize tables", "error", err)
		return nil, status.Errorf(codes.Internal, "failed to serialize tables: %v", err)
	}
	compressed, err := serialize.Compress(data)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to compress tables: %v", err)
	}
	s.logger.Debug("Tables serialized",
		"schema", params.SchemaName,
		"uncompressed_bytes", len(data),
		"compressed_bytes", len(compressed),
	)
	return compressed, nil
}
