package flight

import (
	"context"
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/filter"
	"github.com/hugr-lab/recfilter/internal/recovery"
	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/scan"
	"github.com/hugr-lab/recfilter/vm"
)

// DoGet streams the rows of a table that satisfy the ticket's filter.
//
// The handler:
//  1. Decodes the ticket and builds a matcher from its query or program
//  2. Looks up the table in the catalog
//  3. Scans the table with the requested columns plus the filter fields,
//     or matches the records of a catalog.RecordSource directly
//  4. Evaluates the filter on every row and streams matching rows in
//     scan order, projected to the requested columns
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := s.logger.With(MetaFromContext(ctx).LogAttrs()...)

	td, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		logger.Error("Failed to decode ticket", "error", err)
		return status.Error(codes.InvalidArgument, err.Error())
	}
	logger = logger.With("schema", td.Schema, "table", td.Table)

	m, pred, prog, err := s.matcher(td)
	if err != nil {
		logger.Error("Invalid filter", "error", err)
		return status.Errorf(codes.InvalidArgument, "invalid filter: %v", err)
	}

	table, err := s.lookupTable(ctx, td.Schema, td.Table)
	if err != nil {
		return err
	}

	full := table.ArrowSchema()
	if full == nil {
		logger.Error("Table returned nil Arrow schema")
		return status.Errorf(codes.Internal, "table %s.%s has nil Arrow schema", td.Schema, td.Table)
	}
	out := outputSchema(full, td.Columns)

	// Records of a RecordSource are matched directly: their Arrow form
	// loses missing fields and the kinds of mixed-kind columns.
	src, direct := table.(catalog.RecordSource)
	direct = direct && m != nil

	var reader array.RecordReader
	if !direct {
		opts := &catalog.ScanOptions{
			Columns:   scanColumns(out, full, filterFields(pred, prog)),
			Predicate: pred,
		}
		reader, err = recovery.RecoverToValue(logger, "Scan", func() (array.RecordReader, error) {
			return table.Scan(ctx, opts)
		})
		if err != nil {
			logger.Error("Table scan failed", "error", err)
			return status.Errorf(codes.Internal, "table scan failed: %v", err)
		}
		defer reader.Release()
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(out), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	var sent int64
	emit := func(batch arrow.RecordBatch) error {
		projected, err := projectBatch(batch, out)
		if err != nil {
			return err
		}
		defer projected.Release()
		sent += projected.NumRows()
		return writer.Write(projected)
	}

	var stats scan.Stats
	switch {
	case direct:
		build := func(records []query.Record) (arrow.RecordBatch, error) {
			return catalog.BuildBatch(s.allocator, out, records)
		}
		stats, err = s.scanner.ScanRecords(ctx, src.Records(), m, 0, build, emit)
	case m == nil:
		err = streamAll(ctx, reader, emit)
	default:
		stats, err = s.scanner.Scan(ctx, reader, m, emit)
	}
	if m != nil {
		logger.Debug("Filter applied",
			"strategy", m.Strategy(),
			"direct", direct,
			"batches", stats.Batches,
			"scanned", stats.Scanned,
			"matched", stats.Matched,
		)
	}
	if err != nil {
		logger.Error("DoGet failed", "rows_sent", sent, "error", err)
		return scanStatus(err)
	}

	logger.Debug("DoGet completed", "rows_sent", sent)
	return nil
}

// matcher builds the row matcher for td. A nil matcher means every row
// passes. The returned predicate is set for text queries and pushed-down
// filters, the program for compiled tickets.
func (s *Server) matcher(td *TicketData) (scan.Matcher, query.Predicate, *vm.Program, error) {
	if len(td.Program) > 0 {
		prog, err := vm.DecodeProgram(td.Program)
		if err != nil {
			return nil, nil, nil, err
		}
		return scan.Compiled(prog), nil, prog, nil
	}
	strategy := s.strategy
	if td.Strategy != "" {
		var err error
		if strategy, err = scan.ParseStrategy(td.Strategy); err != nil {
			return nil, nil, nil, err
		}
	}
	if len(td.Filters) > 0 {
		return pushdownMatcher(td.Filters, strategy)
	}
	if td.Query == "" {
		return nil, nil, nil, nil
	}

	q, err := s.queries.Parse(td.Query)
	if err != nil {
		return nil, nil, nil, err
	}
	if strategy == scan.StrategyInterpreted {
		return scan.Interpreted(q.Predicate), q.Predicate, nil, nil
	}
	return scan.Compiled(q.Program), q.Predicate, nil, nil
}

// pushdownMatcher translates DuckDB filter pushdown JSON. Pushed-down
// filters are not cached: their text depends on column bindings.
func pushdownMatcher(data []byte, strategy scan.Strategy) (scan.Matcher, query.Predicate, *vm.Program, error) {
	fp, err := filter.Parse(data)
	if err != nil {
		return nil, nil, nil, err
	}
	pred, err := fp.Predicate()
	if err != nil || pred == nil {
		return nil, nil, nil, err
	}
	if strategy == scan.StrategyInterpreted {
		return scan.Interpreted(pred), pred, nil, nil
	}
	return scan.Compiled(vm.Compile(pred)), pred, nil, nil
}

func (s *Server) lookupTable(ctx context.Context, schemaName, tableName string) (catalog.Table, error) {
	table, err := recovery.RecoverToValue(s.logger, "LookupTable", func() (catalog.Table, error) {
		return catalog.LookupTable(ctx, s.catalog, schemaName, tableName)
	})
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	case err != nil:
		s.logger.Error("Failed to look up table",
			"schema", schemaName,
			"table", tableName,
			"error", err,
		)
		return nil, status.Errorf(codes.Internal, "failed to get table: %v", err)
	}
	return table, nil
}

// streamAll forwards every batch of reader to emit.
func streamAll(ctx context.Context, reader array.RecordReader, emit scan.EmitFunc) error {
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(reader.RecordBatch()); err != nil {
			return err
		}
	}
	return reader.Err()
}

func scanStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, vm.ErrMalformedProgram):
		return status.Errorf(codes.InvalidArgument, "malformed program: %v", err)
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Errorf(codes.Internal, "scan failed: %v", err)
}
