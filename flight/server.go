// Package flight serves filtered tables over Arrow Flight.
//
// A DoGet ticket names a table and carries either a query in text form or a
// compiled vm program. The server scans the table, evaluates the predicate
// on every row with the requested strategy and streams the matching rows.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/scan"
)

// Config configures a Flight Server.
type Config struct {
	// Catalog provides the tables served. REQUIRED.
	Catalog catalog.Catalog

	// Allocator for Arrow buffers.
	// OPTIONAL: defaults to memory.DefaultAllocator.
	Allocator memory.Allocator

	// Logger for request diagnostics.
	// OPTIONAL: defaults to slog.Default().
	Logger *slog.Logger

	// Scanner evaluates predicates over table scans.
	// OPTIONAL: defaults to scan.NewScanner with the same logger.
	Scanner *scan.Scanner

	// Strategy used when a ticket does not name one.
	// OPTIONAL: defaults to scan.StrategyCompiled.
	Strategy scan.Strategy

	// CacheSize is the number of parsed queries kept for reuse.
	// OPTIONAL: defaults to 256.
	CacheSize int
}

// Server implements the Flight service handlers.
// Embeds BaseFlightServer for forward compatibility with protocol changes.
type Server struct {
	flight.BaseFlightServer

	catalog   catalog.Catalog
	allocator memory.Allocator
	logger    *slog.Logger
	scanner   *scan.Scanner
	strategy  scan.Strategy
	queries   *QueryCache
}

// NewServer creates a new Flight server from cfg.
func NewServer(cfg Config) *Server {
	s := &Server{
		catalog:   cfg.Catalog,
		allocator: cfg.Allocator,
		logger:    cfg.Logger,
		scanner:   cfg.Scanner,
		strategy:  cfg.Strategy,
		queries:   NewQueryCache(cfg.CacheSize),
	}
	if s.allocator == nil {
		s.allocator = memory.DefaultAllocator
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.scanner == nil {
		s.scanner = scan.NewScanner(&scan.Options{Logger: s.logger})
	}
	if s.strategy == "" {
		s.strategy = scan.StrategyCompiled
	}
	return s
}

// Queries returns the server's parsed query cache.
func (s *Server) Queries() *QueryCache {
	return s.queries
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
// This follows the standard gRPC service registration pattern.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}
