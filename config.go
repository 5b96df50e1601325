package recfilter

import (
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recfilter/catalog"
)

// ServerConfig contains configuration for the recfilter Flight server.
type ServerConfig struct {
	// Catalog provides the schemas and tables to filter.
	// REQUIRED: MUST NOT be nil.
	Catalog catalog.Catalog

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// If LogLevel is also set, a text logger at that level is created instead.
	Logger *slog.Logger

	// LogLevel sets the logging level when Logger is nil.
	// OPTIONAL: If nil, slog.Default() is used as is.
	LogLevel *slog.Level

	// Strategy is the evaluation strategy for tickets that do not name one:
	// "ast" or "vm".
	// OPTIONAL: Defaults to "vm".
	Strategy string

	// Workers is the number of goroutines matching batches per DoGet.
	// OPTIONAL: Defaults to runtime.GOMAXPROCS(0).
	Workers int

	// CacheSize is the number of parsed queries kept for reuse.
	// OPTIONAL: Defaults to 256.
	CacheSize int

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	// Recommended: 16MB for large Arrow batches.
	MaxMessageSize int
}

// Standard errors returned by the recfilter package.
var (
	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")

	// ErrNotFound indicates a schema or table lookup failed.
	ErrNotFound = catalog.ErrNotFound

	// ErrCatalogBuilt is returned when Build is called twice.
	ErrCatalogBuilt = errors.New("catalog already built")
)
