package recfilter

import (
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/grpc"

	"github.com/hugr-lab/recfilter/flight"
	"github.com/hugr-lab/recfilter/internal/recovery"
	"github.com/hugr-lab/recfilter/scan"
)

// NewServer registers the recfilter Flight service on the provided gRPC
// server.
//
// The function:
//  1. Validates the ServerConfig
//  2. Creates the Flight service with its scanner and query cache
//  3. Registers it on grpcServer
//
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
// Create grpcServer with ServerOptions(config) to get request logging and
// panic recovery:
//
//	grpcServer := grpc.NewServer(recfilter.ServerOptions(config)...)
//	if err := recfilter.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	strategy, _ := scan.ParseStrategy(config.Strategy)

	logger := configLogger(config)
	flightServer := flight.NewServer(flight.Config{
		Catalog:   config.Catalog,
		Allocator: config.Allocator,
		Logger:    logger,
		Scanner:   scan.NewScanner(&scan.Options{Workers: config.Workers, Logger: logger}),
		Strategy:  strategy,
		CacheSize: config.CacheSize,
	})
	flight.RegisterFlightServer(grpcServer, flightServer)

	logger.Info("recfilter Flight server registered",
		"strategy", strategy,
		"workers", config.Workers,
		"max_message_size", config.MaxMessageSize,
	)
	return nil
}

// validateConfig checks that required ServerConfig fields are valid.
func validateConfig(config ServerConfig) error {
	if config.Catalog == nil {
		return fmt.Errorf("catalog is required")
	}
	if _, err := scan.ParseStrategy(config.Strategy); err != nil {
		return err
	}
	if config.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

func configLogger(config ServerConfig) *slog.Logger {
	switch {
	case config.Logger != nil:
		return config.Logger
	case config.LogLevel != nil:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options for a recfilter server: panic
// recovery, request metadata with call logging, and the configured message
// size limit.
//
// Example:
//
//	opts := recfilter.ServerOptions(config)
//	grpcServer := grpc.NewServer(opts...)
//	recfilter.NewServer(grpcServer, config)
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	logger := configLogger(config)
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(logger),
			flight.UnaryServerInterceptor(logger),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(logger),
			flight.StreamServerInterceptor(logger),
		),
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}
	return opts
}
