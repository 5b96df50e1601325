package main

import (
	"database/sql"
	"fmt"
	"net"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/hugr-lab/recfilter"
	"github.com/hugr-lab/recfilter/catalog"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve records over Arrow Flight with query filtering",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("data", "whales.json", "JSON array or NDJSON file served as a table (empty to skip)")
	cmd.Flags().String("addr", ":50051", "listen address")
	cmd.Flags().String("schema", "main", "schema holding the served tables")
	cmd.Flags().String("table", "", "table name for --data (default: file name without extension)")
	cmd.Flags().String("duckdb", "", "DuckDB database file whose tables are also served")
	cmd.Flags().StringSlice("duckdb-tables", nil, "DuckDB tables to serve")
	cmd.Flags().String("strategy", "vm", "default evaluation strategy: ast or vm")
	cmd.Flags().Int("workers", 0, "goroutines matching batches per request (0: GOMAXPROCS)")
	cmd.Flags().Int("cache-size", 256, "parsed queries kept for reuse")
	cmd.Flags().Int("max-message-size", 16<<20, "maximum gRPC message size in bytes")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	builder := recfilter.NewCatalogBuilder()
	schema := builder.Schema(cfg.Schema)
	if cfg.Data != "" {
		records, err := catalog.LoadJSONFile(cfg.Data)
		if err != nil {
			return err
		}
		schema.Records(tableName(cfg), "Loaded from "+cfg.Data, records)
		logger.Info("Loaded records", "file", cfg.Data, "records", len(records))
	}

	if cfg.DuckDB != "" {
		db, err := sql.Open("duckdb", cfg.DuckDB)
		if err != nil {
			return fmt.Errorf("failed to open duckdb %s: %w", cfg.DuckDB, err)
		}
		defer db.Close()
		for _, name := range cfg.DuckDBTables {
			table, err := catalog.NewSQLTable(ctx, db, name, name)
			if err != nil {
				return err
			}
			schema.Table(table)
		}
	}

	cat, err := builder.Build()
	if err != nil {
		return err
	}

	config := recfilter.ServerConfig{
		Catalog:        cat,
		Logger:         logger,
		Strategy:       cfg.Strategy,
		Workers:        cfg.Workers,
		CacheSize:      cfg.CacheSize,
		MaxMessageSize: cfg.MaxMessageSize,
	}
	grpcServer := grpc.NewServer(recfilter.ServerOptions(config)...)
	if err := recfilter.NewServer(grpcServer, config); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		grpcServer.GracefulStop()
	}()

	logger.Info("recfilter Flight server listening", "addr", lis.Addr().String())
	if err := grpcServer.Serve(lis); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func tableName(cfg *Config) string {
	if cfg.Table != "" {
		return cfg.Table
	}
	return fileStem(cfg.Data)
}

// fileStem returns the base name of path without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
