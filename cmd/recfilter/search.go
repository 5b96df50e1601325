package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/recfilter"
	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/query"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Print the records matching QUERY as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().String("data", "whales.json", "JSON array or NDJSON file of records")
	cmd.Flags().String("strategy", "vm", "evaluation strategy: ast or vm")
	cmd.Flags().Bool("explain", false, "print the compiled program to stderr")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	records, err := catalog.LoadJSONFile(cfg.Data)
	if err != nil {
		return err
	}
	if cfg.Explain {
		prog, err := recfilter.Compile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stderr, prog)
	}

	matched, err := recfilter.Search(cmd.Context(), records, args[0], cfg.Strategy)
	if err != nil {
		return err
	}
	logger.Debug("Search completed",
		"data", cfg.Data,
		"strategy", cfg.Strategy,
		"records", len(records),
		"matched", len(matched),
	)
	return writeJSONLines(cmd.OutOrStdout(), matched)
}

func writeJSONLines(w io.Writer, records []query.Record) error {
	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)
	for _, rec := range records {
		if err := enc.Encode(rec.Map()); err != nil {
			return err
		}
	}
	return out.Flush()
}
