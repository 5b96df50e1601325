// Command recfilter filters JSON records with boolean queries and serves
// the filtered data over Arrow Flight.
//
//	recfilter search --data whales.json 'size > 20 || range == "antarctic"'
//	recfilter compile 'upper(name) == "ORCA"'
//	recfilter serve --data whales.json --addr :50051
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recfilter",
		Short:         "Filter records with boolean queries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.AddCommand(newSearchCmd(), newCompileCmd(), newServeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
