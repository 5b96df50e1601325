package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/recfilter"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile QUERY",
		Short: "Print the program QUERY compiles to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := recfilter.Compile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, prog)

			if encoded, _ := cmd.Flags().GetBool("encoded"); encoded {
				data, err := prog.MarshalBinary()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, base64.StdEncoding.EncodeToString(data))
			}
			return nil
		},
	}
	cmd.Flags().Bool("encoded", false, "also print the encoded program as base64, for Flight tickets")
	return cmd
}
