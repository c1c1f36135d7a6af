// Cachesim-report prints what a recorded cachesim run did.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/report"
)

func main() {
	var (
		top     int
		useJSON bool
	)

	rootCmd := &cobra.Command{
		Use:   "cachesim-report <recording.sqlite3>",
		Short: "Cachesim-report summarizes a recording made with cachesim --record.",
		Args:  cobra.ExactArgs(1),

		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}

			reader := datarecording.NewReader(args[0])
			defer reader.Close()

			r, err := report.Build(cmd.Context(), reader, top)
			if err != nil {
				return err
			}

			if useJSON {
				return r.WriteJSON(cmd.OutOrStdout())
			}

			return r.WriteText(cmd.OutOrStdout())
		},
	}

	rootCmd.Flags().IntVar(&top, "top", 10,
		"number of sets to list, -1 for all")
	rootCmd.Flags().BoolVar(&useJSON, "json", false, "print JSON")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
