package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// indexCmd groups corpus-index management subcommands.
func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the record set and embedding matrix",
	}
	cmd.AddCommand(indexBuildCmd())
	return cmd
}

// indexBuildCmd loads the record set and embedding matrix through the
// configured caches, embedding the corpus only when no cache holds a
// matrix for it, and reports the record count and vector dimension.
// Running it ahead of time fills whichever caches are configured, so a
// later `search`/`mcp serve` invocation can skip the embedding step.
func indexBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build (or refresh) the record set and embedding matrix caches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d records (dimension %d)\n",
				len(a.recordSet.Records), a.encoder.Dimension())
			return nil
		},
	}
	return cmd
}
