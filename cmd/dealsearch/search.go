package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krishnaw/dealsearch/internal/search"
)

// searchCmd runs a single search against the configured corpus and
// prints the ranked deals as JSON.
func searchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search deals and coupons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			deals, err := a.Searcher().Search(ctx, args[0], a.recordSet, search.Options{TopK: topK})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(deals)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "maximum number of deals to return (0 uses the configured default)")
	return cmd
}
