package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krishnaw/dealsearch/internal/ai"
)

// expandCmd asks the configured AI provider for the terms it would
// expand a query into, without running a search. Useful for tuning the
// expansion prompt and cache behavior independently of ranking.
func expandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand <query>",
		Short: "Show the query-expansion terms for a query, without searching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Expansion.Provider == "" {
				return fmt.Errorf("query expansion is not configured (expansion.provider is empty)")
			}

			provider, err := ai.NewProvider(ai.ProviderConfig{
				Model:          a.cfg.Expansion.Model,
				Endpoint:       a.cfg.Expansion.Endpoint,
				TimeoutSeconds: a.cfg.Expansion.TimeoutSeconds,
				MaxRetries:     a.cfg.Expansion.MaxRetries,
			}, a.cfg.Expansion.Provider)
			if err != nil {
				return err
			}

			terms, err := provider.Expand(ctx, args[0])
			if err != nil {
				return fmt.Errorf("expansion failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{"query": args[0], "terms": terms})
		},
	}
	return cmd
}
