package main

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/krishnaw/dealsearch/internal/mcptool"
)

// mcpCmd groups MCP stdio tool wrapper subcommands.
func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run dealsearch as an MCP tool",
	}
	cmd.AddCommand(mcpServeCmd())
	return cmd
}

// mcpServeCmd starts the MCP stdio tool wrapper (SPEC_FULL.md Part D.2/D.3).
func mcpServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP stdio tool wrapper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			server := mcp.NewServer(
				&mcp.Implementation{
					Name:    "dealsearch",
					Version: Version,
				},
				&mcp.ServerOptions{
					Instructions: "Search current grocery deals and coupons. " +
						"Use search_deals with a keyword or natural-language " +
						"query, or query=\"*\" paired with an expiry filter to " +
						"list deals ending soon.",
				},
			)

			handler := mcptool.NewHandler(a.Searcher(), a.recordSet, a.cfg.MCP)
			mcptool.RegisterAll(server, handler)

			if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
	return cmd
}
