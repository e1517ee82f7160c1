// Package main is the entry point for the dealsearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krishnaw/dealsearch/internal/observability"
)

var (
	// Version is set at build time.
	Version = "dev"
	// BuildTime is set at build time.
	BuildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dealsearch",
		Short: "Hybrid retrieval and ranking engine for grocery deals and coupons",
		Long: `dealsearch searches a catalog of grocery deals and qualifying
products by keyword, fuzzy match, and semantic similarity, fuses the
three into a single ranked list, and exposes the result as a CLI
command, a query-expansion-aware adapter, and an MCP stdio tool.`,
		Version:           fmt.Sprintf("%s (built %s)", Version, BuildTime),
		PersistentPreRunE: setupLogging,
	}

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(expandCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	observability.SetupDefaultLogging("info")
	return nil
}
