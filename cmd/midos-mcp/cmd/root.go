// Package cmd provides the CLI commands for midos-mcp.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/midos-mcp/midos-mcp/pkg/version"
)

// NewRootCmd creates the root command for the midos-mcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "midos-mcp",
		Short:   "MCP knowledge server: search, skills, and agent onboarding over JSON-RPC",
		Version: version.Version,
		Long: `midos-mcp exposes a curated knowledge base and onboarding handshake to
AI coding assistants over the Model Context Protocol.

Run 'midos-mcp serve' to start the server, or 'midos-mcp keys' to
administer API keys.`,
	}
	cmd.SetVersionTemplate("midos-mcp version {{.Version}}\n")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newKeysCmd())
	cmd.AddCommand(newBridgeCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
