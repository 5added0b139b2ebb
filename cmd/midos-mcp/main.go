// Package main provides the entry point for the midos-mcp CLI.
package main

import (
	"os"

	"github.com/midos-mcp/midos-mcp/cmd/midos-mcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
