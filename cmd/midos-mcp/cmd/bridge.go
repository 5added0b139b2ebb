package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/midos-mcp/midos-mcp/internal/config"
	"github.com/midos-mcp/midos-mcp/internal/gate"
	"github.com/midos-mcp/midos-mcp/internal/mcpserver"
	"github.com/midos-mcp/midos-mcp/pkg/version"
)

// newBridgeCmd is a thin synchronous wrapper around search_knowledge for
// sibling scripts that would otherwise have to speak the stdio JSON-RPC
// transport just to run one query.
func newBridgeCmd() *cobra.Command {
	defaults := config.NewConfig()

	var (
		root  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "bridge <query>",
		Short: "Run one search_knowledge query without starting a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, cleanup, err := buildDeps(root, defaults.Embeddings.Endpoint, defaults.Embeddings.Model, defaults.Embeddings.APIKey, defaults.Embeddings.Dimensions, defaults.Cache.Enabled)
			if err != nil {
				return err
			}
			defer cleanup()

			keys := gate.NewKeyStore(filepath.Join(root, "config", "api_keys.json"))
			usage := gate.NewQuotaLedger(filepath.Join(root, "config", "api_usage.json"))
			defer usage.Flush()

			g := gate.NewGate(keys, usage)
			g.SetMetrics(deps.Metrics)

			srv := mcpserver.NewServer(version.Version, g, deps)

			params, err := json.Marshal(map[string]any{
				"name":      "search_knowledge",
				"arguments": map[string]any{"query": args[0], "limit": limit},
			})
			if err != nil {
				return err
			}
			request, err := json.Marshal(map[string]any{
				"jsonrpc": "2.0",
				"id":      1,
				"method":  "tools/call",
				"params":  json.RawMessage(params),
			})
			if err != nil {
				return err
			}

			raw := srv.Handle(context.Background(), http.Header{}, request)

			var resp struct {
				Result struct {
					Content []struct {
						Text string `json:"text"`
					} `json:"content"`
					IsError bool `json:"isError"`
				} `json:"result"`
				Error *struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(raw, &resp); err != nil {
				return err
			}
			if resp.Error != nil {
				return errors.New(resp.Error.Message)
			}

			var texts []string
			for _, c := range resp.Result.Content {
				texts = append(texts, c.Text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(texts, "\n"))
			if resp.Result.IsError {
				return errors.New("search_knowledge reported an error")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", defaults.Paths.Root, "persisted state root directory")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")

	return cmd
}
