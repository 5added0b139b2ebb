package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/midos-mcp/midos-mcp/internal/config"
	"github.com/midos-mcp/midos-mcp/internal/gate"
	"github.com/midos-mcp/midos-mcp/internal/output"
)

// keys list's masked-table palette, reusing the teacher TUI's lime/dark-gray
// accent colors (internal/ui/styles.go's ColorLime/ColorDarkGray) for an
// active/revoked distinction instead of a progress gauge.
var (
	keysHeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	keysActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("154"))
	keysRevokedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func newKeysCmd() *cobra.Command {
	root := config.NewConfig().Paths.Root

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Administer API keys",
	}
	cmd.PersistentFlags().StringVar(&root, "root", root, "persisted state root directory (defaults to ~/.midos-mcp)")

	cmd.AddCommand(newKeysGenerateCmd(&root))
	cmd.AddCommand(newKeysListCmd(&root))
	cmd.AddCommand(newKeysRevokeCmd(&root))
	cmd.AddCommand(newKeysUsageCmd(&root))

	return cmd
}

func keyStoreFor(root string) *gate.KeyStore {
	return gate.NewKeyStore(filepath.Join(root, "config", "api_keys.json"))
}

func quotaLedgerFor(root string) *gate.QuotaLedger {
	return gate.NewQuotaLedger(filepath.Join(root, "config", "api_usage.json"))
}

func newKeysGenerateCmd(root *string) *cobra.Command {
	var name string
	var tier string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := output.New(os.Stdout)
			key, err := keyStoreFor(*root).Generate(name, gate.Tier(tier))
			if err != nil {
				w.Errorf("%s", err.Error())
				return err
			}
			fmt.Println(key)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label for this key")
	cmd.Flags().StringVar(&tier, "tier", string(gate.TierFree), "tier: free, dev, pro, or team")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newKeysListCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys (masked)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := output.New(os.Stdout)
			keys, err := keyStoreFor(*root).List()
			if err != nil {
				w.Errorf("%s", err.Error())
				return err
			}
			if len(keys) == 0 {
				w.Status("", "No keys stored.")
				return nil
			}
			fmt.Println(keysHeaderStyle.Render(fmt.Sprintf("%-18s  %-20s  %-6s  %s", "PREFIX", "NAME", "TIER", "STATUS")))
			for _, k := range keys {
				status := keysActiveStyle.Render("active")
				if !k.Active {
					status = keysRevokedStyle.Render("revoked")
				}
				fmt.Printf("%-18s  %-20s  %-6s  %s\n", k.Prefix, k.Name, k.Tier, status)
			}
			return nil
		},
	}
}

func newKeysRevokeCmd(root *string) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := output.New(os.Stdout)
			ok, err := keyStoreFor(*root).Revoke(key)
			if err != nil {
				w.Errorf("%s", err.Error())
				return err
			}
			if !ok {
				w.Warning("key not found")
				return fmt.Errorf("key not found")
			}
			w.Success("key revoked")
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "full key to revoke")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newKeysUsageCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show current-month usage counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := output.New(os.Stdout)
			stats, err := quotaLedgerFor(*root).Stats()
			if err != nil {
				w.Errorf("%s", err.Error())
				return err
			}
			if len(stats) == 0 {
				w.Status("", "No usage recorded this month.")
				return nil
			}
			for _, s := range stats {
				fmt.Printf("%-24s  %d\n", s.Identifier, s.Count)
			}
			return nil
		},
	}
}
