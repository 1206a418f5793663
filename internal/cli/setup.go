package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biomed-dq-validator/internal/report"
	"github.com/biomed-dq-validator/internal/setup"
)

func registerSetupCmd(parent *cobra.Command) {
	var desktopConfig string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with Claude Desktop",
		// setup does not need the engine
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.PersistentFlags().StringVar(&desktopConfig, "desktop-config", "", "Claude Desktop config file (default: platform location)")

	registerSetupClaudeDesktopCmd(cmd, &desktopConfig)
	registerSetupStatusCmd(cmd, &desktopConfig)
	registerSetupRemoveCmd(cmd, &desktopConfig)

	parent.AddCommand(cmd)
}

func registerSetupClaudeDesktopCmd(parent *cobra.Command, desktopConfig *string) {
	opts := setup.Options{}

	cmd := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add or update the server entry in the Claude Desktop config",
		Example: `  # Auto-detect the mcp-server binary on PATH
  dqvalidate setup claude-desktop

  # Explicit binary and config file
  dqvalidate setup claude-desktop --binary ./bin/mcp-server --server-config config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DesktopConfigPath = *desktopConfig
			entry, path, err := setup.Register(opts)
			if err != nil {
				return fmt.Errorf("failed to configure Claude Desktop: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered %s in %s\n", setup.ServerName, path)
			fmt.Fprintf(out, "  command: %s\n", entry.Command)
			for k, v := range entry.Env {
				fmt.Fprintf(out, "  env: %s=%s\n", k, v)
			}
			fmt.Fprintln(out, "Restart Claude Desktop to load the server.")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to the mcp-server binary")
	cmd.Flags().StringVar(&opts.ConfigFile, "server-config", "", "YAML config file passed to the server")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory for the server's archive and exports")

	parent.AddCommand(cmd)
}

func registerSetupStatusCmd(parent *cobra.Command, desktopConfig *string) {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the Claude Desktop registration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := setup.Check(*desktopConfig)
			if err != nil {
				return err
			}
			if format == "json" {
				return report.WriteJSON(cmd.OutOrStdout(), status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Desktop config: %s\n", status.DesktopConfigPath)
			fmt.Fprintf(out, "Registered: %t\n", status.Registered)
			if status.Entry != nil {
				fmt.Fprintf(out, "Command: %s\n", status.Entry.Command)
			}
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")

	parent.AddCommand(cmd)
}

func registerSetupRemoveCmd(parent *cobra.Command, desktopConfig *string) {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove the server entry from the Claude Desktop config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := setup.Unregister(*desktopConfig)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not registered\n", setup.ServerName)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", setup.ServerName)
			return nil
		},
	}

	parent.AddCommand(cmd)
}
