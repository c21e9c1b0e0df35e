package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/trustloop/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout.

The server lets the agent read its own trust status, the tier table and
the signal catalog, dry-run the gate before a risky call, and apply
approvals the user has granted.

Register it with Claude Code:
  claude mcp add trustloop -- trustloop mcp-server --root "$PWD"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			server, err := mcp.NewServer(cmd.Context(), &mcp.Config{
				Name:    "trustloop",
				Version: version,
				Root:    root,
				Stderr:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
}
