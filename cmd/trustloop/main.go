package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trustloop/internal/app"
)

// Set by goreleaser ldflags.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trustloop",
		Short: "Epistemic confidence engine for AI coding agents",
		Long: `trustloop scores how far an AI coding agent can be trusted, one tool
event at a time.

Every hook event runs an evaluation pass: behavioral signals raise or lower a
confidence score in [0,100], the score maps to one of six trust tiers, and
the tier decides which actions the agent may take.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newHookCmd(),
		newStatusCmd(),
		newSessionsCmd(),
		newTiersCmd(),
		newSignalsCmd(),
		newApproveCmd(),
		newResetCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
		newSimulateCmd(),
	)
	return rootCmd
}

// openApp opens the project named by --root. Operational logs go to the
// command's stderr.
func openApp(cmd *cobra.Command) (*app.App, error) {
	root, _ := cmd.Flags().GetString("root")
	a, err := app.Open(cmd.Context(), app.Options{Root: root, Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	return a, nil
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// addSessionFlag registers --session on cmd.
func addSessionFlag(cmd *cobra.Command) {
	cmd.Flags().String("session", "", "Session id (default \""+app.DefaultSessionID+"\")")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
