package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trustloop/internal/app"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a session's confidence, tier and reputation",
		Long: `Show the trust state of one session without changing it.

Examples:
  trustloop status                      # Default session
  trustloop status --session abc123     # A specific Claude Code session
  trustloop status --json               # Machine-readable output`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, _ := cmd.Flags().GetString("session")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Status(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}
			if jsonOut {
				return printJSON(cmd, st)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	addSessionFlag(cmd)
	return cmd
}

func printStatus(w io.Writer, st app.Status) {
	d := st.Decision
	fmt.Fprintf(w, "Session:     %s\n", st.SessionID)
	fmt.Fprintf(w, "Confidence:  %d\n", st.Confidence)
	tier := d.Tier.String()
	if d.Capped {
		tier += fmt.Sprintf(" (capped from %s)", d.RawTier)
	}
	fmt.Fprintf(w, "Tier:        %s, %s mode\n", tier, d.Mode)
	fmt.Fprintf(w, "Privileges:  scratch %s, edit %s, production write %s, git %s, history rewrite %s\n",
		yesNo(d.Privileges.WriteScratch), yesNo(d.Privileges.Edit),
		yesNo(d.Privileges.WriteProduction), yesNo(d.Privileges.GitWrite),
		yesNo(d.Privileges.RewriteHistory))
	fmt.Fprintf(w, "Turn:        %d\n", st.TurnCount)
	fmt.Fprintf(w, "Streak:      %d\n", st.Streak)
	fmt.Fprintf(w, "Debt:        %d\n", st.ReputationDebt)
	if st.IntegrityLock > 0 {
		fmt.Fprintf(w, "Lock:        %d\n", st.IntegrityLock)
	}
	if len(st.PendingApprovals) > 0 {
		names := make([]string, 0, len(st.PendingApprovals))
		for _, p := range st.PendingApprovals {
			names = append(names, fmt.Sprintf("%s %+d", p.Signal, p.Delta))
		}
		fmt.Fprintf(w, "Pending:     %s (run 'trustloop approve')\n", strings.Join(names, ", "))
	}
	if len(st.CoolingDown) > 0 {
		names := make([]string, 0, len(st.CoolingDown))
		for _, c := range st.CoolingDown {
			names = append(names, fmt.Sprintf("%s (%d)", c.Name, c.Remaining))
		}
		fmt.Fprintf(w, "Cooling:     %s\n", strings.Join(names, ", "))
	}
	for _, diag := range st.Diagnostics {
		fmt.Fprintf(w, "Warning:     %s\n", diag)
	}
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions with stored state",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := a.Sessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			statuses := make([]app.Status, 0, len(ids))
			for _, id := range ids {
				st, err := a.Status(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("failed to load session %s: %w", id, err)
				}
				statuses = append(statuses, st)
			}

			if jsonOut {
				return printJSON(cmd, map[string]interface{}{
					"sessions": statuses,
					"count":    len(statuses),
				})
			}

			w := cmd.OutOrStdout()
			if len(statuses) == 0 {
				fmt.Fprintln(w, "No sessions yet.")
				return nil
			}
			for _, st := range statuses {
				fmt.Fprintf(w, "%-40s %3d  %-10s turn %d\n", st.SessionID, st.Confidence, st.Decision.Tier, st.TurnCount)
			}
			return nil
		},
	}
}
