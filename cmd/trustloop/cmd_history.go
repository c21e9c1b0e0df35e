package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trustloop/internal/app"
	"github.com/nvandessel/trustloop/internal/constants"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent evaluation passes of a session",
		Long: `Show recent evaluation passes, newest first.

With --decisions, show the decision log instead. Decisions are only
recorded when logging.level is debug or trace.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, _ := cmd.Flags().GetString("session")
			limit, _ := cmd.Flags().GetInt("limit")
			decisions, _ := cmd.Flags().GetBool("decisions")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if id == "" {
				id = app.DefaultSessionID
			}
			w := cmd.OutOrStdout()

			if decisions {
				recs, err := a.Decisions(id, limit)
				if err != nil {
					return fmt.Errorf("failed to read decision log: %w", err)
				}
				if jsonOut {
					return printJSON(cmd, map[string]interface{}{"decisions": recs, "count": len(recs)})
				}
				if len(recs) == 0 {
					fmt.Fprintln(w, "No decisions logged. Set logging.level to debug to record them.")
				}
				for _, r := range recs {
					fmt.Fprintf(w, "%v  %-16v %s\n", r["time"], r["event"], describeDecision(r))
				}
				return nil
			}

			recs, err := a.Recent(cmd.Context(), id, limit)
			if errors.Is(err, app.ErrNoHistory) {
				return fmt.Errorf("the configured storage backend keeps no history")
			}
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			if jsonOut {
				return printJSON(cmd, map[string]interface{}{"passes": recs, "count": len(recs)})
			}
			if len(recs) == 0 {
				fmt.Fprintf(w, "No history for session %s.\n", id)
				return nil
			}
			for _, r := range recs {
				fmt.Fprintf(w, "turn %-4d %3d -> %-3d %-10s %-16s %s\n",
					r.Turn, r.OldConfidence, r.NewConfidence, r.Tier, r.Event, strings.Join(r.Triggered, ","))
			}
			return nil
		},
	}
	addSessionFlag(cmd)
	cmd.Flags().Int("limit", constants.HistoryDefaultLimit, "Maximum records to show")
	cmd.Flags().Bool("decisions", false, "Show the decision log instead of pass history")
	return cmd
}

// describeDecision summarizes one decision-log record.
func describeDecision(r map[string]any) string {
	switch r["event"] {
	case "gate":
		return fmt.Sprintf("%v %v at %v (%v)", r["verdict"], r["action"], r["tier"], r["tool"])
	case "evaluation_pass":
		return fmt.Sprintf("turn %v: %v -> %v", r["turn"], r["old_confidence"], r["new_confidence"])
	}
	return ""
}
