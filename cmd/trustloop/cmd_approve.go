package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Apply boosts waiting for your approval",
		Long: `Some increasers, such as task completion, do not raise confidence until
you confirm the work. This applies every pending boost of the session,
scaled and capped like any other boost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, _ := cmd.Flags().GetString("session")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Approve(cmd.Context(), id)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd, res)
			}

			w := cmd.OutOrStdout()
			if res.ApprovalsApplied == 0 && res.ApprovalsExpired == 0 {
				fmt.Fprintln(w, "Nothing awaiting approval.")
				return nil
			}
			fmt.Fprintln(w, res.Message)
			return nil
		},
	}
	addSessionFlag(cmd)
	return cmd
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget a session's trust state",
		Long: `Remove stored state so the session starts over at the initial confidence.

Examples:
  trustloop reset --session abc123
  trustloop reset --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, _ := cmd.Flags().GetString("session")
			all, _ := cmd.Flags().GetBool("all")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ids := []string{id}
			if all {
				ids, err = a.Sessions(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list sessions: %w", err)
				}
			}
			for _, id := range ids {
				if err := a.Reset(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to reset session %s: %w", id, err)
				}
			}

			if jsonOut {
				return printJSON(cmd, map[string]interface{}{"status": "reset", "count": len(ids)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d session(s).\n", len(ids))
			return nil
		},
	}
	addSessionFlag(cmd)
	cmd.Flags().Bool("all", false, "Reset every session")
	return cmd
}
