package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// tierRow is one line of the tier table.
type tierRow struct {
	Tier            string `json:"tier"`
	Min             int    `json:"min"`
	Max             int    `json:"max"`
	Mode            string `json:"mode"`
	WriteScratch    bool   `json:"can_write_scratch"`
	Edit            bool   `json:"can_edit"`
	WriteProduction bool   `json:"can_write_production"`
	GitWrite        bool   `json:"can_git_write"`
	RewriteHistory  bool   `json:"can_rewrite_history"`
}

func newTiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Show the trust tiers and what each one allows",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			policy := a.Engine.Policy()
			var rows []tierRow
			for _, b := range policy.Bands() {
				d := policy.Decide(b.Min, 0)
				rows = append(rows, tierRow{
					Tier:            b.Tier.String(),
					Min:             b.Min,
					Max:             b.Max,
					Mode:            string(d.Mode),
					WriteScratch:    d.Privileges.WriteScratch,
					Edit:            d.Privileges.Edit,
					WriteProduction: d.Privileges.WriteProduction,
					GitWrite:        d.Privileges.GitWrite,
					RewriteHistory:  d.Privileges.RewriteHistory,
				})
			}

			if jsonOut {
				return printJSON(cmd, map[string]interface{}{
					"tiers":       rows,
					"debt_cap":    a.Config.Tiers.DebtCap.String(),
					"irrevocable": a.Config.Tiers.Irrevocable,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-11s %-7s %-9s %-8s %-5s %-6s %-4s %s\n", "TIER", "RANGE", "MODE", "SCRATCH", "EDIT", "WRITE", "GIT", "REWRITE")
			for _, r := range rows {
				fmt.Fprintf(w, "%-11s %-7s %-9s %-8s %-5s %-6s %-4s %s\n",
					r.Tier, fmt.Sprintf("%d-%d", r.Min, r.Max), r.Mode,
					yesNo(r.WriteScratch), yesNo(r.Edit), yesNo(r.WriteProduction), yesNo(r.GitWrite),
					yesNo(r.RewriteHistory))
			}
			fmt.Fprintf(w, "\nWhile reputation debt is owed the tier is capped at %s.\n", a.Config.Tiers.DebtCap)
			fmt.Fprintf(w, "%d irrevocable command patterns are blocked at every tier.\n", len(a.Config.Tiers.Irrevocable))
			return nil
		},
	}
}

func newSignalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List the signals that move confidence",
		Long: `List every registered signal with its delta, base cooldown and impact.

With --session, signals still cooling down for that session show how many
turns remain before they can fire again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, _ := cmd.Flags().GetString("session")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			remaining := map[string]int{}
			if id != "" {
				st, err := a.Status(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("failed to load session: %w", err)
				}
				for _, c := range st.CoolingDown {
					remaining[c.Name] = c.Remaining
				}
			}

			defs := a.Engine.Catalog().Definitions()
			if jsonOut {
				return printJSON(cmd, map[string]interface{}{
					"signals":     defs,
					"cooling":     remaining,
					"count":       len(defs),
					"session_set": id != "",
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-20s %6s %8s %-11s %-10s %s\n", "SIGNAL", "DELTA", "COOLDOWN", "IMPACT", "PENALTY", "NOTES")
			for _, d := range defs {
				var notes string
				if d.RequiresApproval {
					notes = "needs approval"
				}
				if r := remaining[d.Name]; r > 0 {
					if notes != "" {
						notes += "; "
					}
					notes += fmt.Sprintf("cooling down %d", r)
				}
				fmt.Fprintf(w, "%-20s %+6d %8d %-11s %-10s %s\n", d.Name, d.Delta, d.BaseCooldown, d.Impact, d.Penalty, notes)
			}
			return nil
		},
	}
	addSessionFlag(cmd)
	return cmd
}
