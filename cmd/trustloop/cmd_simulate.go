package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trustloop/internal/config"
	"github.com/nvandessel/trustloop/internal/simulation"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [scenario...]",
		Short: "Replay scripted sessions through the engine",
		Long: `Run scripted sessions through the real engine in a scratch directory and
print the confidence trajectory turn by turn.

With no arguments every built-in scenario runs. Scenarios are scored with
the configuration found under --root, so tuning changes can be checked
before they reach a live session.

Examples:
  trustloop simulate --list
  trustloop simulate death-spiral
  trustloop simulate --file ./scenarios.yaml`,
		RunE: runSimulate,
	}

	cmd.Flags().String("file", "", "Load scenarios from a YAML file instead of the built-ins")
	cmd.Flags().Bool("list", false, "List built-in scenarios and exit")

	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString("root")
	jsonOut, _ := cmd.Flags().GetBool("json")
	file, _ := cmd.Flags().GetString("file")
	list, _ := cmd.Flags().GetBool("list")

	if list {
		return listScenarios(cmd, jsonOut)
	}

	scenarios, err := selectScenarios(file, args)
	if err != nil {
		return err
	}

	base, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := base.Validate(); err != nil {
		return err
	}

	scratch, err := os.MkdirTemp("", "trustloop-sim-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	ctx := cmd.Context()
	runner := simulation.NewRunner(scratch, cmd.ErrOrStderr()).WithConfig(base)

	var results []simulation.Result
	for _, sc := range scenarios {
		res, err := runner.Run(ctx, sc)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		results = append(results, res)
	}

	if jsonOut {
		return printJSON(cmd, results)
	}

	out := cmd.OutOrStdout()
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s ==\n", res.Scenario)
		if desc := scenarios[i].Description; desc != "" {
			fmt.Fprintln(out, desc)
		}
		if err := res.WriteTable(out); err != nil {
			return err
		}
		final := res.Final()
		fmt.Fprintf(out, "final: confidence %d, streak %d, debt %d\n", final.Confidence, final.Streak, final.ReputationDebt)
	}
	return nil
}

// selectScenarios resolves the scenarios to run from --file or by name.
func selectScenarios(file string, names []string) ([]simulation.Scenario, error) {
	var pool []simulation.Scenario
	if file != "" {
		loaded, err := simulation.LoadScenarios(file)
		if err != nil {
			return nil, err
		}
		pool = loaded
	} else {
		pool = simulation.Builtin()
	}

	if len(names) == 0 {
		return pool, nil
	}

	byName := make(map[string]simulation.Scenario, len(pool))
	for _, sc := range pool {
		byName[sc.Name] = sc
	}
	selected := make([]simulation.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (see trustloop simulate --list)", name)
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

func listScenarios(cmd *cobra.Command, jsonOut bool) error {
	builtin := simulation.Builtin()
	if jsonOut {
		type entry struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Steps       int    `json:"steps"`
		}
		entries := make([]entry, 0, len(builtin))
		for _, sc := range builtin {
			entries = append(entries, entry{Name: sc.Name, Description: sc.Description, Steps: len(sc.Steps)})
		}
		return printJSON(cmd, entries)
	}
	for _, sc := range builtin {
		fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", sc.Name, sc.Description)
	}
	return nil
}
