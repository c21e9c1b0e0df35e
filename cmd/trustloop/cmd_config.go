package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trustloop/internal/config"
	"github.com/nvandessel/trustloop/internal/store"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect trustloop configuration",
		Long: `View and check trustloop configuration.

Configuration is layered: built-in defaults, then ~/.trustloop/config.yaml,
then <root>/.trustloop/config.yaml, then TRUSTLOOP_* environment variables.

Examples:
  trustloop config show                 # Effective configuration as YAML
  trustloop config validate             # Check the layered configuration
  trustloop config validate ./tuned.yaml
  trustloop config path                 # Where configuration is read from`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigValidateCmd(),
		newConfigPathCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if jsonOut {
				return printJSON(cmd, cfg)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check configuration for errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			var (
				cfg    *config.Config
				err    error
				source = "layered configuration"
			)
			if len(args) == 1 {
				source = args[0]
				cfg, err = config.LoadFromFile(args[0])
			} else {
				cfg, err = config.Load(root)
			}
			if err == nil {
				err = cfg.Validate()
			}

			if jsonOut {
				result := map[string]interface{}{"source": source, "valid": err == nil}
				if err != nil {
					result["error"] = err.Error()
				}
				if perr := printJSON(cmd, result); perr != nil {
					return perr
				}
			} else if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", source)
			}
			return err
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where configuration files are read from",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			type location struct {
				Scope  string `json:"scope"`
				Path   string `json:"path"`
				Exists bool   `json:"exists"`
			}
			var locs []location
			if global, err := store.GlobalPath(); err == nil {
				locs = append(locs, location{Scope: "global", Path: filepath.Join(global, config.FileName)})
			}
			locs = append(locs, location{Scope: "project", Path: filepath.Join(store.LocalPath(root), config.FileName)})
			for i := range locs {
				_, err := os.Stat(locs[i].Path)
				locs[i].Exists = err == nil
			}

			if jsonOut {
				return printJSON(cmd, locs)
			}
			for _, l := range locs {
				state := "missing"
				if l.Exists {
					state = "present"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s (%s)\n", l.Scope, l.Path, state)
			}
			return nil
		},
	}
}
