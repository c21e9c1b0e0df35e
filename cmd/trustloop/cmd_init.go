package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trustloop/internal/config"
	"github.com/nvandessel/trustloop/internal/hooks"
	"github.com/nvandessel/trustloop/internal/store"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize trustloop in the current project",
		Long: `Initialize trustloop and configure AI tool hooks.

This command creates the .trustloop/ directory with a default config.yaml.
By default, it also detects AI coding tools (Claude Code, etc.) and installs
hooks so every tool event is scored and gated.

Examples:
  trustloop init                        # Initialize with auto-detected hooks
  trustloop init --hooks=false          # Initialize without configuring hooks
  trustloop init --global               # Install hooks for every project
  trustloop init --uninstall            # Remove trustloop hooks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			globalInit, _ := cmd.Flags().GetBool("global")
			configureHooks, _ := cmd.Flags().GetBool("hooks")
			platformFilter, _ := cmd.Flags().GetString("platform")
			uninstall, _ := cmd.Flags().GetBool("uninstall")
			jsonOut, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()

			var dir, hookRoot string
			scope := hooks.ScopeProject
			if globalInit {
				if err := store.EnsureGlobalDir(); err != nil {
					return fmt.Errorf("failed to initialize global directory: %w", err)
				}
				var err error
				dir, err = store.GlobalPath()
				if err != nil {
					return fmt.Errorf("failed to get global path: %w", err)
				}
				// For global init, configure hooks in home directory
				hookRoot, _ = os.UserHomeDir()
				scope = hooks.ScopeGlobal
			} else {
				dir = store.LocalPath(root)
				hookRoot = root
			}

			if uninstall {
				results, err := hooks.DefaultRegistry.Uninstall(hookRoot, platformFilter)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd, map[string]interface{}{"status": "uninstalled", "hooks": results})
				}
				for _, r := range results {
					if r.Error != nil {
						fmt.Fprintf(w, "  - %s: ERROR - %v\n", r.Platform, r.Error)
					} else if r.Removed {
						fmt.Fprintf(w, "  - %s: removed hooks from %s\n", r.Platform, r.ConfigPath)
					}
				}
				return nil
			}

			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}

			configPath := filepath.Join(dir, config.FileName)
			configCreated := false
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := config.Default().Save(configPath); err != nil {
					return fmt.Errorf("failed to write %s: %w", config.FileName, err)
				}
				configCreated = true
			}

			result := map[string]interface{}{
				"status":         "initialized",
				"path":           dir,
				"config_created": configCreated,
			}
			if globalInit {
				result["scope"] = "global"
			}

			// Human-readable output for trustloop init
			if !jsonOut {
				fmt.Fprintf(w, "Created %s\n", dir)
				if configCreated {
					fmt.Fprintf(w, "Wrote default configuration to %s\n", configPath)
				}
			}

			var hookResults []hooks.ConfigureResult
			if configureHooks {
				var err error
				hookResults, err = configureAIToolHooks(cmd, hookRoot, platformFilter, scope, jsonOut)
				if err != nil {
					return err
				}
				if len(hookResults) > 0 {
					result["hooks"] = hookResults
				}
			}

			if jsonOut {
				return printJSON(cmd, result)
			} else if configureHooks && len(hookResults) == 0 {
				fmt.Fprintln(w, "\nNo AI tools detected. Hooks not configured.")
				fmt.Fprintln(w, "To configure hooks later, ensure .claude/ exists and run 'trustloop init' again.")
			}

			return nil
		},
	}

	cmd.Flags().Bool("global", false, "Use the global user directory (~/.trustloop/) and install hooks for every project")
	cmd.Flags().Bool("hooks", true, "Configure AI tool hooks (default: true)")
	cmd.Flags().String("platform", "", "Only configure hooks for specific platform (e.g., 'Claude Code')")
	cmd.Flags().Bool("uninstall", false, "Remove trustloop hooks instead of installing them")

	return cmd
}

// configureAIToolHooks detects AI tools and installs trustloop hooks.
func configureAIToolHooks(cmd *cobra.Command, hookRoot, platformFilter string, scope hooks.HookScope, jsonOut bool) ([]hooks.ConfigureResult, error) {
	w := cmd.OutOrStdout()
	detected, err := hooks.Detect(hookRoot, platformFilter)
	if err != nil {
		return nil, err
	}
	if len(detected) == 0 {
		return nil, nil
	}

	if !jsonOut {
		fmt.Fprintln(w, "\nDetected AI tools:")
		for _, d := range detected {
			status := ""
			if d.HasHooks {
				status = " (hooks already configured)"
			}
			fmt.Fprintf(w, "  - %s%s\n", d.Name, status)
		}
		fmt.Fprintln(w, "\nConfiguring hooks...")
	}

	results, err := hooks.DefaultRegistry.Install(hookRoot, platformFilter, scope)
	if err != nil {
		return nil, err
	}
	if jsonOut {
		return results, nil
	}
	for _, result := range results {
		switch {
		case result.Error != nil:
			fmt.Fprintf(w, "  - %s: ERROR - %v\n", result.Platform, result.Error)
		case result.Created:
			fmt.Fprintf(w, "  - %s: created %s\n", result.Platform, result.ConfigPath)
		default:
			fmt.Fprintf(w, "  - %s: updated %s\n", result.Platform, result.ConfigPath)
		}
	}
	fmt.Fprintln(w, "\nTool events will now be scored and gated.")
	return results, nil
}
