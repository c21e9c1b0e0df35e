package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trustloop/internal/activation"
	"github.com/nvandessel/trustloop/internal/app"
	"github.com/nvandessel/trustloop/internal/models"
)

// newHookCmd creates the parent 'hook' command with one subcommand per
// Claude Code hook event.
func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Hook subcommands for Claude Code integration",
		Long: `Handlers for Claude Code hook events.

Each subcommand reads the hook JSON from stdin. Tool results and user prompts
run an evaluation pass; pre-tool-use asks the tier gate whether the call may
proceed and prints a permission decision when it may not.

Hooks never fail the agent's turn on advisory paths: unreadable input is
ignored and storage problems degrade to diagnostics. A broken configuration
is reported as an error.`,
	}

	cmd.AddCommand(
		newHookEventCmd("session-start", "Report trust status at session start", models.EventSessionStart),
		newHookEventCmd("user-prompt", "Score a user prompt", models.EventUserPromptSubmit),
		newHookEventCmd("pre-tool-use", "Gate a tool call by trust tier", models.EventPreToolUse),
		newHookEventCmd("post-tool-use", "Score a completed tool call", models.EventPostToolUse),
	)

	return cmd
}

func newHookEventCmd(use, short, event string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, event)
		},
	}
}

// contextOutput is hook JSON that adds text to the agent's context and shows
// it to the user.
type contextOutput struct {
	HookSpecificOutput *additionalContext `json:"hookSpecificOutput,omitempty"`
	SystemMessage      string             `json:"systemMessage,omitempty"`
}

type additionalContext struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

func newContextOutput(event, text string) contextOutput {
	return contextOutput{
		HookSpecificOutput: &additionalContext{HookEventName: event, AdditionalContext: text},
		SystemMessage:      text,
	}
}

func runHook(cmd *cobra.Command, event string) error {
	root, _ := cmd.Flags().GetString("root")
	jsonOut, _ := cmd.Flags().GetBool("json")

	in, err := activation.ReadInput(cmd.InOrStdin())
	if err != nil {
		// Invalid input: exit silently (hook context)
		return nil
	}
	in.HookEventName = event
	// Globally installed hooks carry no --root; the event knows its project.
	if !cmd.Flags().Changed("root") && in.Cwd != "" {
		root = in.Cwd
	}

	a, err := app.Open(cmd.Context(), app.Options{Root: root, Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return fmt.Errorf("trustloop: %w", err)
	}
	defer a.Close()

	out, err := a.HandleEvent(cmd.Context(), in)
	if err != nil {
		return nil
	}

	if jsonOut {
		return printJSON(cmd, out)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	switch {
	case out.Gate != nil:
		if hookOut, ok := out.Gate.HookOutput(); ok {
			return enc.Encode(hookOut)
		}
	case out.Status != nil:
		return enc.Encode(newContextOutput(event, out.Status.Summary()))
	case out.Result != nil:
		res := out.Result
		if res.Changed() || res.Degraded() || len(res.Pending) > 0 {
			return enc.Encode(newContextOutput(event, res.Message))
		}
	}
	return nil
}
