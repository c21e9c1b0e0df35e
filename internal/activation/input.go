// Package activation turns Claude Code hook payloads into the per-pass
// evaluation context and keeps the session's context-tracking fields
// (files read and edited, tool counts, recent commands) current.
package activation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/trustloop/internal/constants"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/utils"
)

// HookInput is the JSON document Claude Code writes to a hook's stdin.
type HookInput struct {
	SessionID      string                 `json:"session_id"`
	HookEventName  string                 `json:"hook_event_name"`
	ToolName       string                 `json:"tool_name,omitempty"`
	ToolInput      map[string]interface{} `json:"tool_input,omitempty"`
	ToolResponse   json.RawMessage        `json:"tool_response,omitempty"`
	Prompt         string                 `json:"prompt,omitempty"`
	TranscriptPath string                 `json:"transcript_path,omitempty"`
	Cwd            string                 `json:"cwd,omitempty"`

	// Trustloop carries data the hook payload has no field for. Wrappers and
	// tests set it; Claude Code never does.
	Trustloop *Extension `json:"trustloop,omitempty"`
}

// Extension is the optional trustloop block of a hook payload.
type Extension struct {
	Flags           models.Flags `json:"flags"`
	AssistantOutput string       `json:"assistant_output,omitempty"`
	WindowPct       *float64     `json:"window_pct,omitempty"`
	ApprovalGranted bool         `json:"approval_granted,omitempty"`
}

// ReadInput decodes one hook payload from r, reading at most
// constants.MaxHookInputBytes.
func ReadInput(r io.Reader) (HookInput, error) {
	var in HookInput
	dec := json.NewDecoder(io.LimitReader(r, constants.MaxHookInputBytes))
	if err := dec.Decode(&in); err != nil {
		return HookInput{}, fmt.Errorf("decoding hook input: %w", err)
	}
	return in, nil
}

// toolResponse is the outcome of one tool call as far as scoring cares.
type toolResponse struct {
	text     string
	failed   bool
	exitCode *int
}

// parseToolResponse flattens the tool_response value. Claude Code sends a
// string for some tools and an object for others; the Bash object carries
// stdout/stderr and sometimes an exit code.
func parseToolResponse(raw json.RawMessage) toolResponse {
	if len(raw) == 0 || string(raw) == "null" {
		return toolResponse{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return toolResponse{text: s}
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return toolResponse{text: string(raw)}
	}

	var parts []string
	for _, k := range []string{"stdout", "stderr", "output", "result", "content", "error"} {
		if v := utils.GetString(m, k, ""); v != "" {
			parts = append(parts, v)
		}
	}
	resp := toolResponse{text: strings.Join(parts, "\n")}

	for _, k := range []string{"exit_code", "exitCode", "returnCode"} {
		if p := utils.GetIntPtr(m, k); p != nil {
			resp.exitCode = p
			break
		}
	}
	resp.failed = utils.GetBool(m, "is_error", false) ||
		utils.GetBool(m, "isError", false) ||
		utils.GetBool(m, "interrupted", false) ||
		!utils.GetBool(m, "success", true) ||
		utils.GetString(m, "error", "") != "" ||
		(resp.exitCode != nil && *resp.exitCode != 0)
	return resp
}
