package activation

import (
	"strings"
	"testing"
)

func TestReadInput(t *testing.T) {
	in, err := ReadInput(strings.NewReader(`{
		"session_id": "abc-123",
		"hook_event_name": "PostToolUse",
		"tool_name": "Bash",
		"tool_input": {"command": "go test ./..."},
		"tool_response": {"stdout": "ok", "stderr": "", "interrupted": false},
		"transcript_path": "/tmp/t.jsonl",
		"trustloop": {"flags": {"lint_passed": true}, "window_pct": 42}
	}`))
	if err != nil {
		t.Fatalf("ReadInput() error = %v", err)
	}
	if in.SessionID != "abc-123" || in.HookEventName != "PostToolUse" || in.ToolName != "Bash" {
		t.Errorf("unexpected header fields: %+v", in)
	}
	if in.Trustloop == nil || !in.Trustloop.Flags.LintPassed || in.Trustloop.WindowPct == nil || *in.Trustloop.WindowPct != 42 {
		t.Errorf("extension not decoded: %+v", in.Trustloop)
	}
}

func TestReadInput_Invalid(t *testing.T) {
	if _, err := ReadInput(strings.NewReader("{not json")); err == nil {
		t.Error("ReadInput() accepted malformed JSON")
	}
}

func TestParseToolResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantText string
		failed   bool
		exit     *int
	}{
		{"absent", ``, "", false, nil},
		{"null", `null`, "", false, nil},
		{"string", `"file contents"`, "file contents", false, nil},
		{"bash ok", `{"stdout":"ok\n","stderr":"","interrupted":false}`, "ok\n", false, nil},
		{"bash interrupted", `{"stdout":"","stderr":"killed","interrupted":true}`, "killed", true, nil},
		{"exit code", `{"stdout":"x","exit_code":2}`, "x", true, intPtr(2)},
		{"exit zero", `{"stdout":"x","exitCode":0}`, "x", false, intPtr(0)},
		{"is_error", `{"content":"boom","is_error":true}`, "boom", true, nil},
		{"success false", `{"success":false}`, "", true, nil},
		{"error field", `{"error":"no such file"}`, "no such file", true, nil},
		{"array", `[1,2]`, "[1,2]", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseToolResponse([]byte(tt.raw))
			if got.text != tt.wantText {
				t.Errorf("text = %q, want %q", got.text, tt.wantText)
			}
			if got.failed != tt.failed {
				t.Errorf("failed = %v, want %v", got.failed, tt.failed)
			}
			switch {
			case tt.exit == nil && got.exitCode != nil:
				t.Errorf("exitCode = %d, want nil", *got.exitCode)
			case tt.exit != nil && (got.exitCode == nil || *got.exitCode != *tt.exit):
				t.Errorf("exitCode = %v, want %d", got.exitCode, *tt.exit)
			}
		})
	}
}

func intPtr(v int) *int { return &v }
