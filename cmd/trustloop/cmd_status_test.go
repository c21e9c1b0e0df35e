package main

import (
	"encoding/json"
	"strings"
	"testing"
)

// scoreFailure records one failed Bash call for session id in root.
func scoreFailure(t *testing.T, root, id string) {
	t.Helper()
	if _, err := execute(t, bashPayload(id, "./scripts/deploy.sh", true),
		[]string{"hook", "post-tool-use", "--root", root}, newHookCmd()); err != nil {
		t.Fatalf("hook post-tool-use failed: %v", err)
	}
}

func TestStatusCmd_UnknownSessionReportsInitialState(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"status", "--root", tmpDir, "--session", "fresh"}, newStatusCmd())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"Session:     fresh", "Confidence:  70", "WORKING, enforce mode", "Turn:        0"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCmd_AfterFailure(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	scoreFailure(t, tmpDir, "s1")

	out, err := execute(t, "", []string{"status", "--root", tmpDir, "--session", "s1", "--json"}, newStatusCmd())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var st struct {
		Confidence  int `json:"confidence"`
		TurnCount   int `json:"turn_count"`
		CoolingDown []struct {
			Name string `json:"name"`
		} `json:"cooling_down"`
	}
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if st.Confidence >= 70 {
		t.Errorf("confidence = %d, want below 70 after a failure", st.Confidence)
	}
	if st.TurnCount != 1 {
		t.Errorf("turn_count = %d, want 1", st.TurnCount)
	}
	cooling := false
	for _, c := range st.CoolingDown {
		if c.Name == "tool_failure" {
			cooling = true
		}
	}
	if !cooling {
		t.Errorf("expected tool_failure cooling down, got %+v", st.CoolingDown)
	}
}

func TestSessionsCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"sessions", "--root", tmpDir}, newSessionsCmd())
	if err != nil {
		t.Fatalf("sessions failed: %v", err)
	}
	if !strings.Contains(out, "No sessions yet.") {
		t.Errorf("expected empty listing, got %q", out)
	}

	scoreFailure(t, tmpDir, "alpha")
	scoreFailure(t, tmpDir, "beta")

	out, err = execute(t, "", []string{"sessions", "--root", tmpDir, "--json"}, newSessionsCmd())
	if err != nil {
		t.Fatalf("sessions --json failed: %v", err)
	}
	var got struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got.Count != 2 {
		t.Errorf("count = %d, want 2", got.Count)
	}
}

func TestTiersCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"tiers", "--root", tmpDir, "--json"}, newTiersCmd())
	if err != nil {
		t.Fatalf("tiers failed: %v", err)
	}
	var got struct {
		Tiers   []tierRow `json:"tiers"`
		DebtCap string    `json:"debt_cap"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got.Tiers) != 6 {
		t.Fatalf("got %d tiers, want 6", len(got.Tiers))
	}
	if got.Tiers[0].Tier != "IGNORANCE" || got.Tiers[0].Min != 0 {
		t.Errorf("first tier = %+v, want IGNORANCE from 0", got.Tiers[0])
	}
	last := got.Tiers[len(got.Tiers)-1]
	if last.Tier != "EXPERT" || last.Max != 100 || last.Mode != "disabled" {
		t.Errorf("last tier = %+v, want EXPERT to 100 in disabled mode", last)
	}
	if !last.RewriteHistory {
		t.Error("EXPERT should grant history rewrites")
	}
	if trusted := got.Tiers[4]; trusted.Mode != "warn" || trusted.RewriteHistory {
		t.Errorf("TRUSTED = %+v, want warn mode without history rewrites", trusted)
	}
	for i := 1; i < len(got.Tiers); i++ {
		if got.Tiers[i].Min != got.Tiers[i-1].Max+1 {
			t.Errorf("tier %s does not start where %s ends", got.Tiers[i].Tier, got.Tiers[i-1].Tier)
		}
	}
	if got.DebtCap != "TRUSTED" {
		t.Errorf("debt_cap = %q, want TRUSTED", got.DebtCap)
	}

	out, err = execute(t, "", []string{"tiers", "--root", tmpDir}, newTiersCmd())
	if err != nil {
		t.Fatalf("tiers failed: %v", err)
	}
	if !strings.Contains(out, "capped at TRUSTED") {
		t.Errorf("expected debt cap note, got:\n%s", out)
	}
}

func TestSignalsCmd_ShowsCooldownForSession(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	scoreFailure(t, tmpDir, "s1")

	out, err := execute(t, "", []string{"signals", "--root", tmpDir}, newSignalsCmd())
	if err != nil {
		t.Fatalf("signals failed: %v", err)
	}
	if !strings.Contains(out, "destructive_command") || !strings.Contains(out, "tests_passed") {
		t.Errorf("expected builtin signals in listing:\n%s", out)
	}
	if strings.Contains(out, "cooling down") {
		t.Errorf("no cooldowns should show without --session:\n%s", out)
	}

	out, err = execute(t, "", []string{"signals", "--root", tmpDir, "--session", "s1"}, newSignalsCmd())
	if err != nil {
		t.Fatalf("signals --session failed: %v", err)
	}
	var line string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "tool_failure ") {
			line = l
		}
	}
	if !strings.Contains(line, "cooling down") {
		t.Errorf("tool_failure should be cooling down, got %q", line)
	}
}

func TestApproveCmd_NothingPending(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"approve", "--root", tmpDir}, newApproveCmd())
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if !strings.Contains(out, "Nothing awaiting approval.") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestResetCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	scoreFailure(t, tmpDir, "s1")
	scoreFailure(t, tmpDir, "s2")

	out, err := execute(t, "", []string{"reset", "--root", tmpDir, "--session", "s1"}, newResetCmd())
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if !strings.Contains(out, "Reset 1 session(s).") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = execute(t, "", []string{"status", "--root", tmpDir, "--session", "s1"}, newStatusCmd())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "Confidence:  70") {
		t.Errorf("reset session should report initial confidence:\n%s", out)
	}

	out, err = execute(t, "", []string{"reset", "--root", tmpDir, "--all"}, newResetCmd())
	if err != nil {
		t.Fatalf("reset --all failed: %v", err)
	}
	if !strings.Contains(out, "Reset 1 session(s).") {
		t.Errorf("only s2 should remain, got %q", out)
	}
}

func TestHistoryCmd(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"history", "--root", tmpDir, "--session", "s1"}, newHistoryCmd())
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No history for session s1.") {
		t.Errorf("unexpected output %q", out)
	}

	scoreFailure(t, tmpDir, "s1")
	scoreFailure(t, tmpDir, "s1")

	out, err = execute(t, "", []string{"history", "--root", tmpDir, "--session", "s1", "--json"}, newHistoryCmd())
	if err != nil {
		t.Fatalf("history --json failed: %v", err)
	}
	var got struct {
		Passes []struct {
			Turn int `json:"turn"`
		} `json:"passes"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got.Count != 2 {
		t.Fatalf("count = %d, want 2", got.Count)
	}
	if got.Passes[0].Turn != 2 {
		t.Errorf("newest pass turn = %d, want 2", got.Passes[0].Turn)
	}
}

func TestDescribeDecision(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]any
		want string
	}{
		{
			name: "gate",
			rec:  map[string]any{"event": "gate", "verdict": "deny", "action": "git_write", "tier": "WORKING", "tool": "Bash"},
			want: "deny git_write at WORKING (Bash)",
		},
		{
			name: "pass",
			rec:  map[string]any{"event": "evaluation_pass", "turn": 3, "old_confidence": 70, "new_confidence": 65},
			want: "turn 3: 70 -> 65",
		},
		{
			name: "unknown",
			rec:  map[string]any{"event": "other"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeDecision(tt.rec); got != tt.want {
				t.Errorf("describeDecision() = %q, want %q", got, tt.want)
			}
		})
	}
}
