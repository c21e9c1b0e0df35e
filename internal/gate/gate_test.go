package gate

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/tiering"
)

func newTestGate(t *testing.T) (*Gate, *tiering.Policy, string) {
	t.Helper()
	policy, err := tiering.NewPolicy(tiering.DefaultPolicyConfig())
	if err != nil {
		t.Fatal(err)
	}
	scratch := t.TempDir()
	return New(policy, []string{scratch}), policy, scratch
}

func TestClassify(t *testing.T) {
	g, _, scratch := newTestGate(t)
	tests := []struct {
		name string
		ctx  models.Context
		want Action
	}{
		{"read", models.Context{ToolName: "Read", FilePath: "/repo/a.go"}, ActionRead},
		{"grep", models.Context{ToolName: "Grep"}, ActionRead},
		{"plain bash", models.Context{ToolName: "Bash", Command: "go test ./..."}, ActionRead},
		{"git status", models.Context{ToolName: "Bash", Command: "git status"}, ActionRead},
		{"git commit", models.Context{ToolName: "Bash", Command: "git commit -m wip"}, ActionGitWrite},
		{"git -C push", models.Context{ToolName: "Bash", Command: "git -C ../lib push origin main"}, ActionGitWrite},
		{"git clean", models.Context{ToolName: "Bash", Command: "git clean -fd"}, ActionGitWrite},
		{"force push", models.Context{ToolName: "Bash", Command: "git push --force origin main"}, ActionGitRewrite},
		{"short force push", models.Context{ToolName: "Bash", Command: "git push -f"}, ActionGitRewrite},
		{"plus refspec push", models.Context{ToolName: "Bash", Command: "git push origin +main"}, ActionGitRewrite},
		{"hard reset", models.Context{ToolName: "Bash", Command: "git reset --hard HEAD~3"}, ActionGitRewrite},
		{"rebase", models.Context{ToolName: "Bash", Command: "git rebase -i main"}, ActionGitRewrite},
		{"amend", models.Context{ToolName: "Bash", Command: "git commit --amend --no-edit"}, ActionGitRewrite},
		{"soft reset", models.Context{ToolName: "Bash", Command: "git reset HEAD a.go"}, ActionGitWrite},
		{"rm root", models.Context{ToolName: "Bash", Command: "rm -rf /"}, ActionIrrevocable},
		{"scratch write", models.Context{ToolName: "Write", FilePath: filepath.Join(scratch, "notes.md")}, ActionWriteScratch},
		{"scratch edit", models.Context{ToolName: "Edit", FilePath: filepath.Join(scratch, "notes.md")}, ActionWriteScratch},
		{"project edit", models.Context{ToolName: "Edit", FilePath: "/repo/main.go"}, ActionEdit},
		{"project write", models.Context{ToolName: "Write", FilePath: "/repo/new.go"}, ActionWriteProduction},
		{"write without path", models.Context{ToolName: "Write"}, ActionWriteProduction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := g.Classify(tt.ctx); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheck_ByTier(t *testing.T) {
	g, policy, scratch := newTestGate(t)
	edit := models.Context{ToolName: "Edit", FilePath: "/repo/main.go"}
	write := models.Context{ToolName: "Write", FilePath: "/repo/new.go"}
	commit := models.Context{ToolName: "Bash", Command: "git commit -am fix"}
	note := models.Context{ToolName: "Write", FilePath: filepath.Join(scratch, "n.md")}
	forcePush := models.Context{ToolName: "Bash", Command: "git push --force origin main"}

	tests := []struct {
		name       string
		confidence int
		ctx        models.Context
		want       Verdict
	}{
		{"ignorance scratch", 20, note, Allow},
		{"ignorance edit", 20, edit, Deny},
		{"hypothesis edit", 40, edit, Allow},
		{"hypothesis write", 40, write, Deny},
		{"working write", 60, write, Allow},
		{"working commit", 60, commit, Deny},
		{"certainty commit", 80, commit, Allow},
		{"trusted commit", 90, commit, Allow},
		{"certainty force push", 80, forcePush, Deny},
		{"trusted force push", 90, forcePush, Warn},
		{"expert force push", 99, forcePush, Allow},
		{"expert write", 99, write, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Check(policy.Decide(tt.confidence, 0), tt.ctx)
			if got.Verdict != tt.want {
				t.Errorf("Check() = %+v, want %s", got, tt.want)
			}
			if got.Verdict != Allow && got.Reason == "" {
				t.Errorf("%s without a reason", got.Verdict)
			}
		})
	}
}

func TestCheck_Modes(t *testing.T) {
	g, _, _ := newTestGate(t)
	write := models.Context{ToolName: "Write", FilePath: "/repo/new.go"}
	noWrite := tiering.Decision{Tier: tiering.TierHypothesis, RawTier: tiering.TierHypothesis}

	noWrite.Mode = tiering.ModeWarn
	if got := g.Check(noWrite, write); got.Verdict != Warn || !strings.Contains(got.Reason, "warn mode") {
		t.Errorf("warn mode = %+v", got)
	}
	noWrite.Mode = tiering.ModeDisabled
	if got := g.Check(noWrite, write); got.Verdict != Allow {
		t.Errorf("disabled mode = %+v", got)
	}
}

func TestCheck_IrrevocableAtEveryTier(t *testing.T) {
	g, policy, _ := newTestGate(t)
	for _, conf := range []int{0, 50, 80, 90, 100} {
		got := g.Check(policy.Decide(conf, 0), models.Context{ToolName: "Bash", Command: "sudo rm -rf ~"})
		if got.Verdict != Deny || got.Action != ActionIrrevocable || got.Pattern == "" {
			t.Errorf("confidence %d: %+v, want irrevocable deny", conf, got)
		}
	}
}

func TestCheck_CappedReason(t *testing.T) {
	g, _, _ := newTestGate(t)
	// TRUSTED is in warn mode, so lower the cap to an enforcing tier.
	cfg := tiering.DefaultPolicyConfig()
	cfg.DebtCap = tiering.TierWorking
	capped, err := tiering.NewPolicy(cfg)
	if err != nil {
		t.Fatal(err)
	}
	got := g.Check(capped.Decide(99, 1), models.Context{ToolName: "Bash", Command: "git push"})
	if got.Verdict != Deny || !strings.Contains(got.Reason, "reputation debt") {
		t.Errorf("Check() = %+v, want a debt-capped denial", got)
	}
}

func TestHookOutput(t *testing.T) {
	deny := Decision{Verdict: Deny, Reason: "edit is not granted at tier IGNORANCE"}
	out, ok := deny.HookOutput()
	if !ok {
		t.Fatal("deny produced no output")
	}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	hso := doc["hookSpecificOutput"]
	if hso["hookEventName"] != "PreToolUse" || hso["permissionDecision"] != "deny" {
		t.Errorf("hookSpecificOutput = %v", hso)
	}
	if !strings.HasPrefix(hso["permissionDecisionReason"], "trustloop: ") {
		t.Errorf("reason = %q", hso["permissionDecisionReason"])
	}

	warn, ok := Decision{Verdict: Warn, Reason: "careful"}.HookOutput()
	if !ok || warn.SystemMessage != "trustloop: careful" || warn.HookSpecificOutput != nil {
		t.Errorf("warn output = %+v", warn)
	}

	if _, ok := (Decision{Verdict: Allow}).HookOutput(); ok {
		t.Error("allow should print nothing")
	}
}
