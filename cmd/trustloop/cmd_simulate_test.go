package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSimulateCmd_List(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"simulate", "--list"}, newSimulateCmd())
	if err != nil {
		t.Fatalf("simulate --list failed: %v", err)
	}
	for _, name := range []string{"working-failure", "death-spiral", "earned-push"} {
		if !strings.Contains(out, name) {
			t.Errorf("listing missing %q:\n%s", name, out)
		}
	}
}

func TestSimulateCmd_Builtin(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"simulate", "working-failure", "--root", tmpDir}, newSimulateCmd())
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	for _, want := range []string{"== working-failure ==", "tool_failure", "final: confidence 67"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Scenarios run in a scratch directory, never in the project.
	if _, err := os.Stat(filepath.Join(tmpDir, ".trustloop")); !os.IsNotExist(err) {
		t.Errorf("simulate should not touch the project directory: %v", err)
	}
}

func TestSimulateCmd_UnknownScenario(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	_, err := execute(t, "", []string{"simulate", "no-such-thing", "--root", tmpDir}, newSimulateCmd())
	if err == nil || !strings.Contains(err.Error(), "unknown scenario") {
		t.Errorf("expected unknown scenario error, got %v", err)
	}
}

func TestSimulateCmd_File(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	file := filepath.Join(tmpDir, "scenarios.yaml")
	body := `scenarios:
  - name: two-failures
    no_decay: true
    steps:
      - tool: Bash
        command: ./scripts/deploy.sh
        failed: true
        repeat: 2
`
	if err := os.WriteFile(file, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", []string{"simulate", "--file", file, "--root", tmpDir, "--json"}, newSimulateCmd())
	if err != nil {
		t.Fatalf("simulate --file failed: %v", err)
	}
	var got []struct {
		Scenario string `json:"Scenario"`
		Turns    []json.RawMessage
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].Scenario != "two-failures" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if len(got[0].Turns) != 2 {
		t.Errorf("got %d turns, want 2", len(got[0].Turns))
	}
}

func TestSelectScenarios_PreservesOrder(t *testing.T) {
	got, err := selectScenarios("", []string{"fatigue", "working-failure"})
	if err != nil {
		t.Fatalf("selectScenarios failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "fatigue" || got[1].Name != "working-failure" {
		t.Errorf("unexpected selection: %v", got)
	}
}
