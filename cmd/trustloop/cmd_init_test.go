package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/trustloop/internal/config"
	"github.com/nvandessel/trustloop/internal/hooks"
	"github.com/nvandessel/trustloop/internal/store"
)

func TestInitCmd_CreatesConfig(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"init", "--root", tmpDir, "--hooks=false"}, newInitCmd())
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}

	configPath := filepath.Join(store.LocalPath(tmpDir), config.FileName)
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("expected %s to exist: %v", configPath, err)
	}
	if !strings.Contains(out, "Wrote default configuration") {
		t.Errorf("unexpected output:\n%s", out)
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config is invalid: %v", err)
	}
}

func TestInitCmd_KeepsExistingConfig(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	dir := store.LocalPath(tmpDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	custom := []byte("engine:\n  initial_confidence: 40\n")
	configPath := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(configPath, custom, 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", []string{"init", "--root", tmpDir, "--hooks=false", "--json"}, newInitCmd())
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got["config_created"] != false {
		t.Errorf("config_created = %v, want false", got["config_created"])
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(custom) {
		t.Errorf("existing config was overwritten: %q", data)
	}
}

func TestInitCmd_ConfiguresClaudeHooks(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	if err := os.MkdirAll(filepath.Join(tmpDir, ".claude"), 0700); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "", []string{"init", "--root", tmpDir}, newInitCmd()); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	settings := filepath.Join(tmpDir, ".claude", "settings.json")
	data, err := os.ReadFile(settings)
	if err != nil {
		t.Fatalf("expected settings.json: %v", err)
	}
	for _, sub := range []string{"hook pre-tool-use", "hook post-tool-use", "hook user-prompt", "hook session-start"} {
		if !strings.Contains(string(data), sub) {
			t.Errorf("settings.json missing %q", sub)
		}
	}

	out, err := execute(t, "", []string{"init", "--root", tmpDir, "--uninstall"}, newInitCmd())
	if err != nil {
		t.Fatalf("init --uninstall failed: %v", err)
	}
	if !strings.Contains(out, "removed hooks") {
		t.Errorf("unexpected uninstall output:\n%s", out)
	}
	data, err = os.ReadFile(settings)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "trustloop hook") {
		t.Errorf("hooks still present after uninstall:\n%s", data)
	}
}

func TestInitCmd_NoToolsDetected(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	out, err := execute(t, "", []string{"init", "--root", tmpDir}, newInitCmd())
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "No AI tools detected") {
		t.Errorf("expected detection notice, got:\n%s", out)
	}
}

func TestInitCmd_Global(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, err := execute(t, "", []string{"init", "--global", "--hooks=false"}, newInitCmd()); err != nil {
		t.Fatalf("init --global failed: %v", err)
	}
	global, err := store.GlobalPath()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(global, config.FileName)); err != nil {
		t.Errorf("expected global config: %v", err)
	}
}

func TestInitCmd_UnknownPlatform(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	_, err := execute(t, "", []string{"init", "--root", tmpDir, "--platform", "Cursor"}, newInitCmd())
	if !errors.Is(err, hooks.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
	_, err = execute(t, "", []string{"init", "--root", tmpDir, "--platform", "Cursor", "--uninstall"}, newInitCmd())
	if !errors.Is(err, hooks.ErrUnknownPlatform) {
		t.Fatalf("uninstall: expected ErrUnknownPlatform, got %v", err)
	}
}
