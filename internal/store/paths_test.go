package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobalPath(t *testing.T) {
	path, err := GlobalPath()
	if err != nil {
		t.Fatalf("GlobalPath() error = %v", err)
	}
	if !strings.HasSuffix(path, DirName) {
		t.Errorf("GlobalPath() = %q, want suffix %q", path, DirName)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, DirName); path != want {
		t.Errorf("GlobalPath() = %q, want %q", path, want)
	}
}

func TestLocalLayout(t *testing.T) {
	root := filepath.Join("tmp", "project")
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"local", LocalPath(root), filepath.Join(root, ".trustloop")},
		{"sessions", SessionsDir(root), filepath.Join(root, ".trustloop", "sessions")},
		{"db", DBPath(root), filepath.Join(root, ".trustloop", "trustloop.db")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestEnsureGlobalDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	if err := EnsureGlobalDir(); err != nil {
		t.Fatalf("EnsureGlobalDir() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(home, DirName))
	if err != nil {
		t.Fatalf("global dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("global path is not a directory")
	}
	// Idempotent.
	if err := EnsureGlobalDir(); err != nil {
		t.Errorf("second EnsureGlobalDir() error = %v", err)
	}
}
