package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestIsWithin(t *testing.T) {
	scratch := t.TempDir()
	project := t.TempDir()
	if err := os.MkdirAll(filepath.Join(scratch, "notes"), 0700); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		dirs []string
		want bool
	}{
		{"file in scratch", filepath.Join(scratch, "plan.md"), []string{scratch}, true},
		{"nested in scratch", filepath.Join(scratch, "notes", "a.txt"), []string{scratch}, true},
		{"not yet created subdir", filepath.Join(scratch, "new", "deep", "a.txt"), []string{scratch}, true},
		{"the dir itself", scratch, []string{scratch}, true},
		{"second dir matches", filepath.Join(project, "x"), []string{scratch, project}, true},
		{"dot-dot escape", filepath.Join(scratch, "..", "etc", "passwd"), []string{scratch}, false},
		{"project file", filepath.Join(project, "main.go"), []string{scratch}, false},
		{"prefix sibling", scratch + "-other/a.txt", []string{scratch}, false},
		{"empty path", "", []string{scratch}, false},
		{"no dirs", filepath.Join(scratch, "a"), nil, false},
		{"null byte", scratch + "/a\x00b", []string{scratch}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithin(tt.path, tt.dirs); got != tt.want {
				t.Errorf("IsWithin(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	if _, err := Resolve(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Resolve(\"\") error = %v, want ErrEmptyPath", err)
	}
	if _, err := Resolve("a\x00b"); !errors.Is(err, ErrNullByte) {
		t.Errorf("Resolve(nul) error = %v, want ErrNullByte", err)
	}
}

func TestIsWithin_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	scratch := t.TempDir()
	outside := t.TempDir()
	inside := filepath.Join(scratch, "real")
	if err := os.MkdirAll(inside, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(scratch, "escape")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(inside, filepath.Join(scratch, "link")); err != nil {
		t.Fatal(err)
	}

	if IsWithin(filepath.Join(scratch, "escape", "a.go"), []string{scratch}) {
		t.Error("symlink pointing outside scratch was accepted")
	}
	if !IsWithin(filepath.Join(scratch, "link", "a.go"), []string{scratch}) {
		t.Error("symlink staying inside scratch was rejected")
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"config", "/home/user/.trustloop/config.yaml", ".../.trustloop/config.yaml"},
		{"session file", "/repo/.trustloop/sessions/abc.json", ".../sessions/abc.json"},
		{"trailing slash cleaned", "/home/user/.trustloop/", ".../user/.trustloop"},
		{"top level", "/abc.json", "abc.json"},
		{"relative", "abc.json", "abc.json"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactPath(tt.path); got != tt.want {
				t.Errorf("RedactPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDefaultScratchDirs(t *testing.T) {
	dirs := DefaultScratchDirs("/repo")
	if len(dirs) != 2 {
		t.Fatalf("DefaultScratchDirs() = %v, want 2 entries", dirs)
	}
	if dirs[0] != os.TempDir() {
		t.Errorf("first scratch dir = %q, want %q", dirs[0], os.TempDir())
	}
	if want := filepath.Join("/repo", ".trustloop", "scratch"); dirs[1] != want {
		t.Errorf("project scratch dir = %q, want %q", dirs[1], want)
	}
	if got := DefaultScratchDirs(""); len(got) != 1 {
		t.Errorf("DefaultScratchDirs(\"\") = %v, want temp dir only", got)
	}
}
