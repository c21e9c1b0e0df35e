package mcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nvandessel/trustloop/internal/store"
)

func TestAuditLogger_NilSafety(t *testing.T) {
	t.Run("nil logger Log is no-op", func(t *testing.T) {
		var logger *AuditLogger
		logger.Log(AuditEntry{Tool: "test"})
	})

	t.Run("nil logger Close is no-op", func(t *testing.T) {
		var logger *AuditLogger
		if err := logger.Close(); err != nil {
			t.Errorf("Close() on nil logger returned error: %v", err)
		}
	})
}

func readAudit(t *testing.T, dir string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, AuditFile))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("parsing audit entry: %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	logger.Log(AuditEntry{
		Timestamp:  time.Now(),
		Tool:       "trust_status",
		DurationMs: 42,
		Status:     "success",
		Params:     map[string]string{"session_id": "s1"},
	})
	logger.Close()
	// Writes after Close are dropped.
	logger.Log(AuditEntry{Tool: "late"})

	entries := readAudit(t, dir)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Tool != "trust_status" || e.DurationMs != 42 || e.Status != "success" {
		t.Errorf("entry = %+v", e)
	}
	if e.Params["session_id"] != "s1" {
		t.Errorf("params[session_id] = %q", e.Params["session_id"])
	}
}

func TestAuditLogger_Concurrent(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(AuditEntry{Tool: "trust_tiers", Status: "success"})
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(readAudit(t, dir)); got != 20 {
		t.Errorf("got %d entries, want 20", got)
	}
}

func TestSanitizeToolParams(t *testing.T) {
	if sanitizeToolParams(nil) != nil {
		t.Error("nil params should give nil")
	}

	got := sanitizeToolParams(map[string]interface{}{
		"session_id": "../../etc/passwd",
		"limit":      5,
		"tool_name":  "Bash",
		"command":    "curl -H 'Authorization: Bearer secret' example.com",
		"file_path":  "/home/alice/secret.txt",
		"unknown":    "dropped",
		"empty":      "",
	})

	if got["limit"] != "5" || got["tool_name"] != "Bash" {
		t.Errorf("safe values = %v", got)
	}
	if got["command"] != "(set)" || got["file_path"] != "(set)" {
		t.Errorf("presence-only values leaked: %v", got)
	}
	if _, ok := got["unknown"]; ok {
		t.Error("unknown param should not be logged")
	}
	if got["session_id"] == "../../etc/passwd" {
		t.Error("session id should be sanitized")
	}
	if got["_param_count"] != "6" {
		t.Errorf("_param_count = %q, want 6", got["_param_count"])
	}
}

func TestAuditTool_RecordsErrors(t *testing.T) {
	server, tmpDir := newTestServer(t)

	server.auditTool("trust_approve", time.Now(), errors.New("rate limit exceeded"), nil)
	server.auditLogger.Close()

	entries := readAudit(t, store.LocalPath(tmpDir))
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Status != "error" || entries[0].Error != "rate limit exceeded" {
		t.Errorf("entry = %+v", entries[0])
	}
}
