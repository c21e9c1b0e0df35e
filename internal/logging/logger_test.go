package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"info":    slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"Debug":   slog.LevelDebug,
		"trace":   LevelTrace,
		"TRACE":   LevelTrace,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
	assert.True(t, LevelTrace < slog.LevelDebug)
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantTrace bool
	}{
		{"info", false, false},
		{"debug", true, false},
		{"trace", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, FormatText, &buf)

			logger.Debug("debug line")
			logger.Log(context.Background(), LevelTrace, "trace line")
			logger.Info("info line")

			out := buf.String()
			assert.Contains(t, out, "info line")
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug line"))
			assert.Equal(t, tt.wantTrace, strings.Contains(out, "trace line"))
			if tt.wantTrace {
				assert.Contains(t, out, "level=TRACE")
			}
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", "JSON", &buf)
	logger.Log(context.Background(), LevelTrace, "payload", "session", "s1", "turn", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), buf.String())
	assert.Equal(t, "TRACE", rec["level"])
	assert.Equal(t, "payload", rec["msg"])
	assert.Equal(t, "s1", rec["session"])
	assert.Equal(t, 3.0, rec["turn"])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
	logger.Error("dropped")
}

func TestNewDecisionLogger_InfoLevelIsNil(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	dl := NewDecisionLogger(dir, "info")
	assert.Nil(t, dl)

	// Nil receivers are no-ops.
	dl.Log(map[string]any{"event": "ignored"})
	dl.Close()

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "info level must not create %s", dir)
}

func TestDecisionLogger_WritesJSONL(t *testing.T) {
	for _, level := range []string{"debug", "trace"} {
		t.Run(level, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "nested", ".trustloop")
			dl := NewDecisionLogger(dir, level)
			require.NotNil(t, dl)

			dl.Log(map[string]any{"event": "evaluation_pass", "turn": 1})
			dl.Log(map[string]any{"event": "gate", "verdict": "deny"})
			dl.Close()

			data, err := os.ReadFile(filepath.Join(dir, DecisionsFile))
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			require.Len(t, lines, 2)

			var first map[string]any
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
			assert.Equal(t, "evaluation_pass", first["event"])
			assert.NotEmpty(t, first["time"])
		})
	}
}

func TestDecisionLogger_DoesNotMutateCallerMap(t *testing.T) {
	dl := NewDecisionLogger(t.TempDir(), "debug")
	defer dl.Close()

	event := map[string]any{"event": "gate"}
	dl.Log(event)
	assert.Len(t, event, 1)
	assert.NotContains(t, event, "time")
}

func TestDecisionLogger_LogAfterClose(t *testing.T) {
	dl := NewDecisionLogger(t.TempDir(), "debug")
	dl.Close()
	dl.Log(map[string]any{"event": "late"})
	dl.Close()
}

func TestDecisionLogger_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dl.Log(map[string]any{"event": "evaluation_pass", "turn": i})
		}(i)
	}
	wg.Wait()
	dl.Close()

	recs, err := ReadDecisions(dir, "", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}

func TestDecisionLogger_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	dl.Log(map[string]any{"event": "perm"})
	dl.Close()

	info, err := os.Stat(filepath.Join(dir, DecisionsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestDecisionLogger_UsesClock(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	defer dl.Close()
	dl.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	dl.Log(map[string]any{"event": "clock"})

	recs, err := ReadDecisions(dir, "", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2026-03-01T12:00:00Z", recs[0]["time"])
}

func TestReadDecisions(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	for i, sid := range []string{"a", "b", "a", "a"} {
		dl.Log(map[string]any{"event": "evaluation_pass", "session_id": sid, "turn": float64(i)})
	}
	dl.Close()

	// A malformed line is skipped.
	f, err := os.OpenFile(filepath.Join(dir, DecisionsFile), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	recs, err := ReadDecisions(dir, "a", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 3.0, recs[0]["turn"])
	assert.Equal(t, 2.0, recs[1]["turn"])

	all, err := ReadDecisions(dir, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := ReadDecisions(t.TempDir(), "", 0)
	assert.NoError(t, err)
	assert.Nil(t, none)
}
