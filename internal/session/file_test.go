package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/trustloop/internal/models"
)

func freshAt70(id string) models.SessionState {
	return models.NewSessionState(id, 70)
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"), freshAt70)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func populatedState() models.SessionState {
	s := models.NewSessionState("abc-123", 42)
	s.TurnCount = 17
	s.DecayAccumulator = 0.35
	s.ReputationDebt = 2
	s.Streak = 4
	s.Cooldowns["sycophancy"] = 12
	s.CooldownWindows["sycophancy"] = 2
	s.ConsecutiveFailures = 1
	s.RecentDeltas = []int{-3, 2}
	s.IntegrityLock = 5
	s.FloorHits = 0
	s.PendingApprovals = []models.PendingApproval{{Signal: "task_completion", Delta: 10, Turn: 15}}
	s.MarkRead("/repo/a.go")
	s.MarkRead("/repo/b.go")
	s.MarkEdited("/repo/a.go")
	s.ToolCounts["Read"] = 3
	s.ToolsSinceEdit = 2
	s.TestsRun = true
	return s
}

func TestCodec_RoundTrip(t *testing.T) {
	states := map[string]models.SessionState{
		"fresh":     models.NewSessionState("fresh", 70),
		"populated": populatedState(),
		"floor":     models.NewSessionState("floor", 0),
		"ceiling":   models.NewSessionState("ceiling", 100),
	}
	for name, want := range states {
		t.Run(name, func(t *testing.T) {
			data, err := Encode(want)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json"},
		{"wrong version", `{"version": 99, "state": {"confidence": 50}}`},
		{"confidence above range", `{"version": 1, "state": {"confidence": 140}}`},
		{"negative streak", `{"version": 1, "state": {"confidence": 40, "streak": -1}}`},
		{"accumulator overflow", `{"version": 1, "state": {"confidence": 40, "decay_accumulator": 1.5}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if !errors.Is(err, ErrCorruptState) {
				t.Errorf("Decode() error = %v, want ErrCorruptState", err)
			}
		})
	}
}

func TestFileStore_UpdateAndLoad(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	want := populatedState()
	diags, err := s.Update(ctx, want.SessionID, func(st *models.SessionState) error {
		*st = want.Clone()
		return nil
	})
	if err != nil || len(diags) != 0 {
		t.Fatalf("Update() = %v, %v", diags, err)
	}

	got, diags, err := s.Load(ctx, want.SessionID)
	if err != nil || len(diags) != 0 {
		t.Fatalf("Load() = %v, %v", diags, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]string{"abc-123"}, ids); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_LoadMissingIsFresh(t *testing.T) {
	s := newFileStore(t)

	got, diags, err := s.Load(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("Load() diagnostics = %v, want none", diags)
	}
	if got.Confidence != 70 || got.SessionID != "never-seen" {
		t.Errorf("Load() = %+v, want fresh state at 70", got)
	}
}

func TestFileStore_CorruptFileResetsToFresh(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	if err := os.WriteFile(s.StatePath("broken"), []byte("{garbage"), 0600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	var seen int
	diags, err := s.Update(ctx, "broken", func(st *models.SessionState) error {
		seen = st.Confidence
		st.TurnCount = 1
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v, want corrupt state to be recovered", err)
	}
	if len(diags) != 1 || diags[0].Kind != models.CorruptState {
		t.Fatalf("Update() diagnostics = %v, want one CorruptState", diags)
	}
	if seen != 70 {
		t.Errorf("update saw confidence %d, want fresh 70", seen)
	}

	got, diags, err := s.Load(ctx, "broken")
	if err != nil || len(diags) != 0 {
		t.Fatalf("Load() after recovery = %v, %v", diags, err)
	}
	if got.TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1 after rewrite", got.TurnCount)
	}
}

func TestFileStore_UpdateErrorSkipsWriteAndReleasesLock(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := s.Update(ctx, "sess", func(st *models.SessionState) error {
		st.Confidence = 1
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}
	if _, err := os.Stat(s.StatePath("sess")); !os.IsNotExist(err) {
		t.Errorf("state file written despite error")
	}

	tctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if _, err := s.Update(tctx, "sess", func(*models.SessionState) error { return nil }); err != nil {
		t.Errorf("second Update() error = %v, lock was not released", err)
	}
}

func TestFileStore_ConcurrentUpdatesSerialize(t *testing.T) {
	s := newFileStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const workers, each = 8, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*each)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				_, err := s.Update(ctx, "shared", func(st *models.SessionState) error {
					st.TurnCount++
					return nil
				})
				if err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Update() error = %v", err)
	}

	got, _, err := s.Load(ctx, "shared")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TurnCount != workers*each {
		t.Errorf("TurnCount = %d, want %d (lost updates)", got.TurnCount, workers*each)
	}
}

func TestFileStore_RemoveWaitsForLock(t *testing.T) {
	s := newFileStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entered := make(chan struct{})
	release := make(chan struct{})
	updated := make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, "sess", func(st *models.SessionState) error {
			close(entered)
			<-release
			st.TurnCount = 7
			return nil
		})
		updated <- err
	}()
	<-entered

	removed := make(chan error, 1)
	go func() { removed <- s.Remove(ctx, "sess") }()

	select {
	case err := <-removed:
		t.Fatalf("Remove() returned %v while Update held the lock", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	if err := <-updated; err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := <-removed; err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := os.Stat(s.StatePath("sess")); !os.IsNotExist(err) {
		t.Errorf("state file survived Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "sess"+lockExt)); err != nil {
		t.Errorf("lock file should stay in place: %v", err)
	}

	got, _, err := s.Load(ctx, "sess")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TurnCount != 0 {
		t.Errorf("TurnCount after Remove = %d, want fresh state", got.TurnCount)
	}
}

func TestFileStore_InvalidSessionID(t *testing.T) {
	s := newFileStore(t)
	if _, _, err := s.Load(context.Background(), "../.."); !errors.Is(err, ErrInvalidSessionID) {
		t.Errorf("Load() error = %v, want ErrInvalidSessionID", err)
	}
}

func TestFileStore_History(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	for turn := 1; turn <= 3; turn++ {
		if err := s.Record(ctx, PassRecord{SessionID: "h", Turn: turn, Triggered: []string{"tool_failure"}}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	recs, err := s.Recent(ctx, "h", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recs) != 2 || recs[0].Turn != 3 || recs[1].Turn != 2 {
		t.Fatalf("Recent() = %+v, want turns 3,2", recs)
	}
	if recs[0].ID == "" {
		t.Error("Record() did not assign an id")
	}

	if err := s.Remove(ctx, "h"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	recs, err = s.Recent(ctx, "h", 0)
	if err != nil || len(recs) != 0 {
		t.Errorf("Recent() after Remove = %v, %v", recs, err)
	}
	if err := s.Remove(ctx, "h"); err != nil {
		t.Errorf("Remove() twice error = %v", err)
	}
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	m := NewMemoryStore(freshAt70)
	ctx := context.Background()

	_, err := m.Update(ctx, "m", func(st *models.SessionState) error {
		st.Cooldowns["x"] = 1
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _, _ := m.Load(ctx, "m")
	got.Cooldowns["x"] = 99

	again, _, _ := m.Load(ctx, "m")
	if again.Cooldowns["x"] != 1 {
		t.Errorf("stored state was mutated through a loaded copy")
	}
}
