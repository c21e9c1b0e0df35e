package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/pathutil"
	"github.com/nvandessel/trustloop/internal/sanitize"
)

const (
	stateExt   = ".json"
	lockExt    = ".lock"
	historyExt = ".history.jsonl"
)

// FileStore keeps one JSON file per session in a directory, next to a lock
// file and an append-only history log.
type FileStore struct {
	dir   string
	fresh FreshFunc
}

var (
	_ Store   = (*FileStore)(nil)
	_ History = (*FileStore)(nil)
)

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, fresh FreshFunc) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating session directory %s: %w", pathutil.RedactPath(dir), err)
	}
	return &FileStore{dir: dir, fresh: fresh}, nil
}

// Dir returns the directory holding session files.
func (s *FileStore) Dir() string { return s.dir }

// StatePath returns the state file path for id.
func (s *FileStore) StatePath(id string) string {
	return filepath.Join(s.dir, id+stateExt)
}

func (s *FileStore) key(id string) (string, error) {
	k := sanitize.SessionID(id)
	if k == "" {
		return "", fmt.Errorf("%q: %w", id, ErrInvalidSessionID)
	}
	return k, nil
}

// Load reads the state for id without locking. A missing file yields a fresh
// state; an unreadable one yields a fresh state and a CorruptState diagnostic.
func (s *FileStore) Load(ctx context.Context, id string) (models.SessionState, []models.Diagnostic, error) {
	k, err := s.key(id)
	if err != nil {
		return models.SessionState{}, nil, err
	}
	return s.read(k)
}

func (s *FileStore) read(k string) (models.SessionState, []models.Diagnostic, error) {
	path := s.StatePath(k)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.fresh(k), nil, nil
		}
		return s.fresh(k), nil, fmt.Errorf("reading session state %s: %w", pathutil.RedactPath(path), err)
	}
	state, err := Decode(data)
	if err != nil {
		diag := models.NewDiagnostic(models.CorruptState, pathutil.RedactPath(path), err)
		return s.fresh(k), []models.Diagnostic{diag}, nil
	}
	state.SessionID = k
	return state, nil, nil
}

// Update runs fn on the session state under an exclusive lock on the
// session's lock file and writes the result atomically. The lock is released
// on every path.
func (s *FileStore) Update(ctx context.Context, id string, fn UpdateFunc) (diags []models.Diagnostic, err error) {
	k, err := s.key(id)
	if err != nil {
		return nil, err
	}

	lctx, cancel := lockContext(ctx)
	defer cancel()
	unlock, err := acquireLock(lctx, filepath.Join(s.dir, k+lockExt))
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("releasing session lock: %w", uerr)
		}
	}()

	state, diags, err := s.read(k)
	if err != nil {
		return diags, err
	}
	if err := fn(&state); err != nil {
		return diags, err
	}
	return diags, s.write(k, state)
}

// write persists state atomically via temp file + rename.
func (s *FileStore) write(k string, state models.SessionState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	path := s.StatePath(k)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing session state temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming session state file: %w", err)
	}
	return nil
}

// Remove deletes the state and history files for id under the session
// lock. The lock file stays, so a concurrent Update and later updaters all
// lock the same inode.
func (s *FileStore) Remove(ctx context.Context, id string) (err error) {
	k, err := s.key(id)
	if err != nil {
		return err
	}

	lctx, cancel := lockContext(ctx)
	defer cancel()
	unlock, err := acquireLock(lctx, filepath.Join(s.dir, k+lockExt))
	if err != nil {
		return err
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("releasing session lock: %w", uerr)
		}
	}()

	var errs []error
	for _, ext := range []string{stateExt, historyExt} {
		if err := os.Remove(filepath.Join(s.dir, k+ext)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("removing session %s: %w", k, errors.Join(errs...))
	}
	return nil
}

// List returns the ids of all stored sessions.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, stateExt) || strings.HasSuffix(name, historyExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, stateExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// Record appends rec to the session's history log.
func (s *FileStore) Record(ctx context.Context, rec PassRecord) error {
	k, err := s.key(rec.SessionID)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling pass record: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, k+historyExt), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// Recent returns up to limit history records for id, newest first. Lines
// that fail to decode are skipped.
func (s *FileStore) Recent(ctx context.Context, id string, limit int) ([]PassRecord, error) {
	k, err := s.key(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, k+historyExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	var recs []PassRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec PassRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error { return nil }
