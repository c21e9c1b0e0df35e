package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/sanitize"
)

// MemoryStore is an in-process Store for tests and simulations. It stores
// clones, so callers never share maps with it.
type MemoryStore struct {
	mu      sync.Mutex
	fresh   FreshFunc
	states  map[string]models.SessionState
	history map[string][]PassRecord
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ History = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore(fresh FreshFunc) *MemoryStore {
	return &MemoryStore{
		fresh:   fresh,
		states:  make(map[string]models.SessionState),
		history: make(map[string][]PassRecord),
	}
}

func memKey(id string) (string, error) {
	k := sanitize.SessionID(id)
	if k == "" {
		return "", ErrInvalidSessionID
	}
	return k, nil
}

// Load returns a clone of the stored state or a fresh state.
func (m *MemoryStore) Load(ctx context.Context, id string) (models.SessionState, []models.Diagnostic, error) {
	k, err := memKey(id)
	if err != nil {
		return models.SessionState{}, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[k]; ok {
		return s.Clone(), nil, nil
	}
	return m.fresh(k), nil, nil
}

// Update runs fn under the store mutex.
func (m *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) ([]models.Diagnostic, error) {
	k, err := memKey(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[k]
	if ok {
		state = state.Clone()
	} else {
		state = m.fresh(k)
	}
	if err := fn(&state); err != nil {
		return nil, err
	}
	m.states[k] = state.Clone()
	return nil, nil
}

// Remove forgets id.
func (m *MemoryStore) Remove(ctx context.Context, id string) error {
	k, err := memKey(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, k)
	delete(m.history, k)
	return nil
}

// List returns stored ids, sorted.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.states))
	for k := range m.states {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids, nil
}

// Record appends rec to the in-memory history.
func (m *MemoryStore) Record(ctx context.Context, rec PassRecord) error {
	k, err := memKey(rec.SessionID)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[k] = append(m.history[k], rec)
	return nil
}

// Recent returns up to limit records, newest first.
func (m *MemoryStore) Recent(ctx context.Context, id string, limit int) ([]PassRecord, error) {
	k, err := memKey(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.history[k]
	out := make([]PassRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
