// Package session persists SessionState keyed by session id.
//
// Every store runs a read-modify-write under an exclusive lock scoped to one
// session, so parallel hook processes sharing a session id never interleave
// their updates. Unreadable state is never fatal: it is replaced with a
// fresh state and reported as a CorruptState diagnostic.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/trustloop/internal/models"
)

var (
	// ErrCorruptState marks stored state that could not be decoded.
	ErrCorruptState = errors.New("corrupt session state")
	// ErrInvalidSessionID is returned for ids with no usable characters.
	ErrInvalidSessionID = errors.New("invalid session id")
	// ErrLockTimeout is returned when the session lock cannot be taken in time.
	ErrLockTimeout = errors.New("timed out waiting for session lock")
)

// DefaultLockTimeout bounds how long an update waits for the session lock
// when the caller's context has no deadline.
const DefaultLockTimeout = 2 * time.Second

// FreshFunc builds the state used for unknown or unreadable sessions.
type FreshFunc func(sessionID string) models.SessionState

// UpdateFunc mutates state in place. Returning an error aborts the update
// without writing.
type UpdateFunc func(state *models.SessionState) error

// Store is a session-keyed SessionState store.
type Store interface {
	// Load returns the stored state, or a fresh one when none exists.
	Load(ctx context.Context, id string) (models.SessionState, []models.Diagnostic, error)
	// Update loads, mutates and saves state under the session lock.
	Update(ctx context.Context, id string, fn UpdateFunc) ([]models.Diagnostic, error)
	// Remove deletes the stored state. Removing an unknown session is not an error.
	Remove(ctx context.Context, id string) error
	// List returns the known session ids, sorted.
	List(ctx context.Context) ([]string, error)
	// Close releases store resources.
	Close() error
}

// PassRecord is one evaluation pass in a session's history.
type PassRecord struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Turn          int       `json:"turn"`
	Time          time.Time `json:"time"`
	Event         string    `json:"event,omitempty"`
	Tool          string    `json:"tool,omitempty"`
	OldConfidence int       `json:"old_confidence"`
	NewConfidence int       `json:"new_confidence"`
	Applied       int       `json:"applied"`
	Tier          string    `json:"tier"`
	Triggered     []string  `json:"triggered"`
}

// History is implemented by stores that keep a per-session pass log.
type History interface {
	Record(ctx context.Context, rec PassRecord) error
	// Recent returns up to limit records, newest first. limit <= 0 means all.
	Recent(ctx context.Context, sessionID string, limit int) ([]PassRecord, error)
}

// lockContext applies DefaultLockTimeout when ctx has no deadline.
func lockContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultLockTimeout)
}
