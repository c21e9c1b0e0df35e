package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/pathutil"
	"github.com/nvandessel/trustloop/internal/sanitize"
	"github.com/nvandessel/trustloop/internal/session"
)

// SQLiteStore implements session.Store and session.History on a single
// SQLite database. Updates run in BEGIN IMMEDIATE transactions, so separate
// hook processes serialize on the database write lock.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	fresh  session.FreshFunc
	now    func() time.Time
}

var (
	_ session.Store   = (*SQLiteStore)(nil)
	_ session.History = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// initializes its schema.
func NewSQLiteStore(ctx context.Context, dbPath string, fresh session.FreshFunc) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", pathutil.RedactPath(dbPath), err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath, fresh: fresh, now: time.Now}, nil
}

// DB exposes the underlying handle for diagnostics and tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

func key(id string) (string, error) {
	k := sanitize.SessionID(id)
	if k == "" {
		return "", fmt.Errorf("%q: %w", id, session.ErrInvalidSessionID)
	}
	return k, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Load reads the state for id. Missing rows yield a fresh state; rows that
// fail to decode yield a fresh state plus a CorruptState diagnostic.
func (s *SQLiteStore) Load(ctx context.Context, id string) (models.SessionState, []models.Diagnostic, error) {
	k, err := key(id)
	if err != nil {
		return models.SessionState{}, nil, err
	}
	return s.read(ctx, s.db, k)
}

func (s *SQLiteStore) read(ctx context.Context, q queryer, k string) (models.SessionState, []models.Diagnostic, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT state FROM session_state WHERE session_id = ?`, k).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return s.fresh(k), nil, nil
	}
	if err != nil {
		return s.fresh(k), nil, fmt.Errorf("failed to read session %s: %w", k, err)
	}
	state, err := session.Decode([]byte(data))
	if err != nil {
		diag := models.NewDiagnostic(models.CorruptState, "session_state/"+k, err)
		return s.fresh(k), []models.Diagnostic{diag}, nil
	}
	state.SessionID = k
	return state, nil, nil
}

// Update runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection. An error from fn rolls back without writing.
func (s *SQLiteStore) Update(ctx context.Context, id string, fn session.UpdateFunc) (diags []models.Diagnostic, err error) {
	k, err := key(id)
	if err != nil {
		return nil, err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			// Background context so a cancelled caller still releases the lock.
			conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	state, diags, err := s.read(ctx, conn, k)
	if err != nil {
		return diags, err
	}
	if err := fn(&state); err != nil {
		return diags, err
	}

	data, err := session.Encode(state)
	if err != nil {
		return diags, err
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO session_state (session_id, state, confidence, turn_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			confidence = excluded.confidence,
			turn_count = excluded.turn_count,
			updated_at = excluded.updated_at`,
		k, string(data), state.Confidence, state.TurnCount, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return diags, fmt.Errorf("failed to write session %s: %w", k, err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return diags, fmt.Errorf("failed to commit session %s: %w", k, err)
	}
	committed = true
	return diags, nil
}

// Remove deletes the state and history of id.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	k, err := key(id)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_state WHERE session_id = ?`, k); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", k, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pass_history WHERE session_id = ?`, k); err != nil {
		return fmt.Errorf("failed to delete history for %s: %w", k, err)
	}
	return tx.Commit()
}

// List returns all stored session ids, sorted.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM session_state ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Record inserts rec into pass_history.
func (s *SQLiteStore) Record(ctx context.Context, rec session.PassRecord) error {
	k, err := key(rec.SessionID)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Time.IsZero() {
		rec.Time = s.now()
	}
	triggered := rec.Triggered
	if triggered == nil {
		triggered = []string{}
	}
	trigJSON, err := json.Marshal(triggered)
	if err != nil {
		return fmt.Errorf("failed to marshal triggered signals: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pass_history (id, session_id, turn, recorded_at, event, tool,
			old_confidence, new_confidence, applied, tier, triggered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, k, rec.Turn, rec.Time.UTC().Format(time.RFC3339Nano), rec.Event, rec.Tool,
		rec.OldConfidence, rec.NewConfidence, rec.Applied, rec.Tier, string(trigJSON))
	if err != nil {
		return fmt.Errorf("failed to record pass: %w", err)
	}
	return nil
}

// Recent returns up to limit records for id, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, id string, limit int) ([]session.PassRecord, error) {
	k, err := key(id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, turn, recorded_at, event, tool,
			old_confidence, new_confidence, applied, tier, triggered
		FROM pass_history
		WHERE session_id = ?
		ORDER BY turn DESC, recorded_at DESC, rowid DESC
		LIMIT ?`, k, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var recs []session.PassRecord
	for rows.Next() {
		var (
			rec        session.PassRecord
			recordedAt string
			event      sql.NullString
			tool       sql.NullString
			trigJSON   string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Turn, &recordedAt, &event, &tool,
			&rec.OldConfidence, &rec.NewConfidence, &rec.Applied, &rec.Tier, &trigJSON); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.Event = event.String
		rec.Tool = tool.String
		if t, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			rec.Time = t
		}
		if err := json.Unmarshal([]byte(trigJSON), &rec.Triggered); err != nil {
			rec.Triggered = nil
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
