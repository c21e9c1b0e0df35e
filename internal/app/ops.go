package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/trustloop/internal/engine"
	"github.com/nvandessel/trustloop/internal/logging"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/session"
	"github.com/nvandessel/trustloop/internal/signals"
	"github.com/nvandessel/trustloop/internal/store"
	"github.com/nvandessel/trustloop/internal/tiering"
)

// Status is a read-only snapshot of one session.
type Status struct {
	SessionID        string                   `json:"session_id"`
	Confidence       int                      `json:"confidence"`
	TurnCount        int                      `json:"turn_count"`
	Decision         tiering.Decision         `json:"decision"`
	Streak           int                      `json:"streak"`
	ReputationDebt   int                      `json:"reputation_debt"`
	IntegrityLock    int                      `json:"integrity_lock"`
	PendingApprovals []models.PendingApproval `json:"pending_approvals"`
	PendingTotal     int                      `json:"pending_total"`
	CoolingDown      []signals.CooldownStatus `json:"cooling_down,omitempty"`
	UpdatedAt        time.Time                `json:"updated_at"`
	Diagnostics      []models.Diagnostic      `json:"diagnostics,omitempty"`
}

// Summary renders the status as one line.
func (s Status) Summary() string {
	line := fmt.Sprintf("trustloop: confidence %d, tier %s (%s mode)", s.Confidence, s.Decision.Tier, s.Decision.Mode)
	if s.Decision.Capped {
		line += fmt.Sprintf(", capped from %s by reputation debt %d", s.Decision.RawTier, s.ReputationDebt)
	}
	if s.PendingTotal > 0 {
		line += fmt.Sprintf(", %+d awaiting approval", s.PendingTotal)
	}
	return line
}

func (a *App) status(state models.SessionState) Status {
	return Status{
		SessionID:        state.SessionID,
		Confidence:       state.Confidence,
		TurnCount:        state.TurnCount,
		Decision:         a.Engine.Decide(state),
		Streak:           state.Streak,
		ReputationDebt:   state.ReputationDebt,
		IntegrityLock:    state.IntegrityLock,
		PendingApprovals: state.PendingApprovals,
		PendingTotal:     state.PendingTotal(),
		CoolingDown:      a.Engine.Catalog().CoolingDown(state),
		UpdatedAt:        state.UpdatedAt,
	}
}

// Status loads a session without modifying it. Unknown sessions report the
// initial state.
func (a *App) Status(ctx context.Context, id string) (Status, error) {
	state, diags, err := a.Store.Load(ctx, sessionKey(id))
	if err != nil {
		return Status{}, err
	}
	st := a.status(state)
	st.Diagnostics = diags
	return st, nil
}

// Approve applies every pending approval for a session outside a tool event.
func (a *App) Approve(ctx context.Context, id string) (engine.Result, error) {
	id = sessionKey(id)
	var res engine.Result
	lctx, cancel := a.lockContext(ctx)
	defer cancel()
	diags, err := a.Store.Update(lctx, id, func(s *models.SessionState) error {
		res = a.Engine.Approve(s)
		return nil
	})
	if err != nil {
		return engine.Result{}, fmt.Errorf("approving session %s: %w", id, err)
	}
	for _, d := range diags {
		res.AddDiagnostic(d)
	}
	a.record(ctx, "approve", "", res)
	return res, nil
}

// Reset deletes a session's state and history.
func (a *App) Reset(ctx context.Context, id string) error {
	return a.Store.Remove(ctx, sessionKey(id))
}

// Sessions lists known session ids.
func (a *App) Sessions(ctx context.Context) ([]string, error) {
	return a.Store.List(ctx)
}

// Recent returns up to limit history records for a session, newest first.
func (a *App) Recent(ctx context.Context, id string, limit int) ([]session.PassRecord, error) {
	if a.History == nil {
		return nil, ErrNoHistory
	}
	return a.History.Recent(ctx, sessionKey(id), limit)
}

// Decisions returns decision-log records for a session, newest first. The
// log is only written at debug level and above.
func (a *App) Decisions(id string, limit int) ([]map[string]any, error) {
	return logging.ReadDecisions(store.LocalPath(a.Root), id, limit)
}
