package app

import (
	"context"
	"time"

	"github.com/nvandessel/trustloop/internal/activation"
	"github.com/nvandessel/trustloop/internal/engine"
	"github.com/nvandessel/trustloop/internal/gate"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/session"
)

// Outcome is what handling one hook event produced. Exactly one of Result,
// Gate and Status is set, except for ignored events where all are nil.
type Outcome struct {
	Event       string              `json:"event"`
	Result      *engine.Result      `json:"result,omitempty"`
	Gate        *gate.Decision      `json:"gate,omitempty"`
	Status      *Status             `json:"status,omitempty"`
	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
}

// HandleEvent processes one hook event. Tool results and user prompts run
// an evaluation pass; PreToolUse consults the gate without changing state;
// SessionStart makes sure the session exists and reports its status.
// Storage problems degrade to diagnostics and are never returned as errors.
func (a *App) HandleEvent(ctx context.Context, in activation.HookInput) (Outcome, error) {
	in.SessionID = sessionKey(in.SessionID)
	out := Outcome{Event: in.HookEventName}

	switch in.HookEventName {
	case models.EventPostToolUse, models.EventUserPromptSubmit:
		res := a.pass(ctx, in)
		out.Result = &res
		out.Diagnostics = res.Diagnostics
	case models.EventPreToolUse:
		d, diags := a.check(ctx, in)
		out.Gate = &d
		out.Diagnostics = diags
	case models.EventSessionStart:
		st := a.start(ctx, in.SessionID)
		out.Status = &st
		out.Diagnostics = st.Diagnostics
	default:
		a.Logger.Debug("ignoring hook event", "event", in.HookEventName)
	}
	return out, nil
}

// pass runs one evaluation pass under the session lock. Context is built
// before the lock is taken so transcript reading never holds it.
func (a *App) pass(ctx context.Context, in activation.HookInput) engine.Result {
	c, ctxDiags := a.Builder.Build(ctx, in)

	var (
		res engine.Result
		ran bool
	)
	lctx, cancel := a.lockContext(ctx)
	storeDiags, err := a.Store.Update(lctx, in.SessionID, func(s *models.SessionState) error {
		prepared := activation.Prepare(*s, c)
		res = a.Engine.Evaluate(prepared, s)
		activation.Track(s, prepared)
		ran = true
		return nil
	})
	cancel()

	if err != nil {
		a.Logger.Warn("session update failed, scoring against a fresh state", "session", in.SessionID, "error", err)
		if !ran {
			s := a.Engine.NewState(in.SessionID)
			res = a.Engine.Evaluate(activation.Prepare(s, c), &s)
		}
		res.AddDiagnostic(models.NewDiagnostic(models.PersistenceFault, "session/"+in.SessionID, err))
	}
	for _, d := range append(ctxDiags, storeDiags...) {
		res.AddDiagnostic(d)
	}

	if err == nil {
		a.record(ctx, in.HookEventName, c.ToolName, res)
	}
	return res
}

// check rules on a tool call at the session's current tier.
func (a *App) check(ctx context.Context, in activation.HookInput) (gate.Decision, []models.Diagnostic) {
	c, diags := a.Builder.Build(ctx, in)
	state, loadDiags, err := a.Store.Load(ctx, in.SessionID)
	diags = append(diags, loadDiags...)
	if err != nil {
		diags = append(diags, models.NewDiagnostic(models.PersistenceFault, "session/"+in.SessionID, err))
		state = a.Engine.NewState(in.SessionID)
	}

	d := a.Gate.Check(a.Engine.Decide(state), c)
	a.Logger.Debug("gate decision",
		"session", in.SessionID,
		"tool", c.ToolName,
		"action", d.Action,
		"verdict", d.Verdict,
		"tier", d.Tier.String())
	a.decisions.Log(map[string]any{
		"event":      "gate",
		"session_id": in.SessionID,
		"tool":       c.ToolName,
		"action":     string(d.Action),
		"verdict":    string(d.Verdict),
		"tier":       d.Tier.String(),
		"confidence": state.Confidence,
		"reason":     d.Reason,
	})
	return d, diags
}

// start persists the session if it is new and returns its status.
func (a *App) start(ctx context.Context, id string) Status {
	lctx, cancel := a.lockContext(ctx)
	diags, err := a.Store.Update(lctx, id, func(*models.SessionState) error { return nil })
	cancel()
	st, serr := a.Status(ctx, id)
	if serr != nil {
		s := a.Engine.NewState(id)
		st = a.status(s)
		diags = append(diags, models.NewDiagnostic(models.PersistenceFault, "session/"+id, serr))
	}
	if err != nil {
		diags = append(diags, models.NewDiagnostic(models.PersistenceFault, "session/"+id, err))
	}
	st.Diagnostics = append(st.Diagnostics, diags...)
	return st
}

// record appends res to the session history. Failures are logged only.
func (a *App) record(ctx context.Context, event, tool string, res engine.Result) {
	if a.History == nil {
		return
	}
	err := a.History.Record(ctx, session.PassRecord{
		SessionID:     res.SessionID,
		Turn:          res.Turn,
		Time:          time.Now().UTC(),
		Event:         event,
		Tool:          tool,
		OldConfidence: res.OldConfidence,
		NewConfidence: res.NewConfidence,
		Applied:       res.Applied,
		Tier:          res.Tier.String(),
		Triggered:     res.Triggered,
	})
	if err != nil {
		a.Logger.Warn("recording pass history failed", "session", res.SessionID, "error", err)
	}
}
