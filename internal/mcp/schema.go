package mcp

import (
	"time"

	"github.com/nvandessel/trustloop/internal/app"
	"github.com/nvandessel/trustloop/internal/engine"
	"github.com/nvandessel/trustloop/internal/gate"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/session"
	"github.com/nvandessel/trustloop/internal/tiering"
)

// Tool outputs use plain strings for tiers, impacts and penalty classes so
// the inferred schemas match what encoding/json produces.

// SessionInput identifies a session. Empty means the default session.
type SessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session id (defaults to 'default')"`
}

// TrustStatusOutput defines the output for trust_status tool.
type TrustStatusOutput struct {
	SessionID        string             `json:"session_id"`
	Confidence       int                `json:"confidence" jsonschema:"confidence score in [0,100]"`
	TurnCount        int                `json:"turn_count"`
	Tier             string             `json:"tier" jsonschema:"effective tier"`
	RawTier          string             `json:"raw_tier" jsonschema:"tier before the reputation debt cap"`
	Mode             string             `json:"mode" jsonschema:"enforcement mode: enforce, warn or disabled"`
	Privileges       tiering.Privileges `json:"privileges"`
	Streak           int                `json:"streak"`
	ReputationDebt   int                `json:"reputation_debt"`
	IntegrityLock    int                `json:"integrity_lock"`
	PendingApprovals int                `json:"pending_approvals" jsonschema:"number of boosts awaiting approval"`
	PendingTotal     int                `json:"pending_total" jsonschema:"total confidence awaiting approval"`
	CoolingDown      []CooldownItem     `json:"cooling_down,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Summary          string             `json:"summary" jsonschema:"one-line human readable status"`
}

// CooldownItem is a signal that cannot fire yet.
type CooldownItem struct {
	Name      string `json:"name"`
	Remaining int    `json:"remaining" jsonschema:"turns until the signal may fire again"`
}

func statusOutput(st app.Status) TrustStatusOutput {
	out := TrustStatusOutput{
		SessionID:        st.SessionID,
		Confidence:       st.Confidence,
		TurnCount:        st.TurnCount,
		Tier:             st.Decision.Tier.String(),
		RawTier:          st.Decision.RawTier.String(),
		Mode:             string(st.Decision.Mode),
		Privileges:       st.Decision.Privileges,
		Streak:           st.Streak,
		ReputationDebt:   st.ReputationDebt,
		IntegrityLock:    st.IntegrityLock,
		PendingApprovals: len(st.PendingApprovals),
		PendingTotal:     st.PendingTotal,
		UpdatedAt:        st.UpdatedAt,
		Summary:          st.Summary(),
	}
	for _, c := range st.CoolingDown {
		out.CoolingDown = append(out.CoolingDown, CooldownItem{Name: c.Name, Remaining: c.Remaining})
	}
	return out
}

// TrustTiersInput defines the input for trust_tiers tool.
type TrustTiersInput struct{}

// TierRow describes one tier.
type TierRow struct {
	Tier       string             `json:"tier"`
	Min        int                `json:"min"`
	Max        int                `json:"max"`
	Mode       string             `json:"mode"`
	Privileges tiering.Privileges `json:"privileges"`
}

// TrustTiersOutput defines the output for trust_tiers tool.
type TrustTiersOutput struct {
	Tiers       []TierRow `json:"tiers" jsonschema:"confidence bands and what each tier may do"`
	DebtCap     string    `json:"debt_cap" jsonschema:"highest tier reachable while reputation debt is owed"`
	Irrevocable []string  `json:"irrevocable" jsonschema:"command patterns blocked at every tier"`
}

// SignalItem describes one registered signal.
type SignalItem struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Delta            int    `json:"delta"`
	BaseCooldown     int    `json:"base_cooldown"`
	Impact           string `json:"impact" jsonschema:"FAILURE, BEHAVIORAL or AMBIENT"`
	Penalty          string `json:"penalty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
	Remaining        int    `json:"remaining,omitempty" jsonschema:"turns until the signal may fire again for the session"`
}

// TrustSignalsOutput defines the output for trust_signals tool.
type TrustSignalsOutput struct {
	Signals []SignalItem `json:"signals" jsonschema:"registered signals with deltas and base cooldowns"`
	Count   int          `json:"count"`
}

func signalItem(d models.SignalDefinition) SignalItem {
	return SignalItem{
		Name:             d.Name,
		Description:      d.Description,
		Delta:            d.Delta,
		BaseCooldown:     d.BaseCooldown,
		Impact:           d.Impact.String(),
		Penalty:          d.Penalty.String(),
		RequiresApproval: d.RequiresApproval,
	}
}

// TrustGateInput defines the input for trust_gate tool.
type TrustGateInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session id (defaults to 'default')"`
	ToolName  string `json:"tool_name" jsonschema:"tool about to be used, e.g. Bash, Edit, Write"`
	Command   string `json:"command,omitempty" jsonschema:"shell command for Bash"`
	FilePath  string `json:"file_path,omitempty" jsonschema:"target file for Write or Edit"`
}

// TrustGateOutput defines the output for trust_gate tool.
type TrustGateOutput struct {
	Verdict string `json:"verdict" jsonschema:"allow, warn or deny"`
	Action  string `json:"action" jsonschema:"privilege the call needs"`
	Tier    string `json:"tier"`
	Mode    string `json:"mode"`
	Reason  string `json:"reason,omitempty"`
}

func gateOutput(d gate.Decision) TrustGateOutput {
	return TrustGateOutput{
		Verdict: string(d.Verdict),
		Action:  string(d.Action),
		Tier:    d.Tier.String(),
		Mode:    string(d.Mode),
		Reason:  d.Reason,
	}
}

// TrustHistoryInput defines the input for trust_history tool.
type TrustHistoryInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session id (defaults to 'default')"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum records to return (default 20)"`
}

// TrustHistoryOutput defines the output for trust_history tool.
type TrustHistoryOutput struct {
	Passes []session.PassRecord `json:"passes" jsonschema:"evaluation passes, newest first"`
	Count  int                  `json:"count"`
}

// TrustApproveOutput defines the output for trust_approve tool.
type TrustApproveOutput struct {
	OldConfidence    int    `json:"old_confidence"`
	NewConfidence    int    `json:"new_confidence"`
	ApprovalsApplied int    `json:"approvals_applied" jsonschema:"confidence granted after scaling"`
	ApprovalsExpired int    `json:"approvals_expired,omitempty"`
	RateLimited      bool   `json:"rate_limited,omitempty"`
	Tier             string `json:"tier"`
	Message          string `json:"message"`
}

func approveOutput(r engine.Result) TrustApproveOutput {
	return TrustApproveOutput{
		OldConfidence:    r.OldConfidence,
		NewConfidence:    r.NewConfidence,
		ApprovalsApplied: r.ApprovalsApplied,
		ApprovalsExpired: r.ApprovalsExpired,
		RateLimited:      r.RateLimited,
		Tier:             r.Tier.String(),
		Message:          r.Message,
	}
}
