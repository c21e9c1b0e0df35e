// Package engine runs the confidence evaluation pass: it evaluates the
// signal catalog against one tool event, scales and caps the resulting
// delta, applies decay, and updates every piece of bookkeeping on the
// session state.
//
// An Engine is built once from configuration and is read-only afterwards.
// It never persists state itself; callers wrap Evaluate in a session store
// update so the read-modify-write happens under one lock.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/trustloop/internal/decay"
	"github.com/nvandessel/trustloop/internal/logging"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/ratelimit"
	"github.com/nvandessel/trustloop/internal/reputation"
	"github.com/nvandessel/trustloop/internal/signals"
	"github.com/nvandessel/trustloop/internal/tiering"
	"github.com/nvandessel/trustloop/internal/zones"
)

// ErrConfiguration wraps every construction failure. It is fatal: an engine
// is never started with a malformed catalog or zone table.
var ErrConfiguration = errors.New("configuration fault")

// DefaultInitialConfidence is the score a new session starts with.
const DefaultInitialConfidence = 70

// DefaultApprovalTTL is how many turns a pending approval survives.
const DefaultApprovalTTL = 20

// Config is everything needed to build an Engine.
type Config struct {
	InitialConfidence int
	ApprovalTTL       int

	// Signals is the catalog to register. Nil means signals.Builtin().
	Signals   []signals.Signal
	Overrides map[string]signals.Override
	Patterns  signals.PatternConfig

	Zones      zones.Set
	Decay      decay.Config
	RateLimit  ratelimit.DeltaConfig
	Tiers      tiering.PolicyConfig
	Reputation reputation.Config

	// Logger receives one debug line per pass. Optional.
	Logger *slog.Logger
	// Decisions receives one JSONL record per pass. Optional.
	Decisions *logging.DecisionLogger
}

// DefaultConfig returns the builtin catalog with default tables.
func DefaultConfig() Config {
	return Config{
		InitialConfidence: DefaultInitialConfidence,
		ApprovalTTL:       DefaultApprovalTTL,
		Patterns:          signals.DefaultPatternConfig(),
		Zones:             zones.DefaultSet(),
		Decay:             decay.DefaultConfig(),
		RateLimit:         ratelimit.DefaultDeltaConfig(),
		Tiers:             tiering.DefaultPolicyConfig(),
		Reputation:        reputation.DefaultConfig(),
	}
}

// Engine scores evaluation passes.
type Engine struct {
	catalog     *signals.Catalog
	zones       zones.Set
	decay       *decay.Model
	limiter     *ratelimit.DeltaLimiter
	policy      *tiering.Policy
	reputation  *reputation.Tracker
	initial     int
	approvalTTL int

	logger    *slog.Logger
	decisions *logging.DecisionLogger
	nowFunc   func() time.Time
}

// New validates cfg and builds an Engine. Any error wraps ErrConfiguration.
func New(cfg Config) (*Engine, error) {
	fault := func(what string, err error) error {
		return fmt.Errorf("%w: %s: %w", ErrConfiguration, what, err)
	}

	if cfg.InitialConfidence < models.MinConfidence || cfg.InitialConfidence > models.MaxConfidence {
		return nil, fault("initial_confidence", fmt.Errorf("%d outside [0,100]", cfg.InitialConfidence))
	}
	if cfg.ApprovalTTL <= 0 {
		return nil, fault("approval_ttl_turns", fmt.Errorf("%d must be positive", cfg.ApprovalTTL))
	}
	if err := cfg.Zones.Validate(); err != nil {
		return nil, fault("zones", err)
	}

	patterns, err := cfg.Patterns.Compile()
	if err != nil {
		return nil, fault("patterns", err)
	}
	sigs := cfg.Signals
	if sigs == nil {
		sigs = signals.Builtin()
	}
	catalog, err := signals.NewCatalog(sigs, signals.Options{
		Cooldown:  cfg.Zones.Cooldown,
		Patterns:  patterns,
		Overrides: cfg.Overrides,
	})
	if err != nil {
		return nil, fault("signals", err)
	}

	dcfg := cfg.Decay
	dcfg.Fatigue = cfg.Zones.Fatigue
	dm, err := decay.New(dcfg)
	if err != nil {
		return nil, fault("decay", err)
	}
	limiter, err := ratelimit.NewDeltaLimiter(cfg.RateLimit)
	if err != nil {
		return nil, fault("rate_limit", err)
	}
	policy, err := tiering.NewPolicy(cfg.Tiers)
	if err != nil {
		return nil, fault("tiers", err)
	}
	rep, err := reputation.New(cfg.Reputation)
	if err != nil {
		return nil, fault("reputation", err)
	}

	return &Engine{
		catalog:     catalog,
		zones:       cfg.Zones,
		decay:       dm,
		limiter:     limiter,
		policy:      policy,
		reputation:  rep,
		initial:     cfg.InitialConfidence,
		approvalTTL: cfg.ApprovalTTL,
		logger:      cfg.Logger,
		decisions:   cfg.Decisions,
		nowFunc:     time.Now,
	}, nil
}

// Catalog returns the registered signals.
func (e *Engine) Catalog() *signals.Catalog { return e.catalog }

// Policy returns the tier policy.
func (e *Engine) Policy() *tiering.Policy { return e.policy }

// Zones returns the multiplier tables.
func (e *Engine) Zones() zones.Set { return e.zones }

// NewState returns a fresh session state at the initial confidence.
func (e *Engine) NewState(sessionID string) models.SessionState {
	return models.NewSessionState(sessionID, e.initial)
}

// Decide returns the current tier decision for state.
func (e *Engine) Decide(state models.SessionState) tiering.Decision {
	return e.policy.Decide(state.Confidence, state.ReputationDebt)
}
