package simulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/trustloop/internal/activation"
	"github.com/nvandessel/trustloop/internal/config"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/signals"
)

// ErrInvalidScenario is returned for scenarios that cannot be replayed.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// SessionID defaults to "sim".
	SessionID string `yaml:"session_id,omitempty"`

	// Start seeds the session before the first step.
	Start Start `yaml:"start,omitempty"`

	// NoDecay turns off fatigue decay so deltas are exact.
	NoDecay bool `yaml:"no_decay,omitempty"`

	// Backend overrides the storage backend ("file" or "sqlite").
	Backend string `yaml:"backend,omitempty"`

	// RateCap overrides the per-pass cap when > 0.
	RateCap int `yaml:"rate_cap,omitempty"`

	// Signals adjusts builtin signals for this scenario only.
	Signals map[string]signals.Override `yaml:"signals,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Start is the seeded session state. Nil fields keep the fresh-state value.
type Start struct {
	Confidence     *int `yaml:"confidence,omitempty"`
	TurnCount      int  `yaml:"turn_count,omitempty"`
	Streak         int  `yaml:"streak,omitempty"`
	ReputationDebt int  `yaml:"reputation_debt,omitempty"`
}

func (s Start) apply(state *models.SessionState) {
	if s.Confidence != nil {
		state.Confidence = models.ClampConfidence(*s.Confidence)
	}
	state.TurnCount = s.TurnCount
	state.Streak = s.Streak
	state.ReputationDebt = s.ReputationDebt
}

// Step is one hook event, optionally repeated.
type Step struct {
	Label string `yaml:"label,omitempty"`

	// Event defaults to UserPromptSubmit when Prompt is set and PostToolUse
	// otherwise.
	Event string `yaml:"event,omitempty"`

	Tool     string `yaml:"tool,omitempty"`
	Command  string `yaml:"command,omitempty"`
	FilePath string `yaml:"file_path,omitempty"`
	Output   string `yaml:"output,omitempty"`
	Failed   bool   `yaml:"failed,omitempty"`
	ExitCode *int   `yaml:"exit_code,omitempty"`

	Prompt    string       `yaml:"prompt,omitempty"`
	Assistant string       `yaml:"assistant,omitempty"`
	Flags     models.Flags `yaml:"flags,omitempty"`
	WindowPct *float64     `yaml:"window_pct,omitempty"`
	Approve   bool         `yaml:"approve,omitempty"`

	// Repeat runs the step this many times. 0 and 1 both mean once.
	Repeat int `yaml:"repeat,omitempty"`
}

func (s Step) event() string {
	switch {
	case s.Event != "":
		return s.Event
	case s.Prompt != "":
		return models.EventUserPromptSubmit
	default:
		return models.EventPostToolUse
	}
}

func (s Step) times() int {
	if s.Repeat < 1 {
		return 1
	}
	return s.Repeat
}

// HookInput converts s into the payload a hook would receive.
func (s Step) HookInput(sessionID string) (activation.HookInput, error) {
	in := activation.HookInput{
		SessionID:     sessionID,
		HookEventName: s.event(),
		ToolName:      s.Tool,
		Prompt:        s.Prompt,
	}

	if s.Command != "" || s.FilePath != "" {
		in.ToolInput = map[string]interface{}{}
		if s.Command != "" {
			in.ToolInput["command"] = s.Command
		}
		if s.FilePath != "" {
			in.ToolInput["file_path"] = s.FilePath
		}
	}

	if in.HookEventName == models.EventPostToolUse && s.Tool != "" {
		resp := map[string]interface{}{"stdout": s.Output}
		if s.Failed {
			resp["is_error"] = true
		}
		if s.ExitCode != nil {
			resp["exit_code"] = *s.ExitCode
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			return in, fmt.Errorf("encoding tool response: %w", err)
		}
		in.ToolResponse = raw
	}

	if s.Flags != (models.Flags{}) || s.Assistant != "" || s.WindowPct != nil || s.Approve {
		in.Trustloop = &activation.Extension{
			Flags:           s.Flags,
			AssistantOutput: s.Assistant,
			WindowPct:       s.WindowPct,
			ApprovalGranted: s.Approve,
		}
	}
	return in, nil
}

// Validate checks that sc can be replayed.
func (sc Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: %s has no steps", ErrInvalidScenario, sc.Name)
	}
	for i, s := range sc.Steps {
		switch s.event() {
		case models.EventPostToolUse, models.EventPreToolUse:
			if s.Tool == "" {
				return fmt.Errorf("%w: %s step %d: %s needs a tool", ErrInvalidScenario, sc.Name, i, s.event())
			}
		case models.EventUserPromptSubmit, models.EventSessionStart:
		default:
			return fmt.Errorf("%w: %s step %d: unknown event %q", ErrInvalidScenario, sc.Name, i, s.Event)
		}
	}
	return nil
}

// config builds the scenario's configuration on top of base, which may be nil.
func (sc Scenario) config(base *config.Config) *config.Config {
	cfg := config.Default()
	if base != nil {
		c := *base
		cfg = &c
	}

	if sc.NoDecay {
		cfg.Decay.Enabled = false
	}
	if sc.Backend != "" {
		cfg.Storage.Backend = sc.Backend
	}
	if sc.RateCap > 0 {
		cfg.RateLimit.PerTurnCap = sc.RateCap
	}
	if len(sc.Signals) > 0 {
		merged := make(map[string]signals.Override, len(cfg.Signals)+len(sc.Signals))
		for k, v := range cfg.Signals {
			merged[k] = v
		}
		for k, v := range sc.Signals {
			merged[k] = v
		}
		cfg.Signals = merged
	}
	return cfg
}

// scenarioFile is the YAML layout of a scenario file.
type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadScenarios reads a YAML file holding either a "scenarios" list or a
// single scenario.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return ParseScenarios(data)
}

// ParseScenarios decodes scenario YAML and validates every scenario.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	scenarios := file.Scenarios
	if len(scenarios) == 0 {
		var single Scenario
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		scenarios = []Scenario{single}
	}
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
	}
	return scenarios, nil
}
