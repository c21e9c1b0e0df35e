// Package config provides unified configuration loading for trustloop.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/trustloop/internal/constants"
	"github.com/nvandessel/trustloop/internal/decay"
	"github.com/nvandessel/trustloop/internal/engine"
	"github.com/nvandessel/trustloop/internal/logging"
	"github.com/nvandessel/trustloop/internal/ratelimit"
	"github.com/nvandessel/trustloop/internal/reputation"
	"github.com/nvandessel/trustloop/internal/signals"
	"github.com/nvandessel/trustloop/internal/tiering"
	"github.com/nvandessel/trustloop/internal/zones"
)

// FileName is the config file name inside a .trustloop directory.
const FileName = "config.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config contains all trustloop configuration settings.
type Config struct {
	// Engine contains session-level scoring settings.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Signals overrides the delta, cooldown or enablement of builtin signals.
	Signals map[string]signals.Override `json:"signals,omitempty" yaml:"signals,omitempty"`

	// Patterns are the regular expressions text signals match against.
	Patterns signals.PatternConfig `json:"patterns" yaml:"patterns"`

	// Zones replaces the bands of individual multiplier tables.
	Zones ZonesConfig `json:"zones,omitempty" yaml:"zones,omitempty"`

	// RateLimit caps per-pass and windowed confidence movement.
	RateLimit ratelimit.DeltaConfig `json:"rate_limit" yaml:"rate_limit"`

	// Tiers configures tier boundaries and irrevocable commands.
	Tiers TiersConfig `json:"tiers" yaml:"tiers"`

	// Decay configures confidence decay.
	Decay decay.Config `json:"decay" yaml:"decay"`

	// Reputation configures streak repayment and the debt ceiling.
	Reputation reputation.Config `json:"reputation" yaml:"reputation"`

	// Storage selects the session backend.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Context configures hook context gathering.
	Context ContextConfig `json:"context" yaml:"context"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// EngineConfig holds session-level engine settings.
type EngineConfig struct {
	InitialConfidence int `json:"initial_confidence" yaml:"initial_confidence"`
	ApprovalTTLTurns  int `json:"approval_ttl_turns" yaml:"approval_ttl_turns"`
}

// ZonesConfig lists replacement bands per table. Empty tables keep their
// defaults. Names and directions are fixed.
type ZonesConfig struct {
	Cooldown      []zones.Band `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	Penalty       []zones.Band `json:"penalty,omitempty" yaml:"penalty,omitempty"`
	Boost         []zones.Band `json:"boost,omitempty" yaml:"boost,omitempty"`
	WindowPenalty []zones.Band `json:"window_penalty,omitempty" yaml:"window_penalty,omitempty"`
	WindowBoost   []zones.Band `json:"window_boost,omitempty" yaml:"window_boost,omitempty"`
	Fatigue       []zones.Band `json:"fatigue,omitempty" yaml:"fatigue,omitempty"`
}

// TiersConfig configures the tier policy.
type TiersConfig struct {
	// Boundaries are the lower bounds of the six tiers.
	Boundaries []int `json:"boundaries" yaml:"boundaries"`
	// DebtCap is the highest tier reachable while reputation debt is owed.
	DebtCap tiering.Tier `json:"debt_cap" yaml:"debt_cap"`
	// Irrevocable are command patterns blocked at every tier.
	Irrevocable []string `json:"irrevocable" yaml:"irrevocable"`
}

// StorageConfig selects the session backend.
type StorageConfig struct {
	// Backend is "file" (default) or "sqlite".
	Backend string `json:"backend" yaml:"backend"`
	// LockTimeout bounds waiting for the session lock.
	LockTimeout time.Duration `json:"lock_timeout" yaml:"lock_timeout"`
}

// ContextConfig configures hook context gathering.
type ContextConfig struct {
	// TranscriptTimeout bounds transcript reading; on timeout window usage is 0.
	TranscriptTimeout time.Duration `json:"transcript_timeout" yaml:"transcript_timeout"`
	// WindowTokens is the model context size in tokens.
	WindowTokens int `json:"window_tokens" yaml:"window_tokens"`
}

// LoggingConfig configures trustloop's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .trustloop/decisions.jsonl.
	Level string `json:"level" yaml:"level"`

	// Format selects the stderr log encoding: "text" (default) or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	policy := tiering.DefaultPolicyConfig()
	return &Config{
		Engine: EngineConfig{
			InitialConfidence: engine.DefaultInitialConfidence,
			ApprovalTTLTurns:  engine.DefaultApprovalTTL,
		},
		Patterns:  signals.DefaultPatternConfig(),
		RateLimit: ratelimit.DefaultDeltaConfig(),
		Tiers: TiersConfig{
			Boundaries:  policy.Boundaries,
			DebtCap:     policy.DebtCap,
			Irrevocable: policy.Irrevocable,
		},
		Decay:      decay.DefaultConfig(),
		Reputation: reputation.DefaultConfig(),
		Storage: StorageConfig{
			Backend:     constants.BackendFile,
			LockTimeout: 2 * time.Second,
		},
		Context: ContextConfig{
			TranscriptTimeout: constants.DefaultTranscriptTimeout,
			WindowTokens:      constants.DefaultContextWindowTokens,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.trustloop/config.yaml -> <projectRoot>/.trustloop/config.yaml
// -> environment variables. Later layers override only the keys they set.
func Load(projectRoot string) (*Config, error) {
	config := Default()

	var paths []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".trustloop", FileName))
	}
	if projectRoot != "" {
		paths = append(paths, filepath.Join(projectRoot, ".trustloop", FileName))
	}

	for _, path := range paths {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		if err := mergeFile(config, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of defaults.
func LoadFromFile(path string) (*Config, error) {
	config := Default()
	if err := mergeFile(config, path); err != nil {
		return nil, err
	}
	return config, nil
}

func mergeFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing config file %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Validate checks that the configuration is valid. It builds a throwaway
// engine, so every table, pattern and signal override is checked the same
// way the hook will check it.
func (c *Config) Validate() error {
	validBackends := map[string]bool{constants.BackendFile: true, constants.BackendSQLite: true}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("%w: invalid storage backend: %s (valid: file, sqlite)", ErrInvalid, c.Storage.Backend)
	}
	if c.Storage.LockTimeout < 0 {
		return fmt.Errorf("%w: lock_timeout must be non-negative, got %v", ErrInvalid, c.Storage.LockTimeout)
	}
	if c.Context.TranscriptTimeout < 0 {
		return fmt.Errorf("%w: transcript_timeout must be non-negative, got %v", ErrInvalid, c.Context.TranscriptTimeout)
	}
	if c.Context.WindowTokens <= 0 {
		return fmt.Errorf("%w: window_tokens must be positive, got %d", ErrInvalid, c.Context.WindowTokens)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: invalid log level: %s (valid: info, debug, trace, or empty for default)", ErrInvalid, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: invalid log format: %s (valid: text, json)", ErrInvalid, c.Logging.Format)
	}

	if _, err := engine.New(c.EngineConfig(nil, nil)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// EngineConfig converts c into an engine.Config. logger and decisions may be nil.
func (c *Config) EngineConfig(logger *slog.Logger, decisions *logging.DecisionLogger) engine.Config {
	ec := engine.DefaultConfig()
	ec.InitialConfidence = c.Engine.InitialConfidence
	ec.ApprovalTTL = c.Engine.ApprovalTTLTurns
	ec.Overrides = c.Signals
	ec.Patterns = c.Patterns
	ec.Zones = c.Zones.apply(zones.DefaultSet())
	ec.Decay = c.Decay
	ec.RateLimit = c.RateLimit
	ec.Tiers = tiering.PolicyConfig{
		Boundaries:  c.Tiers.Boundaries,
		DebtCap:     c.Tiers.DebtCap,
		Irrevocable: c.Tiers.Irrevocable,
	}
	ec.Reputation = c.Reputation
	ec.Logger = logger
	ec.Decisions = decisions
	return ec
}

func (z ZonesConfig) apply(set zones.Set) zones.Set {
	replace := func(t *zones.Table, bands []zones.Band) {
		if len(bands) > 0 {
			t.Bands = append([]zones.Band(nil), bands...)
		}
	}
	replace(&set.Cooldown, z.Cooldown)
	replace(&set.Penalty, z.Penalty)
	replace(&set.Boost, z.Boost)
	replace(&set.WindowPenalty, z.WindowPenalty)
	replace(&set.WindowBoost, z.WindowBoost)
	replace(&set.Fatigue, z.Fatigue)
	return set
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TRUSTLOOP_INITIAL_CONFIDENCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Engine.InitialConfidence = n
		}
	}

	if v := os.Getenv("TRUSTLOOP_STORAGE"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}

	if v := os.Getenv("TRUSTLOOP_DECAY_ENABLED"); v != "" {
		config.Decay.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("TRUSTLOOP_TRANSCRIPT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Context.TranscriptTimeout = d
		}
	}

	if v := os.Getenv("TRUSTLOOP_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("TRUSTLOOP_LOG_FORMAT"); v != "" {
		config.Logging.Format = strings.ToLower(v)
	}
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes c to path atomically, creating the directory if needed.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming config: %w", err)
	}
	return nil
}
