// Package hooks installs trustloop into AI coding tools through their native
// hook mechanisms, so every tool event reaches "trustloop hook <event>".
package hooks

import (
	"fmt"
	"sync"
)

// Platform defines the interface for AI tool platform integration.
// Each platform implements this interface to route its tool events to
// trustloop.
type Platform interface {
	// Name returns the human-readable name of the platform.
	Name() string

	// Detect checks if the platform is configured in the project.
	Detect(projectRoot string) bool

	// ConfigPath returns the path to the platform's configuration file.
	ConfigPath(projectRoot string) string

	// ReadConfig reads and parses the existing configuration.
	// Returns nil if no config exists yet.
	ReadConfig(projectRoot string) (map[string]interface{}, error)

	// GenerateHookConfig merges trustloop hooks into existingConfig (which
	// may be nil). scope controls how the project root is passed to the
	// hook commands.
	GenerateHookConfig(existingConfig map[string]interface{}, scope HookScope) (map[string]interface{}, error)

	// RemoveHookConfig strips trustloop hooks from existingConfig, leaving
	// every other entry in place.
	RemoveHookConfig(existingConfig map[string]interface{}) map[string]interface{}

	// WriteConfig writes the configuration to the platform's config file.
	WriteConfig(projectRoot string, config map[string]interface{}) error

	// HasHooks checks if trustloop hooks are already configured.
	HasHooks(projectRoot string) (bool, error)
}

// Registry manages registered platforms.
type Registry struct {
	mu        sync.RWMutex
	platforms []Platform
}

// NewRegistry creates a new platform registry.
func NewRegistry() *Registry {
	return &Registry{
		platforms: make([]Platform, 0),
	}
}

// Register adds a platform to the registry.
func (r *Registry) Register(p Platform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms = append(r.platforms, p)
}

// All returns all registered platforms.
func (r *Registry) All() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Platform, len(r.platforms))
	copy(result, r.platforms)
	return result
}

// Get returns a platform by name, or nil if not found.
func (r *Registry) Get(name string) Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.platforms {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// ConfigureResult holds the result of configuring a platform.
type ConfigureResult struct {
	Platform   string `json:"platform"`
	ConfigPath string `json:"config_path"`
	Created    bool   `json:"created"` // config file did not exist before
	Removed    bool   `json:"removed,omitempty"`
	Error      error  `json:"-"`
}

// ConfigurePlatform installs hooks for a single platform. Existing
// trustloop entries are replaced, so running it twice is harmless.
func ConfigurePlatform(p Platform, projectRoot string, scope HookScope) ConfigureResult {
	result := ConfigureResult{
		Platform:   p.Name(),
		ConfigPath: p.ConfigPath(projectRoot),
	}

	existingConfig, err := p.ReadConfig(projectRoot)
	if err != nil {
		result.Error = fmt.Errorf("failed to read config: %w", err)
		return result
	}
	result.Created = existingConfig == nil

	newConfig, err := p.GenerateHookConfig(existingConfig, scope)
	if err != nil {
		result.Error = fmt.Errorf("failed to generate hook config: %w", err)
		return result
	}

	if err := p.WriteConfig(projectRoot, newConfig); err != nil {
		result.Error = fmt.Errorf("failed to write config: %w", err)
		return result
	}
	return result
}

// UnconfigurePlatform removes trustloop hooks from a single platform. A
// missing config file is not an error.
func UnconfigurePlatform(p Platform, projectRoot string) ConfigureResult {
	result := ConfigureResult{
		Platform:   p.Name(),
		ConfigPath: p.ConfigPath(projectRoot),
	}

	existingConfig, err := p.ReadConfig(projectRoot)
	if err != nil {
		result.Error = fmt.Errorf("failed to read config: %w", err)
		return result
	}
	if existingConfig == nil {
		return result
	}

	if err := p.WriteConfig(projectRoot, p.RemoveHookConfig(existingConfig)); err != nil {
		result.Error = fmt.Errorf("failed to write config: %w", err)
		return result
	}
	result.Removed = true
	return result
}

// Install configures hooks on every detected platform, or only on the
// platform named by filter.
func (r *Registry) Install(projectRoot, filter string, scope HookScope) ([]ConfigureResult, error) {
	detected, err := r.Detect(projectRoot, filter)
	if err != nil {
		return nil, err
	}
	results := make([]ConfigureResult, 0, len(detected))
	for _, d := range detected {
		results = append(results, ConfigurePlatform(d.Platform, projectRoot, scope))
	}
	return results, nil
}

// Uninstall removes trustloop hooks from every detected platform, or only
// from the platform named by filter.
func (r *Registry) Uninstall(projectRoot, filter string) ([]ConfigureResult, error) {
	detected, err := r.Detect(projectRoot, filter)
	if err != nil {
		return nil, err
	}
	results := make([]ConfigureResult, 0, len(detected))
	for _, d := range detected {
		results = append(results, UnconfigurePlatform(d.Platform, projectRoot))
	}
	return results, nil
}

// DefaultRegistry is the global registry with all supported platforms.
var DefaultRegistry = NewRegistry()

// RegisterDefaultPlatforms registers all built-in platform implementations.
func RegisterDefaultPlatforms() {
	DefaultRegistry.Register(NewClaudePlatform())
}

func init() {
	RegisterDefaultPlatforms()
}
