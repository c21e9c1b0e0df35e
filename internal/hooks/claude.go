package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/trustloop/internal/models"
)

// HookScope determines how hook commands locate the project.
type HookScope int

const (
	// ScopeGlobal installs into ~/.claude/settings.json; the hook resolves
	// the project from the event's cwd.
	ScopeGlobal HookScope = iota
	// ScopeProject installs into .claude/settings.json and pins the project
	// root to $CLAUDE_PROJECT_DIR.
	ScopeProject
)

// commandPrefix identifies hook commands owned by trustloop.
const commandPrefix = "trustloop hook"

// hookEvents lists the events trustloop subscribes to, with the tool matcher
// (empty for events without tools) and the subcommand each one runs.
var hookEvents = []struct {
	event      string
	matcher    string
	subcommand string
}{
	{models.EventSessionStart, "", "session-start"},
	{models.EventUserPromptSubmit, "", "user-prompt"},
	{models.EventPreToolUse, "Bash|Write|Edit|MultiEdit|NotebookEdit", "pre-tool-use"},
	{models.EventPostToolUse, "*", "post-tool-use"},
}

// ClaudePlatform implements the Platform interface for Claude Code.
type ClaudePlatform struct{}

// NewClaudePlatform creates a new Claude Code platform instance.
func NewClaudePlatform() *ClaudePlatform {
	return &ClaudePlatform{}
}

// Name returns the platform name.
func (c *ClaudePlatform) Name() string {
	return "Claude Code"
}

// Detect checks if Claude Code is configured in the project.
// Returns true if .claude/ directory exists.
func (c *ClaudePlatform) Detect(projectRoot string) bool {
	info, err := os.Stat(filepath.Join(projectRoot, ".claude"))
	if err != nil {
		return false
	}
	return info.IsDir()
}

// ConfigPath returns the path to Claude Code's settings file.
func (c *ClaudePlatform) ConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".claude", "settings.json")
}

// ReadConfig reads the existing Claude Code settings.
func (c *ClaudePlatform) ReadConfig(projectRoot string) (map[string]interface{}, error) {
	data, err := os.ReadFile(c.ConfigPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settings.json: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var config map[string]interface{}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse settings.json: %w", err)
	}
	return config, nil
}

// HookCommand returns the command line installed for a hook subcommand.
func HookCommand(subcommand string, scope HookScope) string {
	cmd := commandPrefix + " " + subcommand
	if scope == ScopeProject {
		cmd += ` --root "$CLAUDE_PROJECT_DIR"`
	}
	return cmd
}

// GenerateHookConfig merges trustloop hooks into existing config. Existing
// trustloop entries are removed first and entries owned by other tools are
// preserved.
func (c *ClaudePlatform) GenerateHookConfig(existingConfig map[string]interface{}, scope HookScope) (map[string]interface{}, error) {
	config := c.RemoveHookConfig(existingConfig)

	hooksSection, ok := config["hooks"].(map[string]interface{})
	if !ok {
		hooksSection = make(map[string]interface{})
	}

	for _, h := range hookEvents {
		entry := map[string]interface{}{
			"hooks": []interface{}{
				map[string]interface{}{
					"type":    "command",
					"command": HookCommand(h.subcommand, scope),
				},
			},
		}
		if h.matcher != "" {
			entry["matcher"] = h.matcher
		}
		hooksSection[h.event] = append(getOrCreateEventArray(hooksSection, h.event), entry)
	}

	config["hooks"] = hooksSection
	return config, nil
}

// RemoveHookConfig strips trustloop entries from every event.
func (c *ClaudePlatform) RemoveHookConfig(existingConfig map[string]interface{}) map[string]interface{} {
	config := existingConfig
	if config == nil {
		config = make(map[string]interface{})
	}
	hooksSection, ok := config["hooks"].(map[string]interface{})
	if !ok {
		return config
	}
	hooksSection = removeTrustloopEntries(hooksSection)
	if len(hooksSection) == 0 {
		delete(config, "hooks")
	} else {
		config["hooks"] = hooksSection
	}
	return config
}

// WriteConfig writes the configuration to settings.json atomically.
func (c *ClaudePlatform) WriteConfig(projectRoot string, config map[string]interface{}) error {
	configPath := c.ConfigPath(projectRoot)

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create .claude directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings.json: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace settings.json: %w", err)
	}
	return nil
}

// HasHooks checks if trustloop hooks are already configured for any event.
func (c *ClaudePlatform) HasHooks(projectRoot string) (bool, error) {
	config, err := c.ReadConfig(projectRoot)
	if err != nil {
		return false, err
	}
	if config == nil {
		return false, nil
	}

	hooksSection, ok := config["hooks"].(map[string]interface{})
	if !ok {
		return false, nil
	}

	for eventType := range hooksSection {
		entries, _ := hooksSection[eventType].([]interface{})
		for _, entry := range entries {
			if entryMap, ok := entry.(map[string]interface{}); ok && entryHasTrustloopCommand(entryMap) {
				return true, nil
			}
		}
	}
	return false, nil
}

// removeTrustloopEntries removes trustloop entries from every event array.
// Non-trustloop entries are preserved; emptied events are dropped.
func removeTrustloopEntries(hooksSection map[string]interface{}) map[string]interface{} {
	for eventType, raw := range hooksSection {
		entries, ok := raw.([]interface{})
		if !ok {
			continue
		}

		var kept []interface{}
		for _, entry := range entries {
			entryMap, ok := entry.(map[string]interface{})
			if !ok || !entryHasTrustloopCommand(entryMap) {
				kept = append(kept, entry)
			}
		}

		if len(kept) > 0 {
			hooksSection[eventType] = kept
		} else {
			delete(hooksSection, eventType)
		}
	}
	return hooksSection
}

// entryHasTrustloopCommand checks if a hook entry runs a trustloop hook.
func entryHasTrustloopCommand(entry map[string]interface{}) bool {
	hooksList, ok := entry["hooks"].([]interface{})
	if !ok {
		return false
	}

	for _, hook := range hooksList {
		hookMap, ok := hook.(map[string]interface{})
		if !ok {
			continue
		}
		cmd, ok := hookMap["command"].(string)
		if ok && strings.HasPrefix(strings.TrimSpace(cmd), commandPrefix) {
			return true
		}
	}
	return false
}

// getOrCreateEventArray gets or creates an event array from the hooks section.
func getOrCreateEventArray(hooksSection map[string]interface{}, eventType string) []interface{} {
	arr, ok := hooksSection[eventType].([]interface{})
	if !ok {
		return make([]interface{}, 0)
	}
	return arr
}
