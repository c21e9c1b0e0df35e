package hooks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlatform is returned when a platform filter names no registered
// platform.
var ErrUnknownPlatform = errors.New("unknown platform")

// DetectionResult describes one platform found under a project root.
type DetectionResult struct {
	Platform   Platform `json:"-"`
	Name       string   `json:"name"`
	ConfigPath string   `json:"config_path"`
	HasHooks   bool     `json:"has_hooks"`
	Error      error    `json:"-"`
}

// Names returns the registered platform names in registration order.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name()
	}
	return names
}

// Detect reports the platforms present under projectRoot and whether
// trustloop hooks are already installed. A non-empty filter restricts the
// result to the platform of that name and must name a registered platform.
func (r *Registry) Detect(projectRoot, filter string) ([]DetectionResult, error) {
	if filter != "" && r.Get(filter) == nil {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownPlatform, filter, strings.Join(r.Names(), ", "))
	}

	var results []DetectionResult
	for _, p := range r.All() {
		if filter != "" && p.Name() != filter {
			continue
		}
		if !p.Detect(projectRoot) {
			continue
		}
		res := DetectionResult{
			Platform:   p,
			Name:       p.Name(),
			ConfigPath: p.ConfigPath(projectRoot),
		}
		res.HasHooks, res.Error = p.HasHooks(projectRoot)
		results = append(results, res)
	}
	return results, nil
}

// Detect runs DefaultRegistry.Detect.
func Detect(projectRoot, filter string) ([]DetectionResult, error) {
	return DefaultRegistry.Detect(projectRoot, filter)
}
