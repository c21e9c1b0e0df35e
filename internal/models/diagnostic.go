package models

import "fmt"

// DiagnosticKind names the failure class of a degraded-mode result.
type DiagnosticKind string

const (
	// PredicateFault: a single signal predicate errored or panicked.
	PredicateFault DiagnosticKind = "predicate_fault"
	// PersistenceFault: session state could not be read or written.
	PersistenceFault DiagnosticKind = "persistence_fault"
	// CorruptState: stored state was unreadable and a fresh state was used.
	CorruptState DiagnosticKind = "corrupt_state"
	// ContextFault: context gathering degraded to a safe default.
	ContextFault DiagnosticKind = "context_fault"
	// ConfigurationFault: configuration was rejected. Only reported by
	// commands that validate config without aborting.
	ConfigurationFault DiagnosticKind = "configuration_fault"
)

// Diagnostic reports a non-fatal problem surfaced alongside a result.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Source  string         `json:"source,omitempty"`
	Message string         `json:"message"`
}

// String formats the diagnostic for human output.
func (d Diagnostic) String() string {
	if d.Source == "" {
		return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Kind, d.Source, d.Message)
}

// NewDiagnostic builds a Diagnostic from an error.
func NewDiagnostic(kind DiagnosticKind, source string, err error) Diagnostic {
	return Diagnostic{Kind: kind, Source: source, Message: err.Error()}
}
