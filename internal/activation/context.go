package activation

import (
	"context"
	"log/slog"
	"time"

	"github.com/nvandessel/trustloop/internal/constants"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/pathutil"
	"github.com/nvandessel/trustloop/internal/sanitize"
	"github.com/nvandessel/trustloop/internal/signals"
	"github.com/nvandessel/trustloop/internal/utils"
)

// ContextBuilder builds the evaluation context for one hook event.
type ContextBuilder struct {
	// Patterns supplies the approval expressions. Nil disables prompt-based
	// approval detection.
	Patterns *signals.Patterns

	// TranscriptTimeout bounds transcript reading.
	TranscriptTimeout time.Duration

	// WindowTokens is the model context size used for window_pct.
	WindowTokens int

	// Logger receives degraded-context warnings. Optional.
	Logger *slog.Logger

	openTranscript opener
}

// NewContextBuilder creates a builder with default limits.
func NewContextBuilder(patterns *signals.Patterns) *ContextBuilder {
	return &ContextBuilder{
		Patterns:          patterns,
		TranscriptTimeout: constants.DefaultTranscriptTimeout,
		WindowTokens:      constants.DefaultContextWindowTokens,
		openTranscript:    openTail,
	}
}

// WithTranscriptTimeout sets the transcript read timeout.
func (b *ContextBuilder) WithTranscriptTimeout(d time.Duration) *ContextBuilder {
	b.TranscriptTimeout = d
	return b
}

// WithWindowTokens sets the model context size.
func (b *ContextBuilder) WithWindowTokens(n int) *ContextBuilder {
	b.WindowTokens = n
	return b
}

// WithLogger sets the logger.
func (b *ContextBuilder) WithLogger(l *slog.Logger) *ContextBuilder {
	b.Logger = l
	return b
}

// Build creates the context for in. It never fails: a transcript that
// cannot be read in time leaves window usage at 0 and adds a ContextFault
// diagnostic. Flags that depend on session history are added by Prepare.
func (b *ContextBuilder) Build(ctx context.Context, in HookInput) (models.Context, []models.Diagnostic) {
	resp := parseToolResponse(in.ToolResponse)
	c := models.Context{
		Event:      in.HookEventName,
		ToolName:   in.ToolName,
		ToolInput:  in.ToolInput,
		ToolResult: sanitize.Excerpt(resp.text, constants.MaxToolResultBytes),
		ToolFailed: resp.failed,
		ExitCode:   resp.exitCode,
		Command:    utils.GetString(in.ToolInput, "command", ""),
		FilePath:   utils.FirstString(in.ToolInput, "file_path", "notebook_path"),
	}
	if in.HookEventName == models.EventUserPromptSubmit {
		c.UserPrompt = in.Prompt
	}

	var diags []models.Diagnostic
	ext := in.Trustloop
	needTranscript := in.TranscriptPath != "" && (ext == nil || ext.WindowPct == nil || ext.AssistantOutput == "")
	if needTranscript {
		info, err := b.readTranscript(ctx, in.TranscriptPath)
		if err != nil {
			diag := models.NewDiagnostic(models.ContextFault, pathutil.RedactPath(in.TranscriptPath), err)
			diags = append(diags, diag)
			if b.Logger != nil {
				b.Logger.Warn("transcript unavailable, window usage set to 0", "error", err)
			}
		} else {
			c.WindowPct = info.WindowPct
			c.AssistantOutput = info.LastAssistant
		}
	}

	c.Flags = DetectFlags(c)
	if ext != nil {
		c.Flags = c.Flags.Merge(ext.Flags)
		if ext.AssistantOutput != "" {
			c.AssistantOutput = ext.AssistantOutput
		}
		if ext.WindowPct != nil {
			c.WindowPct = clampPct(*ext.WindowPct)
		}
		c.ApprovalGranted = ext.ApprovalGranted
	}
	if b.Patterns != nil && signals.MatchAny(b.Patterns.Approval, c.UserPrompt) {
		c.ApprovalGranted = true
	}
	return c, diags
}

func (b *ContextBuilder) readTranscript(ctx context.Context, path string) (TranscriptInfo, error) {
	r := TranscriptReader{
		Timeout:      b.TranscriptTimeout,
		WindowTokens: b.WindowTokens,
		open:         b.openTranscript,
	}
	return r.Read(ctx, path)
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
