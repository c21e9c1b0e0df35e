// Package ratelimit bounds how fast things may change: per-tool request
// limits for the MCP server, and DeltaLimiter, the per-turn cap on
// confidence swings.
package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a tool has used up its budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// ToolLimiters holds one token bucket per MCP tool.
type ToolLimiters map[string]*rate.Limiter

// perMinute builds a bucket refilling n tokens a minute.
func perMinute(n float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(n/60.0), burst)
}

// NewToolLimiters returns the default limits. Read-only tools allow
// 60 calls a minute; trust_approve changes confidence and allows 5.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"trust_status":  perMinute(60, 10),
		"trust_tiers":   perMinute(60, 10),
		"trust_signals": perMinute(60, 10),
		"trust_gate":    perMinute(60, 10),
		"trust_history": perMinute(30, 5),
		"trust_approve": perMinute(5, 1),
	}
}

// Check spends one token for tool. Tools without a limiter always pass.
func (t ToolLimiters) Check(tool string) error {
	return t.checkAt(tool, time.Now())
}

func (t ToolLimiters) checkAt(tool string, now time.Time) error {
	l, ok := t[tool]
	if !ok {
		return nil
	}
	if !l.AllowN(now, 1) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, tool)
	}
	return nil
}
