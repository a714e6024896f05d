// Package ratelimit gates write-style and expensive operations per action and
// tenant with a sliding time window. Checks are best effort: concurrent callers
// may race past the limit by a request or two.
package ratelimit

import (
	"context"
	"time"
)

// Limiter reports whether tenantKey may perform action now. An allowed check
// counts against the window.
type Limiter interface {
	CheckLimit(ctx context.Context, action, tenantKey string) bool
}

// Rule caps an action at Limit calls per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Rules maps action names to limits. Actions without a rule are unlimited.
type Rules map[string]Rule

// AllowAll never limits. Used where no limiter is configured.
type AllowAll struct{}

func (AllowAll) CheckLimit(context.Context, string, string) bool { return true }

func key(action, tenantKey string) string {
	return "ratelimit:" + action + ":" + tenantKey
}
