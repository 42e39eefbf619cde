package ratelimit

import (
	"context"
	"time"
)

// Policy is a named request budget per window
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Result is the outcome of one attempt
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole seconds until the window resets, at least 1
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter applies one Policy to identifiers over a Store
type Limiter struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// New creates a Limiter
func New(store Store, policy Policy) *Limiter {
	return &Limiter{store: store, policy: policy, now: time.Now}
}

// Policy returns the limiter's policy
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Key is the store key for an identifier under a policy name
func Key(policy, identifier string) string {
	return "ratelimit:" + policy + ":" + identifier
}

// Attempt counts one request for identifier
func (l *Limiter) Attempt(ctx context.Context, identifier string) (Result, error) {
	w, err := l.store.Hit(ctx, Key(l.policy.Name, identifier), l.policy.Limit, l.policy.Window)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Allowed: w.Allowed,
		Limit:   l.policy.Limit,
		ResetAt: l.now().Add(w.TTL),
	}
	if w.Allowed {
		res.Remaining = max(l.policy.Limit-w.Count, 0)
	}
	return res, nil
}
