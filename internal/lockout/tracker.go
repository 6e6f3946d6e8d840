// Package lockout counts failed logins per identity and locks the identity
// out for a fixed window once a threshold is crossed.
//
// State lives behind Store so single-instance deployments can keep it in
// memory while horizontally scaled ones share it through redis.
package lockout

import (
	"context"
	"math"
	"time"
)

// Record is the persisted lockout state of one identity.
type Record struct {
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"lastFailure"`
	LockedUntil time.Time `json:"lockedUntil"`
}

// Store persists lockout records. Load returns the zero Record for unknown
// keys. Update applies fn atomically with respect to other Updates on the
// same key and keeps the result for at least ttl.
type Store interface {
	Load(ctx context.Context, key string) (Record, error)
	Update(ctx context.Context, key string, ttl time.Duration, fn func(Record) Record) (Record, error)
	Delete(ctx context.Context, key string) error
}

type Tracker struct {
	store     Store
	threshold int
	window    time.Duration
	now       func() time.Time
}

type Option func(*Tracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker builds a tracker that locks an identity for window after
// threshold failures that each happened within window of the previous one.
func NewTracker(store Store, threshold int, window time.Duration, opts ...Option) *Tracker {
	t := &Tracker{store: store, threshold: threshold, window: window, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	if t.threshold <= 0 {
		t.threshold = 5
	}
	if t.window <= 0 {
		t.window = 30 * time.Minute
	}
	return t
}

// RecordFailedAttempt counts one failure and locks the identity when the
// threshold is reached.
func (t *Tracker) RecordFailedAttempt(ctx context.Context, identity string) (Record, error) {
	now := t.now()
	return t.store.Update(ctx, identity, t.window, func(r Record) Record {
		expired := !r.LastFailure.IsZero() && now.Sub(r.LastFailure) > t.window
		unlocked := !r.LockedUntil.IsZero() && !now.Before(r.LockedUntil)
		if expired || unlocked {
			r = Record{}
		}
		r.Failures++
		r.LastFailure = now
		if r.Failures >= t.threshold {
			r.LockedUntil = now.Add(t.window)
		}
		return r
	})
}

func (t *Tracker) IsAccountLocked(ctx context.Context, identity string) (bool, error) {
	r, err := t.store.Load(ctx, identity)
	if err != nil {
		return false, err
	}
	return t.now().Before(r.LockedUntil), nil
}

// LockoutTimeRemaining returns whole seconds until the identity unlocks,
// rounded up, or 0 when it is not locked.
func (t *Tracker) LockoutTimeRemaining(ctx context.Context, identity string) (int, error) {
	r, err := t.store.Load(ctx, identity)
	if err != nil {
		return 0, err
	}
	left := r.LockedUntil.Sub(t.now())
	if left <= 0 {
		return 0, nil
	}
	return int(math.Ceil(left.Seconds())), nil
}

func (t *Tracker) ResetLockout(ctx context.Context, identity string) error {
	return t.store.Delete(ctx, identity)
}
