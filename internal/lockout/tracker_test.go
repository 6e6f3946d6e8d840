package lockout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestTracker(store Store, clock *fakeClock) *Tracker {
	return NewTracker(store, 5, 30*time.Minute, WithClock(clock.Now))
}

func TestTracker_LocksAfterThresholdAndUnlocksAfterWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := newTestTracker(NewMemoryStore(), clock)

	for i := 0; i < 4; i++ {
		_, err := tr.RecordFailedAttempt(ctx, "user@x.com")
		require.NoError(t, err)
		locked, err := tr.IsAccountLocked(ctx, "user@x.com")
		require.NoError(t, err)
		assert.False(t, locked, "locked after %d failures", i+1)
	}

	rec, err := tr.RecordFailedAttempt(ctx, "user@x.com")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Failures)

	locked, err := tr.IsAccountLocked(ctx, "user@x.com")
	require.NoError(t, err)
	assert.True(t, locked)

	remaining, err := tr.LockoutTimeRemaining(ctx, "user@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1800, remaining)

	clock.Advance(10*time.Minute + 500*time.Millisecond)
	remaining, err = tr.LockoutTimeRemaining(ctx, "user@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1200, remaining)

	clock.Advance(20 * time.Minute)
	locked, err = tr.IsAccountLocked(ctx, "user@x.com")
	require.NoError(t, err)
	assert.False(t, locked)
	remaining, err = tr.LockoutTimeRemaining(ctx, "user@x.com")
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestTracker_CounterRestartsAfterQuietWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := newTestTracker(NewMemoryStore(), clock)

	for i := 0; i < 4; i++ {
		_, err := tr.RecordFailedAttempt(ctx, "a")
		require.NoError(t, err)
	}
	clock.Advance(31 * time.Minute)

	rec, err := tr.RecordFailedAttempt(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Failures)

	locked, err := tr.IsAccountLocked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestTracker_FailureAfterLockExpiryStartsFresh(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := NewTracker(NewMemoryStore(), 2, time.Minute, WithClock(clock.Now))

	_, _ = tr.RecordFailedAttempt(ctx, "a")
	clock.Advance(30 * time.Second)
	_, _ = tr.RecordFailedAttempt(ctx, "a")
	locked, _ := tr.IsAccountLocked(ctx, "a")
	require.True(t, locked)

	clock.Advance(61 * time.Second)
	rec, err := tr.RecordFailedAttempt(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Failures)
	assert.True(t, rec.LockedUntil.IsZero())
}

func TestTracker_ResetClearsState(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := newTestTracker(NewMemoryStore(), clock)

	for i := 0; i < 5; i++ {
		_, err := tr.RecordFailedAttempt(ctx, "a")
		require.NoError(t, err)
	}
	require.NoError(t, tr.ResetLockout(ctx, "a"))

	locked, err := tr.IsAccountLocked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, locked)

	rec, err := tr.RecordFailedAttempt(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Failures)
}

func TestTracker_IdentitiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(NewMemoryStore(), newFakeClock())

	for i := 0; i < 5; i++ {
		_, _ = tr.RecordFailedAttempt(ctx, "a")
	}
	locked, _ := tr.IsAccountLocked(ctx, "b")
	assert.False(t, locked)
	locked, _ = tr.IsAccountLocked(ctx, "A")
	assert.False(t, locked)
}

func TestTracker_ConcurrentFailuresAreAllCounted(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), 100, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.RecordFailedAttempt(ctx, "a")
		}()
	}
	wg.Wait()

	rec, err := tr.RecordFailedAttempt(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 51, rec.Failures)
}

func TestNewTracker_Defaults(t *testing.T) {
	tr := NewTracker(NewMemoryStore(), 0, 0)
	assert.Equal(t, 5, tr.threshold)
	assert.Equal(t, 30*time.Minute, tr.window)
}
