package lockout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_LoadMissingIsZero(t *testing.T) {
	s, _ := newRedisStore(t)
	rec, err := s.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestRedisStore_UpdateSetsTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	_, err := s.Update(ctx, "a", time.Minute, func(r Record) Record {
		r.Failures++
		return r
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("lockout:a"))
	assert.Equal(t, time.Minute, mr.TTL("lockout:a"))

	mr.FastForward(61 * time.Second)
	rec, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, rec.Failures)
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	_, err := s.Update(ctx, "a", time.Minute, func(r Record) Record { r.Failures = 3; return r })
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a"))
	assert.False(t, mr.Exists("lockout:a"))
}

func TestRedisStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "a", time.Minute, func(r Record) Record { r.Failures++; return r })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Failures)
}

func TestTracker_WithRedisStore(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)
	clock := newFakeClock()
	tr := newTestTracker(s, clock)

	for i := 0; i < 5; i++ {
		_, err := tr.RecordFailedAttempt(ctx, "user@x.com")
		require.NoError(t, err)
	}
	locked, err := tr.IsAccountLocked(ctx, "user@x.com")
	require.NoError(t, err)
	assert.True(t, locked)

	remaining, err := tr.LockoutTimeRemaining(ctx, "user@x.com")
	require.NoError(t, err)
	assert.Positive(t, remaining)

	require.NoError(t, tr.ResetLockout(ctx, "user@x.com"))
	locked, err = tr.IsAccountLocked(ctx, "user@x.com")
	require.NoError(t, err)
	assert.False(t, locked)
}
