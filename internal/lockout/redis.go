package lockout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

const (
	redisKeyPrefix  = "lockout:"
	redisMaxRetries = 10
)

// ErrContended is returned when an update keeps losing optimistic races.
var ErrContended = errors.New("lockout: too many concurrent updates")

// RedisStore shares lockout records between instances. Each record is a
// JSON value whose key expires with the lockout window.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) Load(ctx context.Context, key string) (Record, error) {
	return readRecord(ctx, s.client, redisKeyPrefix+key)
}

// Update runs fn inside a WATCH/MULTI transaction and retries when another
// writer touched the key first.
func (s *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn func(Record) Record) (Record, error) {
	k := redisKeyPrefix + key
	var out Record

	txf := func(tx *redis.Tx) error {
		cur, err := readRecord(ctx, tx, k)
		if err != nil {
			return err
		}
		out = fn(cur)
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Record{}, fmt.Errorf("lockout update: %w", err)
	}
	return Record{}, ErrContended
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

func readRecord(ctx context.Context, c stringGetter, key string) (Record, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("lockout read: %w", err)
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("lockout decode: %w", err)
	}
	return r, nil
}
