package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"imovan/internal/session"
	"imovan/pkg/platform/sentinel"
)

// Clock abstracts time.Now for testability.
type Clock func() time.Time

// RedisStore persists session records under two keyspaces sharing the same
// logical key:
//
//	imovan:session:durable:<key>
//	imovan:session:ephemeral:<key>
//
// The write-one-clear-other discipline runs as a single pipeline so a crash
// between the two commands cannot leave both tiers populated. Redis key TTLs
// mirror the record expiry as a safety net; the session manager still checks
// expiry at read time.
type RedisStore struct {
	client *redis.Client
	clock  Clock
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithClock sets the clock used for TTL computation.
func WithClock(clock Clock) RedisOption {
	return func(s *RedisStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func tierKey(tier session.Tier, key string) string {
	return fmt.Sprintf("imovan:session:%s:%s", tier, key)
}

func otherTier(tier session.Tier) session.Tier {
	if tier == session.TierDurable {
		return session.TierEphemeral
	}
	return session.TierDurable
}

func (s *RedisStore) Write(ctx context.Context, key string, tier session.Tier, rec session.Record) error {
	if tier != session.TierDurable && tier != session.TierEphemeral {
		return sentinel.ErrInvalidState
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	ttl := time.UnixMilli(rec.ExpiresAt).Sub(s.clock())
	if ttl <= 0 {
		return sentinel.ErrExpired
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tierKey(tier, key), payload, ttl)
		pipe.Del(ctx, tierKey(otherTier(tier), key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, key string) (session.Record, session.Tier, error) {
	for _, tier := range []session.Tier{session.TierDurable, session.TierEphemeral} {
		raw, err := s.client.Get(ctx, tierKey(tier, key)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return session.Record{}, "", fmt.Errorf("read session record: %w", err)
		}
		var rec session.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return session.Record{}, "", fmt.Errorf("decode session record: %w", err)
		}
		return rec, tier, nil
	}
	return session.Record{}, "", sentinel.ErrNotFound
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	err := s.client.Del(ctx,
		tierKey(session.TierDurable, key),
		tierKey(session.TierEphemeral, key),
	).Err()
	if err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}
