// Package idempotency caches committed idempotency keys so repeated
// executions can be answered without opening a transaction. The database
// unique constraint stays authoritative; a cache miss is always safe.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/uow/pkg/domain"
)

const (
	DefaultTTL    = 24 * time.Hour
	DefaultPrefix = "uow:idem:"
)

// Store remembers which envelope committed under a key.
type Store interface {
	Lookup(ctx context.Context, key domain.IdempotencyKey) (uuid.UUID, bool, error)
	Remember(ctx context.Context, key domain.IdempotencyKey, uowID uuid.UUID) error
}

// rememberScript keeps the first envelope id written for a key.
// KEYS[1] = cache key
// ARGV[1] = envelope id
// ARGV[2] = ttl in milliseconds
var rememberScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
    return current
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return ARGV[1]
`)

// RedisStore implements Store on Redis.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

type RedisOption func(*RedisStore)

func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, ttl: DefaultTTL, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisStoreFromAddr dials a single Redis node.
func NewRedisStoreFromAddr(addr, password string, db int, opts ...RedisOption) *RedisStore {
	return NewRedisStore(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) key(k domain.IdempotencyKey) string { return s.prefix + k.String() }

func (s *RedisStore) Lookup(ctx context.Context, key domain.IdempotencyKey) (uuid.UUID, bool, error) {
	if key.IsZero() {
		return uuid.Nil, false, nil
	}
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("idempotency lookup: corrupt entry %q: %w", raw, err)
	}
	return id, true, nil
}

// Remember records uowID for key unless another id is already cached.
func (s *RedisStore) Remember(ctx context.Context, key domain.IdempotencyKey, uowID uuid.UUID) error {
	if key.IsZero() {
		return nil
	}
	res, err := rememberScript.Run(ctx, s.client, []string{s.key(key)}, uowID.String(), s.ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	if got, _ := res.(string); got != uowID.String() {
		return fmt.Errorf("idempotency remember: key %s already bound to %s", key, got)
	}
	return nil
}

// Nop never remembers anything.
type Nop struct{}

func (Nop) Lookup(context.Context, domain.IdempotencyKey) (uuid.UUID, bool, error) {
	return uuid.Nil, false, nil
}

func (Nop) Remember(context.Context, domain.IdempotencyKey, uuid.UUID) error { return nil }
