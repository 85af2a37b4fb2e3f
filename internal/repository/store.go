package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a record lookup misses.
var ErrNotFound = errors.New("record not found")

// Persisted key layout. Each key holds one whole JSON value; every mutation
// rewrites the blob. There is a single logical writer (the service), so no
// finer-grained locking is needed at the storage level.
const (
	cardsKey    = "trivia:cards"
	feedbackKey = "trivia:feedback"
	statsKey    = "trivia:stats"
	tokenKey    = "trivia:token"
	verifierKey = "trivia:pkce_verifier"
)

// Store is the narrow key-value surface the repositories need. Keeping it
// this small lets tests substitute MemoryStore for Redis.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	SaveExpiring(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) SaveExpiring(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// MemoryStore is the in-memory Store used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	expires map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string][]byte),
		expires: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.expires[key]; ok && time.Now().After(exp) {
		delete(s.values, key)
		delete(s.expires, key)
	}

	val, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	delete(s.expires, key)
	return nil
}

func (s *MemoryStore) SaveExpiring(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	s.expires[key] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	delete(s.expires, key)
	return nil
}
