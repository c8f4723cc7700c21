package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis backend.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisOptions configures a [RedisStore].
type RedisOptions struct {
	// Prefix namespaces the slot keys, e.g. "kinvex:device-42".
	Prefix string
	Keys   Keys
	// TTL, when positive, expires all slots; Save and SaveUser reset it.
	TTL time.Duration
}

// RedisStore keeps the slots as plain string keys. Pair writes run inside MULTI/EXEC,
// reads use one MGET and Clear is a single multi-key DEL, so every operation is atomic
// with respect to other clients of the same keys.
type RedisStore struct {
	redis      redis.UniversalClient
	accessKey  string
	refreshKey string
	userKey    string
	ttl        time.Duration
}

// NewRedisStore returns a store over client. The caller owns client.
func NewRedisStore(client redis.UniversalClient, opts RedisOptions) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	keys := opts.Keys.withDefaults()
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	if opts.TTL < 0 {
		return nil, errors.New("redis store ttl must be >= 0")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "kinvex"
	}

	return &RedisStore{
		redis:      client,
		accessKey:  prefix + ":" + keys.Access,
		refreshKey: prefix + ":" + keys.Refresh,
		userKey:    prefix + ":" + keys.User,
		ttl:        opts.TTL,
	}, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, pair Pair) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.setOrDel(ctx, pipe, s.accessKey, pair.AccessToken)
		s.setOrDel(ctx, pipe, s.refreshKey, pair.RefreshToken)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save pair: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) setOrDel(ctx context.Context, pipe redis.Pipeliner, key, value string) {
	if value == "" {
		pipe.Del(ctx, key)
		return
	}
	pipe.Set(ctx, key, value, s.ttl)
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Pair, bool, error) {
	values, err := s.redis.MGet(ctx, s.accessKey, s.refreshKey).Result()
	if err != nil {
		return Pair{}, false, fmt.Errorf("%w: load pair: %v", ErrRedisUnavailable, err)
	}
	var pair Pair
	if len(values) == 2 {
		pair.AccessToken, _ = values[0].(string)
		pair.RefreshToken, _ = values[1].(string)
	}
	return pair, !pair.Empty(), nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.accessKey, s.refreshKey, s.userKey).Err(); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SaveUser implements Store.
func (s *RedisStore) SaveUser(ctx context.Context, user []byte) error {
	var err error
	if len(user) == 0 {
		err = s.redis.Del(ctx, s.userKey).Err()
	} else {
		err = s.redis.Set(ctx, s.userKey, user, s.ttl).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: save user: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoadUser implements Store.
func (s *RedisStore) LoadUser(ctx context.Context) ([]byte, bool, error) {
	raw, err := s.redis.Get(ctx, s.userKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: load user: %v", ErrRedisUnavailable, err)
	}
	return raw, true, nil
}
