package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle parameters.
type Config struct {
	// MaxLoginAttempts is the number of failures allowed per window.
	MaxLoginAttempts int
	// Cooldown is the window length, counted from the first failure.
	Cooldown time.Duration
	// PerIP also budgets failures per client address.
	PerIP bool
	// Prefix namespaces the counter keys. Default "kinvex".
	Prefix string
}

// DefaultConfig allows five failures per username every five minutes.
func DefaultConfig() Config {
	return Config{
		MaxLoginAttempts: 5,
		Cooldown:         5 * time.Minute,
		PerIP:            true,
		Prefix:           "kinvex",
	}
}

// Limiter counts failed logins in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a Limiter over redisClient. The caller owns the client.
func New(redisClient redis.UniversalClient, cfg Config) (*Limiter, error) {
	if redisClient == nil {
		return nil, errors.New("rate: redis client required")
	}
	if cfg.MaxLoginAttempts <= 0 {
		return nil, errors.New("rate: MaxLoginAttempts must be > 0")
	}
	if cfg.Cooldown <= 0 {
		return nil, errors.New("rate: Cooldown must be > 0")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "kinvex"
	}
	return &Limiter{redis: redisClient, config: cfg}, nil
}

// CheckLogin returns ErrRateLimited if username or ip has no attempts left.
// It does not count the attempt.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	if err := l.checkCounter(ctx, l.userKey(username)); err != nil {
		return err
	}
	if l.config.PerIP && ip != "" {
		return l.checkCounter(ctx, l.ipKey(ip))
	}
	return nil
}

// RecordFailure counts a failed login. It returns ErrRateLimited when this
// failure used up the budget.
func (l *Limiter) RecordFailure(ctx context.Context, username, ip string) error {
	count, err := l.incrementWithTTL(ctx, l.userKey(username))
	if err != nil {
		return err
	}
	limited := count >= int64(l.config.MaxLoginAttempts)

	if l.config.PerIP && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.ipKey(ip))
		if err != nil {
			return err
		}
		limited = limited || count >= int64(l.config.MaxLoginAttempts)
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the username counter after a successful login. The address
// counter keeps running so one good account cannot launder guesses.
func (l *Limiter) Reset(ctx context.Context, username string) error {
	if err := l.redis.Del(ctx, l.userKey(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failures counted for username in the current window.
func (l *Limiter) Attempts(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, l.userKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// RetryAfter returns how long until username's window closes, or zero.
func (l *Limiter) RetryAfter(ctx context.Context, username string) time.Duration {
	ttl, err := l.redis.PTTL(ctx, l.userKey(username)).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

func (l *Limiter) userKey(username string) string {
	return l.config.Prefix + ":login:u:" + username
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + ":login:ip:" + ip
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set by the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
