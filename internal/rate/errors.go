package rate

import "errors"

var (
	// ErrRateLimited means the attempt budget of the current window is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures from Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
