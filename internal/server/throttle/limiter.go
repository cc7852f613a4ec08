// Package throttle limits login attempts per key with a fixed window kept
// in Redis.
package throttle

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ticketdesk:login:"

// incrWindow bumps the counter and starts the window on the first hit.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

type Limiter struct {
	rdb    *redis.Client
	max    int64
	window time.Duration
}

// New allows max attempts per key within window.
func New(rdb *redis.Client, max int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		max:    int64(max),
		window: window,
	}
}

// Allow records an attempt for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incrWindow.Run(ctx, l.rdb, []string{keyPrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= l.max, nil
}

// Reset clears the attempts recorded for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, keyPrefix+key).Err()
}
