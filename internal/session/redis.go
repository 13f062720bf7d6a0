package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tiledesk-relay/internal/cache"
)

// observeScript performs increment/reset and the threshold check server-side,
// so concurrent observations of one session are serialized by redis itself.
// KEYS[1] counter key, ARGV[1] fallback flag, ARGV[2] threshold, ARGV[3] ttl seconds.
var observeScript = redis.NewScript(`
if ARGV[1] == "0" then
  redis.call("DEL", KEYS[1])
  return {0, 0}
end
local count = redis.call("INCR", KEYS[1])
local threshold = tonumber(ARGV[2])
if threshold > 0 and count >= threshold then
  redis.call("DEL", KEYS[1])
  return {count, 1}
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call("EXPIRE", KEYS[1], ttl)
end
return {count, 0}
`)

// RedisTracker stores consecutive-fallback counters in redis. Counters carry a
// TTL, which bounds registry growth across abandoned conversations.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTracker builds a tracker on the shared redis connection.
func NewRedisTracker(r *cache.Redis, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: r.Client(), ttl: ttl}
}

// Observe implements Tracker.
func (t *RedisTracker) Observe(ctx context.Context, sessionID string, fallback bool, threshold int) (int, bool, error) {
	flag := "0"
	if fallback {
		flag = "1"
	}
	res, err := observeScript.Run(ctx, t.client,
		[]string{"fallbacks:" + sessionID},
		flag, threshold, int(t.ttl.Seconds()),
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("observe session %s: %w", sessionID, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("observe session %s: unexpected script reply %v", sessionID, res)
	}
	return int(res[0]), res[1] == 1, nil
}
