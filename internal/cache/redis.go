// Package cache wraps the Redis client used as the atomic counter store.
// All like-count and membership state lives here during normal operation;
// Postgres holds the durable mirror.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/photofeed/backend/internal/logger"
)

// RedisClient wraps redis.Client with the typed helpers the like engine
// and middleware need.
type RedisClient struct {
	client *redis.Client
}

// Singleton instance (package-level)
var globalRedis *RedisClient

// toggleScript flips an actor's membership for one post and adjusts the
// counter in the same server-side execution. Running the check-then-act as
// one script is what makes Toggle atomic per post: no interleaving between
// the SISMEMBER and the INCR/DECR is possible.
//
// KEYS[1] = count key, KEYS[2] = post membership set, KEYS[3] = actor
// reverse index. ARGV[1] = tagged actor, ARGV[2] = post ID.
// Returns {newCount, 1} when the toggle liked, {newCount, 0} when it unliked.
var toggleScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
  redis.call('SREM', KEYS[2], ARGV[1])
  redis.call('SREM', KEYS[3], ARGV[2])
  local c = redis.call('DECR', KEYS[1])
  if c < 0 then
    redis.call('SET', KEYS[1], 0)
    c = 0
  end
  return {c, 0}
else
  redis.call('SADD', KEYS[2], ARGV[1])
  redis.call('SADD', KEYS[3], ARGV[2])
  return {redis.call('INCR', KEYS[1]), 1}
end
`)

// moveScript replaces one tagged actor with another inside a post's
// membership set, used when an anonymous session authenticates. If the
// destination actor already liked the post the memberships merge and the
// counter drops by one.
//
// KEYS[1] = count key, KEYS[2] = post membership set.
// ARGV[1] = from member, ARGV[2] = to member.
// Returns {count, 0} no-op, {count, 1} moved, {count, 2} merged.
var moveScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 0 then
  local c = tonumber(redis.call('GET', KEYS[1]) or '0')
  return {c, 0}
end
redis.call('SREM', KEYS[2], ARGV[1])
if redis.call('SISMEMBER', KEYS[2], ARGV[2]) == 1 then
  local c = redis.call('DECR', KEYS[1])
  if c < 0 then
    redis.call('SET', KEYS[1], 0)
    c = 0
  end
  return {c, 2}
end
redis.call('SADD', KEYS[2], ARGV[2])
local c = tonumber(redis.call('GET', KEYS[1]) or '0')
return {c, 1}
`)

// NewRedisClient creates and pings a Redis client with connection pooling.
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc

	logger.Log.Info("Redis client connected",
		zap.String("address", addr),
	)

	return rc, nil
}

// GetRedisClient returns the global Redis client instance
func GetRedisClient() *RedisClient {
	return globalRedis
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// ============================================================================
// LIKE ENGINE PRIMITIVES
// ============================================================================

// ToggleMember atomically flips membership of member in membersKey (and the
// matching entry for item in actorKey) and adjusts countKey, floored at zero.
// Returns the resulting count and whether the member is now present.
func (rc *RedisClient) ToggleMember(ctx context.Context, countKey, membersKey, actorKey, member, item string) (int64, bool, error) {
	res, err := toggleScript.Run(ctx, rc.client, []string{countKey, membersKey, actorKey}, member, item).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("toggle script returned %d values, want 2", len(res))
	}
	return res[0], res[1] == 1, nil
}

// MoveMember atomically swaps one member for another in a post's membership
// set, merging (and decrementing the counter) when the destination is
// already present.
func (rc *RedisClient) MoveMember(ctx context.Context, countKey, membersKey, fromMember, toMember string) (int64, bool, bool, error) {
	res, err := moveScript.Run(ctx, rc.client, []string{countKey, membersKey}, fromMember, toMember).Int64Slice()
	if err != nil {
		return 0, false, false, err
	}
	if len(res) != 2 {
		return 0, false, false, fmt.Errorf("move script returned %d values, want 2", len(res))
	}
	return res[0], res[1] != 0, res[1] == 2, nil
}

// GetCounts fetches many counters in a single MGET round trip. The result
// slice is positional; a nil entry means the counter does not exist.
func (rc *RedisClient) GetCounts(ctx context.Context, keys []string) ([]*int64, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := rc.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	counts := make([]*int64, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s holds non-integer value %q", keys[i], s)
		}
		counts[i] = &n
	}
	return counts, nil
}

// SetCount overwrites a counter with an absolute value.
func (rc *RedisClient) SetCount(ctx context.Context, key string, value int64) error {
	return rc.client.Set(ctx, key, value, 0).Err()
}

// IsMember reports membership of a single member in a set.
func (rc *RedisClient) IsMember(ctx context.Context, key, member string) (bool, error) {
	return rc.client.SIsMember(ctx, key, member).Result()
}

// AreMembers checks many members against one set in a single SMISMEMBER
// round trip. The result is positional.
func (rc *RedisClient) AreMembers(ctx context.Context, key string, members []string) ([]bool, error) {
	if len(members) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return rc.client.SMIsMember(ctx, key, args...).Result()
}

// Members returns all members of a set.
func (rc *RedisClient) Members(ctx context.Context, key string) ([]string, error) {
	return rc.client.SMembers(ctx, key).Result()
}

// AddMember adds a member to a set.
func (rc *RedisClient) AddMember(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return rc.client.SAdd(ctx, key, args...).Err()
}

// RemoveMember removes a member from a set.
func (rc *RedisClient) RemoveMember(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return rc.client.SRem(ctx, key, args...).Err()
}

// ReplaceSet deletes a set and repopulates it in one pipeline. Used by
// cold-start seeding; last writer wins.
func (rc *RedisClient) ReplaceSet(ctx context.Context, key string, members []string) error {
	_, err := rc.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) > 0 {
			args := make([]interface{}, len(members))
			for i, m := range members {
				args[i] = m
			}
			pipe.SAdd(ctx, key, args...)
		}
		return nil
	})
	return err
}

// Publish sends a message on a pub/sub channel. Best-effort realtime fanout.
func (rc *RedisClient) Publish(ctx context.Context, channel string, payload interface{}) error {
	return rc.client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a subscription on the given channels.
func (rc *RedisClient) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return rc.client.Subscribe(ctx, channels...)
}

// ============================================================================
// GENERIC HELPERS (rate limiter, health)
// ============================================================================

// Get retrieves a value from Redis
func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return rc.client.Get(ctx, key).Result()
}

// GetInt retrieves an integer value from Redis
func (rc *RedisClient) GetInt(ctx context.Context, key string) (int64, error) {
	return rc.client.Get(ctx, key).Int64()
}

// IncrBy increments a key by a value
func (rc *RedisClient) IncrBy(ctx context.Context, key string, increment int64) (int64, error) {
	return rc.client.IncrBy(ctx, key, increment).Result()
}

// Del deletes one or more keys from Redis
func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// Expire sets an expiration timeout on a key
func (rc *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return rc.client.Expire(ctx, key, ttl).Err()
}

// IsNil reports whether err is the go-redis "key does not exist" sentinel.
func IsNil(err error) bool {
	return err == redis.Nil
}
