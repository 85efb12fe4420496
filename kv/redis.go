package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// getAndDeleteLua removes KEYS[1] and returns its previous value in one server-side step.
var getAndDeleteLua = redis.NewScript(`
local value = redis.call("GET", KEYS[1])
if value then
  redis.call("DEL", KEYS[1])
end
return value
`)

// Redis implements Store on a go-redis UniversalClient.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis wraps client. A non-empty prefix is prepended to every key as "prefix:".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		redis:  client,
		prefix: prefix,
	}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get maps redis.Nil to ErrNotFound and other failures to ErrUnavailable.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.redis.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return data, nil
}

// Set writes value, expiring it after ttl when ttl > 0.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.redis.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetAndDelete runs a Lua script so that concurrent consumers of the same key
// cannot both observe the value.
func (r *Redis) GetAndDelete(ctx context.Context, key string) ([]byte, error) {
	res, err := getAndDeleteLua.Run(ctx, r.redis, []string{r.key(key)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	switch v := res.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unexpected script reply %T", ErrUnavailable, res)
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
