package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process pointing at the same Redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects and pings Redis.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "taskbot:lock:"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

// Acquire sets key with NX and a TTL.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	full := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, r.client, []string{full}, token).Err()
	}, true, nil
}

// Close closes the client.
func (r *Redis) Close() error { return r.client.Close() }
