package keylock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed holder blocks others. A live holder
// keeps extending it every TTL/3 until it unlocks.
const (
	DefaultTTL      = 10 * time.Second
	DefaultInterval = 25 * time.Millisecond
	defaultPrefix   = "phishshift:lock:"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewScript extends the key only while it still holds our token.
var renewScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker shared by every process talking to the same Redis.
type Redis struct {
	rdb      goredis.UniversalClient
	prefix   string
	ttl      time.Duration
	interval time.Duration
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets how long a lock survives without release.
func WithTTL(d time.Duration) RedisOption { return func(r *Redis) { r.ttl = d } }

// WithInterval sets the polling interval while waiting for a held lock.
func WithInterval(d time.Duration) RedisOption { return func(r *Redis) { r.interval = d } }

// WithPrefix sets the key prefix.
func WithPrefix(p string) RedisOption { return func(r *Redis) { r.prefix = p } }

// NewRedis wraps an existing client.
func NewRedis(rdb goredis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{rdb: rdb, prefix: defaultPrefix, ttl: DefaultTTL, interval: DefaultInterval}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	k := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, r.ttl/3, func(ctx context.Context) (bool, error) {
			n, err := renewScript.Run(ctx, r.rdb, []string{k}, token, r.ttl.Milliseconds()).Int()
			return n == 1, err
		})
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// ctx may already be cancelled here. A failed release expires
			// with the TTL.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, r.rdb, []string{k}, token).Err()
		})
	}, nil
}

// keepAlive calls refresh every interval until stop is closed or refresh
// reports the lock is no longer ours. Refresh errors are retried on the
// next tick.
func keepAlive(stop <-chan struct{}, every time.Duration, refresh func(context.Context) (bool, error)) {
	every = max(every, time.Millisecond)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		held, err := refresh(ctx)
		cancel()
		if err == nil && !held {
			return
		}
	}
}
