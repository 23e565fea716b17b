package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

type RedisOptions struct {
	Prefix     string
	TTL        time.Duration
	RetryDelay time.Duration
	MaxWait    time.Duration
}

// RedisLocker holds keys with SET NX PX so several API instances share one lock space.
type RedisLocker struct {
	client   redis.Cmdable
	opts     RedisOptions
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable, opts RedisOptions) *RedisLocker {
	if opts.Prefix == "" {
		opts.Prefix = "payroll:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	return &RedisLocker{
		client:   client,
		opts:     opts,
		newToken: func() string { return uuid.NewString() },
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := l.opts.Prefix + key
	token := l.newToken()
	deadline := time.Now().Add(l.opts.MaxWait)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		}

		timer := time.NewTimer(l.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-timer.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Release must survive a cancelled request context.
		if err := l.client.Eval(context.WithoutCancel(ctx), releaseScript, []string{fullKey}, token).Err(); err != nil {
			slog.Warn("Failed to release lock", "key", fullKey, "error", err)
		}
	}, nil
}
