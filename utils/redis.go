package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/redis/go-redis/v9"
)

const connectAttempts = 5

// InitRedis parses url and pings the server, backing off between attempts.
func InitRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	err = Retry(ctx, "redis", func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	Log.Info("Redis connection established", "addr", opt.Addr)
	return client, nil
}

// Retry runs fn until it succeeds or connectAttempts is reached. It is meant
// for process startup only; request paths never retry.
func Retry(ctx context.Context, what string, fn func() error) error {
	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}

		wait := b.Duration()
		Log.Warn("Connect attempt failed", "target", what, "attempt", attempt, "wait", wait, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
