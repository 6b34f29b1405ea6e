package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAllowWithinBurst(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rl := NewRedisRateLimiter(rdb, testLogger(), "test:rl", 1, 3)
	ctx := context.Background()

	// 桶初始满，burst 次内全部放行
	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d within burst must be allowed", i)
		}
	}

	ok, err := rl.Allow(ctx)
	if err != nil {
		t.Fatalf("allow after burst: %v", err)
	}
	if ok {
		t.Fatal("request beyond burst must be rejected")
	}
}

func TestAcquireTimeout(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rl := NewRedisRateLimiter(rdb, testLogger(), "test:rl2", 0.1, 1)
	ctx := context.Background()

	if err := rl.Acquire(ctx); err != nil {
		t.Fatalf("first acquire must succeed: %v", err)
	}

	// 桶空且补充极慢，带超时的 Acquire 必须返回 ErrRateLimitTimeout
	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = rl.Acquire(timeoutCtx)
	if !errors.Is(err, ErrRateLimitTimeout) {
		t.Fatalf("expected ErrRateLimitTimeout, got %v", err)
	}
}

func TestDisabledLimiter(t *testing.T) {
	rl := NewRedisRateLimiter(nil, testLogger(), "", 0, 0)
	if err := rl.Acquire(context.Background()); err != nil {
		t.Fatalf("disabled limiter must always allow: %v", err)
	}
	ok, err := rl.Allow(context.Background())
	if err != nil || !ok {
		t.Fatalf("disabled limiter Allow: ok=%v err=%v", ok, err)
	}
}
