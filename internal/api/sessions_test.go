package api

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/api/middleware"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionManager_ReadbackFromMirror(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(logger, 1, 16)
	q.Start(context.Background())

	// 上一次会话留下的镜像
	mr.Set("stingy:favorites:sess-1", "[3,7]")

	m := NewSessionManager(rdb, logger, q, time.Minute, time.Second)
	st := m.Get(context.Background(), "sess-1")

	ids := st.Favorites()
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Fatalf("expected favorites [3 7] from mirror, got %v", ids)
	}

	// 同一会话第二次拿到同一个容器
	if m.Get(context.Background(), "sess-1") != st {
		t.Fatal("same session must return same store")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Len())
	}
}

func TestSessionManager_SweepEvictsIdle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(logger, 1, 16)
	q.Start(context.Background())

	m := NewSessionManager(rdb, logger, q, 20*time.Millisecond, time.Second)
	m.Get(context.Background(), "sess-idle")
	mr.Set("stingy:favorites:sess-idle", "[1]")

	time.Sleep(50 * time.Millisecond)
	if evicted := m.Sweep(context.Background()); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if m.Len() != 0 {
		t.Fatalf("expected 0 sessions, got %d", m.Len())
	}
	// 镜像键一并清理
	if mr.Exists("stingy:favorites:sess-idle") {
		t.Fatal("mirror key must be deleted on eviction")
	}
}

func TestSessionManager_SweepHonorsActivityMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(logger, 1, 16)
	q.Start(context.Background())

	m := NewSessionManager(rdb, logger, q, 20*time.Millisecond, time.Second)
	m.Get(context.Background(), "sess-busy")

	// 活动标记还活着：内存里的 lastSeen 过期也不能回收
	mr.Set(middleware.SessionActiveKey("sess-busy"), "1")
	time.Sleep(50 * time.Millisecond)
	if evicted := m.Sweep(context.Background()); evicted != 0 {
		t.Fatalf("session with live activity marker must survive, evicted %d", evicted)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Len())
	}

	// 标记过期后才回收
	mr.Del(middleware.SessionActiveKey("sess-busy"))
	time.Sleep(50 * time.Millisecond)
	if evicted := m.Sweep(context.Background()); evicted != 1 {
		t.Fatalf("expected eviction after marker expiry, got %d", evicted)
	}
}

func TestSessionManager_SweepKeepsActive(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := queue.New(logger, 1, 4)

	m := NewSessionManager(nil, logger, q, time.Hour, time.Second)
	m.Get(context.Background(), "sess-live")

	if evicted := m.Sweep(context.Background()); evicted != 0 {
		t.Fatalf("active session must survive sweep, evicted %d", evicted)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Len())
	}
}
