package favmirror

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteAndRead(t *testing.T) {
	// 1. 启动 Mock Redis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(testLogger(), 1, 16)
	q.Start(context.Background())

	m := NewRedisMirror(rdb, testLogger(), q, "sess-1", time.Minute)

	// 2. 连续写入：最后一次写入的内容必须胜出
	m.Write([]int{1, 2, 3})
	m.Write([]int{1, 3})
	q.Shutdown() // 排空队列

	ids, err := m.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("expected [1 3], got %v", ids)
	}
}

func TestReadMissingKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(testLogger(), 1, 4)
	m := NewRedisMirror(rdb, testLogger(), q, "nobody", time.Minute)

	ids, err := m.Read(context.Background())
	if err != nil {
		t.Fatalf("missing key must not be an error, got %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty set, got %v", ids)
	}
}

func TestWriteSurvivesRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(testLogger(), 1, 4)
	q.Start(context.Background())
	m := NewRedisMirror(rdb, testLogger(), q, "sess-2", time.Minute)

	// Redis 挂掉：Write 不允许阻塞或 panic，失败只计数
	mr.Close()
	m.Write([]int{7})
	q.Shutdown()

	if got := q.GetStats().TotalFailed; got != 1 {
		t.Fatalf("expected 1 failed job, got %d", got)
	}
}

func TestDelete(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.New(testLogger(), 1, 4)
	q.Start(context.Background())
	m := NewRedisMirror(rdb, testLogger(), q, "sess-3", time.Minute)

	m.Write([]int{1})
	q.Shutdown()

	if err := m.Delete(context.Background()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ids, err := m.Read(context.Background())
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty after delete, got ids=%v err=%v", ids, err)
	}
}
