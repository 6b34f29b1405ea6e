package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestIsDuplicate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduplicator(rdb, time.Minute)
	ctx := context.Background()

	dup, err := d.IsDuplicate(ctx, "a@b.com", "hello")
	if err != nil || dup {
		t.Fatalf("first submission must pass: dup=%v err=%v", dup, err)
	}

	dup, err = d.IsDuplicate(ctx, "a@b.com", "hello")
	if err != nil || !dup {
		t.Fatalf("second submission must be flagged: dup=%v err=%v", dup, err)
	}

	// 大小写和空白不影响指纹
	dup, _ = d.IsDuplicate(ctx, " A@B.COM ", "hello")
	if !dup {
		t.Fatal("normalized email must hit the same fingerprint")
	}

	// 不同内容是新提交
	dup, _ = d.IsDuplicate(ctx, "a@b.com", "other message")
	if dup {
		t.Fatal("different message must not be flagged")
	}
}

func TestWindowExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduplicator(rdb, time.Minute)
	ctx := context.Background()

	if dup, _ := d.IsDuplicate(ctx, "a@b.com", "hi"); dup {
		t.Fatal("first must pass")
	}
	mr.FastForward(2 * time.Minute)
	if dup, _ := d.IsDuplicate(ctx, "a@b.com", "hi"); dup {
		t.Fatal("submission after window must pass again")
	}
}

func TestDelete(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduplicator(rdb, time.Minute)
	ctx := context.Background()

	d.IsDuplicate(ctx, "a@b.com", "hi")
	if err := d.Delete(ctx, "a@b.com", "hi"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if dup, _ := d.IsDuplicate(ctx, "a@b.com", "hi"); dup {
		t.Fatal("deleted fingerprint must pass again")
	}
}
