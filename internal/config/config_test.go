package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.UndoWindow != 5*time.Second {
		t.Fatalf("expected default undo window 5s, got %v", cfg.App.UndoWindow)
	}
	if cfg.App.QueueCapacity != 256 {
		t.Fatalf("expected default queue capacity 256, got %d", cfg.App.QueueCapacity)
	}
}

func TestLoadParsesDurationStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
  "app": {
    "http_addr": ":9000",
    "undo_window": "2s",
    "session_idle_timeout": "10m",
    "dedup_window": "30m"
  }
}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTPAddr != ":9000" {
		t.Fatalf("http_addr not applied: %s", cfg.App.HTTPAddr)
	}
	if cfg.App.UndoWindow != 2*time.Second {
		t.Fatalf("undo_window: %v", cfg.App.UndoWindow)
	}
	if cfg.App.SessionIdleTimeout != 10*time.Minute {
		t.Fatalf("session_idle_timeout: %v", cfg.App.SessionIdleTimeout)
	}
	if cfg.App.DedupWindow != 30*time.Minute {
		t.Fatalf("dedup_window: %v", cfg.App.DedupWindow)
	}
	// 未设置的字段回落到默认值
	if cfg.App.LogLevel != "info" {
		t.Fatalf("log_level default: %s", cfg.App.LogLevel)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_UNDO_WINDOW", "8s")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.UndoWindow != 8*time.Second {
		t.Fatalf("env undo window: %v", cfg.App.UndoWindow)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Fatalf("env redis addr: %s", cfg.Redis.Addr)
	}
}
