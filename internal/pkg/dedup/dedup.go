package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "stingy:dedup:contact:"

// Deduplicator 基于 Redis SetNX 的提交去重器。
//
// 同一封联系消息（发件人 + 内容）在时间窗口内只接受一次，
// 防止表单重复点击造成重复邮件。
type Deduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Deduplicator{
		rdb: rdb,
		ttl: ttl,
	}
}

// IsDuplicate 检查并占位：首次出现返回 false 并写入窗口标记。
func (d *Deduplicator) IsDuplicate(ctx context.Context, email, message string) (bool, error) {
	if d == nil || d.rdb == nil {
		return false, nil
	}
	fingerprint := fingerprintOf(email, message)
	if fingerprint == "" {
		return false, nil
	}
	key := keyPrefix + fingerprint
	ok, err := d.rdb.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !ok, nil
}

// Delete 清除占位标记，投递失败后回滚用，让窗口内的重试能够通过。
func (d *Deduplicator) Delete(ctx context.Context, email, message string) error {
	if d == nil || d.rdb == nil {
		return nil
	}
	fingerprint := fingerprintOf(email, message)
	if fingerprint == "" {
		return nil
	}
	if err := d.rdb.Del(ctx, keyPrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("dedup del: %w", err)
	}
	return nil
}

func fingerprintOf(email, message string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	message = strings.TrimSpace(message)
	if email == "" && message == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email + "\x00" + message))
	return hex.EncodeToString(sum[:])
}
