package favmirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/metrics"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/queue"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "stingy:favorites:"

// RedisMirror 把会话的收藏 ID 集合镜像到 Redis。
//
// 每次收藏变更后引擎把完整集合（平铺 ID 数组）交给 Write；
// 写入经单 worker 队列异步执行，保证落盘顺序与内存变更顺序一致，
// 失败只记日志和指标，永远不阻塞调用方、不回滚内存状态。
type RedisMirror struct {
	rdb    *redis.Client
	logger *slog.Logger
	queue  *queue.Queue
	key    string
	ttl    time.Duration
}

// NewRedisMirror 创建指定会话的收藏镜像。
//
// q 必须是单 worker 队列（写入顺序依赖它）；ttl 为镜像键的存活时间，
// 通常与会话空闲超时一致。
func NewRedisMirror(rdb *redis.Client, logger *slog.Logger, q *queue.Queue, sessionID string, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisMirror{
		rdb:    rdb,
		logger: logger,
		queue:  q,
		key:    keyPrefix + sessionID,
		ttl:    ttl,
	}
}

// Write 把完整收藏集合序列化后异步写入 Redis（best-effort）。
func (m *RedisMirror) Write(ids []int) {
	if m == nil || m.rdb == nil {
		return
	}

	payload, err := json.Marshal(ids)
	if err != nil {
		// ID 数组不可能序列化失败，留这个分支只是为了不吞错
		metrics.MirrorWriteFailuresTotal.Inc()
		m.logger.Error("marshal favorites failed", slog.String("error", err.Error()))
		return
	}

	ok := m.queue.Enqueue(func(ctx context.Context) error {
		writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := m.rdb.Set(writeCtx, m.key, payload, m.ttl).Err(); err != nil {
			metrics.MirrorWriteFailuresTotal.Inc()
			return fmt.Errorf("mirror set: %w", err)
		}
		return nil
	})
	if !ok {
		metrics.MirrorWriteFailuresTotal.Inc()
		m.logger.Warn("mirror write dropped", slog.String("key", m.key))
	}
	metrics.MirrorQueueDepth.Set(float64(m.queue.Len()))
}

// Read 读回镜像中的收藏集合，用于会话恢复。键不存在时返回空集合。
func (m *RedisMirror) Read(ctx context.Context) ([]int, error) {
	if m == nil || m.rdb == nil {
		return nil, nil
	}

	raw, err := m.rdb.Get(ctx, m.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mirror get: %w", err)
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("mirror decode: %w", err)
	}
	return ids, nil
}

// Delete 删除镜像键。会话被清理时调用。
func (m *RedisMirror) Delete(ctx context.Context) error {
	if m == nil || m.rdb == nil {
		return nil
	}
	if err := m.rdb.Del(ctx, m.key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("mirror del: %w", err)
	}
	return nil
}
