package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/api/middleware"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/favmirror"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/metrics"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/queue"
	"github.com/arminrahbar/price-tracker-webapp/internal/store"

	"github.com/redis/go-redis/v9"
)

// session 单个会话的状态容器和它的持久化镜像。
type session struct {
	store    *store.Store
	mirror   *favmirror.RedisMirror
	lastSeen time.Time
}

// SessionManager 按会话 ID 管理状态容器。
//
// 会话首次出现时创建容器并从 Redis 镜像读回收藏集合；
// 空闲超时的会话由后台清理循环回收（容器关闭、镜像键删除）。
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session

	rdb         *redis.Client
	logger      *slog.Logger
	queue       *queue.Queue
	idleTimeout time.Duration
	undoWindow  time.Duration
}

// NewSessionManager 创建会话管理器。
//
// q 必须是单 worker 队列，镜像写入顺序依赖它。
func NewSessionManager(rdb *redis.Client, logger *slog.Logger, q *queue.Queue, idleTimeout, undoWindow time.Duration) *SessionManager {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &SessionManager{
		sessions:    make(map[string]*session),
		rdb:         rdb,
		logger:      logger,
		queue:       q,
		idleTimeout: idleTimeout,
		undoWindow:  undoWindow,
	}
}

// Get 返回会话的状态容器，不存在则创建。
//
// 新会话会尝试从镜像读回收藏集合；读回失败只记日志，
// 会话从空状态开始（镜像是 best-effort 的，不是事实来源）。
func (m *SessionManager) Get(ctx context.Context, sessionID string) *store.Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[sessionID]; ok {
		sess.lastSeen = time.Now()
		return sess.store
	}

	mirror := favmirror.NewRedisMirror(m.rdb, m.logger, m.queue, sessionID, m.idleTimeout)
	st := store.New(m.logger,
		store.WithMirror(mirror),
		store.WithUndoDelay(m.undoWindow))

	if ids, err := mirror.Read(ctx); err != nil {
		m.logger.Warn("mirror readback failed, starting empty",
			slog.String("session", sessionID),
			slog.String("error", err.Error()))
	} else if len(ids) > 0 {
		st.SeedFavorites(ids)
	}

	m.sessions[sessionID] = &session{
		store:    st,
		mirror:   mirror,
		lastSeen: time.Now(),
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.logger.Info("session created", slog.String("session", sessionID))
	return st
}

// Sweep 回收空闲超时的会话，返回回收数量。
//
// 空闲判定有两道：内存里的 lastSeen 超时，且 Redis 里的活动标记
// （每个请求由中间件续期）已经过期。标记还活着说明会话刚被别处
// 看到过，保留并刷新 lastSeen。
func (m *SessionManager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.idleTimeout)
	evicted := 0
	for id, sess := range m.sessions {
		if sess.lastSeen.After(cutoff) {
			continue
		}
		if m.rdb != nil {
			n, err := m.rdb.Exists(ctx, middleware.SessionActiveKey(id)).Result()
			if err == nil && n > 0 {
				sess.lastSeen = time.Now()
				continue
			}
		}
		sess.store.Close()
		if err := sess.mirror.Delete(ctx); err != nil {
			m.logger.Warn("delete mirror failed",
				slog.String("session", id),
				slog.String("error", err.Error()))
		}
		delete(m.sessions, id)
		evicted++
	}

	if evicted > 0 {
		m.logger.Info("idle sessions evicted",
			slog.Int("count", evicted),
			slog.Int("remaining", len(m.sessions)))
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return evicted
}

// StartSweeper 启动后台清理循环，ctx 取消时退出。
func (m *SessionManager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("PANIC in session sweeper", slog.Any("panic", r))
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(ctx)
			}
		}
	}()
}

// Len 返回当前活跃会话数。
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close 关闭所有会话容器（进程退出时调用，不删除镜像键）。
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		sess.store.Close()
	}
	m.sessions = make(map[string]*session)
	metrics.ActiveSessions.Set(0)
}
