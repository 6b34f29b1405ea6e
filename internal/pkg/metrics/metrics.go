package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 指标在包级别构造，InitMetrics 负责注册到默认 Registry。
// 未注册时指标仍然可用（只是不会被抓取），测试里可以放心调用。
var (
	// CollectionMutationsTotal 收藏集变更次数，按操作类型区分。
	CollectionMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stingy_collection_mutations_total",
		Help: "Total collection store mutations by operation.",
	}, []string{"op"})

	// UndoConsumedTotal 撤销被成功消费的次数。
	UndoConsumedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stingy_undo_consumed_total",
		Help: "Total undo records consumed before expiry.",
	})

	// UndoExpiredTotal 撤销记录超时丢弃的次数。
	UndoExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stingy_undo_expired_total",
		Help: "Total undo records discarded by the expiry timer.",
	})

	// UndoOverwrittenTotal 撤销记录被后续删除覆盖的次数。
	UndoOverwrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stingy_undo_overwritten_total",
		Help: "Total pending undo records overwritten by a newer removal.",
	})

	// MirrorWriteFailuresTotal 收藏镜像写入失败次数（best-effort，不回滚内存状态）。
	MirrorWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stingy_favorites_mirror_write_failures_total",
		Help: "Total failed favorites mirror writes to durable storage.",
	})

	// ActiveSessions 当前存活的会话状态容器数量。
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stingy_active_sessions",
		Help: "Number of live session state containers.",
	})

	// ContactDuplicatePreventedTotal 联系表单重复提交被拦截的次数。
	ContactDuplicatePreventedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stingy_contact_duplicate_prevented_total",
		Help: "Total contact submissions skipped by the dedup window.",
	})

	// RateLimitWaitDuration 限流等待耗时分布。
	RateLimitWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stingy_ratelimit_wait_seconds",
		Help:    "Time spent waiting on the rate limiter.",
		Buckets: prometheus.DefBuckets,
	})

	// RateLimitTimeoutTotal 限流等待超时次数。
	RateLimitTimeoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stingy_ratelimit_timeout_total",
		Help: "Total rate limiter waits aborted by context cancellation.",
	})

	// MirrorQueueDepth 镜像写入队列积压深度。
	MirrorQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stingy_favorites_mirror_queue_depth",
		Help: "Pending jobs in the favorites mirror write queue.",
	})
)

var registerOnce sync.Once

// InitMetrics 将所有指标注册到默认 Registry（幂等）。
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CollectionMutationsTotal,
			UndoConsumedTotal,
			UndoExpiredTotal,
			UndoOverwrittenTotal,
			MirrorWriteFailuresTotal,
			ActiveSessions,
			ContactDuplicatePreventedTotal,
			RateLimitWaitDuration,
			RateLimitTimeoutTotal,
			MirrorQueueDepth,
		)
	})
}
