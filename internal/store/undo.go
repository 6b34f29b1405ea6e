package store

import (
	"log/slog"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/metrics"
)

// undoRecord 单槽位撤销记录：最近一次删除的商品快照和来源收藏集。
//
// 槽位只有 Empty / Pending 两个状态。新的删除会直接覆盖未消费的记录
// 并重置定时器（last-write-wins，不排队），被覆盖的记录永久不可恢复。
type undoRecord struct {
	product     *model.Product
	collections []string
	createdAt   time.Time
	gen         uint64
	timer       *time.Timer
}

// UndoInfo 撤销槽位的只读视图（渲染"撤销"按钮用）。
type UndoInfo struct {
	ProductID   int       `json:"product_id"`
	ProductName string    `json:"product_name"`
	Collections []string  `json:"collections"`
	CreatedAt   time.Time `json:"created_at"`
}

// armUndoLocked 武装撤销槽位。调用方必须持有锁。
//
// 先取消上一条记录的定时器再覆盖，generation 计数保证已触发但
// 还没抢到锁的旧定时器回调变成无操作，绝不会二次回滚。
func (s *Store) armUndoLocked(product *model.Product, collections []string) {
	if s.undo != nil {
		s.undo.timer.Stop()
		metrics.UndoOverwrittenTotal.Inc()
		s.logger.Info("pending undo overwritten",
			slog.Int("old_product_id", s.undo.product.ID),
			slog.Int("new_product_id", product.ID))
	}

	s.undoGen++
	gen := s.undoGen
	rec := &undoRecord{
		product:     product,
		collections: collections,
		createdAt:   time.Now(),
		gen:         gen,
	}
	rec.timer = time.AfterFunc(s.undoDelay, func() {
		s.expireUndo(gen)
	})
	s.undo = rec
}

// expireUndo 定时器回调：丢弃超时未消费的记录。
//
// 记录已被消费或覆盖（generation 不匹配）时什么都不做——
// 超时之后删除即成定局，不发生任何状态变更。
func (s *Store) expireUndo(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil || s.undo.gen != gen {
		return
	}
	metrics.UndoExpiredTotal.Inc()
	s.logger.Info("undo record expired",
		slog.Int("product_id", s.undo.product.ID))
	s.undo = nil
}

// Undo 消费撤销槽位：把商品恢复到被删除时所属的收藏集。
//
// 恢复是幂等插入（商品已在的收藏集跳过），收藏索引同步恢复并写入镜像。
// 槽位为空（从未删除、已超时或已被消费）时返回 false，不是错误。
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil {
		return false
	}
	rec := s.undo
	rec.timer.Stop()
	s.undo = nil

	restored := 0
	for _, name := range rec.collections {
		c := s.findCollection(name)
		if c == nil || c.contains(rec.product.ID) {
			continue
		}
		c.items = append(c.items, rec.product)
		restored++
	}
	s.syncFavoriteLocked(rec.product.ID, true)

	metrics.UndoConsumedTotal.Inc()
	s.logger.Info("undo consumed",
		slog.Int("product_id", rec.product.ID),
		slog.Int("collections_restored", restored))
	return true
}

// PendingUndo 返回当前撤销记录的视图；槽位为空时 ok 为 false。
func (s *Store) PendingUndo() (UndoInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil {
		return UndoInfo{}, false
	}
	names := make([]string, len(s.undo.collections))
	copy(names, s.undo.collections)
	return UndoInfo{
		ProductID:   s.undo.product.ID,
		ProductName: s.undo.product.Name,
		Collections: names,
		CreatedAt:   s.undo.createdAt,
	}, true
}

// dropUndoLocked 丢弃撤销记录并停掉定时器。调用方必须持有锁。
func (s *Store) dropUndoLocked() {
	if s.undo != nil {
		s.undo.timer.Stop()
		s.undo = nil
	}
}
