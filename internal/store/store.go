package store

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/breadcrumb"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/metrics"
)

const (
	// AllItemsName 虚拟收藏集：所有真实收藏集的并集。
	AllItemsName = "All Items"
	// CreateCollectionName 前端的"新建收藏集"占位项，排序时固定在第二位。
	// 引擎不会把它物化成真实收藏集，这里只保留名字用于排序和保留字校验。
	CreateCollectionName = "Create Collection"
)

var (
	// ErrDuplicateName 收藏集名称已存在（区分大小写）。
	ErrDuplicateName = errors.New("collection name already exists")
	// ErrNoCollection 收藏集不存在。删除场景下调用方可以按无操作处理。
	ErrNoCollection = errors.New("collection not found")
)

// Mirror 收藏 ID 集合的持久化镜像。
//
// Write 必须是非阻塞、best-effort 的：失败不会回滚内存状态，
// 内存状态才是会话内的唯一事实来源。
type Mirror interface {
	Write(ids []int)
}

// noopMirror 在没有配置持久化镜像时使用。
type noopMirror struct{}

func (noopMirror) Write([]int) {}

// collection 一个真实（用户创建的）收藏集，items 保持插入顺序。
type collection struct {
	name  string
	items []*model.Product
}

func (c *collection) contains(productID int) bool {
	for _, p := range c.items {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// CollectionView 收藏集的只读快照。
type CollectionView struct {
	Name  string
	Items []*model.Product
}

// Store 会话级状态容器：收藏集、收藏索引、撤销槽位和面包屑。
//
// "All Items" 不作为真实数据维护，而是在读取时由真实收藏集的并集计算得出，
// 因此"商品属于 All Items 当且仅当它属于至少一个真实收藏集"这一不变量
// 无需在每次变更时手工维护。收藏索引（favorites）与之保持同步，
// 每次变更后把完整 ID 集合写入持久化镜像。
//
// 所有外部读取拿到的都是快照副本，外部不能直接改写内部状态。
type Store struct {
	mu     sync.Mutex
	logger *slog.Logger
	mirror Mirror

	collections []*collection // 创建顺序
	favorites   map[int]bool
	trail       *breadcrumb.Trail

	undo      *undoRecord
	undoGen   uint64
	undoDelay time.Duration
}

// Option Store 的可选配置。
type Option func(*Store)

// WithMirror 设置收藏集合的持久化镜像。
func WithMirror(m Mirror) Option {
	return func(s *Store) {
		if m != nil {
			s.mirror = m
		}
	}
}

// WithUndoDelay 设置撤销记录的过期时间（默认 5 秒）。
func WithUndoDelay(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.undoDelay = d
		}
	}
}

// New 创建一个空的会话状态容器。
func New(logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger:    logger,
		mirror:    noopMirror{},
		favorites: make(map[int]bool),
		trail:     breadcrumb.NewTrail(),
		undoDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCollection 新建一个空收藏集。
//
// 名称已存在（包括保留名 "All Items" / "Create Collection"）时
// 返回 ErrDuplicateName，收藏集列表保持不变。
func (s *Store) CreateCollection(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == AllItemsName || name == CreateCollectionName {
		return ErrDuplicateName
	}
	for _, c := range s.collections {
		if c.name == name {
			return ErrDuplicateName
		}
	}

	s.collections = append(s.collections, &collection{name: name})
	metrics.CollectionMutationsTotal.WithLabelValues("create").Inc()
	s.logger.Info("collection created", slog.String("name", name))
	return nil
}

// AddToCollection 把商品加入指定收藏集（幂等）。
//
// 商品已在该收藏集中时不做任何事。加入后商品自动出现在 "All Items"
// 视图中，收藏索引同步更新并写入镜像。
// 目标为 "All Items" 本身时直接返回 nil：它的成员关系是派生的。
func (s *Store) AddToCollection(name string, product *model.Product) error {
	if product == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if name == AllItemsName {
		return nil
	}

	c := s.findCollection(name)
	if c == nil {
		return ErrNoCollection
	}
	if c.contains(product.ID) {
		return nil
	}

	c.items = append(c.items, product)
	s.syncFavoriteLocked(product.ID, true)
	metrics.CollectionMutationsTotal.WithLabelValues("add").Inc()
	s.logger.Info("product added to collection",
		slog.String("collection", name),
		slog.Int("product_id", product.ID))
	return nil
}

// RemoveFromCollection 把商品从指定收藏集移除。
//
// 两条特殊规则：
//   - name 为 "All Items" 时级联移除：商品从**每个**收藏集中消失，
//     同时移出收藏索引（一次逻辑操作）。
//   - 普通收藏集移除后，如果商品不再属于任何收藏集，
//     它同时从 "All Items" 视图和收藏索引中消失。
//
// 商品本来就不在时是无操作（返回 false, nil），不算错误。
// 每次实际发生的移除都会武装撤销槽位（覆盖之前未消费的记录）。
func (s *Store) RemoveFromCollection(name string, productID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == AllItemsName {
		return s.removeEverywhereLocked(productID), nil
	}

	c := s.findCollection(name)
	if c == nil {
		return false, ErrNoCollection
	}

	product := s.removeFromLocked(c, productID)
	if product == nil {
		return false, nil
	}

	if !s.memberAnywhereLocked(productID) {
		s.syncFavoriteLocked(productID, false)
	}

	s.armUndoLocked(product, []string{name})
	metrics.CollectionMutationsTotal.WithLabelValues("remove").Inc()
	s.logger.Info("product removed from collection",
		slog.String("collection", name),
		slog.Int("product_id", productID))
	return true, nil
}

// RemoveFromAll 把商品从所有收藏集中移除（等价于从 "All Items" 移除）。
func (s *Store) RemoveFromAll(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeEverywhereLocked(productID)
}

// removeEverywhereLocked "All Items" 的级联移除。调用方必须持有锁。
func (s *Store) removeEverywhereLocked(productID int) bool {
	var product *model.Product
	var fromNames []string

	for _, c := range s.collections {
		if p := s.removeFromLocked(c, productID); p != nil {
			product = p
			fromNames = append(fromNames, c.name)
		}
	}
	if product == nil {
		// 镜像读回的收藏没有收藏集成员关系，这种 ID 也必须能清掉，
		// 否则它会永远卡在收藏索引和镜像里。没有商品快照可恢复，不武装撤销。
		if s.favorites[productID] {
			s.syncFavoriteLocked(productID, false)
			metrics.CollectionMutationsTotal.WithLabelValues("remove_all").Inc()
			s.logger.Info("favorite cleared without collection membership",
				slog.Int("product_id", productID))
			return true
		}
		return false
	}

	s.syncFavoriteLocked(productID, false)
	s.armUndoLocked(product, fromNames)
	metrics.CollectionMutationsTotal.WithLabelValues("remove_all").Inc()
	s.logger.Info("product removed from all collections",
		slog.Int("product_id", productID),
		slog.Int("collections", len(fromNames)))
	return true
}

// removeFromLocked 从单个收藏集移除，返回被移除的商品（不在则为 nil）。
func (s *Store) removeFromLocked(c *collection, productID int) *model.Product {
	for i, p := range c.items {
		if p.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return p
		}
	}
	return nil
}

// memberAnywhereLocked 商品是否还属于任何真实收藏集。
func (s *Store) memberAnywhereLocked(productID int) bool {
	for _, c := range s.collections {
		if c.contains(productID) {
			return true
		}
	}
	return false
}

// syncFavoriteLocked 同步收藏索引并把完整集合写入镜像。
//
// 镜像写入与内存变更在同一次加锁内完成，保证持久化的快照
// 不会观察到中间不一致状态；写入本身异步 best-effort。
func (s *Store) syncFavoriteLocked(productID int, present bool) {
	if present {
		s.favorites[productID] = true
	} else {
		delete(s.favorites, productID)
	}
	s.mirror.Write(s.favoriteIDsLocked())
}

func (s *Store) favoriteIDsLocked() []int {
	ids := make([]int, 0, len(s.favorites))
	for id := range s.favorites {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Favorites 返回收藏索引的快照（升序 ID 列表）。
func (s *Store) Favorites() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favoriteIDsLocked()
}

// IsFavorite 商品是否在收藏索引中。
func (s *Store) IsFavorite(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites[productID]
}

// SeedFavorites 用镜像读回的 ID 集合初始化收藏索引（会话恢复时用）。
//
// 只在容器刚创建、尚无任何收藏集变更时调用；不触发镜像写入。
func (s *Store) SeedFavorites(ids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.favorites[id] = true
	}
}

// Collections 按展示顺序枚举所有收藏集。
//
// 顺序契约："All Items" 固定第一（即使为空也存在），
// 其余按名称字典序。"Create Collection" 占位项不由引擎物化。
func (s *Store) Collections() []CollectionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]CollectionView, 0, len(s.collections)+1)
	views = append(views, CollectionView{
		Name:  AllItemsName,
		Items: s.allItemsLocked(),
	})

	sorted := make([]*collection, len(s.collections))
	copy(sorted, s.collections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessCollectionName(sorted[i].name, sorted[j].name)
	})
	for _, c := range sorted {
		views = append(views, CollectionView{Name: c.name, Items: copyItems(c.items)})
	}
	return views
}

// Collection 按名称取单个收藏集的快照；"All Items" 返回计算出的并集。
func (s *Store) Collection(name string) (CollectionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == AllItemsName {
		return CollectionView{Name: AllItemsName, Items: s.allItemsLocked()}, true
	}
	c := s.findCollection(name)
	if c == nil {
		return CollectionView{}, false
	}
	return CollectionView{Name: c.name, Items: copyItems(c.items)}, true
}

// allItemsLocked 计算 "All Items" 视图：按收藏集创建顺序取并集，
// 商品首次出现的位置决定顺序。
func (s *Store) allItemsLocked() []*model.Product {
	seen := make(map[int]bool)
	var union []*model.Product
	for _, c := range s.collections {
		for _, p := range c.items {
			if !seen[p.ID] {
				seen[p.ID] = true
				union = append(union, p)
			}
		}
	}
	return union
}

func (s *Store) findCollection(name string) *collection {
	for _, c := range s.collections {
		if c.name == name {
			return c
		}
	}
	return nil
}

func copyItems(items []*model.Product) []*model.Product {
	out := make([]*model.Product, len(items))
	copy(out, items)
	return out
}

// lessCollectionName 展示排序比较器，与前端一致：
// "All Items" 最前，"Create Collection" 其次，其余按名称字典序。
func lessCollectionName(a, b string) bool {
	if a == AllItemsName {
		return true
	}
	if b == AllItemsName {
		return false
	}
	if a == CreateCollectionName {
		return true
	}
	if b == CreateCollectionName {
		return false
	}
	return a < b
}

// ReplaceTrail 页面进入时整体替换面包屑。
func (s *Store) ReplaceTrail(entries []breadcrumb.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trail.Replace(entries)
}

// AppendTrail 页面内下钻时在面包屑末尾追加一级。
func (s *Store) AppendTrail(entry breadcrumb.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trail.Append(entry)
}

// Trail 返回面包屑轨迹的快照。
func (s *Store) Trail() []breadcrumb.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trail.Entries()
}

// Close 释放容器持有的定时器资源。会话被清理时调用。
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropUndoLocked()
}
