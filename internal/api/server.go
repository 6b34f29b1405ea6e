package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/arminrahbar/price-tracker-webapp/internal/api/middleware"
	"github.com/arminrahbar/price-tracker-webapp/internal/catalog"
	"github.com/arminrahbar/price-tracker-webapp/internal/config"
	"github.com/arminrahbar/price-tracker-webapp/internal/model"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/dedup"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/metrics"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/notify"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/queue"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/ratelimit"
	"github.com/arminrahbar/price-tracker-webapp/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、商品目录、会话管理器以及 Gin 路由引擎。
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *gorm.DB
	rdb      *redis.Client
	router   *gin.Engine
	catalog  *catalog.Catalog
	sessions *SessionManager
	queue    *queue.Queue
	limiter  ContactLimiter
	deduper  Deduper
	notifier notify.Notifier
}

// ContactLimiter 联系表单的限流器。
type ContactLimiter interface {
	Allow(ctx context.Context) (bool, error)
}

// Deduper 联系表单的重复提交检测。
// Delete 用于投递失败后撤掉占位标记，让重试能够通过。
type Deduper interface {
	IsDuplicate(ctx context.Context, email, message string) (bool, error)
	Delete(ctx context.Context, email, message string) error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 加载商品目录（JSON 文件 → MySQL → 内存）
// 4. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Product{}, &model.VendorPrice{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	// 目录：文件 → 数据库 → 内存。文件是权威输入，数据库保留历史。
	products, err := catalog.LoadFile(cfg.App.CatalogPath)
	if err != nil {
		return nil, err
	}
	if err := catalog.Seed(ctx, db, products); err != nil {
		return nil, err
	}
	products, err = catalog.LoadDB(ctx, db)
	if err != nil {
		return nil, err
	}

	// 镜像写入队列：单 worker 保证落盘顺序与内存变更顺序一致
	q := queue.New(logger, 1, cfg.App.QueueCapacity)
	q.Start(ctx)

	sessions := NewSessionManager(rdb, logger, q, cfg.App.SessionIdleTimeout, cfg.App.UndoWindow)

	// 初始化 Prometheus 指标
	metrics.InitMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		rdb:      rdb,
		router:   r,
		catalog:  catalog.New(products),
		sessions: sessions,
		queue:    q,
		limiter:  ratelimit.NewRedisRateLimiter(rdb, logger, "stingy:ratelimit:contact", cfg.App.RateLimit, cfg.App.RateBurst),
		deduper:  dedup.NewDeduplicator(rdb, cfg.App.DedupWindow),
		notifier: notify.NewEmailNotifier(&cfg.Email, logger),
	}
	s.registerRoutes()
	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.sessions.StartSweeper(context.Background(), s.cfg.App.SessionSweepInterval)

	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// StartSweeper 启动会话清理循环。
func (s *Server) StartSweeper(ctx context.Context) {
	s.sessions.StartSweeper(ctx, s.cfg.App.SessionSweepInterval)
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	s.sessions.Close()
	if s.queue != nil {
		s.queue.ShutdownWithTimeout(5 * time.Second)
	}

	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	sess := s.router.Group("/")
	sess.Use(middleware.SessionMiddleware())
	sess.Use(middleware.SessionActivityMiddleware(s.rdb, s.cfg.App.SessionIdleTimeout))

	sess.GET("/products", s.handleListProducts)
	sess.GET("/products/:id", s.handleGetProduct)

	sess.GET("/collections", s.handleListCollections)
	sess.POST("/collections", s.handleCreateCollection)
	sess.GET("/collections/:name", s.handleGetCollection)
	sess.POST("/collections/:name/items", s.handleAddToCollection)
	sess.DELETE("/collections/:name/items/:id", s.handleRemoveFromCollection)

	sess.GET("/favorites", s.handleListFavorites)
	sess.POST("/favorites", s.handleAddFavorite)
	sess.DELETE("/favorites/:id", s.handleRemoveFavorite)

	sess.GET("/undo", s.handleGetUndo)
	sess.POST("/undo", s.handleUndo)

	sess.GET("/breadcrumbs", s.handleGetBreadcrumbs)
	sess.POST("/breadcrumbs/replace", s.handleReplaceBreadcrumbs)
	sess.POST("/breadcrumbs/append", s.handleAppendBreadcrumbs)

	sess.POST("/contact", s.handleContact)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sessionStore 取出当前请求对应的会话状态容器。
func (s *Server) sessionStore(c *gin.Context) *store.Store {
	return s.sessions.Get(c.Request.Context(), middleware.GetSessionID(c))
}
