package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/breadcrumb"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/pricing"
	"github.com/arminrahbar/price-tracker-webapp/internal/store"

	"github.com/gin-gonic/gin"
)

type createCollectionRequest struct {
	Name string `json:"name" binding:"required"`
}

type collectionResponse struct {
	Name  string           `json:"name"`
	Items []productSummary `json:"items"`
}

// addFavoriteRequest 把一件商品同时加入多个收藏集。
type addFavoriteRequest struct {
	ProductID   int      `json:"product_id" binding:"required"`
	Collections []string `json:"collections" binding:"required"`
}

func (s *Server) collectionView(st *store.Store, view store.CollectionView) collectionResponse {
	items := make([]productSummary, 0, len(view.Items))
	for _, p := range view.Items {
		items = append(items, productSummary{
			ID:       p.ID,
			Name:     p.Name,
			Image:    p.Image,
			Price:    pricing.LowestCurrentMonthPrice(p.Sites),
			Favorite: st.IsFavorite(p.ID),
		})
	}
	return collectionResponse{Name: view.Name, Items: items}
}

// handleListCollections 按展示顺序返回所有收藏集（"All Items" 固定第一）。
func (s *Server) handleListCollections(c *gin.Context) {
	st := s.sessionStore(c)

	views := st.Collections()
	out := make([]collectionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, s.collectionView(st, v))
	}
	c.JSON(http.StatusOK, gin.H{"collections": out})
}

// handleCreateCollection 新建收藏集，重名（含保留名）返回 409。
func (s *Server) handleCreateCollection(c *gin.Context) {
	var req createCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	st := s.sessionStore(c)
	if err := st.CreateCollection(req.Name); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			c.JSON(http.StatusConflict, gin.H{"error": "collection name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create collection failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

func (s *Server) handleGetCollection(c *gin.Context) {
	st := s.sessionStore(c)

	view, ok := st.Collection(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	c.JSON(http.StatusOK, s.collectionView(st, view))
}

type addItemRequest struct {
	ProductID int `json:"product_id" binding:"required"`
}

// handleAddToCollection 把商品加入单个收藏集（幂等）。
//
// 目标为 "All Items" 时是无操作：它的成员关系是派生的。
func (s *Server) handleAddToCollection(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}

	p := s.catalog.Product(req.ProductID)
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	st := s.sessionStore(c)
	if err := st.AddToCollection(c.Param("name"), p); err != nil {
		if errors.Is(err, store.ErrNoCollection) {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": st.Favorites()})
}

// handleRemoveFromCollection 从收藏集移除商品。
//
// 从 "All Items" 移除会级联清掉所有收藏集里的该商品。
// 实际发生移除时返回的 undo 字段描述刚武装的撤销记录；
// 商品本来就不在时 removed 为 false，不算错误。
func (s *Server) handleRemoveFromCollection(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	st := s.sessionStore(c)
	removed, err := st.RemoveFromCollection(c.Param("name"), id)
	if err != nil {
		if errors.Is(err, store.ErrNoCollection) {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove failed"})
		return
	}

	resp := gin.H{"removed": removed}
	if info, ok := st.PendingUndo(); ok && removed {
		resp["undo"] = info
	}
	c.JSON(http.StatusOK, resp)
}

// handleListFavorites 返回收藏索引（升序 ID 列表）。
func (s *Server) handleListFavorites(c *gin.Context) {
	st := s.sessionStore(c)
	c.JSON(http.StatusOK, gin.H{"favorites": st.Favorites()})
}

// handleAddFavorite 把商品加入一个或多个收藏集（幂等）。
//
// 目标收藏集必须全部存在，否则整个请求拒绝，不做部分写入。
func (s *Server) handleAddFavorite(c *gin.Context) {
	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Collections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id and collections are required"})
		return
	}

	p := s.catalog.Product(req.ProductID)
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	st := s.sessionStore(c)

	// 先全部校验再写入，避免一半成功一半 404
	for _, name := range req.Collections {
		if name == store.AllItemsName {
			continue
		}
		if _, ok := st.Collection(name); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found: " + name})
			return
		}
	}
	for _, name := range req.Collections {
		if err := st.AddToCollection(name, p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "add failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"favorites": st.Favorites()})
}

// handleRemoveFavorite 把商品从所有收藏集中移除（等价于从 "All Items" 删除）。
func (s *Server) handleRemoveFavorite(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	st := s.sessionStore(c)
	removed := st.RemoveFromAll(id)

	resp := gin.H{"removed": removed}
	if info, ok := st.PendingUndo(); ok && removed {
		resp["undo"] = info
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetUndo 返回未消费的撤销记录；槽位为空返回 404。
func (s *Server) handleGetUndo(c *gin.Context) {
	st := s.sessionStore(c)
	info, ok := st.PendingUndo()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "nothing to undo"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// handleUndo 消费撤销槽位，把商品恢复到被删除时所属的收藏集。
//
// 槽位为空（超时或已消费）时 restored 为 false，不算错误：
// 前端的撤销按钮和服务端定时器之间存在竞争，输掉不应该是 5xx。
func (s *Server) handleUndo(c *gin.Context) {
	st := s.sessionStore(c)
	c.JSON(http.StatusOK, gin.H{"restored": st.Undo()})
}

type breadcrumbRequest struct {
	Trail []breadcrumb.Entry `json:"trail" binding:"required"`
}

type breadcrumbAppendRequest struct {
	Name string `json:"name" binding:"required"`
	Path string `json:"path" binding:"required"`
}

func (s *Server) handleGetBreadcrumbs(c *gin.Context) {
	st := s.sessionStore(c)
	c.JSON(http.StatusOK, gin.H{"breadcrumbs": st.Trail()})
}

// handleReplaceBreadcrumbs 页面进入时整体替换面包屑轨迹。
func (s *Server) handleReplaceBreadcrumbs(c *gin.Context) {
	var req breadcrumbRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trail is required"})
		return
	}

	st := s.sessionStore(c)
	st.ReplaceTrail(req.Trail)
	c.JSON(http.StatusOK, gin.H{"breadcrumbs": st.Trail()})
}

// handleAppendBreadcrumbs 页面内下钻时在轨迹末尾追加一级。
func (s *Server) handleAppendBreadcrumbs(c *gin.Context) {
	var req breadcrumbAppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and path are required"})
		return
	}

	st := s.sessionStore(c)
	st.AppendTrail(breadcrumb.Entry{Name: req.Name, Path: req.Path})
	c.JSON(http.StatusOK, gin.H{"breadcrumbs": st.Trail()})
}
