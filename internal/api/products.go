package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"
	"github.com/arminrahbar/price-tracker-webapp/internal/pkg/pricing"

	"github.com/gin-gonic/gin"
)

// productSummary 商品列表项：展示价格取当前月份所有站点的最低价。
type productSummary struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Image    string   `json:"image"`
	Price    *float64 `json:"price"` // 当前月无任何站点报价时为 null
	Favorite bool     `json:"favorite"`
}

type productDetailResponse struct {
	ID          int                       `json:"id"`
	Name        string                    `json:"name"`
	Image       string                    `json:"image"`
	Information string                    `json:"information"`
	Price       *float64                  `json:"price"`
	Favorite    bool                      `json:"favorite"`
	Sites       []model.VendorPriceSeries `json:"sites"`
	Chart       pricing.ChartData         `json:"chart"`
}

// handleListProducts 商品列表，支持名称搜索和价格区间过滤。
//
// 查询参数:
//
//	search: 名称子串（不区分大小写）
//	min_price / max_price: 价格区间；设置任一边界后，
//	当前月没有报价的商品一并过滤掉
func (s *Server) handleListProducts(c *gin.Context) {
	st := s.sessionStore(c)

	query := strings.ToLower(strings.TrimSpace(c.Query("search")))
	minPrice, ok := parsePriceParam(c, "min_price")
	if !ok {
		return
	}
	maxPrice, ok := parsePriceParam(c, "max_price")
	if !ok {
		return
	}

	products := s.catalog.Products()
	out := make([]productSummary, 0, len(products))
	for i := range products {
		p := &products[i]
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		price := pricing.LowestCurrentMonthPrice(p.Sites)
		if minPrice != nil || maxPrice != nil {
			if price == nil {
				continue
			}
			if minPrice != nil && *price < *minPrice {
				continue
			}
			if maxPrice != nil && *price > *maxPrice {
				continue
			}
		}
		out = append(out, productSummary{
			ID:       p.ID,
			Name:     p.Name,
			Image:    p.Image,
			Price:    price,
			Favorite: st.IsFavorite(p.ID),
		})
	}

	c.JSON(http.StatusOK, gin.H{"products": out})
}

// parsePriceParam 解析价格查询参数；非法值回 400 并返回 ok=false。
func parsePriceParam(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &v, true
}

// handleGetProduct 商品详情：基础信息 + 价格对比图数据。
//
// 图表横轴是所有站点覆盖月份的并集，站点缺某个月时对应数据点为 null。
func (s *Server) handleGetProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	p := s.catalog.Product(id)
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	st := s.sessionStore(c)
	c.JSON(http.StatusOK, productDetailResponse{
		ID:          p.ID,
		Name:        p.Name,
		Image:       p.Image,
		Information: p.Information,
		Price:       pricing.LowestCurrentMonthPrice(p.Sites),
		Favorite:    st.IsFavorite(p.ID),
		Sites:       p.Sites,
		Chart:       pricing.VendorSeriesForChart(p.Sites),
	})
}
