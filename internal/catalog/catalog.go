package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/arminrahbar/price-tracker-webapp/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoadFile 从 JSON 目录文件读出商品列表。
//
// 文件格式是商品数组，每个商品带 sites（站点 × 月度价格序列）。
// 每个站点的价格点按月份升序排好，调用方可以依赖这个顺序。
func LoadFile(path string) ([]model.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	for i := range products {
		for j := range products[i].Sites {
			prices := products[i].Sites[j].Prices
			sort.Slice(prices, func(a, b int) bool {
				return prices[a].Month < prices[b].Month
			})
		}
	}
	return products, nil
}

// Seed 把目录商品写入 MySQL，可重复执行。
//
// 商品行和价格行都走 Upsert：重播同一份目录不会产生重复行，
// 价格变化会覆盖旧值（vendor_prices 上的唯一索引负责冲突检测）。
func Seed(ctx context.Context, db *gorm.DB, products []model.Product) error {
	for i := range products {
		p := &products[i]
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "image", "information"}),
		}).Create(p).Error; err != nil {
			return fmt.Errorf("upsert product %d: %w", p.ID, err)
		}

		for _, site := range p.Sites {
			for _, point := range site.Prices {
				row := model.VendorPrice{
					ProductID: p.ID,
					Site:      site.Site,
					Month:     point.Month,
					Price:     point.Price,
				}
				if err := db.WithContext(ctx).Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "product_id"}, {Name: "site"}, {Name: "month"}},
					DoUpdates: clause.AssignmentColumns([]string{"price"}),
				}).Create(&row).Error; err != nil {
					return fmt.Errorf("upsert price %d/%s/%s: %w", p.ID, site.Site, point.Month, err)
				}
			}
		}
	}
	return nil
}

// LoadDB 从 MySQL 读回完整目录（商品 + 各站点价格序列）。
func LoadDB(ctx context.Context, db *gorm.DB) ([]model.Product, error) {
	var products []model.Product
	if err := db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	var rows []model.VendorPrice
	if err := db.WithContext(ctx).Order("product_id, site, month").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load vendor prices: %w", err)
	}

	// rows 已按 (product_id, site, month) 排序，顺序扫一遍即可归组
	byProduct := make(map[int][]model.VendorPriceSeries, len(products))
	for _, row := range rows {
		series := byProduct[row.ProductID]
		if len(series) == 0 || series[len(series)-1].Site != row.Site {
			series = append(series, model.VendorPriceSeries{Site: row.Site})
		}
		last := &series[len(series)-1]
		last.Prices = append(last.Prices, model.PricePoint{Month: row.Month, Price: row.Price})
		byProduct[row.ProductID] = series
	}

	for i := range products {
		products[i].Sites = byProduct[products[i].ID]
	}
	return products, nil
}

// Catalog 内存商品目录。
//
// 目录在启动时加载一次，之后只读，访问不需要加锁。
type Catalog struct {
	products []model.Product
	byID     map[int]*model.Product
}

// New 用商品列表构建目录索引。
func New(products []model.Product) *Catalog {
	byID := make(map[int]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &Catalog{
		products: products,
		byID:     byID,
	}
}

// Products 返回全部商品（按 ID 升序）。
func (c *Catalog) Products() []model.Product {
	return c.products
}

// Product 按 ID 查找商品，不存在返回 nil。
func (c *Catalog) Product(id int) *model.Product {
	return c.byID[id]
}

// Len 返回目录中的商品数。
func (c *Catalog) Len() int {
	return len(c.products)
}
