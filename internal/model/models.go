package model

import (
	"time"
)

// Product 表示目录中的一件商品。
//
// 商品在启动时从外部目录（store.json）加载一次，身份（ID）不可变。
// 各站点的历史价格作为只读输入数据挂在 Sites 上。
type Product struct {
	ID          int    `gorm:"primaryKey" json:"id"` // 商品唯一标识（目录内稳定）
	Name        string `gorm:"not null" json:"name"` // 商品名称
	Image       string `json:"image"`                // 商品图片路径
	Information string `json:"information"`          // 商品描述

	Sites []VendorPriceSeries `gorm:"-" json:"sites"` // 各站点价格序列（只读）
}

// VendorPriceSeries 表示单个站点对某商品的月度价格序列。
//
// 不变量：Prices 按月份升序排列；不同站点覆盖的月份可以不同。
type VendorPriceSeries struct {
	Site   string       `json:"site"`   // 站点名称（同一商品内唯一）
	Prices []PricePoint `json:"prices"` // 月度价格点
}

// PricePoint 单个月份的价格记录，月份标签格式为 "YYYY-MM"。
type PricePoint struct {
	Month string  `json:"month"`
	Price float64 `json:"price"`
}

// VendorPrice 是 vendor_prices 表的行结构（商品 × 站点 × 月份）。
//
// (product_id, site, month) 上有唯一索引，用于目录重播时的幂等 Upsert。
type VendorPrice struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time // 首次入库时间

	ProductID int     `gorm:"uniqueIndex:idx_product_site_month;not null"`
	Site      string  `gorm:"uniqueIndex:idx_product_site_month;type:varchar(191);not null"`
	Month     string  `gorm:"uniqueIndex:idx_product_site_month;type:varchar(16);not null"`
	Price     float64 `gorm:"not null"`
}

// ContactMessage 联系表单提交的内容。
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}
