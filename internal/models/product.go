package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                            // 主键
	Code           string         `gorm:"uniqueIndex;type:varchar(64);not null" json:"code"`               // 商品编码（POS 扫码用）
	Name           string         `gorm:"type:varchar(200);not null" json:"name"`                          // 商品名称
	Description    string         `gorm:"type:text" json:"description"`                                    // 商品描述
	Price          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`              // 原价
	SalePrice      *Money         `gorm:"type:decimal(20,2)" json:"sale_price,omitempty"`                  // 促销价（可选）
	FlashSaleStart *time.Time     `json:"flash_sale_start,omitempty"`                                      // 限时促销开始时间
	FlashSaleEnd   *time.Time     `json:"flash_sale_end,omitempty"`                                        // 限时促销结束时间
	Status         string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // 状态（active/inactive）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                      // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                  // 软删除时间

	StockLedgers []StockLedger `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"stock_ledgers,omitempty"` // 库存台账
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// EffectivePrice 返回指定时间点的成交单价
// 设置了促销价时：无促销窗口或处于窗口内使用促销价，否则使用原价。
func (p *Product) EffectivePrice(now time.Time) Money {
	if p.SalePrice == nil || !p.SalePrice.IsPositive() {
		return p.Price
	}
	if p.FlashSaleStart != nil && now.Before(*p.FlashSaleStart) {
		return p.Price
	}
	if p.FlashSaleEnd != nil && !now.Before(*p.FlashSaleEnd) {
		return p.Price
	}
	return *p.SalePrice
}
