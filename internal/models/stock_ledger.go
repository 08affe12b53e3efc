package models

import (
	"time"

	"github.com/mavazi-pos/internal/constants"
)

// StockLedger 库存台账表
// 以 (product_id, size, color) 唯一定位一行，空字符串表示该维度不区分：
// size='' 且 color='' 为商品总库存；size!='' 且 color='' 为尺码库存；color!='' 为颜色（可带尺码）库存。
type StockLedger struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                                                         // 主键
	ProductID         uint      `gorm:"not null;uniqueIndex:idx_stock_ledger_key,priority:1" json:"product_id"`                       // 商品ID
	Size              string    `gorm:"type:varchar(8);not null;default:'';uniqueIndex:idx_stock_ledger_key,priority:2" json:"size"`  // 尺码（空表示不区分）
	Color             string    `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_stock_ledger_key,priority:3" json:"color"` // 颜色（小写，空表示不区分）
	StockQuantity     int       `gorm:"not null;default:0;check:chk_stock_ledger_stock,stock_quantity >= 0" json:"stock_quantity"`       // 在库数量
	ReservedQuantity  int       `gorm:"not null;default:0;check:chk_stock_ledger_reserved,reserved_quantity >= 0" json:"reserved_quantity"` // 预占数量（待支付）
	LowStockThreshold int       `gorm:"not null;default:0" json:"low_stock_threshold"`                                                // 低库存告警阈值（0 表示关闭）
	CreatedAt         time.Time `json:"created_at"`                                                                                   // 创建时间
	UpdatedAt         time.Time `gorm:"index" json:"updated_at"`                                                                      // 最后更新时间
}

// TableName 指定表名
func (StockLedger) TableName() string {
	return "stock_ledgers"
}

// Granularity 返回该行的库存粒度
func (s *StockLedger) Granularity() string {
	switch {
	case s.Color != "":
		return constants.StockGranularitySizeColor
	case s.Size != "":
		return constants.StockGranularitySize
	default:
		return constants.StockGranularityGeneral
	}
}

// Available 可售数量 = max(0, 在库 - 预占)
func (s *StockLedger) Available() int {
	available := s.StockQuantity - s.ReservedQuantity
	if available < 0 {
		return 0
	}
	return available
}

// IsLow 是否触达低库存阈值
func (s *StockLedger) IsLow() bool {
	return s.LowStockThreshold > 0 && s.Available() <= s.LowStockThreshold
}
