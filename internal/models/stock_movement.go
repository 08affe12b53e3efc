package models

import "time"

// StockMovement 库存流水表（仅追加，用于对账）
type StockMovement struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                // 主键
	ProductID     uint      `gorm:"index;not null" json:"product_id"`                    // 商品ID
	Size          string    `gorm:"type:varchar(8);not null;default:''" json:"size"`     // 尺码
	Color         string    `gorm:"type:varchar(64);not null;default:''" json:"color"`   // 颜色
	Reason        string    `gorm:"type:varchar(32);index;not null" json:"reason"`       // 变动原因
	DeltaStock    int       `gorm:"not null;default:0" json:"delta_stock"`               // 在库变动量
	DeltaReserved int       `gorm:"not null;default:0" json:"delta_reserved"`            // 预占变动量
	OrderID       *uint     `gorm:"index" json:"order_id,omitempty"`                     // 关联订单
	SellerID      *uint     `gorm:"index" json:"seller_id,omitempty"`                    // 操作员工（POS）
	Note          string    `gorm:"type:varchar(255)" json:"note,omitempty"`             // 备注
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                             // 创建时间
}

// TableName 指定表名
func (StockMovement) TableName() string {
	return "stock_movements"
}
