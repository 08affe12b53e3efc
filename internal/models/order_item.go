package models

import "time"

// OrderItem 订单项表
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                      // 主键
	OrderID     uint      `gorm:"index;not null" json:"order_id"`                            // 订单ID
	ProductID   uint      `gorm:"index;not null" json:"product_id"`                          // 商品ID
	ProductName string    `gorm:"type:varchar(200);not null" json:"product_name"`            // 商品名称快照
	Size        string    `gorm:"type:varchar(8);not null;default:''" json:"size,omitempty"` // 所选尺码
	Color       string    `gorm:"type:varchar(64);not null;default:''" json:"color,omitempty"` // 所选颜色
	Quantity    int       `gorm:"not null" json:"quantity"`                                  // 数量
	UnitPrice   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`   // 单价
	TotalPrice  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`  // 小计
	Reserved    bool      `gorm:"not null;default:false" json:"reserved"`                    // 是否已在商品总库存上预占
	StockError  string    `gorm:"type:varchar(255)" json:"stock_error,omitempty"`            // 扣减失败原因（供对账）
	CreatedAt   time.Time `json:"created_at"`                                                // 创建时间
	UpdatedAt   time.Time `json:"updated_at"`                                                // 更新时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
