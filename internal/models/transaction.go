package models

import "time"

// Transaction 支付流水表
type Transaction struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                                  // 主键
	OrderID           uint       `gorm:"index;not null" json:"order_id"`                                        // 订单ID
	PaymentProvider   string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_tx_provider_ref,priority:1" json:"payment_provider"`     // 支付提供方
	ProviderReference string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_tx_provider_ref,priority:2" json:"provider_reference"` // 第三方流水号
	Amount            Money      `gorm:"type:decimal(20,2);not null" json:"amount"`                             // 金额
	Status            string     `gorm:"type:varchar(16);index;not null" json:"status"`                         // 状态（pending/success/failed/reversed）
	Metadata          JSON       `gorm:"type:json" json:"metadata,omitempty"`                                   // 回调原始数据
	CallbackAt        *time.Time `json:"callback_at,omitempty"`                                                 // 最近回调时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                               // 创建时间
	UpdatedAt         time.Time  `json:"updated_at"`                                                            // 更新时间
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}
