package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OrderNo          string         `gorm:"uniqueIndex;not null" json:"order_no"`                         // 订单编号
	UserID           *uint          `gorm:"index" json:"user_id,omitempty"`                               // 用户ID（游客/POS 为空）
	SellerID         *uint          `gorm:"index" json:"seller_id,omitempty"`                             // 收银员工ID（POS）
	CustomerEmail    string         `gorm:"type:varchar(255)" json:"customer_email,omitempty"`            // 顾客邮箱
	CustomerPhone    string         `gorm:"type:varchar(32)" json:"customer_phone,omitempty"`             // 顾客手机号
	SaleType         string         `gorm:"type:varchar(16);index;not null" json:"sale_type"`             // 销售渠道（online/pos）
	Status           string         `gorm:"type:varchar(20);index;not null" json:"status"`                // 订单状态
	Currency         string         `gorm:"type:varchar(8);not null" json:"currency"`                     // 币种
	TotalAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`    // 订单金额
	PaymentMethod    string         `gorm:"type:varchar(32)" json:"payment_method,omitempty"`             // 支付方式
	PaymentReference string         `gorm:"type:varchar(128);index" json:"payment_reference,omitempty"`   // 支付流水号
	StockCommitted   bool           `gorm:"not null;default:false" json:"stock_committed"`                // 库存是否已结算（已扣减或已释放预占）
	ExpiresAt        *time.Time     `gorm:"index" json:"expires_at,omitempty"`                            // 预占过期时间
	PaidAt           *time.Time     `gorm:"index" json:"paid_at,omitempty"`                               // 支付时间
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`                                       // 完成时间
	CanceledAt       *time.Time     `json:"canceled_at,omitempty"`                                        // 取消/失败时间
	RefundedAt       *time.Time     `json:"refunded_at,omitempty"`                                        // 退款时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间

	Items        []OrderItem   `gorm:"foreignKey:OrderID" json:"items,omitempty"`        // 订单项
	Transactions []Transaction `gorm:"foreignKey:OrderID" json:"transactions,omitempty"` // 支付流水
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
