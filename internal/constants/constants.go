package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusFailed     = "failed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// 销售渠道常量
const (
	SaleTypeOnline = "online"
	SaleTypePOS    = "pos"
)

// 支付流水状态常量
const (
	TransactionStatusPending  = "pending"
	TransactionStatusSuccess  = "success"
	TransactionStatusFailed   = "failed"
	TransactionStatusReversed = "reversed"
)

// 支付方式常量
const (
	PaymentMethodCash   = "cash"
	PaymentMethodMpesa  = "mpesa"
	PaymentMethodCard   = "card"
	PaymentProviderCash = "cash"
)

// 商品状态常量
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// 尺码常量
const (
	SizeS   = "S"
	SizeM   = "M"
	SizeL   = "L"
	SizeXL  = "XL"
	Size2XL = "2XL"
	Size3XL = "3XL"
	Size4XL = "4XL"
	Size5XL = "5XL"
)

// Sizes 按从小到大排列的尺码
var Sizes = []string{SizeS, SizeM, SizeL, SizeXL, Size2XL, Size3XL, Size4XL, Size5XL}

// 库存台账粒度常量
const (
	StockGranularityGeneral   = "general"
	StockGranularitySize      = "size"
	StockGranularitySizeColor = "size_color"
)

// 库存流水原因常量
const (
	StockMovementReserve = "reserve"
	StockMovementRelease = "release"
	StockMovementDeduct  = "deduct"
	StockMovementRestock = "restock"
	StockMovementAdjust  = "adjust"
	StockMovementClamp   = "reconcile_clamp"
)

// 员工角色常量
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// 队列常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// TaskOrderReservationTimeout 预占超时取消任务类型
const TaskOrderReservationTimeout = "order:reservation_timeout"
