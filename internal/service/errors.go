package service

import "errors"

// 库存相关错误
var (
	ErrInvalidQuantity         = errors.New("数量必须大于 0")
	ErrInvalidSize             = errors.New("尺码不合法")
	ErrInsufficientStock       = errors.New("库存不足")
	ErrNoMatchingLedgerRow     = errors.New("未找到匹配的库存台账")
	ErrStockStore              = errors.New("库存存储不可用")
	ErrStockLevelBelowReserved = errors.New("在库数量不能低于当前预占数量")
	ErrStockLedgerNotFound     = errors.New("库存台账不存在")
)

// 商品相关错误
var (
	ErrProductNotFound   = errors.New("商品不存在")
	ErrProductInactive   = errors.New("商品已下架")
	ErrProductCodeExists = errors.New("商品编码已存在")
	ErrProductInvalid    = errors.New("商品信息不完整")
)

// 订单相关错误
var (
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrOrderItemsEmpty    = errors.New("订单项不能为空")
	ErrOrderStatusInvalid = errors.New("订单状态不允许该操作")
	ErrOrderUpdateFailed  = errors.New("订单更新失败")
	ErrOrderCreateFailed  = errors.New("订单创建失败")
)

// 支付相关错误
var (
	ErrPaymentProviderUnknown = errors.New("未配置的支付提供方")
	ErrInvalidSignature       = errors.New("回调签名校验失败")
	ErrWebhookPayloadInvalid  = errors.New("回调内容不合法")
	ErrAmountMismatch         = errors.New("支付金额与订单金额不一致")
	ErrTransactionNotFound    = errors.New("支付流水不存在")
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("账号或密码错误")
	ErrStaffDisabled      = errors.New("账号已停用")
	ErrStaffNotFound      = errors.New("员工不存在")
	ErrStaffExists        = errors.New("账号已存在")
	ErrTokenRevoked       = errors.New("登录已失效")
)
