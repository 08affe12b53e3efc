package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/queue"
	"github.com/mavazi-pos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderService 订单服务：线上下单、发起支付、POS 收银、取消、退款与预占超时
type OrderService struct {
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	txRepo         repository.TransactionRepository
	inventory      *InventoryService
	completion     *SaleCompletionService
	queueClient    *queue.Client
	reservationTTL time.Duration
	currency       string
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, txRepo repository.TransactionRepository, inventory *InventoryService, completion *SaleCompletionService, queueClient *queue.Client, reservationTTLMinutes int, currency string) *OrderService {
	if reservationTTLMinutes <= 0 {
		reservationTTLMinutes = 15
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "KES"
	}
	return &OrderService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		txRepo:         txRepo,
		inventory:      inventory,
		completion:     completion,
		queueClient:    queueClient,
		reservationTTL: time.Duration(reservationTTLMinutes) * time.Minute,
		currency:       currency,
	}
}

// OrderItemInput 下单商品项
type OrderItemInput struct {
	ProductID uint   `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// CreateOnlineOrderInput 线上下单输入
type CreateOnlineOrderInput struct {
	UserID        *uint
	CustomerEmail string
	CustomerPhone string
	Items         []OrderItemInput
}

// CreatePOSSaleInput POS 收银输入
type CreatePOSSaleInput struct {
	SellerID         uint
	CustomerPhone    string
	PaymentMethod    string
	PaymentReference string
	Items            []OrderItemInput
}

// CreateOnlineOrder 线上下单：逐项在商品总库存上预占，任一项失败则回滚已预占的项
func (s *OrderService) CreateOnlineOrder(ctx context.Context, input CreateOnlineOrderInput) (*models.Order, error) {
	now := time.Now()
	items, total, err := s.buildItems(input.Items, now)
	if err != nil {
		return nil, err
	}

	reserved := make([]int, 0, len(items))
	rollback := func() {
		for _, idx := range reserved {
			if _, relErr := s.inventory.ReleaseStock(ctx, items[idx].ProductID, items[idx].Quantity); relErr != nil {
				logger.Warnw("order_checkout_rollback_release_failed",
					"product_id", items[idx].ProductID,
					"quantity", items[idx].Quantity,
					"error", relErr,
				)
			}
		}
	}
	for i := range items {
		outcome, err := s.inventory.reserve(ctx, items[i].ProductID, items[i].Quantity, nil)
		if err != nil {
			rollback()
			return nil, err
		}
		switch outcome {
		case reserveApplied:
			items[i].Reserved = true
			reserved = append(reserved, i)
		case reserveRejected:
			rollback()
			return nil, ErrInsufficientStock
		}
	}

	expiresAt := now.Add(s.reservationTTL)
	order := &models.Order{
		OrderNo:       generateOrderNo(),
		UserID:        input.UserID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(input.CustomerEmail)),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		SaleType:      constants.SaleTypeOnline,
		Status:        constants.OrderStatusPending,
		Currency:      s.currency,
		TotalAmount:   total,
		ExpiresAt:     &expiresAt,
	}
	if err := s.orderRepo.Create(order, items); err != nil {
		rollback()
		logger.Errorw("order_checkout_create_failed", "error", err)
		return nil, ErrOrderCreateFailed
	}

	if err := s.queueClient.EnqueueOrderReservationTimeout(queue.OrderReservationTimeoutPayload{OrderID: order.ID}, s.reservationTTL); err != nil {
		logger.Warnw("order_reservation_timeout_enqueue_failed", "order_id", order.ID, "error", err)
	}
	logger.Infow("order_checkout_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"items", len(items),
		"total", order.TotalAmount.String(),
	)
	return order, nil
}

// InitiatePayment 线上订单发起支付，记录待支付流水并将订单置为处理中
func (s *OrderService) InitiatePayment(_ context.Context, orderNo, method string) (*models.Transaction, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method != constants.PaymentMethodMpesa && method != constants.PaymentMethodCard {
		return nil, ErrPaymentProviderUnknown
	}
	order, err := s.orderRepo.GetByOrderNo(strings.TrimSpace(orderNo))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.SaleType != constants.SaleTypeOnline {
		return nil, ErrOrderStatusInvalid
	}
	if order.Status != constants.OrderStatusPending && order.Status != constants.OrderStatusProcessing {
		return nil, ErrOrderStatusInvalid
	}

	tx := &models.Transaction{
		OrderID:           order.ID,
		PaymentProvider:   method,
		ProviderReference: uuid.NewString(),
		Amount:            order.TotalAmount,
		Status:            constants.TransactionStatusPending,
	}
	err = s.orderRepo.Transaction(func(db *gorm.DB) error {
		if err := s.txRepo.WithTx(db).Create(tx); err != nil {
			return err
		}
		if order.Status != constants.OrderStatusPending {
			return nil
		}
		moved, err := s.orderRepo.WithTx(db).TransitionStatus(order.ID, []string{constants.OrderStatusPending}, constants.OrderStatusProcessing, map[string]interface{}{
			"payment_method": method,
			"updated_at":     time.Now(),
		})
		if err != nil {
			return err
		}
		if !moved {
			return ErrOrderStatusInvalid
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderStatusInvalid) {
			return nil, err
		}
		logger.Errorw("order_payment_initiate_failed", "order_no", order.OrderNo, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	return tx, nil
}

// CreatePOSSale POS 收银：创建订单与成功流水后同步完成订单
func (s *OrderService) CreatePOSSale(ctx context.Context, input CreatePOSSaleInput) (*models.Order, error) {
	if input.SellerID == 0 {
		return nil, ErrStaffNotFound
	}
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method == "" {
		method = constants.PaymentMethodCash
	}
	switch method {
	case constants.PaymentMethodCash, constants.PaymentMethodMpesa, constants.PaymentMethodCard:
	default:
		return nil, ErrPaymentProviderUnknown
	}
	now := time.Now()
	items, total, err := s.buildItems(input.Items, now)
	if err != nil {
		return nil, err
	}
	if err := s.ensureShelfStock(items); err != nil {
		return nil, err
	}

	reference := strings.TrimSpace(input.PaymentReference)
	if reference == "" {
		reference = uuid.NewString()
	}
	sellerID := input.SellerID
	order := &models.Order{
		OrderNo:          generateOrderNo(),
		SellerID:         &sellerID,
		CustomerPhone:    strings.TrimSpace(input.CustomerPhone),
		SaleType:         constants.SaleTypePOS,
		Status:           constants.OrderStatusPending,
		Currency:         s.currency,
		TotalAmount:      total,
		PaymentMethod:    method,
		PaymentReference: reference,
		PaidAt:           &now,
	}
	err = s.orderRepo.Transaction(func(db *gorm.DB) error {
		if err := s.orderRepo.WithTx(db).Create(order, items); err != nil {
			return err
		}
		return s.txRepo.WithTx(db).Create(&models.Transaction{
			OrderID:           order.ID,
			PaymentProvider:   method,
			ProviderReference: reference,
			Amount:            total,
			Status:            constants.TransactionStatusSuccess,
			CallbackAt:        &now,
		})
	})
	if err != nil {
		logger.Errorw("pos_sale_create_failed", "seller_id", sellerID, "error", err)
		return nil, ErrOrderCreateFailed
	}
	return s.completion.CompleteSale(ctx, order.ID)
}

// ensureShelfStock 收款前按扣减时的粒度检查可售量，避免对明显缺货的规格收款
func (s *OrderService) ensureShelfStock(items []models.OrderItem) error {
	type variant struct {
		productID   uint
		size, color string
	}
	need := make(map[variant]int, len(items))
	order := make([]variant, 0, len(items))
	for _, item := range items {
		key := variant{productID: item.ProductID, size: item.Size, color: item.Color}
		if _, seen := need[key]; !seen {
			order = append(order, key)
		}
		need[key] += item.Quantity
	}
	for _, key := range order {
		available, err := s.inventory.AvailableFor(key.productID, key.size, key.color)
		if err != nil {
			return err
		}
		if available != nil && *available < need[key] {
			return ErrInsufficientStock
		}
	}
	return nil
}

// CancelOrder 取消待支付或处理中的订单并释放预占
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	return s.completion.FailSale(ctx, orderID, constants.OrderStatusCancelled, reason)
}

// RefundOrder 已完成订单退款，不回补库存
func (s *OrderService) RefundOrder(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	return s.completion.Refund(ctx, orderID, reason)
}

// ExpireOrder 预占超时：仍未支付成功的订单取消并释放预占，返回是否实际取消
func (s *OrderService) ExpireOrder(ctx context.Context, orderID uint, now time.Time) (bool, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending && order.Status != constants.OrderStatusProcessing {
		return false, nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(now) {
		return false, nil
	}
	paid, err := s.txRepo.HasSuccess(order.ID)
	if err != nil {
		return false, err
	}
	if paid {
		return false, nil
	}
	if _, err := s.completion.FailSale(ctx, order.ID, constants.OrderStatusCancelled, "reservation_timeout"); err != nil {
		if errors.Is(err, ErrOrderStatusInvalid) {
			return false, nil
		}
		return false, err
	}
	logger.Infow("order_reservation_expired", "order_id", order.ID, "order_no", order.OrderNo)
	return true, nil
}

// ExpireDue 批量处理已到期的预占订单，作为队列任务丢失时的兜底
func (s *OrderService) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	orders, err := s.orderRepo.ListExpiredPending(now, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, order := range orders {
		ok, err := s.ExpireOrder(ctx, order.ID, now)
		if err != nil {
			logger.Warnw("order_expire_failed", "order_id", order.ID, "error", err)
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// GetOrderByNo 根据订单号获取订单
func (s *OrderService) GetOrderByNo(orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(strings.TrimSpace(orderNo))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrder 根据 ID 获取订单
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 管理端订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// buildItems 校验并合并下单项，计算成交价与订单总额
func (s *OrderService) buildItems(inputs []OrderItemInput, now time.Time) ([]models.OrderItem, models.Money, error) {
	merged, err := mergeOrderItems(inputs)
	if err != nil {
		return nil, models.Money{}, err
	}
	ids := make([]uint, 0, len(merged))
	for _, item := range merged {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.ListByIDs(ids)
	if err != nil {
		return nil, models.Money{}, err
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]models.OrderItem, 0, len(merged))
	total := models.MustMoney("0")
	for _, input := range merged {
		product, ok := byID[input.ProductID]
		if !ok {
			return nil, models.Money{}, ErrProductNotFound
		}
		if product.Status != constants.ProductStatusActive {
			return nil, models.Money{}, ErrProductInactive
		}
		unit := product.EffectivePrice(now)
		line := unit.MulInt(input.Quantity)
		total = total.Add(line)
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Size:        input.Size,
			Color:       input.Color,
			Quantity:    input.Quantity,
			UnitPrice:   unit,
			TotalPrice:  line,
		})
	}
	return items, total, nil
}

// mergeOrderItems 规范化尺码颜色并合并相同规格的商品项
func mergeOrderItems(inputs []OrderItemInput) ([]OrderItemInput, error) {
	if len(inputs) == 0 {
		return nil, ErrOrderItemsEmpty
	}
	merged := make([]OrderItemInput, 0, len(inputs))
	index := make(map[repository.StockKey]int, len(inputs))
	for _, input := range inputs {
		if input.ProductID == 0 || input.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		size, err := NormalizeSize(input.Size)
		if err != nil {
			return nil, err
		}
		key := repository.StockKey{ProductID: input.ProductID, Size: size, Color: NormalizeColor(input.Color)}
		if idx, ok := index[key]; ok {
			merged[idx].Quantity += input.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, OrderItemInput{
			ProductID: key.ProductID,
			Size:      key.Size,
			Color:     key.Color,
			Quantity:  input.Quantity,
		})
	}
	return merged, nil
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("MV%s%s", now, suffix)
}
