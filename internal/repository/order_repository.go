package repository

import (
	"errors"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	TransitionStatus(id uint, from []string, to string, updates map[string]interface{}) (bool, error)
	ClaimStockCommit(id uint) (bool, error)
	MarkPaid(id uint, reference string, paidAt time.Time) error
	UpdateItemStockError(itemID uint, message string) error
	ListExpiredPending(now time.Time, limit int) ([]models.Order, error)
	WithTx(tx *gorm.DB) OrderRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 创建订单及订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		order.Items = items
		return nil
	})
}

// GetByID 获取订单详情（含订单项与支付流水）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, errors.New("invalid order id")
	}
	var order models.Order
	if err := r.db.Preload("Items").Preload("Transactions").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Preload("Transactions").Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SaleType != "" {
		query = query.Where("sale_type = ?", filter.SaleType)
	}
	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Preload("Items").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// TransitionStatus 仅当当前状态属于 from 时更新为 to，返回是否命中
func (r *GormOrderRepository) TransitionStatus(id uint, from []string, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ClaimStockCommit 抢占库存结算标记，保证同一订单的预占只被扣减或释放一次
func (r *GormOrderRepository) ClaimStockCommit(id uint) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND stock_committed = ?", id, false).
		Update("stock_committed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkPaid 记录首次支付时间与支付流水号
func (r *GormOrderRepository) MarkPaid(id uint, reference string, paidAt time.Time) error {
	return r.db.Model(&models.Order{}).
		Where("id = ? AND paid_at IS NULL", id).
		Updates(map[string]interface{}{
			"paid_at":           paidAt,
			"payment_reference": reference,
			"updated_at":        paidAt,
		}).Error
}

// UpdateItemStockError 记录订单项扣减失败原因
func (r *GormOrderRepository) UpdateItemStockError(itemID uint, message string) error {
	if len(message) > 255 {
		message = message[:255]
	}
	return r.db.Model(&models.OrderItem{}).Where("id = ?", itemID).Update("stock_error", message).Error
}

// ListExpiredPending 获取已过预占期限且仍未完成的线上订单。
// 已有成功支付的订单不会被超时取消，这里直接排除，避免其长期占满批次。
func (r *GormOrderRepository) ListExpiredPending(now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	paid := r.db.Model(&models.Transaction{}).Select("1").
		Where("transactions.order_id = orders.id AND transactions.status = ?", constants.TransactionStatusSuccess)
	query := r.db.Where("orders.status IN ? AND orders.expires_at IS NOT NULL AND orders.expires_at <= ?",
		[]string{constants.OrderStatusPending, constants.OrderStatusProcessing}, now).
		Where("NOT EXISTS (?)", paid).
		Order("orders.id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
