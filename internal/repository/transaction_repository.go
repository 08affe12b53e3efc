package repository

import (
	"errors"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository 支付流水数据访问接口
type TransactionRepository interface {
	Create(tx *models.Transaction) error
	GetByProviderReference(provider, reference string) (*models.Transaction, error)
	ListByOrder(orderID uint) ([]models.Transaction, error)
	HasSuccess(orderID uint) (bool, error)
	TransitionStatus(id uint, from []string, to string, metadata models.JSON) (bool, error)
	WithTx(tx *gorm.DB) TransactionRepository
}

// GormTransactionRepository GORM 实现
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建支付流水仓库
func NewTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTransactionRepository) WithTx(tx *gorm.DB) TransactionRepository {
	if tx == nil {
		return r
	}
	return &GormTransactionRepository{db: tx}
}

// Create 创建支付流水
func (r *GormTransactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

// GetByProviderReference 按提供方与流水号查询
func (r *GormTransactionRepository) GetByProviderReference(provider, reference string) (*models.Transaction, error) {
	var item models.Transaction
	err := r.db.Where("payment_provider = ? AND provider_reference = ?", provider, reference).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByOrder 获取订单的支付流水
func (r *GormTransactionRepository) ListByOrder(orderID uint) ([]models.Transaction, error) {
	var items []models.Transaction
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// HasSuccess 订单是否已有成功支付
func (r *GormTransactionRepository) HasSuccess(orderID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Transaction{}).
		Where("order_id = ? AND status = ?", orderID, constants.TransactionStatusSuccess).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// TransitionStatus 条件更新流水状态，metadata 非空时一并覆盖
func (r *GormTransactionRepository) TransitionStatus(id uint, from []string, to string, metadata models.JSON) (bool, error) {
	updates := map[string]interface{}{
		"status":      to,
		"callback_at": time.Now(),
	}
	if metadata != nil {
		updates["metadata"] = metadata
	}
	result := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
