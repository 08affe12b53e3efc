package repository

import (
	"github.com/mavazi-pos/internal/models"

	"gorm.io/gorm"
)

// StockMovementRepository 库存流水数据访问接口
type StockMovementRepository interface {
	Create(item *models.StockMovement) error
	List(filter StockMovementListFilter) ([]models.StockMovement, int64, error)
}

// GormStockMovementRepository GORM 实现
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewStockMovementRepository 创建库存流水仓库
func NewStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create 追加流水
func (r *GormStockMovementRepository) Create(item *models.StockMovement) error {
	return r.db.Create(item).Error
}

// List 流水列表
func (r *GormStockMovementRepository) List(filter StockMovementListFilter) ([]models.StockMovement, int64, error) {
	var items []models.StockMovement
	query := r.db.Model(&models.StockMovement{})
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
