package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetByID(id uint) (*models.Product, error)
	GetByCode(code string) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id uint) error
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// List 商品列表，按 ID 倒序
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	query := r.filtered(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []models.Product
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id desc").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *GormProductRepository) filtered(filter ProductListFilter) *gorm.DB {
	query := r.db.Model(&models.Product{})
	if filter.OnlyActive {
		query = query.Where("status = ?", constants.ProductStatusActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		op := likeOperator(r.db)
		query = query.Where(fmt.Sprintf("(name %s ? OR code %s ?)", op, op), like, like)
	}
	if filter.InStock {
		query = query.Where("NOT EXISTS (?) OR EXISTS (?)",
			r.ledgerRows(),
			r.ledgerRows().Where("stock_ledgers.stock_quantity > stock_ledgers.reserved_quantity"),
		)
	}
	if filter.OnSale {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		query = query.
			Where("sale_price IS NOT NULL AND sale_price > 0").
			Where("flash_sale_start IS NULL OR flash_sale_start <= ?", now).
			Where("flash_sale_end IS NULL OR flash_sale_end > ?", now)
	}
	return query
}

func (r *GormProductRepository) ledgerRows() *gorm.DB {
	return r.db.Model(&models.StockLedger{}).Select("1").Where("stock_ledgers.product_id = products.id")
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, errors.New("invalid product id")
	}
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByCode 根据商品编码获取商品
func (r *GormProductRepository) GetByCode(code string) (*models.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("invalid product code")
	}
	var product models.Product
	if err := r.db.Where("code = ?", code).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs 批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 更新商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

// Delete 删除商品并级联删除库存台账
func (r *GormProductRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.StockLedger{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
}
