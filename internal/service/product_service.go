package service

import (
	"strings"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// CreateProductInput 创建/更新商品输入
type CreateProductInput struct {
	Code           string
	Name           string
	Description    string
	Price          decimal.Decimal
	SalePrice      *decimal.Decimal
	FlashSaleStart *time.Time
	FlashSaleEnd   *time.Time
	IsActive       *bool
}

// ProductQuery 商品列表查询参数
type ProductQuery struct {
	Search   string
	Page     int
	PageSize int
	InStock  bool
	OnSale   bool
}

func (q ProductQuery) filter(onlyActive bool) repository.ProductListFilter {
	return repository.ProductListFilter{
		Page:       q.Page,
		PageSize:   q.PageSize,
		Search:     strings.TrimSpace(q.Search),
		OnlyActive: onlyActive,
		InStock:    q.InStock,
		OnSale:     q.OnSale,
		Now:        time.Now(),
	}
}

// ListPublic 获取在售商品列表
func (s *ProductService) ListPublic(q ProductQuery) ([]models.Product, int64, error) {
	return s.repo.List(q.filter(true))
}

// ListAdmin 获取后台商品列表，包含下架商品
func (s *ProductService) ListAdmin(q ProductQuery) ([]models.Product, int64, error) {
	return s.repo.List(q.filter(false))
}

// Get 获取商品
func (s *ProductService) Get(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// GetByCode 按商品编码获取（POS 扫码）
func (s *ProductService) GetByCode(code string) (*models.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrProductNotFound
	}
	product, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input CreateProductInput) (*models.Product, error) {
	product := &models.Product{}
	if err := s.apply(product, input); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByCode(product.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrProductCodeExists
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input CreateProductInput) (*models.Product, error) {
	product, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(product, input); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByCode(product.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != product.ID {
		return nil, ErrProductCodeExists
	}
	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete 删除商品及其库存台账
func (s *ProductService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

func (s *ProductService) apply(product *models.Product, input CreateProductInput) error {
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" || name == "" || !input.Price.IsPositive() {
		return ErrProductInvalid
	}
	product.Code = code
	product.Name = name
	product.Description = strings.TrimSpace(input.Description)
	product.Price = models.NewMoneyFromDecimal(input.Price)
	product.SalePrice = nil
	if input.SalePrice != nil && input.SalePrice.IsPositive() {
		if input.SalePrice.GreaterThanOrEqual(input.Price) {
			return ErrProductInvalid
		}
		sale := models.NewMoneyFromDecimal(*input.SalePrice)
		product.SalePrice = &sale
	}
	if input.FlashSaleStart != nil && input.FlashSaleEnd != nil && !input.FlashSaleEnd.After(*input.FlashSaleStart) {
		return ErrProductInvalid
	}
	product.FlashSaleStart = input.FlashSaleStart
	product.FlashSaleEnd = input.FlashSaleEnd
	if input.IsActive != nil {
		if *input.IsActive {
			product.Status = constants.ProductStatusActive
		} else {
			product.Status = constants.ProductStatusInactive
		}
	} else if product.Status == "" {
		product.Status = constants.ProductStatusActive
	}
	return nil
}
