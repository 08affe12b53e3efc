package service

import (
	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"
)

// StockAdminService 库存配置：设置在库量、入库、删除台账行、查看流水
type StockAdminService struct {
	ledgerRepo   repository.StockLedgerRepository
	movementRepo repository.StockMovementRepository
	productRepo  repository.ProductRepository
}

// NewStockAdminService 创建库存配置服务
func NewStockAdminService(ledgerRepo repository.StockLedgerRepository, movementRepo repository.StockMovementRepository, productRepo repository.ProductRepository) *StockAdminService {
	return &StockAdminService{
		ledgerRepo:   ledgerRepo,
		movementRepo: movementRepo,
		productRepo:  productRepo,
	}
}

// StockLevelInput 设置库存输入
type StockLevelInput struct {
	ProductID         uint
	Size              string
	Color             string
	StockQuantity     int
	LowStockThreshold int
	StaffID           *uint
}

// StockRestockInput 入库输入
type StockRestockInput struct {
	ProductID uint
	Size      string
	Color     string
	Quantity  int
	StaffID   *uint
}

// ListStock 列出商品全部台账行
func (s *StockAdminService) ListStock(productID uint) ([]models.StockLedger, error) {
	if err := s.ensureProduct(productID); err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListByProduct(productID)
}

// SetLevel 设置台账行在库绝对值，不存在时创建
func (s *StockAdminService) SetLevel(input StockLevelInput) (*models.StockLedger, error) {
	if input.StockQuantity < 0 || input.LowStockThreshold < 0 {
		return nil, ErrInvalidQuantity
	}
	key, err := s.normalizeKey(input.ProductID, input.Size, input.Color)
	if err != nil {
		return nil, err
	}
	before, err := s.ledgerRepo.GetByKey(key)
	if err != nil {
		return nil, wrapStoreError("load ledger", err)
	}
	row := &models.StockLedger{
		ProductID:         key.ProductID,
		Size:              key.Size,
		Color:             key.Color,
		StockQuantity:     input.StockQuantity,
		LowStockThreshold: input.LowStockThreshold,
	}
	ok, err := s.ledgerRepo.SetLevel(row)
	if err != nil {
		return nil, wrapStoreError("set level", err)
	}
	if !ok {
		return nil, ErrStockLevelBelowReserved
	}
	delta := input.StockQuantity
	if before != nil {
		delta = input.StockQuantity - before.StockQuantity
	}
	if delta != 0 {
		s.record(key, constants.StockMovementAdjust, delta, input.StaffID)
	}
	return s.ledgerRepo.GetByKey(key)
}

// Restock 入库，增加在库数量
func (s *StockAdminService) Restock(input StockRestockInput) (*models.StockLedger, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	key, err := s.normalizeKey(input.ProductID, input.Size, input.Color)
	if err != nil {
		return nil, err
	}
	ok, err := s.ledgerRepo.Restock(key, input.Quantity)
	if err != nil {
		return nil, wrapStoreError("restock", err)
	}
	if !ok {
		return nil, ErrStockLedgerNotFound
	}
	s.record(key, constants.StockMovementRestock, input.Quantity, input.StaffID)
	return s.ledgerRepo.GetByKey(key)
}

// DeleteLevel 删除台账行，仍有预占的行不允许删除
func (s *StockAdminService) DeleteLevel(productID uint, size, color string, staffID *uint) error {
	key, err := s.normalizeKey(productID, size, color)
	if err != nil {
		return err
	}
	row, err := s.ledgerRepo.GetByKey(key)
	if err != nil {
		return wrapStoreError("load ledger", err)
	}
	if row == nil {
		return ErrStockLedgerNotFound
	}
	if row.ReservedQuantity > 0 {
		return ErrStockLevelBelowReserved
	}
	if _, err := s.ledgerRepo.Delete(key); err != nil {
		return wrapStoreError("delete ledger", err)
	}
	s.record(key, constants.StockMovementAdjust, -row.StockQuantity, staffID)
	return nil
}

// ListMovements 库存流水列表
func (s *StockAdminService) ListMovements(filter repository.StockMovementListFilter) ([]models.StockMovement, int64, error) {
	return s.movementRepo.List(filter)
}

func (s *StockAdminService) normalizeKey(productID uint, size, color string) (repository.StockKey, error) {
	if err := s.ensureProduct(productID); err != nil {
		return repository.StockKey{}, err
	}
	normalizedSize, err := NormalizeSize(size)
	if err != nil {
		return repository.StockKey{}, err
	}
	return repository.StockKey{ProductID: productID, Size: normalizedSize, Color: NormalizeColor(color)}, nil
}

func (s *StockAdminService) ensureProduct(productID uint) error {
	if productID == 0 {
		return ErrProductNotFound
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return nil
}

func (s *StockAdminService) record(key repository.StockKey, reason string, deltaStock int, staffID *uint) {
	item := &models.StockMovement{
		ProductID:  key.ProductID,
		Size:       key.Size,
		Color:      key.Color,
		Reason:     reason,
		DeltaStock: deltaStock,
		SellerID:   staffID,
	}
	if err := s.movementRepo.Create(item); err != nil {
		logger.Stock(key.ProductID, key.Size, key.Color).Warnw("stock_movement_record_failed", "reason", reason, "error", err)
	}
}
