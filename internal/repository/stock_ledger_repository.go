package repository

import (
	"errors"

	"github.com/mavazi-pos/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockKey 库存台账定位键，Size/Color 为空表示该维度不区分
type StockKey struct {
	ProductID uint
	Size      string
	Color     string
}

// GeneralKey 商品总库存键
func GeneralKey(productID uint) StockKey {
	return StockKey{ProductID: productID}
}

// DecrementPolicy 条件扣减时对预占量的处理方式
type DecrementPolicy int

const (
	// DecrementFromAvailable 要求 可售 >= q，只扣在库，不动预占
	DecrementFromAvailable DecrementPolicy = iota
	// DecrementTrimReserved 要求 可售 >= q，扣在库的同时回收 min(q, 预占)
	DecrementTrimReserved
	// DecrementConsumeReservation 扣减的数量已计入预占：要求 在库 >= q 且 在库 >= 预占，并回收 min(q, 预占)
	DecrementConsumeReservation
)

// StockLedgerRepository 库存台账数据访问接口
type StockLedgerRepository interface {
	GetGeneral(productID uint) (*models.StockLedger, error)
	GetSizes(productID uint) ([]models.StockLedger, error)
	GetSizeColors(productID uint) ([]models.StockLedger, error)
	GetByKey(key StockKey) (*models.StockLedger, error)
	ListByProduct(productID uint) ([]models.StockLedger, error)
	CountByProduct(productID uint) (int64, error)
	ListSizesForSweep(productID uint) ([]models.StockLedger, error)
	TryDecrement(key StockKey, quantity int, policy DecrementPolicy) (bool, error)
	TryReserve(productID uint, quantity int) (bool, error)
	TryRelease(productID uint, quantity int) (bool, error)
	Restock(key StockKey, quantity int) (bool, error)
	SetLevel(row *models.StockLedger) (bool, error)
	Delete(key StockKey) (int64, error)
	ListOverReserved() ([]models.StockLedger, error)
	ClampReserved(id uint) (bool, error)
	WithTx(tx *gorm.DB) StockLedgerRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormStockLedgerRepository GORM 实现
type GormStockLedgerRepository struct {
	db *gorm.DB
}

// NewStockLedgerRepository 创建库存台账仓库
func NewStockLedgerRepository(db *gorm.DB) *GormStockLedgerRepository {
	return &GormStockLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStockLedgerRepository) WithTx(tx *gorm.DB) StockLedgerRepository {
	if tx == nil {
		return r
	}
	return &GormStockLedgerRepository{db: tx}
}

// Transaction 执行事务
func (r *GormStockLedgerRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func whereKey(query *gorm.DB, key StockKey) *gorm.DB {
	return query.Where("product_id = ? AND size = ? AND color = ?", key.ProductID, key.Size, key.Color)
}

// GetGeneral 获取商品总库存行
func (r *GormStockLedgerRepository) GetGeneral(productID uint) (*models.StockLedger, error) {
	return r.GetByKey(GeneralKey(productID))
}

// GetSizes 获取尺码库存行（不区分颜色）
func (r *GormStockLedgerRepository) GetSizes(productID uint) ([]models.StockLedger, error) {
	var rows []models.StockLedger
	err := r.db.Where("product_id = ? AND size <> '' AND color = ''", productID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetSizeColors 获取颜色库存行（含仅颜色、尺码+颜色）
func (r *GormStockLedgerRepository) GetSizeColors(productID uint) ([]models.StockLedger, error) {
	var rows []models.StockLedger
	err := r.db.Where("product_id = ? AND color <> ''", productID).
		Order("color asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByKey 精确定位一行，不存在时返回 nil
func (r *GormStockLedgerRepository) GetByKey(key StockKey) (*models.StockLedger, error) {
	if key.ProductID == 0 {
		return nil, errors.New("invalid product id")
	}
	var row models.StockLedger
	if err := whereKey(r.db, key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByProduct 获取商品全部台账行
func (r *GormStockLedgerRepository) ListByProduct(productID uint) ([]models.StockLedger, error) {
	var rows []models.StockLedger
	if err := r.db.Where("product_id = ?", productID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByProduct 统计商品台账行数，0 表示未启用库存跟踪
func (r *GormStockLedgerRepository) CountByProduct(productID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.StockLedger{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListSizesForSweep 按可售量从大到小返回尺码库存行，postgres 下同时加行锁
func (r *GormStockLedgerRepository) ListSizesForSweep(productID uint) ([]models.StockLedger, error) {
	var rows []models.StockLedger
	query := r.db
	if supportsRowLocking(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.Where("product_id = ? AND size <> '' AND color = ''", productID).
		Order("(stock_quantity - reserved_quantity) DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// reservedTrimExpr 预占回收表达式：max(reserved - q, 0)
func reservedTrimExpr(quantity int) interface{} {
	return gorm.Expr("CASE WHEN reserved_quantity >= ? THEN reserved_quantity - ? ELSE 0 END", quantity, quantity)
}

// TryDecrement 条件扣减在库数量，单条 UPDATE 完成判断与扣减，以影响行数判定成功
func (r *GormStockLedgerRepository) TryDecrement(key StockKey, quantity int, policy DecrementPolicy) (bool, error) {
	if key.ProductID == 0 || quantity <= 0 {
		return false, errors.New("invalid decrement params")
	}
	query := whereKey(r.db.Model(&models.StockLedger{}), key)
	updates := map[string]interface{}{
		"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
	}
	switch policy {
	case DecrementConsumeReservation:
		query = query.Where("stock_quantity >= ? AND stock_quantity >= reserved_quantity", quantity)
		updates["reserved_quantity"] = reservedTrimExpr(quantity)
	case DecrementTrimReserved:
		query = query.Where("stock_quantity - reserved_quantity >= ?", quantity)
		updates["reserved_quantity"] = reservedTrimExpr(quantity)
	default:
		query = query.Where("stock_quantity - reserved_quantity >= ?", quantity)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// TryReserve 在商品总库存上预占，要求 在库 - 预占 >= q
func (r *GormStockLedgerRepository) TryReserve(productID uint, quantity int) (bool, error) {
	if productID == 0 || quantity <= 0 {
		return false, errors.New("invalid reserve params")
	}
	result := whereKey(r.db.Model(&models.StockLedger{}), GeneralKey(productID)).
		Where("stock_quantity - reserved_quantity >= ?", quantity).
		Update("reserved_quantity", gorm.Expr("reserved_quantity + ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// TryRelease 释放商品总库存上的预占，最低回落到 0
func (r *GormStockLedgerRepository) TryRelease(productID uint, quantity int) (bool, error) {
	if productID == 0 || quantity <= 0 {
		return false, errors.New("invalid release params")
	}
	result := whereKey(r.db.Model(&models.StockLedger{}), GeneralKey(productID)).
		Update("reserved_quantity", reservedTrimExpr(quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Restock 入库，增加在库数量
func (r *GormStockLedgerRepository) Restock(key StockKey, quantity int) (bool, error) {
	if key.ProductID == 0 || quantity <= 0 {
		return false, errors.New("invalid restock params")
	}
	result := whereKey(r.db.Model(&models.StockLedger{}), key).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetLevel 设置在库绝对值与告警阈值，行不存在时创建
// 已有行的新在库数量不得小于当前预占，返回 false 表示被预占量拒绝。
func (r *GormStockLedgerRepository) SetLevel(row *models.StockLedger) (bool, error) {
	if row == nil || row.ProductID == 0 || row.StockQuantity < 0 {
		return false, errors.New("invalid stock level")
	}
	key := StockKey{ProductID: row.ProductID, Size: row.Size, Color: row.Color}
	existing, err := r.GetByKey(key)
	if err != nil {
		return false, err
	}
	if existing == nil {
		row.ReservedQuantity = 0
		if err := r.db.Create(row).Error; err != nil {
			return false, err
		}
		return true, nil
	}
	result := whereKey(r.db.Model(&models.StockLedger{}), key).
		Where("reserved_quantity <= ?", row.StockQuantity).
		Updates(map[string]interface{}{
			"stock_quantity":      row.StockQuantity,
			"low_stock_threshold": row.LowStockThreshold,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected != 1 {
		return false, nil
	}
	row.ID = existing.ID
	row.ReservedQuantity = existing.ReservedQuantity
	return true, nil
}

// Delete 删除台账行
func (r *GormStockLedgerRepository) Delete(key StockKey) (int64, error) {
	result := whereKey(r.db, key).Delete(&models.StockLedger{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListOverReserved 返回预占超过在库的异常行
func (r *GormStockLedgerRepository) ListOverReserved() ([]models.StockLedger, error) {
	var rows []models.StockLedger
	if err := r.db.Where("reserved_quantity > stock_quantity").Order("product_id asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ClampReserved 将预占压回在库数量
func (r *GormStockLedgerRepository) ClampReserved(id uint) (bool, error) {
	result := r.db.Model(&models.StockLedger{}).
		Where("id = ? AND reserved_quantity > stock_quantity", id).
		Update("reserved_quantity", gorm.Expr("stock_quantity"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
