package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/events"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"
)

// InventoryService 库存服务：预占、释放、扣减与可售量查询
// 所有库存写操作均为单条条件 UPDATE，并发正确性依赖数据库行级原子性，不使用进程内锁。
type InventoryService struct {
	ledgerRepo       repository.StockLedgerRepository
	movementRepo     repository.StockMovementRepository
	publisher        events.Publisher
	defaultThreshold int
}

// NewInventoryService 创建库存服务
func NewInventoryService(ledgerRepo repository.StockLedgerRepository, movementRepo repository.StockMovementRepository, publisher events.Publisher, defaultThreshold int) *InventoryService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &InventoryService{
		ledgerRepo:       ledgerRepo,
		movementRepo:     movementRepo,
		publisher:        publisher,
		defaultThreshold: defaultThreshold,
	}
}

// DeductRequest 扣减请求
type DeductRequest struct {
	ProductID uint
	Quantity  int
	Size      string
	Color     string
	SellerID  *uint
	OrderID   *uint
	// Reservation 决定商品总库存行如何对待预占，零值为 ReservationTrim
	Reservation ReservationMode
}

// ReservationMode 扣减总库存行时的预占处理方式
type ReservationMode int

const (
	// ReservationTrim 只扣可售部分，并按扣减量回收预占（直接扣减调用方）
	ReservationTrim ReservationMode = iota
	// ReservationNone 只扣可售部分且不回收预占（如 POS 现场销售）
	ReservationNone
	// ReservationConsumed 本次数量已由同一订单预占，可动用预占部分
	ReservationConsumed
)

func (m ReservationMode) decrementPolicy() repository.DecrementPolicy {
	switch m {
	case ReservationNone:
		return repository.DecrementFromAvailable
	case ReservationConsumed:
		return repository.DecrementConsumeReservation
	default:
		return repository.DecrementTrimReserved
	}
}

// DeductResult 扣减结果
type DeductResult struct {
	Granularity string
	Untracked   bool
	Touched     []StockTouch
}

// StockTouch 被扣减的台账行
type StockTouch struct {
	Key      repository.StockKey
	Quantity int
}

// ReserveStock 为待支付订单预占库存，库存不足返回 false
func (s *InventoryService) ReserveStock(ctx context.Context, productID uint, quantity int) (bool, error) {
	outcome, err := s.reserve(ctx, productID, quantity, nil)
	if err != nil {
		return false, err
	}
	return outcome != reserveRejected, nil
}

// ReleaseStock 释放预占，最低回落到 0
func (s *InventoryService) ReleaseStock(ctx context.Context, productID uint, quantity int) (bool, error) {
	return s.release(ctx, productID, quantity, nil)
}

// DeductStock 提交销售扣减，库存不足返回 false 且不修改任何台账
func (s *InventoryService) DeductStock(ctx context.Context, productID uint, quantity int, sellerID *uint, size, color string) (bool, error) {
	_, err := s.Deduct(ctx, DeductRequest{
		ProductID: productID,
		Quantity:  quantity,
		Size:      size,
		Color:     color,
		SellerID:  sellerID,
	})
	if err == nil {
		return true, nil
	}
	if isBusinessStockError(err) {
		return false, nil
	}
	return false, err
}

// GetAvailableStock 返回商品可售量，nil 表示未启用库存跟踪（视为始终可售）
func (s *InventoryService) GetAvailableStock(_ context.Context, productID uint) (*int, error) {
	snapshot, err := s.Availability(productID)
	if err != nil {
		return nil, err
	}
	return snapshot.Available, nil
}

func isBusinessStockError(err error) bool {
	return errorsIsAny(err, ErrInsufficientStock, ErrNoMatchingLedgerRow, ErrInvalidQuantity, ErrInvalidSize)
}

func wrapStoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStockStore, op, err)
}

// recordMovement 写入库存流水，失败只记录日志
func (s *InventoryService) recordMovement(key repository.StockKey, reason string, deltaStock, deltaReserved int, orderID, sellerID *uint) {
	if s.movementRepo == nil {
		return
	}
	item := &models.StockMovement{
		ProductID:     key.ProductID,
		Size:          key.Size,
		Color:         key.Color,
		Reason:        reason,
		DeltaStock:    deltaStock,
		DeltaReserved: deltaReserved,
		OrderID:       orderID,
		SellerID:      sellerID,
	}
	if err := s.movementRepo.Create(item); err != nil {
		logger.Stock(key.ProductID, key.Size, key.Color).Warnw("stock_movement_record_failed", "reason", reason, "error", err)
	}
}

func (s *InventoryService) publish(ctx context.Context, eventType string, productID uint, correlation *uint, payload interface{}) {
	correlationID := ""
	if correlation != nil {
		correlationID = strconv.FormatUint(uint64(*correlation), 10)
	}
	env, err := events.NewEnvelope(eventType, strconv.FormatUint(uint64(productID), 10), correlationID, payload)
	if err != nil {
		logger.Warnw("inventory_event_build_failed", "event_type", eventType, "error", err)
		return
	}
	s.publisher.Publish(ctx, env)
}

// checkLowStock 扣减后检查被触达行是否低于告警阈值
func (s *InventoryService) checkLowStock(ctx context.Context, touched []StockTouch) {
	for _, touch := range touched {
		row, err := s.ledgerRepo.GetByKey(touch.Key)
		if err != nil || row == nil {
			continue
		}
		threshold := row.LowStockThreshold
		if threshold <= 0 {
			threshold = s.defaultThreshold
		}
		if threshold <= 0 || row.Available() > threshold {
			continue
		}
		logger.Stock(row.ProductID, row.Size, row.Color).Infow("inventory_stock_low",
			"available", row.Available(),
			"threshold", threshold,
		)
		s.publish(ctx, events.EventStockLow, row.ProductID, nil, events.StockLowPayload{
			ProductID: row.ProductID,
			Size:      row.Size,
			Color:     row.Color,
			Available: row.Available(),
			Threshold: threshold,
		})
	}
}

func granularityOf(key repository.StockKey) string {
	switch {
	case key.Color != "":
		return constants.StockGranularitySizeColor
	case key.Size != "":
		return constants.StockGranularitySize
	default:
		return constants.StockGranularityGeneral
	}
}
