package service

import (
	"context"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/events"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/metrics"
	"github.com/mavazi-pos/internal/repository"
)

type reserveOutcome int

const (
	reserveApplied reserveOutcome = iota
	reserveUntracked
	reserveRejected
)

const (
	inventoryOpReserve = "reserve"
	inventoryOpRelease = "release"
)

// reserve 在商品总库存行上预占。商品没有总库存行时视为不跟踪库存，直接放行。
func (s *InventoryService) reserve(ctx context.Context, productID uint, quantity int, orderID *uint) (reserveOutcome, error) {
	started := time.Now()
	if productID == 0 || quantity <= 0 {
		metrics.ObserveInventory(inventoryOpReserve, "", "invalid", started)
		return reserveRejected, ErrInvalidQuantity
	}
	ok, err := s.ledgerRepo.TryReserve(productID, quantity)
	if err != nil {
		metrics.ObserveInventory(inventoryOpReserve, "", "error", started)
		logger.Errorw("inventory_reserve_store_failed", "product_id", productID, "quantity", quantity, "error", err)
		return reserveRejected, wrapStoreError("reserve", err)
	}
	if ok {
		metrics.ObserveInventory(inventoryOpReserve, constants.StockGranularityGeneral, "ok", started)
		key := repository.GeneralKey(productID)
		s.recordMovement(key, constants.StockMovementReserve, 0, quantity, orderID, nil)
		s.publish(ctx, events.EventStockReserved, productID, orderID, events.StockChangedPayload{
			ProductID:   productID,
			Granularity: constants.StockGranularityGeneral,
			Quantity:    quantity,
			OrderID:     orderID,
		})
		return reserveApplied, nil
	}

	general, err := s.ledgerRepo.GetGeneral(productID)
	if err != nil {
		metrics.ObserveInventory(inventoryOpReserve, "", "error", started)
		return reserveRejected, wrapStoreError("load general", err)
	}
	if general == nil {
		metrics.ObserveInventory(inventoryOpReserve, "", "untracked", started)
		return reserveUntracked, nil
	}
	metrics.ObserveInventory(inventoryOpReserve, constants.StockGranularityGeneral, "rejected", started)
	logger.Infow("inventory_reserve_rejected",
		"product_id", productID,
		"quantity", quantity,
		"available", general.Available(),
	)
	return reserveRejected, nil
}

// release 释放商品总库存行上的预占；没有总库存行时视为成功
// 流水中的 delta_reserved 记录请求释放量，台账本身最低回落到 0。
func (s *InventoryService) release(ctx context.Context, productID uint, quantity int, orderID *uint) (bool, error) {
	started := time.Now()
	if productID == 0 || quantity <= 0 {
		metrics.ObserveInventory(inventoryOpRelease, "", "invalid", started)
		return false, ErrInvalidQuantity
	}
	ok, err := s.ledgerRepo.TryRelease(productID, quantity)
	if err != nil {
		metrics.ObserveInventory(inventoryOpRelease, "", "error", started)
		logger.Errorw("inventory_release_store_failed", "product_id", productID, "quantity", quantity, "error", err)
		return false, wrapStoreError("release", err)
	}
	if !ok {
		metrics.ObserveInventory(inventoryOpRelease, "", "untracked", started)
		return true, nil
	}
	metrics.ObserveInventory(inventoryOpRelease, constants.StockGranularityGeneral, "ok", started)
	s.recordMovement(repository.GeneralKey(productID), constants.StockMovementRelease, 0, -quantity, orderID, nil)
	s.publish(ctx, events.EventStockReleased, productID, orderID, events.StockChangedPayload{
		ProductID:   productID,
		Granularity: constants.StockGranularityGeneral,
		Quantity:    quantity,
		OrderID:     orderID,
	})
	return true, nil
}

// ReserveForOrder 为订单项预占，返回该项是否真正占用了总库存
func (s *InventoryService) ReserveForOrder(ctx context.Context, orderID uint, productID uint, quantity int) (reserved bool, err error) {
	outcome, err := s.reserve(ctx, productID, quantity, &orderID)
	if err != nil {
		return false, err
	}
	switch outcome {
	case reserveApplied:
		return true, nil
	case reserveUntracked:
		return false, nil
	default:
		return false, ErrInsufficientStock
	}
}

// ReleaseForOrder 释放订单项的预占
func (s *InventoryService) ReleaseForOrder(ctx context.Context, orderID uint, productID uint, quantity int) error {
	_, err := s.release(ctx, productID, quantity, &orderID)
	return err
}
