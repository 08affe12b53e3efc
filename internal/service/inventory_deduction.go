package service

import (
	"context"
	"errors"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/events"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/metrics"
	"github.com/mavazi-pos/internal/repository"

	"gorm.io/gorm"
)

const inventoryOpDeduct = "deduct"

// errSweepGuardMissed 扫描过程中某行条件更新未命中，用于触发事务回滚
var errSweepGuardMissed = errors.New("sweep guard missed")

// Deduct 按粒度优先级提交扣减
// 优先级：尺码+颜色 → 仅颜色 → 仅尺码 → 商品总库存 → 尺码扫描。
// 匹配到的行库存不足时直接失败，不向更粗的粒度回退；失败时不保留任何部分扣减。
func (s *InventoryService) Deduct(ctx context.Context, req DeductRequest) (*DeductResult, error) {
	started := time.Now()
	if req.ProductID == 0 || req.Quantity <= 0 {
		metrics.ObserveInventory(inventoryOpDeduct, "", "invalid", started)
		return nil, ErrInvalidQuantity
	}
	size, err := NormalizeSize(req.Size)
	if err != nil {
		metrics.ObserveInventory(inventoryOpDeduct, "", "invalid", started)
		return nil, err
	}
	req.Size = size
	req.Color = NormalizeColor(req.Color)

	result, err := s.resolveDeduction(req)
	if err != nil {
		s.onDeductFailed(ctx, req, err, started)
		return nil, err
	}
	if result.Untracked {
		metrics.ObserveInventory(inventoryOpDeduct, "", "untracked", started)
		logger.Debugw("inventory_deduct_untracked", "product_id", req.ProductID, "quantity", req.Quantity)
		return result, nil
	}

	metrics.ObserveInventory(inventoryOpDeduct, result.Granularity, "ok", started)
	for _, touch := range result.Touched {
		s.recordMovement(touch.Key, constants.StockMovementDeduct, -touch.Quantity, 0, req.OrderID, req.SellerID)
		s.publish(ctx, events.EventStockDeducted, req.ProductID, req.OrderID, events.StockChangedPayload{
			ProductID:   touch.Key.ProductID,
			Size:        touch.Key.Size,
			Color:       touch.Key.Color,
			Granularity: granularityOf(touch.Key),
			Quantity:    touch.Quantity,
			OrderID:     req.OrderID,
			SellerID:    req.SellerID,
		})
	}
	s.checkLowStock(ctx, result.Touched)
	return result, nil
}

func (s *InventoryService) onDeductFailed(ctx context.Context, req DeductRequest, err error, started time.Time) {
	if errors.Is(err, ErrStockStore) {
		metrics.ObserveInventory(inventoryOpDeduct, "", "error", started)
		logger.Stock(req.ProductID, req.Size, req.Color).Errorw("inventory_deduct_store_failed", "quantity", req.Quantity, "error", err)
		return
	}
	metrics.ObserveInventory(inventoryOpDeduct, "", "rejected", started)
	logger.Stock(req.ProductID, req.Size, req.Color).Infow("inventory_deduct_rejected", "quantity", req.Quantity, "reason", err.Error())
	s.publish(ctx, events.EventStockRejected, req.ProductID, req.OrderID, events.StockChangedPayload{
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
		OrderID:   req.OrderID,
		SellerID:  req.SellerID,
	})
}

// dimensionCandidates 返回请求对应的细粒度候选行，按优先级排列
func dimensionCandidates(req DeductRequest) []repository.StockKey {
	keys := make([]repository.StockKey, 0, 3)
	if req.Size != "" && req.Color != "" {
		keys = append(keys, repository.StockKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color})
	}
	if req.Color != "" {
		keys = append(keys, repository.StockKey{ProductID: req.ProductID, Color: req.Color})
	}
	if req.Size != "" {
		keys = append(keys, repository.StockKey{ProductID: req.ProductID, Size: req.Size})
	}
	return keys
}

func (s *InventoryService) resolveDeduction(req DeductRequest) (*DeductResult, error) {
	for _, key := range dimensionCandidates(req) {
		matched, err := s.decrementRow(key, req.Quantity, repository.DecrementTrimReserved)
		if err != nil {
			return nil, err
		}
		if matched {
			return touchedResult(key, req.Quantity), nil
		}
	}

	generalKey := repository.GeneralKey(req.ProductID)
	ok, err := s.ledgerRepo.TryDecrement(generalKey, req.Quantity, req.Reservation.decrementPolicy())
	if err != nil {
		return nil, wrapStoreError("decrement general", err)
	}
	if ok {
		return touchedResult(generalKey, req.Quantity), nil
	}
	general, err := s.ledgerRepo.GetGeneral(req.ProductID)
	if err != nil {
		return nil, wrapStoreError("load general", err)
	}
	return s.sweepSizes(req, general != nil)
}

// decrementRow 尝试扣减指定行。
// 返回 (true, nil) 表示扣减成功；(false, nil) 表示该行不存在，可继续下一优先级；
// 行存在但库存不足时返回 ErrInsufficientStock。
func (s *InventoryService) decrementRow(key repository.StockKey, quantity int, policy repository.DecrementPolicy) (bool, error) {
	ok, err := s.ledgerRepo.TryDecrement(key, quantity, policy)
	if err != nil {
		return false, wrapStoreError("decrement "+granularityOf(key), err)
	}
	if ok {
		return true, nil
	}
	row, err := s.ledgerRepo.GetByKey(key)
	if err != nil {
		return false, wrapStoreError("load "+granularityOf(key), err)
	}
	if row != nil {
		return false, ErrInsufficientStock
	}
	return false, nil
}

// sweepSizes 在事务内按可售量从大到小贪心扣减尺码库存
// 先汇总校验可售总量，不足时不写任何行；扣减中途任一行守卫失败则整体回滚。
func (s *InventoryService) sweepSizes(req DeductRequest, hasGeneral bool) (*DeductResult, error) {
	var touched []StockTouch
	var rowCount int
	err := s.ledgerRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.ledgerRepo.WithTx(tx)
		rows, err := repo.ListSizesForSweep(req.ProductID)
		if err != nil {
			return wrapStoreError("list sizes", err)
		}
		rowCount = len(rows)
		if rowCount == 0 {
			return nil
		}
		total := 0
		for i := range rows {
			total += rows[i].Available()
		}
		if total < req.Quantity {
			return ErrInsufficientStock
		}

		remaining := req.Quantity
		for i := range rows {
			if remaining == 0 {
				break
			}
			take := rows[i].Available()
			if take == 0 {
				continue
			}
			if take > remaining {
				take = remaining
			}
			key := repository.StockKey{ProductID: req.ProductID, Size: rows[i].Size}
			ok, err := repo.TryDecrement(key, take, repository.DecrementTrimReserved)
			if err != nil {
				return wrapStoreError("sweep decrement", err)
			}
			if !ok {
				return errSweepGuardMissed
			}
			touched = append(touched, StockTouch{Key: key, Quantity: take})
			remaining -= take
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errSweepGuardMissed) {
			logger.Warnw("inventory_sweep_rolled_back", "product_id", req.ProductID, "quantity", req.Quantity)
			return nil, ErrInsufficientStock
		}
		return nil, err
	}
	if rowCount > 0 {
		return &DeductResult{Granularity: constants.StockGranularitySize, Touched: touched}, nil
	}
	if hasGeneral {
		return nil, ErrInsufficientStock
	}

	count, err := s.ledgerRepo.CountByProduct(req.ProductID)
	if err != nil {
		return nil, wrapStoreError("count ledgers", err)
	}
	if count == 0 {
		return &DeductResult{Untracked: true}, nil
	}
	return nil, ErrNoMatchingLedgerRow
}

func touchedResult(key repository.StockKey, quantity int) *DeductResult {
	return &DeductResult{
		Granularity: granularityOf(key),
		Touched:     []StockTouch{{Key: key, Quantity: quantity}},
	}
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
