package service

import (
	"context"
	"strconv"
	"time"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/events"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/metrics"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"
)

// SaleCompletionService 订单完成编排：支付成功或 POS 收款后提交库存扣减，支付失败或取消时释放预占
type SaleCompletionService struct {
	orderRepo repository.OrderRepository
	inventory *InventoryService
	publisher events.Publisher
}

// NewSaleCompletionService 创建订单完成编排服务
func NewSaleCompletionService(orderRepo repository.OrderRepository, inventory *InventoryService, publisher events.Publisher) *SaleCompletionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &SaleCompletionService{
		orderRepo: orderRepo,
		inventory: inventory,
		publisher: publisher,
	}
}

// CompleteSale 完成订单
// 逐项扣减库存，单项失败只记录日志与失败原因并继续，订单仍然完成：款项已收，库存差异交由对账处理。
// 同一订单重复调用（如支付回调重试）只扣减一次。
func (s *SaleCompletionService) CompleteSale(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusCompleted {
		return order, nil
	}
	if order.Status == constants.OrderStatusPending {
		if _, err := s.orderRepo.TransitionStatus(order.ID, []string{constants.OrderStatusPending}, constants.OrderStatusProcessing, nil); err != nil {
			return nil, ErrOrderUpdateFailed
		}
		order, err = s.reload(order.ID)
		if err != nil {
			return nil, err
		}
	}
	switch order.Status {
	case constants.OrderStatusProcessing:
	case constants.OrderStatusCompleted:
		return order, nil
	default:
		return nil, ErrOrderStatusInvalid
	}

	claimed, err := s.orderRepo.ClaimStockCommit(order.ID)
	if err != nil {
		return nil, ErrOrderUpdateFailed
	}
	if claimed {
		s.commitStock(ctx, order)
	} else {
		logger.Infow("sale_stock_commit_skipped", "order_id", order.ID, "order_no", order.OrderNo)
	}

	now := time.Now()
	moved, err := s.orderRepo.TransitionStatus(order.ID, []string{constants.OrderStatusProcessing}, constants.OrderStatusCompleted, map[string]interface{}{
		"completed_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return nil, ErrOrderUpdateFailed
	}
	completed, err := s.reload(order.ID)
	if err != nil {
		return nil, err
	}
	if !moved && completed.Status != constants.OrderStatusCompleted {
		return nil, ErrOrderStatusInvalid
	}
	if moved {
		s.publishStatus(ctx, completed, events.EventOrderCompleted, "")
	}
	return completed, nil
}

// commitStock 逐项扣减，已预占的订单项在扣减未落到总库存行时释放预占
func (s *SaleCompletionService) commitStock(ctx context.Context, order *models.Order) {
	for i := range order.Items {
		item := &order.Items[i]
		mode := ReservationNone
		if item.Reserved {
			mode = ReservationConsumed
		}
		result, err := s.inventory.Deduct(ctx, DeductRequest{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Size:        item.Size,
			Color:       item.Color,
			SellerID:    order.SellerID,
			OrderID:     &order.ID,
			Reservation: mode,
		})
		if err != nil {
			metrics.SaleCompletions.WithLabelValues(order.SaleType, "failed").Inc()
			logger.Errorw("sale_item_deduct_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"item_id", item.ID,
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"size", item.Size,
				"color", item.Color,
				"error", err,
			)
			if updateErr := s.orderRepo.UpdateItemStockError(item.ID, err.Error()); updateErr != nil {
				logger.Warnw("sale_item_stock_error_save_failed", "item_id", item.ID, "error", updateErr)
			}
		} else {
			metrics.SaleCompletions.WithLabelValues(order.SaleType, "ok").Inc()
		}

		if item.Reserved && (err != nil || result.Granularity != constants.StockGranularityGeneral) {
			if relErr := s.inventory.ReleaseForOrder(ctx, order.ID, item.ProductID, item.Quantity); relErr != nil {
				logger.Warnw("sale_item_release_failed",
					"order_id", order.ID,
					"item_id", item.ID,
					"product_id", item.ProductID,
					"error", relErr,
				)
			}
		}
	}
}

// FailSale 支付失败或取消：迁移订单状态并释放订单项预占
func (s *SaleCompletionService) FailSale(ctx context.Context, orderID uint, targetStatus, reason string) (*models.Order, error) {
	if targetStatus != constants.OrderStatusFailed && targetStatus != constants.OrderStatusCancelled {
		return nil, ErrOrderStatusInvalid
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == targetStatus {
		return order, nil
	}
	if !CanTransitionOrderStatus(order.Status, targetStatus) {
		return nil, ErrOrderStatusInvalid
	}

	now := time.Now()
	moved, err := s.orderRepo.TransitionStatus(order.ID, sourceStatuses(targetStatus), targetStatus, map[string]interface{}{
		"canceled_at": now,
		"updated_at":  now,
	})
	if err != nil {
		return nil, ErrOrderUpdateFailed
	}
	if !moved {
		return nil, ErrOrderStatusInvalid
	}
	// 抢占库存提交标记后再释放，防止与并发的 CompleteSale 同时处理同一批预占
	settled, err := s.orderRepo.ClaimStockCommit(order.ID)
	if err != nil {
		logger.Warnw("order_stock_settle_claim_failed", "order_id", order.ID, "error", err)
	}
	if settled {
		for _, item := range order.Items {
			if !item.Reserved {
				continue
			}
			if err := s.inventory.ReleaseForOrder(ctx, order.ID, item.ProductID, item.Quantity); err != nil {
				logger.Warnw("sale_item_release_failed",
					"order_id", order.ID,
					"item_id", item.ID,
					"product_id", item.ProductID,
					"error", err,
				)
			}
		}
	}

	logger.Infow("order_closed", "order_id", order.ID, "order_no", order.OrderNo, "status", targetStatus, "reason", reason)
	updated, err := s.reload(order.ID)
	if err != nil {
		return nil, err
	}
	s.publishStatus(ctx, updated, events.EventOrderCancelled, reason)
	return updated, nil
}

// Refund 已完成订单退款，不回补库存
func (s *SaleCompletionService) Refund(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusRefunded {
		return order, nil
	}
	if !CanTransitionOrderStatus(order.Status, constants.OrderStatusRefunded) {
		return nil, ErrOrderStatusInvalid
	}
	now := time.Now()
	moved, err := s.orderRepo.TransitionStatus(order.ID, []string{constants.OrderStatusCompleted}, constants.OrderStatusRefunded, map[string]interface{}{
		"refunded_at": now,
		"updated_at":  now,
	})
	if err != nil {
		return nil, ErrOrderUpdateFailed
	}
	if !moved {
		return nil, ErrOrderStatusInvalid
	}
	updated, err := s.reload(order.ID)
	if err != nil {
		return nil, err
	}
	s.publishStatus(ctx, updated, events.EventOrderRefunded, reason)
	return updated, nil
}

func (s *SaleCompletionService) reload(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *SaleCompletionService) publishStatus(ctx context.Context, order *models.Order, eventType, reason string) {
	env, err := events.NewEnvelope(eventType, order.OrderNo, strconv.FormatUint(uint64(order.ID), 10), events.OrderStatusPayload{
		OrderID:  order.ID,
		OrderNo:  order.OrderNo,
		Status:   order.Status,
		SaleType: order.SaleType,
		Reason:   reason,
	})
	if err != nil {
		logger.Warnw("order_event_build_failed", "order_id", order.ID, "event_type", eventType, "error", err)
		return
	}
	s.publisher.Publish(ctx, env)
}
