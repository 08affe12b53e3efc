package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/metrics"
	"github.com/mavazi-pos/internal/provider"
	"github.com/mavazi-pos/internal/queue"
	"github.com/mavazi-pos/internal/service"

	"github.com/hibiken/asynq"
)

// orderExpirer 预占超时处理
type orderExpirer interface {
	ExpireOrder(ctx context.Context, orderID uint, now time.Time) (bool, error)
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	orders orderExpirer
	now    func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{now: time.Now}
	if c != nil && c.OrderService != nil {
		consumer.orders = c.OrderService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderReservationTimeout, c.handleOrderReservationTimeout)
}

func (c *Consumer) handleOrderReservationTimeout(ctx context.Context, task *asynq.Task) (err error) {
	if c == nil || task == nil {
		logger.Debugw("worker_reservation_timeout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	defer func() { metrics.RecordQueueJob(queue.TaskOrderReservationTimeout, err) }()

	var payload queue.OrderReservationTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reservation_timeout_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_reservation_timeout_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.orders == nil {
		logger.Warnw("worker_reservation_timeout_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	expired, err := c.orders.ExpireOrder(ctx, payload.OrderID, c.now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_reservation_timeout_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderStatusInvalid):
			logger.Debugw("worker_reservation_timeout_skip_invalid_status", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_reservation_timeout_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	logger.Debugw("worker_reservation_timeout_done", "order_id", payload.OrderID, "expired", expired)
	return nil
}
