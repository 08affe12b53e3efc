package queue

import (
	"encoding/json"

	"github.com/mavazi-pos/internal/constants"

	"github.com/hibiken/asynq"
)

// TaskOrderReservationTimeout 预占超时取消任务
const TaskOrderReservationTimeout = constants.TaskOrderReservationTimeout

// OrderReservationTimeoutPayload 预占超时任务载荷
type OrderReservationTimeoutPayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderReservationTimeoutTask 创建预占超时任务
func NewOrderReservationTimeoutTask(payload OrderReservationTimeoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderReservationTimeout, body), nil
}
