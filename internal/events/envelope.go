package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	EventStockReserved  = "inventory.stock_reserved"
	EventStockReleased  = "inventory.stock_released"
	EventStockDeducted  = "inventory.stock_deducted"
	EventStockRejected  = "inventory.stock_rejected"
	EventStockLow       = "inventory.stock_low"
	EventOrderCompleted = "order.completed"
	EventOrderCancelled = "order.cancelled"
	EventOrderRefunded  = "order.refunded"
)

const envelopeVersion = 1

// Envelope 事件信封
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Key           string          `json:"-"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope 构建事件信封，key 决定分区（通常为商品ID）
func NewEnvelope(eventType, key, correlationID string, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
		Key:           key,
		Payload:       raw,
	}, nil
}

// DecodePayload 解码事件载荷
func DecodePayload[T any](env *Envelope) (T, error) {
	var out T
	if env == nil {
		return out, fmt.Errorf("nil envelope")
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

// StockChangedPayload 库存变动载荷
type StockChangedPayload struct {
	ProductID   uint   `json:"product_id"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	Granularity string `json:"granularity"`
	Quantity    int    `json:"quantity"`
	OrderID     *uint  `json:"order_id,omitempty"`
	SellerID    *uint  `json:"seller_id,omitempty"`
}

// StockLowPayload 低库存告警载荷
type StockLowPayload struct {
	ProductID uint   `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
}

// OrderStatusPayload 订单状态载荷
type OrderStatusPayload struct {
	OrderID  uint   `json:"order_id"`
	OrderNo  string `json:"order_no"`
	Status   string `json:"status"`
	SaleType string `json:"sale_type"`
	Reason   string `json:"reason,omitempty"`
}
