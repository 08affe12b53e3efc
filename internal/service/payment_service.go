package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/cache"
	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"

	"github.com/shopspring/decimal"
)

const webhookDedupScope = "payment_webhook"

// PaymentService 支付回调服务
type PaymentService struct {
	orderRepo  repository.OrderRepository
	txRepo     repository.TransactionRepository
	completion *SaleCompletionService
	secrets    map[string]string
	dedupTTL   time.Duration
}

// NewPaymentService 创建支付回调服务
func NewPaymentService(cfg config.PaymentConfig, orderRepo repository.OrderRepository, txRepo repository.TransactionRepository, completion *SaleCompletionService) *PaymentService {
	secrets := make(map[string]string, len(cfg.WebhookSecrets))
	for provider, secret := range cfg.WebhookSecrets {
		provider = strings.ToLower(strings.TrimSpace(provider))
		if provider == "" || strings.TrimSpace(secret) == "" {
			continue
		}
		secrets[provider] = secret
	}
	ttl := time.Duration(cfg.WebhookDedupSecs) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PaymentService{
		orderRepo:  orderRepo,
		txRepo:     txRepo,
		completion: completion,
		secrets:    secrets,
		dedupTTL:   ttl,
	}
}

// WebhookInput 回调原始输入
type WebhookInput struct {
	Provider  string
	Signature string
	Body      []byte
}

// WebhookPayload 回调内容
type WebhookPayload struct {
	EventID   string          `json:"event_id"`
	OrderNo   string          `json:"order_no"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// WebhookResult 回调处理结果
type WebhookResult struct {
	Duplicate   bool                `json:"duplicate"`
	Order       *models.Order       `json:"order,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// SignWebhook 计算回调签名（hex 编码的 HMAC-SHA256）
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HandleWebhook 处理支付提供方回调
// success 完成订单并扣减库存；failed 关闭订单并释放预占；reversed 对已完成订单退款（不回补库存）。
// 相同 event_id 的重复投递直接返回 Duplicate。
func (s *PaymentService) HandleWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error) {
	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	secret, ok := s.secrets[provider]
	if !ok {
		return nil, ErrPaymentProviderUnknown
	}
	expected := SignWebhook(secret, input.Body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(input.Signature)))) {
		logger.Warnw("payment_webhook_signature_invalid", "provider", provider)
		return nil, ErrInvalidSignature
	}

	var payload WebhookPayload
	if err := json.Unmarshal(input.Body, &payload); err != nil {
		return nil, ErrWebhookPayloadInvalid
	}
	payload.Status = strings.ToLower(strings.TrimSpace(payload.Status))
	payload.OrderNo = strings.TrimSpace(payload.OrderNo)
	payload.Reference = strings.TrimSpace(payload.Reference)
	if payload.EventID == "" || payload.OrderNo == "" || payload.Reference == "" {
		return nil, ErrWebhookPayloadInvalid
	}
	switch payload.Status {
	case constants.TransactionStatusSuccess, constants.TransactionStatusFailed, constants.TransactionStatusReversed:
	default:
		return nil, ErrWebhookPayloadInvalid
	}

	first, err := cache.MarkOnce(ctx, webhookDedupScope+":"+provider, payload.EventID, s.dedupTTL)
	if err != nil {
		logger.Warnw("payment_webhook_dedup_failed", "provider", provider, "event_id", payload.EventID, "error", err)
		first = true
	}
	if !first {
		logger.Infow("payment_webhook_duplicate", "provider", provider, "event_id", payload.EventID)
		return &WebhookResult{Duplicate: true}, nil
	}

	result, err := s.applyWebhook(ctx, provider, payload)
	if err != nil {
		if forgetErr := cache.ForgetOnce(ctx, webhookDedupScope+":"+provider, payload.EventID); forgetErr != nil {
			logger.Warnw("payment_webhook_dedup_forget_failed", "event_id", payload.EventID, "error", forgetErr)
		}
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) applyWebhook(ctx context.Context, provider string, payload WebhookPayload) (*WebhookResult, error) {
	order, err := s.orderRepo.GetByOrderNo(payload.OrderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	tx, err := s.resolveTransaction(order, provider, payload)
	if err != nil {
		return nil, err
	}
	metadata := models.JSON{
		"event_id": payload.EventID,
		"status":   payload.Status,
		"amount":   payload.Amount.StringFixed(2),
		"currency": payload.Currency,
	}

	switch payload.Status {
	case constants.TransactionStatusSuccess:
		if !payload.Amount.Equal(order.TotalAmount.Decimal) {
			logger.Warnw("payment_webhook_amount_mismatch",
				"order_no", order.OrderNo,
				"expected", order.TotalAmount.String(),
				"actual", payload.Amount.StringFixed(2),
			)
			return nil, ErrAmountMismatch
		}
		if _, err := s.txRepo.TransitionStatus(tx.ID, []string{constants.TransactionStatusPending, constants.TransactionStatusFailed}, constants.TransactionStatusSuccess, metadata); err != nil {
			return nil, err
		}
		if err := s.orderRepo.MarkPaid(order.ID, payload.Reference, time.Now()); err != nil {
			logger.Warnw("payment_webhook_mark_paid_failed", "order_id", order.ID, "error", err)
		}
		order, err = s.completion.CompleteSale(ctx, order.ID)
		if err != nil {
			return nil, err
		}
	case constants.TransactionStatusFailed:
		if _, err := s.txRepo.TransitionStatus(tx.ID, []string{constants.TransactionStatusPending}, constants.TransactionStatusFailed, metadata); err != nil {
			return nil, err
		}
		if CanTransitionOrderStatus(order.Status, constants.OrderStatusFailed) {
			failed, err := s.completion.FailSale(ctx, order.ID, constants.OrderStatusFailed, "payment_failed")
			switch {
			case err == nil:
				order = failed
			case errors.Is(err, ErrOrderStatusInvalid):
				// 订单已被并发推进（如先到的成功回调），以库中最新状态为准
				if latest, loadErr := s.orderRepo.GetByOrderNo(order.OrderNo); loadErr == nil && latest != nil {
					order = latest
				}
			default:
				return nil, err
			}
		}
	case constants.TransactionStatusReversed:
		if _, err := s.txRepo.TransitionStatus(tx.ID, []string{constants.TransactionStatusSuccess}, constants.TransactionStatusReversed, metadata); err != nil {
			return nil, err
		}
		if order.Status == constants.OrderStatusCompleted {
			order, err = s.completion.Refund(ctx, order.ID, "payment_reversed")
			if err != nil {
				return nil, err
			}
		}
	}

	refreshed, err := s.txRepo.GetByProviderReference(provider, payload.Reference)
	if err == nil && refreshed != nil {
		tx = refreshed
	}
	logger.Infow("payment_webhook_applied",
		"provider", provider,
		"order_no", payload.OrderNo,
		"status", payload.Status,
		"order_status", order.Status,
	)
	return &WebhookResult{Order: order, Transaction: tx}, nil
}

// resolveTransaction 查找回调对应的流水，提供方主动推送的新流水会被补记
func (s *PaymentService) resolveTransaction(order *models.Order, provider string, payload WebhookPayload) (*models.Transaction, error) {
	tx, err := s.txRepo.GetByProviderReference(provider, payload.Reference)
	if err != nil {
		return nil, err
	}
	if tx != nil {
		if tx.OrderID != order.ID {
			return nil, ErrWebhookPayloadInvalid
		}
		return tx, nil
	}
	tx = &models.Transaction{
		OrderID:           order.ID,
		PaymentProvider:   provider,
		ProviderReference: payload.Reference,
		Amount:            models.NewMoneyFromDecimal(payload.Amount),
		Status:            constants.TransactionStatusPending,
	}
	if err := s.txRepo.Create(tx); err != nil {
		return nil, err
	}
	return tx, nil
}
