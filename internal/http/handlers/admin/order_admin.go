package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/repository"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderActionRequest 取消/退款请求
type OrderActionRequest struct {
	Reason string `json:"reason"`
}

// POSSaleRequest POS 收银请求
type POSSaleRequest struct {
	CustomerPhone    string                   `json:"customer_phone"`
	PaymentMethod    string                   `json:"payment_method"`
	PaymentReference string                   `json:"payment_reference"`
	Items            []service.OrderItemInput `json:"items" binding:"required"`
}

// ListOrders 订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := shared.PageQuery(c)

	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		response.BadRequest(c, "created_from 格式错误")
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		response.BadRequest(c, "created_to 格式错误")
		return
	}
	sellerID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("seller_id")), 10, 64)

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      strings.TrimSpace(c.Query("status")),
		SaleType:    strings.TrimSpace(c.Query("sale_type")),
		SellerID:    uint(sellerID),
		OrderNo:     strings.TrimSpace(c.Query("order_no")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, shared.BuildPagination(page, pageSize, total))
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(id)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消订单并释放预占
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req OrderActionRequest
	_ = c.ShouldBindJSON(&req)
	order, err := h.OrderService.CancelOrder(c.Request.Context(), id, reasonOr(req.Reason, "admin_cancel"))
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// RefundOrder 退款（不回补库存）
func (h *Handler) RefundOrder(c *gin.Context) {
	id, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req OrderActionRequest
	_ = c.ShouldBindJSON(&req)
	order, err := h.OrderService.RefundOrder(c.Request.Context(), id, reasonOr(req.Reason, "admin_refund"))
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// CreatePOSSale 收银员现场销售
func (h *Handler) CreatePOSSale(c *gin.Context) {
	staffID, ok := shared.RequireStaffID(c)
	if !ok {
		return
	}
	var req POSSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	order, err := h.OrderService.CreatePOSSale(c.Request.Context(), service.CreatePOSSaleInput{
		SellerID:         staffID,
		CustomerPhone:    req.CustomerPhone,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		Items:            req.Items,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

func reasonOr(reason, fallback string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fallback
	}
	return reason
}

func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
