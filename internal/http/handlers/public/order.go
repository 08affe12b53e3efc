package public

import (
	"strings"

	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 线上下单请求
type CreateOrderRequest struct {
	CustomerEmail string                   `json:"customer_email"`
	CustomerPhone string                   `json:"customer_phone"`
	Items         []service.OrderItemInput `json:"items" binding:"required"`
}

// PayOrderRequest 发起支付请求
type PayOrderRequest struct {
	Method string `json:"method" binding:"required"`
}

// CreateOrder 线上下单并预占库存
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	order, err := h.OrderService.CreateOnlineOrder(c.Request.Context(), service.CreateOnlineOrderInput{
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Items:         req.Items,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrder 按订单号查询
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.OrderService.GetOrderByNo(strings.TrimSpace(c.Param("order_no")))
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// PayOrder 发起支付
func (h *Handler) PayOrder(c *gin.Context) {
	var req PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	tx, err := h.OrderService.InitiatePayment(c.Request.Context(), c.Param("order_no"), req.Method)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, tx)
}
