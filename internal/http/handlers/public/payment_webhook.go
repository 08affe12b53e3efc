package public

import (
	"io"

	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	webhookSignatureHeader = "X-Signature"
	webhookMaxBodyBytes    = 1 << 20
)

// PaymentWebhook 支付提供方回调入口
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookMaxBodyBytes))
	if err != nil {
		response.BadRequest(c, "读取回调内容失败")
		return
	}
	result, err := h.PaymentService.HandleWebhook(c.Request.Context(), service.WebhookInput{
		Provider:  c.Param("provider"),
		Signature: c.GetHeader(webhookSignatureHeader),
		Body:      body,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, result)
}
