package shared

import (
	"errors"

	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
}

var serviceErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest},
	{target: service.ErrInvalidSize, code: response.CodeBadRequest},
	{target: service.ErrInsufficientStock, code: response.CodeConflict},
	{target: service.ErrNoMatchingLedgerRow, code: response.CodeConflict},
	{target: service.ErrStockStore, code: response.CodeUnavailable},
	{target: service.ErrStockLevelBelowReserved, code: response.CodeConflict},
	{target: service.ErrStockLedgerNotFound, code: response.CodeNotFound},
	{target: service.ErrProductNotFound, code: response.CodeNotFound},
	{target: service.ErrProductInactive, code: response.CodeBadRequest},
	{target: service.ErrProductCodeExists, code: response.CodeConflict},
	{target: service.ErrProductInvalid, code: response.CodeBadRequest},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound},
	{target: service.ErrOrderItemsEmpty, code: response.CodeBadRequest},
	{target: service.ErrOrderStatusInvalid, code: response.CodeConflict},
	{target: service.ErrOrderCreateFailed, code: response.CodeInternal},
	{target: service.ErrOrderUpdateFailed, code: response.CodeInternal},
	{target: service.ErrPaymentProviderUnknown, code: response.CodeBadRequest},
	{target: service.ErrInvalidSignature, code: response.CodeUnauthorized},
	{target: service.ErrWebhookPayloadInvalid, code: response.CodeBadRequest},
	{target: service.ErrAmountMismatch, code: response.CodeUnprocessable},
	{target: service.ErrTransactionNotFound, code: response.CodeNotFound},
	{target: service.ErrInvalidCredentials, code: response.CodeUnauthorized},
	{target: service.ErrStaffDisabled, code: response.CodeUnauthorized},
	{target: service.ErrStaffNotFound, code: response.CodeNotFound},
	{target: service.ErrStaffExists, code: response.CodeConflict},
	{target: service.ErrTokenRevoked, code: response.CodeUnauthorized},
}

// RespondServiceError 将 service 层错误映射为统一响应，未识别的错误按 500 处理并记录日志
func RespondServiceError(c *gin.Context, err error) {
	for _, rule := range serviceErrorRules {
		if errors.Is(err, rule.target) {
			response.Error(c, rule.code, rule.target.Error())
			return
		}
	}
	RespondErrorWithMsg(c, response.CodeInternal, "服务器内部错误", err)
}
