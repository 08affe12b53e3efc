package shared

import (
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 带 request_id、方法与路由的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	kv := []interface{}{"method", c.Request.Method, "route", c.FullPath()}
	if id := response.RequestID(c); id != "" {
		kv = append(kv, "request_id", id)
	}
	return logger.SW(kv...)
}

// RespondErrorWithMsg 返回指定错误码与提示；err 非空时记录原始错误，提示语不外泄内部细节
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		log := RequestLog(c)
		if code >= response.CodeInternal {
			log.Errorw("handler_error", "code", code, "message", msg, "error", err)
		} else {
			log.Warnw("handler_error", "code", code, "message", msg, "error", err)
		}
	}
	response.Error(c, code, msg)
}
