package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitUnavailableMsg = "限流服务不可用"

// RateLimitKeyFunc 生成限流 key，返回空串时退回客户端 IP
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
// FailOpen 为 true 时 Redis 故障直接放行（下单、收银），否则返回 503（登录）。
type RateLimitRule struct {
	Name          string
	WindowSeconds int
	MaxRequests   int
	Message       string
	FailOpen      bool
}

// RateLimiter 基于 Redis INCR + EXPIRE 的固定窗口计数
type RateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRateLimiter client 为空时所有规则放行
func NewRateLimiter(client *redis.Client, prefix string) *RateLimiter {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "mavazi"
	}
	return &RateLimiter{client: client, prefix: prefix + ":rate"}
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// Limit 返回按规则计数的中间件
func (l *RateLimiter) Limit(rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		key = fmt.Sprintf("%s:%s:%s", l.prefix, rule.Name, key)

		values, err := rateLimitScript.Run(c.Request.Context(), l.client, []string{key}, rule.WindowSeconds).Int64Slice()
		if err == nil && len(values) < 2 {
			err = fmt.Errorf("unexpected rate limit reply: %v", values)
		}
		if err != nil {
			logger.Warnw("rate_limit_store_failed", "rule", rule.Name, "fail_open", rule.FailOpen, "error", err)
			if rule.FailOpen {
				c.Next()
				return
			}
			response.Error(c, response.CodeUnavailable, rateLimitUnavailableMsg)
			c.Abort()
			return
		}

		count, ttl := values[0], int(values[1])
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}
		if ttl < 1 {
			ttl = rule.WindowSeconds
		}
		msg := strings.TrimSpace(rule.Message)
		if msg == "" {
			msg = "请求过于频繁"
		}
		c.Header("Retry-After", strconv.Itoa(ttl))
		response.Error(c, response.CodeTooManyRequests, fmt.Sprintf("%s，请 %d 秒后重试", msg, ttl))
		c.Abort()
	}
}

// KeyByIP 按客户端 IP
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByStaff 按登录员工，未登录时退回 IP
func KeyByStaff(c *gin.Context) string {
	if staffID, ok := shared.GetStaffID(c); ok {
		return "staff-" + strconv.FormatUint(uint64(staffID), 10)
	}
	return ""
}

// KeyByIPAndJSONField 按 IP + 请求体字段（如登录账号），读取后恢复请求体
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	var payload map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	var text string
	if raw, ok := payload[field]; !ok || json.Unmarshal(raw, &text) != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
