package router

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/authz"
	"github.com/mavazi-pos/internal/cache"
	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = response.RequestIDKey
const requestIDHeader = "X-Request-ID"

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{
		"Content-Type",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		requestIDHeader,
		"X-Signature",
	}
)

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

// CORSMiddleware 跨域中间件，未配置来源时放行全部
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	origins := orDefault(cfg.AllowedOrigins, []string{"*"})
	methods := strings.Join(orDefault(cfg.AllowedMethods, defaultCORSMethods), ", ")
	headers := strings.Join(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if origin := resolveAllowedOrigin(c.GetHeader("Origin"), origins, cfg.AllowCredentials); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Expose-Headers", requestIDHeader+", Retry-After")
		if maxAge != "" {
			h.Set("Access-Control-Max-Age", maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowed []string, credentials bool) string {
	if slices.Contains(allowed, "*") {
		if credentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, item := range allowed {
		if strings.EqualFold(item, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 透传或生成 X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 访问日志，5xx 记 error，4xx 记 warn
func LoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("request_id", response.RequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
		}
		if staffID, ok := shared.GetStaffID(c); ok {
			fields = append(fields, zap.Uint("staff_id", staffID))
		}
		switch status := c.Writer.Status(); {
		case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
			base.Error("http_request", append(fields, zap.String("errors", c.Errors.String()))...)
		case status >= http.StatusBadRequest:
			base.Warn("http_request", fields...)
		default:
			base.Info("http_request", fields...)
		}
	}
}

// StaffStateResolver 员工鉴权状态来源
type StaffStateResolver interface {
	ResolveStaffState(ctx context.Context, staffID uint) (*cache.StaffAuthState, error)
}

// JWTAuthMiddleware JWT 鉴权中间件
func JWTAuthMiddleware(secretKey string, resolver StaffStateResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" || resolver == nil {
			response.Unauthorized(c, "服务端未配置鉴权")
			c.Abort()
			return
		}
		raw, msg := bearerToken(c.GetHeader("Authorization"))
		if msg != "" {
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		claims := &service.JWTClaims{}
		token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		})
		if err != nil || !token.Valid || claims.StaffID == 0 {
			response.Unauthorized(c, "无效的 token")
			c.Abort()
			return
		}

		state, err := resolver.ResolveStaffState(c.Request.Context(), claims.StaffID)
		if err != nil || state == nil {
			response.Unauthorized(c, "无效的 token")
			c.Abort()
			return
		}
		if !state.IsActive {
			response.Unauthorized(c, service.ErrStaffDisabled.Error())
			c.Abort()
			return
		}
		if claims.TokenVersion != state.TokenVersion {
			response.Unauthorized(c, service.ErrTokenRevoked.Error())
			c.Abort()
			return
		}

		c.Set(shared.StaffIDKey, state.StaffID)
		c.Set(shared.StaffRoleKey, state.Role)
		c.Set(shared.UsernameKey, claims.Username)
		c.Next()
	}
}

func bearerToken(header string) (string, string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "缺少 Authorization 头"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "Authorization 格式错误"
	}
	return token, ""
}

// StaffRBACMiddleware 员工 RBAC 鉴权中间件
func StaffRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("staff_rbac_service_unavailable")
			response.Unauthorized(c, "未授权")
			c.Abort()
			return
		}

		staffID, ok := shared.GetStaffID(c)
		if !ok {
			response.Unauthorized(c, "未授权")
			c.Abort()
			return
		}
		role, _ := shared.GetStaffRole(c)
		if err := authzService.SyncStaffRole(staffID, role); err != nil {
			logger.Warnw("staff_rbac_sync_role_failed", "staff_id", staffID, "role", role, "error", err)
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceStaff(staffID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("staff_rbac_enforce_failed",
				"staff_id", staffID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Unauthorized(c, "未授权")
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("staff_rbac_permission_denied",
				"staff_id", staffID,
				"role", role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, "无权访问")
			c.Abort()
			return
		}

		c.Next()
	}
}
