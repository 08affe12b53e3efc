package router

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/authz"
	"github.com/mavazi-pos/internal/cache"
	"github.com/mavazi-pos/internal/config"
	adminhandlers "github.com/mavazi-pos/internal/http/handlers/admin"
	publichandlers "github.com/mavazi-pos/internal/http/handlers/public"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/metrics"
	"github.com/mavazi-pos/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	limiter := NewRateLimiter(cache.Client(), cfg.Redis.Prefix)
	loginLimit := limiter.Limit(RateLimitRule{
		Name:          "staff_login",
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   max(cfg.RateLimit.MaxRequests/10, 1),
		Message:       "登录尝试过于频繁",
	}, KeyByIPAndJSONField("username"))
	checkoutLimit := limiter.Limit(RateLimitRule{
		Name:          "checkout",
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
		FailOpen:      true,
	}, KeyByIP)
	posLimit := limiter.Limit(RateLimitRule{
		Name:          "pos_sale",
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
		Message:       "收银操作过于频繁",
		FailOpen:      true,
	}, KeyByStaff)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(metrics.GinMiddleware())
	}

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		apiV1.GET("/products", publicHandler.ListProducts)
		apiV1.GET("/products/:id/availability", publicHandler.GetAvailability)
		apiV1.POST("/orders", checkoutLimit, publicHandler.CreateOrder)
		apiV1.GET("/orders/:order_no", publicHandler.GetOrder)
		apiV1.POST("/orders/:order_no/pay", checkoutLimit, publicHandler.PayOrder)
		apiV1.POST("/payments/webhook/:provider", publicHandler.PaymentWebhook)

		// 员工接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", loginLimit, adminHandler.Login)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AuthService), StaffRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/me", adminHandler.Me)

				// 员工管理
				authorized.GET("/staff", adminHandler.ListStaff)
				authorized.POST("/staff", adminHandler.CreateStaff)
				authorized.PUT("/staff/:id/status", adminHandler.UpdateStaffStatus)

				// 商品管理
				authorized.GET("/products", adminHandler.ListProducts)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.GET("/products/:id", adminHandler.GetProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.DELETE("/products/:id", adminHandler.DeleteProduct)

				// 库存台账
				authorized.GET("/products/:id/stock", adminHandler.GetProductStock)
				authorized.PUT("/products/:id/stock", adminHandler.SetProductStock)
				authorized.POST("/products/:id/stock/restock", adminHandler.RestockProduct)
				authorized.DELETE("/products/:id/stock", adminHandler.DeleteProductStock)
				authorized.GET("/stock/movements", adminHandler.ListStockMovements)
				authorized.POST("/stock/reconcile", adminHandler.ReconcileStock)

				// 库存核心操作
				authorized.POST("/stock/reserve", adminHandler.ReserveStock)
				authorized.POST("/stock/release", adminHandler.ReleaseStock)
				authorized.POST("/stock/deduct", adminHandler.DeductStock)

				// POS 收银
				authorized.POST("/pos/sales", posLimit, adminHandler.CreatePOSSale)

				// 订单管理
				authorized.GET("/orders", adminHandler.ListOrders)
				authorized.GET("/orders/:id", adminHandler.GetOrder)
				authorized.POST("/orders/:id/cancel", adminHandler.CancelOrder)
				authorized.POST("/orders/:id/refund", adminHandler.RefundOrder)

				// 权限目录
				authorized.GET("/permissions", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r, c.AuthzService))
				})
			}
		}
	}

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	// 健康检查，依赖异常时返回 503 供负载均衡摘除
	r.GET("/health", func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		status := c.Health(checkCtx)
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, status)
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string   `json:"permission"`
	Roles      []string `json:"roles"`
}

func buildAdminPermissionCatalog(engine *gin.Engine, authzService *authz.Service) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
			Roles:      authzService.RolesAllowed(object, method),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	parts := strings.Split(normalized, "/")
	if len(parts) >= 2 && parts[0] == "admin" {
		return parts[1]
	}
	return parts[0]
}
