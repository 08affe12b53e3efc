// Package metrics 提供 Prometheus 指标定义与 HTTP 暴露入口。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mavazi"

var (
	// RequestDuration HTTP 请求耗时
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// InventoryOperations 库存操作计数，result 取 ok/rejected/untracked/error
	InventoryOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "operations_total",
			Help:      "Inventory reserve/release/deduct operations by outcome.",
		},
		[]string{"operation", "granularity", "result"},
	)

	// InventoryOperationDuration 库存操作耗时
	InventoryOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "operation_duration_seconds",
			Help:      "Duration of inventory operations in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// SaleCompletions 订单完成时逐项扣减结果
	SaleCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "item_commits_total",
			Help:      "Sale-completion stock commits per order item.",
		},
		[]string{"sale_type", "result"},
	)

	// QueueJobsProcessed 异步任务处理计数
	QueueJobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total queue jobs processed.",
		},
		[]string{"task", "status"},
	)
)

// Registry 应用专用注册表
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(
		RequestDuration,
		InventoryOperations,
		InventoryOperationDuration,
		SaleCompletions,
		QueueJobsProcessed,
	)
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// GinMiddleware 记录请求耗时，route 使用路由模板避免高基数
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// ObserveInventory 记录一次库存操作
func ObserveInventory(operation, granularity, result string, started time.Time) {
	if granularity == "" {
		granularity = "none"
	}
	InventoryOperations.WithLabelValues(operation, granularity, result).Inc()
	InventoryOperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// RecordQueueJob 记录异步任务结果
func RecordQueueJob(task string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	QueueJobsProcessed.WithLabelValues(task, status).Inc()
}
