package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveInventoryCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(InventoryOperations.WithLabelValues("deduct", "size", "ok"))
	ObserveInventory("deduct", "size", "ok", time.Now())
	after := testutil.ToFloat64(InventoryOperations.WithLabelValues("deduct", "size", "ok"))
	if after-before != 1 {
		t.Fatalf("want counter +1 got %v", after-before)
	}

	ObserveInventory("reserve", "", "rejected", time.Now())
	if got := testutil.ToFloat64(InventoryOperations.WithLabelValues("reserve", "none", "rejected")); got < 1 {
		t.Fatalf("empty granularity must map to none, got %v", got)
	}
}

func TestRecordQueueJob(t *testing.T) {
	RecordQueueJob("order:reservation_timeout", errors.New("boom"))
	if got := testutil.ToFloat64(QueueJobsProcessed.WithLabelValues("order:reservation_timeout", "failed")); got < 1 {
		t.Fatalf("want failed job recorded got %v", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `mavazi_http_request_duration_seconds_count{method="GET",route="/ping",status="200"}`) {
		t.Fatalf("expected request histogram in output")
	}
}
