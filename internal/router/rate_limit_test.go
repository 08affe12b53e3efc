package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, body []byte) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestKeyByIPAndJSONFieldRestoresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":" Cashier01 ","password":"x"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "10.0.0.7:5000"

	require.Equal(t, "cashier01|10.0.0.7", KeyByIPAndJSONField("username")(c))

	body, err := io.ReadAll(c.Request.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), " Cashier01 ")

	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":42}`))
	c.Request.RemoteAddr = "10.0.0.7:5000"
	require.Equal(t, "10.0.0.7", KeyByIPAndJSONField("username")(c))
}

func TestKeyByStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Empty(t, KeyByStaff(c))
	c.Set(shared.StaffIDKey, uint(12))
	require.Equal(t, "staff-12", KeyByStaff(c))
}

func limitedEngine(limiter *RateLimiter, rule RateLimitRule) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/orders", limiter.Limit(rule, KeyByIP), func(c *gin.Context) {
		response.Success(c, gin.H{"order_no": "MV-1"})
	})
	return r
}

func TestRateLimiterWithoutClientPasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := limitedEngine(NewRateLimiter(nil, ""), RateLimitRule{Name: "checkout", WindowSeconds: 60, MaxRequests: 1})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, response.CodeOK, decodeEnvelope(t, w.Body.Bytes()).StatusCode)
	}
}

func TestRateLimiterStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewRateLimiter(client, "test")

	open := limitedEngine(limiter, RateLimitRule{Name: "checkout", WindowSeconds: 60, MaxRequests: 5, FailOpen: true})
	w := httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
	require.Equal(t, response.CodeOK, decodeEnvelope(t, w.Body.Bytes()).StatusCode)

	closed := limitedEngine(limiter, RateLimitRule{Name: "staff_login", WindowSeconds: 60, MaxRequests: 5})
	w = httptest.NewRecorder()
	closed.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.Equal(t, response.CodeUnavailable, env.StatusCode)
	require.Equal(t, rateLimitUnavailableMsg, env.Msg)
}

func TestNewRateLimiterPrefix(t *testing.T) {
	require.Equal(t, "mavazi:rate", NewRateLimiter(nil, "  ").prefix)
	require.Equal(t, "shop:rate", NewRateLimiter(nil, "shop").prefix)
}
