package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mavazi-pos/internal/cache"
	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "router-test-secret"

type stubStaffResolver struct {
	state *cache.StaffAuthState
	err   error
}

func (s stubStaffResolver) ResolveStaffState(_ context.Context, _ uint) (*cache.StaffAuthState, error) {
	return s.state, s.err
}

func signStaffToken(t *testing.T, staffID uint, version uint64) string {
	t.Helper()
	claims := service.JWTClaims{
		StaffID:      staffID,
		Username:     "wanjiku",
		Role:         "cashier",
		TokenVersion: version,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func TestResolveAllowedOrigin(t *testing.T) {
	require.Equal(t, "*", resolveAllowedOrigin("https://shop.example", []string{"*"}, false))
	require.Equal(t, "https://shop.example", resolveAllowedOrigin("https://shop.example", []string{"*"}, true))
	require.Equal(t, "https://pos.example", resolveAllowedOrigin("https://POS.example", []string{"https://pos.example"}, false))
	require.Empty(t, resolveAllowedOrigin("https://evil.example", []string{"https://pos.example"}, false))
	require.Empty(t, resolveAllowedOrigin("", []string{"https://pos.example"}, false))
}

func TestCORSPreflightAllowsWebhookSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://pos.example"}, MaxAge: 600}))
	r.POST("/api/v1/payments/webhook/:provider", func(c *gin.Context) { response.Success(c, nil) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payments/webhook/mpesa", nil)
	req.Header.Set("Origin", "https://pos.example")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://pos.example", w.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Signature")
	require.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestRequestIDEchoedInEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/api/v1/orders/:order_no", func(c *gin.Context) { response.NotFound(c, "订单不存在") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/MV-404", nil)
	req.Header.Set(requestIDHeader, "till-7-0001")
	r.ServeHTTP(w, req)

	require.Equal(t, "till-7-0001", w.Header().Get(requestIDHeader))
	env := decodeEnvelope(t, w.Body.Bytes())
	require.Equal(t, response.CodeNotFound, env.StatusCode)
	require.Equal(t, "till-7-0001", env.RequestID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/MV-404", nil))
	require.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestBearerToken(t *testing.T) {
	token, msg := bearerToken("bearer abc.def")
	require.Equal(t, "abc.def", token)
	require.Empty(t, msg)
	_, msg = bearerToken("")
	require.NotEmpty(t, msg)
	_, msg = bearerToken("Basic abc")
	require.NotEmpty(t, msg)
	_, msg = bearerToken("Bearer ")
	require.NotEmpty(t, msg)
}

func authEngine(secret string, resolver StaffStateResolver) *gin.Engine {
	r := gin.New()
	r.GET("/api/v1/admin/me", JWTAuthMiddleware(secret, resolver), func(c *gin.Context) {
		staffID, _ := shared.GetStaffID(c)
		response.Success(c, gin.H{"staff_id": staffID})
	})
	return r
}

func callMe(r *gin.Engine, token string) response.Envelope {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	var env response.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return env
}

func TestJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	active := &cache.StaffAuthState{StaffID: 5, Role: "cashier", IsActive: true, TokenVersion: 2}
	token := signStaffToken(t, 5, 2)

	require.Equal(t, response.CodeUnauthorized, callMe(authEngine("", stubStaffResolver{state: active}), token).StatusCode)
	require.Equal(t, response.CodeUnauthorized, callMe(authEngine(testJWTSecret, stubStaffResolver{state: active}), "").StatusCode)
	require.Equal(t, response.CodeOK, callMe(authEngine(testJWTSecret, stubStaffResolver{state: active}), token).StatusCode)

	revoked := *active
	revoked.TokenVersion = 3
	env := callMe(authEngine(testJWTSecret, stubStaffResolver{state: &revoked}), token)
	require.Equal(t, response.CodeUnauthorized, env.StatusCode)
	require.Equal(t, service.ErrTokenRevoked.Error(), env.Msg)

	disabled := *active
	disabled.IsActive = false
	env = callMe(authEngine(testJWTSecret, stubStaffResolver{state: &disabled}), token)
	require.Equal(t, service.ErrStaffDisabled.Error(), env.Msg)

	env = callMe(authEngine(testJWTSecret, stubStaffResolver{err: errors.New("db down")}), token)
	require.Equal(t, response.CodeUnauthorized, env.StatusCode)

	require.Equal(t, response.CodeUnauthorized, callMe(authEngine("other-secret", stubStaffResolver{state: active}), token).StatusCode)
}
