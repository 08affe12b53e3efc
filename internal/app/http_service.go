package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/mavazi-pos/internal/config"
)

// HTTPService 承载 gin 引擎的 API 服务
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 按 server 配置创建 API 服务
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       secondsOr(cfg.ReadTimeoutSeconds, 15),
			WriteTimeout:      secondsOr(cfg.WriteTimeoutSeconds, 30),
			IdleTimeout:       time.Minute,
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return "api"
}

// Addr 监听地址
func (s *HTTPService) Addr() string {
	return s.server.Addr
}

// Start 开始监听，Shutdown 引起的退出视为正常
func (s *HTTPService) Start(_ context.Context) error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 等待进行中的请求完成后关闭
func (s *HTTPService) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
