package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 可被运行器托管的长驻组件
// Start 阻塞直到 ctx 取消或自身出错；Stop 在关闭阶段调用。
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 按注册顺序启动，按逆序停止
// 事件发布器先注册，因此 HTTP 与 worker 停止后它才刷出剩余事件。
type Runner struct {
	services []Service
	logger   *zap.SugaredLogger
}

// NewRunner 创建服务运行器，nil 服务会被忽略
func NewRunner(services ...Service) *Runner {
	kept := make([]Service, 0, len(services))
	for _, svc := range services {
		if svc != nil {
			kept = append(kept, svc)
		}
	}
	return &Runner{services: kept}
}

// Names 返回已托管的服务名称
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.services))
	for _, svc := range r.services {
		names = append(names, svc.Name())
	}
	return names
}

// Serve 绑定系统信号后运行
func (r *Runner) Serve(opts Options) error {
	if r == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	r.logger = opts.Logger
	return r.Run(ctx, opts.ShutdownTimeout)
}

// Run 启动全部服务，任一服务退出或 ctx 取消后统一关闭
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type exit struct {
		name string
		err  error
	}
	exits := make(chan exit, len(r.services))
	for _, svc := range r.services {
		go func(svc Service) {
			r.infow("service_start", "service", svc.Name())
			exits <- exit{name: svc.Name(), err: svc.Start(ctx)}
		}(svc)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case first := <-exits:
		runErr = first.err
		r.infow("service_exit", "service", first.name, "error", first.err)
	}
	cancel()

	if stopTimeout <= 0 {
		stopTimeout = defaultShutdownTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if err := svc.Stop(stopCtx); err != nil {
			r.errorw("service_stop_failed", "service", svc.Name(), "error", err)
			continue
		}
		r.infow("service_stopped", "service", svc.Name())
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func (r *Runner) infow(msg string, kv ...interface{}) {
	if r.logger != nil {
		r.logger.Infow(msg, kv...)
	}
}

func (r *Runner) errorw(msg string, kv ...interface{}) {
	if r.logger != nil {
		r.logger.Errorw(msg, kv...)
	}
}
