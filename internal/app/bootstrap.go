package app

import (
	"context"
	"errors"
	"time"

	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/provider"
	"github.com/mavazi-pos/internal/router"
	"github.com/mavazi-pos/internal/worker"
)

// BuildRunner 按模式组装服务
// 注册顺序：资源 → 事件发布器 → API → worker，停止时逆序。
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	container := provider.NewContainer(cfg)
	services := []Service{&closerService{name: "resources", close: container.Close}}
	if container.KafkaPublisher != nil {
		services = append(services, container.KafkaPublisher)
	}

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		sweep := time.Duration(cfg.Inventory.ExpireSweepSeconds) * time.Second
		services = append(services, worker.NewService(&cfg.Queue, consumer, sweep))
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return err
	}
	opts.Mode = mode
	opts = normalizeOptions(opts)

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start",
		"mode", opts.Mode,
		"services", runner.Names(),
		"queue_enabled", opts.Config.Queue.Enabled,
		"kafka_enabled", opts.Config.Kafka.Enabled,
	)
	return runner.Serve(opts)
}

// closerService 在关闭阶段释放共享资源
type closerService struct {
	name  string
	close func() error
}

func (s *closerService) Name() string { return s.name }

func (s *closerService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *closerService) Stop(context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
