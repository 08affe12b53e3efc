package worker

import (
	"context"
	"time"

	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/queue"

	"github.com/hibiken/asynq"
)

const expireSweepBatch = 100

// Service 预占超时处理服务
// 队列启用时消费 asynq 延时任务；无论队列是否启用，都按间隔扫描到期订单兜底。
type Service struct {
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建 worker 服务，sweepInterval <= 0 时关闭扫描
func NewService(cfg *config.QueueConfig, consumer *Consumer, sweepInterval time.Duration) *Service {
	svc := &Service{consumer: consumer, sweepInterval: sweepInterval}
	if cfg != nil && cfg.Enabled && consumer != nil {
		opt, serverCfg := queue.BuildServerConfig(cfg)
		svc.server = asynq.NewServer(opt, serverCfg)
		svc.mux = asynq.NewServeMux()
		consumer.Register(svc.mux)
	}
	return svc
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动任务消费与到期扫描，阻塞至 ctx 取消
func (s *Service) Start(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Start(s.mux); err != nil {
			return err
		}
	} else {
		logger.Infow("worker_queue_disabled", "sweep_interval", s.sweepInterval.String())
	}
	if s.sweepInterval > 0 && s.consumer != nil {
		s.consumer.runExpireSweepLoop(ctx, s.sweepInterval)
		return nil
	}
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务完成
func (s *Service) Stop(context.Context) error {
	if s.server != nil {
		s.server.Shutdown()
	}
	return nil
}

// runExpireSweepLoop 定期扫描到期的预占订单，兜底丢失或未投递的超时任务
func (c *Consumer) runExpireSweepLoop(ctx context.Context, interval time.Duration) {
	if c == nil || c.orders == nil {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		c.sweepExpired(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Consumer) sweepExpired(ctx context.Context) int {
	expired, err := c.orders.ExpireDue(ctx, c.now(), expireSweepBatch)
	if err != nil {
		logger.Warnw("worker_expire_sweep_failed", "error", err)
		return 0
	}
	if expired > 0 {
		logger.Infow("worker_expire_sweep_done", "expired", expired)
	}
	return expired
}
