package provider

import (
	"context"
	"errors"

	"github.com/mavazi-pos/internal/authz"
	"github.com/mavazi-pos/internal/cache"
	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/events"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/queue"
	"github.com/mavazi-pos/internal/repository"
	"github.com/mavazi-pos/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Publisher   events.Publisher
	// KafkaPublisher 启用 kafka 时非空，由 app 作为后台服务运行
	KafkaPublisher *events.KafkaPublisher

	// Repositories
	StaffRepo         repository.StaffRepository
	ProductRepo       repository.ProductRepository
	StockLedgerRepo   repository.StockLedgerRepository
	StockMovementRepo repository.StockMovementRepository
	OrderRepo         repository.OrderRepository
	TransactionRepo   repository.TransactionRepository

	// Services
	AuthzService          *authz.Service
	AuthService           *service.AuthService
	ProductService        *service.ProductService
	InventoryService      *service.InventoryService
	StockAdminService     *service.StockAdminService
	ReconcileService      *service.ReconcileService
	SaleCompletionService *service.SaleCompletionService
	OrderService          *service.OrderService
	PaymentService        *service.PaymentService
}

// NewContainer 初始化容器（使用全局数据库连接）
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	var kafkaPublisher *events.KafkaPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher = events.NewKafkaPublisher(cfg.Kafka)
		publisher = kafkaPublisher
	}

	c := NewContainerWithDB(cfg, models.DB, queueClient, publisher)
	c.KafkaPublisher = kafkaPublisher
	return c
}

// NewContainerWithDB 使用指定数据库与外部依赖初始化容器，CLI 与测试复用
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client, publisher events.Publisher) *Container {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
		Publisher:   publisher,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := c.DB
	c.StaffRepo = repository.NewStaffRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.StockLedgerRepo = repository.NewStockLedgerRepository(db)
	c.StockMovementRepo = repository.NewStockMovementRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.TransactionRepo = repository.NewTransactionRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	cfg := c.Config
	c.AuthService = service.NewAuthService(cfg, c.StaffRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.InventoryService = service.NewInventoryService(c.StockLedgerRepo, c.StockMovementRepo, c.Publisher, cfg.Inventory.DefaultLowStockThreshold)
	c.StockAdminService = service.NewStockAdminService(c.StockLedgerRepo, c.StockMovementRepo, c.ProductRepo)
	c.ReconcileService = service.NewReconcileService(c.StockLedgerRepo, c.StockMovementRepo)
	c.SaleCompletionService = service.NewSaleCompletionService(c.OrderRepo, c.InventoryService, c.Publisher)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.ProductRepo,
		c.TransactionRepo,
		c.InventoryService,
		c.SaleCompletionService,
		c.QueueClient,
		cfg.Inventory.ReservationTTLMinutes,
		cfg.Payment.Currency,
	)
	c.PaymentService = service.NewPaymentService(cfg.Payment, c.OrderRepo, c.TransactionRepo, c.SaleCompletionService)
}

// Close 释放队列客户端、Redis 与数据库连接
func (c *Container) Close() error {
	var errs []error
	if err := c.QueueClient.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// HealthStatus 依赖组件检查结果，未启用的组件记为 disabled
type HealthStatus struct {
	Healthy    bool              `json:"healthy"`
	Components map[string]string `json:"components"`
}

// Health 检查数据库与 Redis 连通性
func (c *Container) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true, Components: map[string]string{}}
	mark := func(name string, err error) {
		if err != nil {
			status.Healthy = false
			status.Components[name] = err.Error()
			return
		}
		status.Components[name] = "ok"
	}

	if c.DB == nil {
		mark("database", errors.New("not initialized"))
	} else if sqlDB, err := c.DB.DB(); err != nil {
		mark("database", err)
	} else {
		mark("database", sqlDB.PingContext(ctx))
	}

	if cache.Enabled() {
		mark("redis", cache.Ping(ctx))
	} else {
		status.Components["redis"] = "disabled"
	}
	if c.QueueClient.Enabled() {
		status.Components["queue"] = "enabled"
	} else {
		status.Components["queue"] = "disabled"
	}
	return status
}
