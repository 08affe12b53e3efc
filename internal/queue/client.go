package queue

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/constants"

	"github.com/hibiken/asynq"
)

// DefaultQueue 默认队列名称
const DefaultQueue = constants.QueueDefault

const (
	defaultRedisHost   = "127.0.0.1"
	defaultRedisPort   = 6379
	defaultConcurrency = 10
	timeoutMaxRetry    = 5
)

// Client asynq 客户端，未启用时所有投递为空操作
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{queue: DefaultQueue}, nil
	}
	return &Client{client: asynq.NewClient(redisOpt(cfg)), queue: DefaultQueue}, nil
}

// Enabled 是否会真正投递
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueOrderReservationTimeout 在 delay 后投递预占超时任务
// 任务 ID 按订单固定，重复投递视为成功。
func (c *Client) EnqueueOrderReservationTimeout(payload OrderReservationTimeoutPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderReservationTimeoutTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task,
		asynq.Queue(c.queue),
		asynq.ProcessIn(max(delay, 0)),
		asynq.TaskID(reservationTimeoutTaskID(payload.OrderID)),
		asynq.MaxRetry(timeoutMaxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func reservationTimeoutTaskID(orderID uint) string {
	return TaskOrderReservationTimeout + ":" + strconv.FormatUint(uint64(orderID), 10)
}

// BuildServerConfig 生成 worker 端连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{DefaultQueue: 1},
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	if cfg == nil {
		return asynq.RedisClientOpt{Addr: net.JoinHostPort(defaultRedisHost, strconv.Itoa(defaultRedisPort))}
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultRedisPort
	}
	return asynq.RedisClientOpt{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
