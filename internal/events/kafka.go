package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/logger"

	"github.com/segmentio/kafka-go"
)

// ErrProducerClosed 生产者已关闭
var ErrProducerClosed = errors.New("event producer closed")

// KafkaPublisher 基于 kafka-go 的异步事件发布器
// Publish 只写入内存队列，后台协程负责投递；队列满时丢弃并告警。
type KafkaPublisher struct {
	writer   *kafka.Writer
	producer string
	inbox    chan kafka.Message
	done     chan struct{}
	started  sync.Once
	once     sync.Once
	closed   chan struct{}
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	buf := cfg.BufferSize
	if buf <= 0 {
		buf = 1024
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        strings.TrimSpace(cfg.Topic),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		producer: cfg.Producer,
		inbox:    make(chan kafka.Message, buf),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

// Name 服务名称
func (p *KafkaPublisher) Name() string {
	return "event-producer"
}

// Start 启动投递循环
func (p *KafkaPublisher) Start(ctx context.Context) error {
	p.started.Do(func() { go p.loop() })
	<-ctx.Done()
	return nil
}

// Stop 关闭发布器并刷出剩余消息
func (p *KafkaPublisher) Stop(ctx context.Context) error {
	p.once.Do(func() { close(p.closed) })
	// 从未启动时没有投递循环负责关闭 done
	p.started.Do(func() { close(p.done) })
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.writer.Close()
}

// Publish 投递事件（非阻塞）
func (p *KafkaPublisher) Publish(_ context.Context, env *Envelope) {
	if env == nil {
		return
	}
	if env.Producer == "" {
		env.Producer = p.producer
	}
	value, err := json.Marshal(env)
	if err != nil {
		logger.Warnw("event_marshal_failed", "event_type", env.EventType, "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(env.Key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	select {
	case <-p.closed:
		logger.Warnw("event_publish_after_close", "event_type", env.EventType, "error", ErrProducerClosed)
	case p.inbox <- msg:
	default:
		logger.Warnw("event_buffer_full", "event_type", env.EventType, "key", env.Key)
	}
}

func (p *KafkaPublisher) loop() {
	defer close(p.done)
	for {
		select {
		case msg := <-p.inbox:
			p.write(msg)
		case <-p.closed:
			for {
				select {
				case msg := <-p.inbox:
					p.write(msg)
				default:
					return
				}
			}
		}
	}
}

func (p *KafkaPublisher) write(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Warnw("event_write_failed", "key", string(msg.Key), "error", err)
	}
}
