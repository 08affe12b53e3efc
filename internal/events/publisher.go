package events

import (
	"context"
	"sync"

	"github.com/mavazi-pos/internal/logger"
)

// Publisher 事件发布接口，发布失败不影响业务流程
type Publisher interface {
	Publish(ctx context.Context, env *Envelope)
}

// NoopPublisher 未启用消息队列时使用，仅输出 debug 日志
type NoopPublisher struct{}

// Publish 丢弃事件
func (NoopPublisher) Publish(_ context.Context, env *Envelope) {
	if env == nil {
		return
	}
	logger.Debugw("event_dropped", "event_type", env.EventType, "key", env.Key)
}

// MemoryPublisher 在内存中保存事件，用于测试
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*Envelope
}

// Publish 记录事件
func (p *MemoryPublisher) Publish(_ context.Context, env *Envelope) {
	if env == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
}

// Events 返回已记录事件的副本
func (p *MemoryPublisher) Events() []*Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Envelope, len(p.events))
	copy(out, p.events)
	return out
}

// CountByType 统计某类事件数量
func (p *MemoryPublisher) CountByType(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, env := range p.events {
		if env.EventType == eventType {
			count++
		}
	}
	return count
}
