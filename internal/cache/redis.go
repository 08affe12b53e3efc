package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mavazi-pos/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "mavazi"

// 进程级 Redis 连接，未启用时所有读写退化为空操作
var (
	mu          sync.RWMutex
	redisClient *redis.Client
	redisPrefix string
)

// InitRedis 按配置建立连接，未启用时保持禁用状态
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		UseClient(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	UseClient(redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}), prefix)
	return nil
}

// UseClient 替换当前客户端，传 nil 表示禁用
func UseClient(client *redis.Client, prefix string) {
	mu.Lock()
	defer mu.Unlock()
	redisClient = client
	redisPrefix = strings.TrimSpace(prefix)
}

// Close 关闭并禁用客户端
func Close() error {
	mu.Lock()
	client := redisClient
	redisClient = nil
	mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Enabled 是否已连接 Redis
func Enabled() bool {
	return Client() != nil
}

// Client 当前客户端，未启用时为 nil
func Client() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return redisClient
}

// Ping 检查连通性，未启用时返回 nil
func Ping(ctx context.Context) error {
	client := Client()
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// GetJSON 读取 JSON 缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	client := Client()
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, BuildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	client := Client()
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, BuildKey(key), payload, ttl).Err()
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	client := Client()
	if client == nil {
		return nil
	}
	return client.Del(ctx, BuildKey(key)).Err()
}

// BuildKey 拼接 "<prefix>:<key>"
func BuildKey(key string) string {
	mu.RLock()
	prefix := redisPrefix
	mu.RUnlock()
	key = strings.TrimSpace(key)
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + ":" + key
	}
}
