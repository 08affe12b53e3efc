package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MarkOnce 以 SETNX 记录一次性事件，首次写入返回 true
// Redis 未启用时始终返回 true，由调用方的数据库幂等兜底。
func MarkOnce(ctx context.Context, scope, id string, ttl time.Duration) (bool, error) {
	client := Client()
	id = strings.TrimSpace(id)
	if client == nil || id == "" {
		return true, nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return client.SetNX(ctx, BuildKey(dedupKey(scope, id)), 1, ttl).Result()
}

// ForgetOnce 删除一次性事件标记（处理失败时允许重投）
func ForgetOnce(ctx context.Context, scope, id string) error {
	client := Client()
	if client == nil || strings.TrimSpace(id) == "" {
		return nil
	}
	return client.Del(ctx, BuildKey(dedupKey(scope, id))).Err()
}

func dedupKey(scope, id string) string {
	return fmt.Sprintf("dedup:%s:%s", strings.TrimSpace(scope), strings.TrimSpace(id))
}
