package admin

import "github.com/mavazi-pos/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：该处理器仅用于员工端 API（管理员与收银员），权限由 casbin 中间件控制。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
