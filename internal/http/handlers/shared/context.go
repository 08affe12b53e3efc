package shared

import (
	"strconv"
	"strings"

	"github.com/mavazi-pos/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	StaffIDKey   = "staff_id"
	StaffRoleKey = "staff_role"
	UsernameKey  = "username"
)

// GetStaffID 读取当前员工 ID
func GetStaffID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(StaffIDKey)
	if !exists {
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, v > 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// GetStaffRole 读取当前员工角色
func GetStaffRole(c *gin.Context) (string, bool) {
	value, exists := c.Get(StaffRoleKey)
	if !exists {
		return "", false
	}
	role, ok := value.(string)
	return role, ok
}

// RequireStaffID 读取当前员工 ID，缺失时直接写入 401 响应
func RequireStaffID(c *gin.Context) (uint, bool) {
	id, ok := GetStaffID(c)
	if !ok {
		response.Unauthorized(c, "未授权")
		return 0, false
	}
	return id, true
}

// ParamUint 解析路径中的正整数参数
func ParamUint(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		response.BadRequest(c, "参数 "+name+" 不合法")
		return 0, false
	}
	return uint(parsed), true
}
