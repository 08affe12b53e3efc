package admin

import (
	"strings"
	"time"

	"github.com/mavazi-pos/internal/http/handlers/shared"
	"github.com/mavazi-pos/internal/http/response"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Staff     *models.Staff `json:"staff"`
}

// Login 员工登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	staff, token, expiresAt, err := h.AuthService.Login(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	if h.AuthzService != nil {
		if err := h.AuthzService.SyncStaffRole(staff.ID, staff.Role); err != nil {
			shared.RequestLog(c).Warnw("staff_login_sync_role_failed", "staff_id", staff.ID, "error", err)
		}
	}
	response.Success(c, LoginResponse{Token: token, ExpiresAt: expiresAt, Staff: staff})
}

// Me 当前登录员工信息
func (h *Handler) Me(c *gin.Context) {
	staffID, ok := shared.RequireStaffID(c)
	if !ok {
		return
	}
	role, _ := shared.GetStaffRole(c)
	username, _ := c.Get(shared.UsernameKey)
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		shared.RespondErrorWithMsg(c, response.CodeInternal, "读取权限失败", err)
		return
	}
	response.Success(c, gin.H{
		"id":          staffID,
		"username":    username,
		"role":        role,
		"permissions": policies,
	})
}

// CreateStaffRequest 创建员工请求
type CreateStaffRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// ListStaff 员工列表
func (h *Handler) ListStaff(c *gin.Context) {
	items, err := h.AuthService.ListStaff()
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, items)
}

// CreateStaff 创建员工
func (h *Handler) CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	staff, err := h.AuthService.CreateStaff(service.CreateStaffInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, staff)
}

// UpdateStaffStatusRequest 启停员工请求
type UpdateStaffStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UpdateStaffStatus 启用或停用员工
func (h *Handler) UpdateStaffStatus(c *gin.Context) {
	staffID, ok := shared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req UpdateStaffStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}
	staff, err := h.AuthService.SetStaffActive(c.Request.Context(), staffID, *req.IsActive)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, staff)
}
