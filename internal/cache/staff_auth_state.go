package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/mavazi-pos/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// StaffAuthState 员工鉴权快照，避免每次请求查询数据库
type StaffAuthState struct {
	StaffID      uint   `json:"staff_id"`
	Role         string `json:"role"`
	IsActive     bool   `json:"is_active"`
	TokenVersion uint64 `json:"token_version"`
	UpdatedAt    int64  `json:"updated_at"`
}

func staffAuthStateKey(staffID uint) string {
	return fmt.Sprintf("auth:staff:%d", staffID)
}

// BuildStaffAuthState 从员工模型构建快照
func BuildStaffAuthState(staff *models.Staff) *StaffAuthState {
	if staff == nil {
		return nil
	}
	return &StaffAuthState{
		StaffID:      staff.ID,
		Role:         staff.Role,
		IsActive:     staff.IsActive,
		TokenVersion: staff.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
}

// GetStaffAuthState 读取员工鉴权快照
func GetStaffAuthState(ctx context.Context, staffID uint) (*StaffAuthState, error) {
	var state StaffAuthState
	hit, err := GetJSON(ctx, staffAuthStateKey(staffID), &state)
	if err != nil || !hit {
		return nil, err
	}
	return &state, nil
}

// SetStaffAuthState 写入员工鉴权快照
func SetStaffAuthState(ctx context.Context, state *StaffAuthState) error {
	if state == nil || state.StaffID == 0 {
		return nil
	}
	return SetJSON(ctx, staffAuthStateKey(state.StaffID), state, authStateCacheTTL)
}

// DelStaffAuthState 删除员工鉴权快照
func DelStaffAuthState(ctx context.Context, staffID uint) error {
	return Del(ctx, staffAuthStateKey(staffID))
}
