package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff 员工表（管理员与收银员）
type Staff struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                 // 主键
	Username     string         `gorm:"uniqueIndex;type:varchar(64);not null" json:"username"` // 登录账号
	Email        string         `gorm:"index;type:varchar(255)" json:"email"`                 // 邮箱（小写）
	PasswordHash string         `gorm:"not null" json:"-"`                                    // 密码哈希
	Role         string         `gorm:"type:varchar(20);not null;index" json:"role"`          // 角色（admin/cashier）
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`               // 是否启用
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"`                          // Token 版本（用于全量失效）
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`                              // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                           // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间
}

// TableName 指定表名
func (Staff) TableName() string {
	return "staff"
}
