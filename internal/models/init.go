package models

import (
	"strings"

	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const defaultStaffPassword = "admin123"

// InitDefaultAdmin 初始化默认管理员账号（仅在员工表为空时创建）
func InitDefaultAdmin(username, email, password string) error {
	var count int64
	if err := DB.Model(&Staff{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = defaultStaffPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	staff := Staff{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         constants.RoleAdmin,
		IsActive:     true,
	}
	if err := DB.Create(&staff).Error; err != nil {
		return err
	}

	if password == defaultStaffPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}
