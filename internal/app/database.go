package app

import (
	"os"
	"strings"

	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/models"
)

// InitDatabase 打开数据库连接并执行迁移
func InitDatabase(cfg *config.Config) error {
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return err
	}
	return models.AutoMigrate()
}

// EnsureDefaultAdmin 员工表为空时创建默认管理员
// release 模式下未设置 MAVAZI_DEFAULT_ADMIN_PASSWORD 时跳过，返回 false。
func EnsureDefaultAdmin(cfg *config.Config) (bool, error) {
	username := os.Getenv("MAVAZI_DEFAULT_ADMIN_USERNAME")
	password := os.Getenv("MAVAZI_DEFAULT_ADMIN_PASSWORD")
	if cfg.Server.Mode == "release" && password == "" {
		return false, nil
	}
	email := ""
	if len(cfg.Auth.AdminEmails) > 0 {
		email = strings.TrimSpace(cfg.Auth.AdminEmails[0])
	}
	if err := models.InitDefaultAdmin(username, email, password); err != nil {
		return false, err
	}
	return true, nil
}
