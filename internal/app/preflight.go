package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mavazi-pos/internal/config"

	"github.com/gin-gonic/gin"
)

var weakSecretMarkers = []string{"change-me", "change-in-production", "your-secret-key"}

// ErrWeakSecret release 模式下拒绝启动
var ErrWeakSecret = errors.New("weak secret in release mode")

// Preflight 启动前检查密钥强度，debug 模式只返回告警
func Preflight(cfg *config.Config) ([]string, error) {
	var warnings []string
	if isWeakSecret(cfg.JWT.SecretKey) {
		warnings = append(warnings, "jwt.secret_key 过弱或仍为默认值")
	}
	for provider, secret := range cfg.Payment.WebhookSecrets {
		secret = strings.TrimSpace(secret)
		if secret != "" && len(secret) < 16 {
			warnings = append(warnings, fmt.Sprintf("payment.webhook_secrets.%s 过短", provider))
		}
	}
	if cfg.Server.Mode == gin.ReleaseMode && len(warnings) > 0 {
		return warnings, fmt.Errorf("%w: %s", ErrWeakSecret, strings.Join(warnings, "; "))
	}
	return warnings, nil
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, marker := range weakSecretMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
