package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/cache"
	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/logger"
	"github.com/mavazi-pos/internal/models"
	"github.com/mavazi-pos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 员工认证服务
type AuthService struct {
	cfg         *config.Config
	staffRepo   repository.StaffRepository
	adminEmails map[string]struct{}
}

// NewAuthService 创建认证服务实例，admin_emails 在此规范化为集合
func NewAuthService(cfg *config.Config, staffRepo repository.StaffRepository) *AuthService {
	emails := make(map[string]struct{})
	if cfg != nil {
		for _, email := range cfg.Auth.AdminEmails {
			email = strings.ToLower(strings.TrimSpace(email))
			if email != "" {
				emails[email] = struct{}{}
			}
		}
	}
	return &AuthService{
		cfg:         cfg,
		staffRepo:   staffRepo,
		adminEmails: emails,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// IsAdminEmail 邮箱是否在管理员名单内
func (s *AuthService) IsAdminEmail(email string) bool {
	_, ok := s.adminEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// JWTClaims JWT 声明
type JWTClaims struct {
	StaffID      uint   `json:"staff_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(staff *models.Staff) (string, time.Time, error) {
	expireHours := s.cfg.JWT.ExpireHours
	if expireHours <= 0 {
		expireHours = 12
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)

	claims := JWTClaims{
		StaffID:      staff.ID,
		Username:     staff.Username,
		Role:         staff.Role,
		TokenVersion: staff.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// Login 员工登录，邮箱在管理员名单内的账号登录时提升为 admin
func (s *AuthService) Login(username, password string) (*models.Staff, string, time.Time, error) {
	staff, err := s.staffRepo.GetByUsername(username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if staff == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if !staff.IsActive {
		return nil, "", time.Time{}, ErrStaffDisabled
	}

	if staff.Role != constants.RoleAdmin && s.IsAdminEmail(staff.Email) {
		if err := s.staffRepo.UpdateRole(staff.ID, constants.RoleAdmin); err != nil {
			return nil, "", time.Time{}, err
		}
		logger.Infow("staff_promoted_by_admin_email", "staff_id", staff.ID, "username", staff.Username)
		staff.Role = constants.RoleAdmin
	}

	token, expiresAt, err := s.GenerateJWT(staff)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	if err := s.staffRepo.TouchLogin(staff.ID, now); err != nil {
		return nil, "", time.Time{}, err
	}
	staff.LastLoginAt = &now
	_ = cache.SetStaffAuthState(context.Background(), cache.BuildStaffAuthState(staff))
	return staff, token, expiresAt, nil
}

// ResolveStaffState 获取员工鉴权状态，优先读缓存
func (s *AuthService) ResolveStaffState(ctx context.Context, staffID uint) (*cache.StaffAuthState, error) {
	state, err := cache.GetStaffAuthState(ctx, staffID)
	if err == nil && state != nil {
		return state, nil
	}
	staff, err := s.staffRepo.GetByID(staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, ErrStaffNotFound
	}
	state = cache.BuildStaffAuthState(staff)
	_ = cache.SetStaffAuthState(ctx, state)
	return state, nil
}

// CreateStaffInput 创建员工输入
type CreateStaffInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// CreateStaff 创建员工账号
func (s *AuthService) CreateStaff(input CreateStaffInput) (*models.Staff, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || len(input.Password) < 6 {
		return nil, ErrInvalidCredentials
	}
	role := strings.TrimSpace(input.Role)
	if role != constants.RoleAdmin {
		role = constants.RoleCashier
	}
	existing, err := s.staffRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrStaffExists
	}
	hash, err := s.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	staff := &models.Staff{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.staffRepo.Create(staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// ListStaff 员工列表
func (s *AuthService) ListStaff() ([]models.Staff, error) {
	return s.staffRepo.List()
}

// SetStaffActive 启用或停用员工，已签发的 token 一并失效
func (s *AuthService) SetStaffActive(ctx context.Context, staffID uint, active bool) (*models.Staff, error) {
	staff, err := s.staffRepo.GetByID(staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, ErrStaffNotFound
	}
	if err := s.staffRepo.UpdateStatus(staffID, active); err != nil {
		return nil, err
	}
	if err := cache.DelStaffAuthState(ctx, staffID); err != nil {
		logger.Warnw("staff_auth_state_evict_failed", "staff_id", staffID, "error", err)
	}
	logger.Infow("staff_status_updated", "staff_id", staffID, "is_active", active)
	return s.staffRepo.GetByID(staffID)
}
