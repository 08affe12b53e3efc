package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/mavazi-pos/internal/models"

	"gorm.io/gorm"
)

// StaffRepository 员工数据访问接口
type StaffRepository interface {
	GetByID(id uint) (*models.Staff, error)
	GetByUsername(username string) (*models.Staff, error)
	List() ([]models.Staff, error)
	Create(staff *models.Staff) error
	UpdateRole(id uint, role string) error
	TouchLogin(id uint, at time.Time) error
	UpdateStatus(id uint, active bool) error
}

// GormStaffRepository GORM 实现
type GormStaffRepository struct {
	db *gorm.DB
}

// NewStaffRepository 创建员工仓库
func NewStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

// GetByID 根据 ID 获取员工
func (r *GormStaffRepository) GetByID(id uint) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.First(&staff, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

// GetByUsername 根据账号获取员工
func (r *GormStaffRepository) GetByUsername(username string) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.Where("username = ?", strings.TrimSpace(username)).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

// List 员工列表
func (r *GormStaffRepository) List() ([]models.Staff, error) {
	var items []models.Staff
	if err := r.db.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Create 创建员工
func (r *GormStaffRepository) Create(staff *models.Staff) error {
	return r.db.Create(staff).Error
}

// UpdateRole 更新员工角色
func (r *GormStaffRepository) UpdateRole(id uint, role string) error {
	return r.db.Model(&models.Staff{}).Where("id = ?", id).Update("role", role).Error
}

// TouchLogin 记录最后登录时间
func (r *GormStaffRepository) TouchLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Staff{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// UpdateStatus 更新启用状态，同时递增 token_version 使已签发的 token 失效
func (r *GormStaffRepository) UpdateStatus(id uint, active bool) error {
	return r.db.Model(&models.Staff{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_active":     active,
		"token_version": gorm.Expr("token_version + 1"),
	}).Error
}
