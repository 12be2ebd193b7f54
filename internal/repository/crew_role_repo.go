package repository

import (
	"context"

	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
)

// CrewRoleRepository 拍摄角色数据访问接口
type CrewRoleRepository interface {
	Create(ctx context.Context, role *model.CrewRole) error
	GetByID(ctx context.Context, id string) (*model.CrewRole, error)
	// List academicYear 为空时返回全部启用角色，否则返回该学年角色 + 通用角色
	List(ctx context.Context, academicYear string) ([]model.CrewRole, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.CrewRole, error)
}

type crewRoleRepo struct {
	db *gorm.DB
}

// NewCrewRoleRepo 创建 CrewRoleRepository 实例
func NewCrewRoleRepo(db *gorm.DB) CrewRoleRepository {
	return &crewRoleRepo{db: db}
}

func (r *crewRoleRepo) Create(ctx context.Context, role *model.CrewRole) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *crewRoleRepo) GetByID(ctx context.Context, id string) (*model.CrewRole, error) {
	var role model.CrewRole
	if err := r.db.WithContext(ctx).Where("role_id = ?", id).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *crewRoleRepo) List(ctx context.Context, academicYear string) ([]model.CrewRole, error) {
	var roles []model.CrewRole
	db := r.db.WithContext(ctx).Where("is_active = ?", true)
	if academicYear != "" {
		db = db.Where("academic_year IS NULL OR academic_year = ?", academicYear)
	}
	err := db.Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *crewRoleRepo) ListByIDs(ctx context.Context, ids []string) ([]model.CrewRole, error) {
	var roles []model.CrewRole
	if len(ids) == 0 {
		return roles, nil
	}
	err := r.db.WithContext(ctx).Where("role_id IN ?", ids).Find(&roles).Error
	return roles, err
}
