package repository

import (
	"context"

	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
)

// StabRepository 摄制组数据访问接口
type StabRepository interface {
	Create(ctx context.Context, stab *model.Stab) error
	GetByID(ctx context.Context, id string) (*model.Stab, error)
	GetByName(ctx context.Context, name string) (*model.Stab, error)
	List(ctx context.Context) ([]model.Stab, error)
}

type stabRepo struct {
	db *gorm.DB
}

// NewStabRepo 创建 StabRepository 实例
func NewStabRepo(db *gorm.DB) StabRepository {
	return &stabRepo{db: db}
}

func (r *stabRepo) Create(ctx context.Context, stab *model.Stab) error {
	return r.db.WithContext(ctx).Create(stab).Error
}

func (r *stabRepo) GetByID(ctx context.Context, id string) (*model.Stab, error) {
	var stab model.Stab
	if err := r.db.WithContext(ctx).Where("stab_id = ?", id).First(&stab).Error; err != nil {
		return nil, err
	}
	return &stab, nil
}

func (r *stabRepo) GetByName(ctx context.Context, name string) (*model.Stab, error) {
	var stab model.Stab
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&stab).Error; err != nil {
		return nil, err
	}
	return &stab, nil
}

func (r *stabRepo) List(ctx context.Context) ([]model.Stab, error) {
	var stabs []model.Stab
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&stabs).Error
	return stabs, err
}
