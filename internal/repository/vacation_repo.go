package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
)

// VacationRepository 请假数据访问接口
type VacationRepository interface {
	Create(ctx context.Context, vacation *model.Vacation) error
	// ListApprovedCovering 返回覆盖指定日期且已批准的请假
	ListApprovedCovering(ctx context.Context, day time.Time) ([]model.Vacation, error)
	ListByUser(ctx context.Context, userID string) ([]model.Vacation, error)
}

type vacationRepo struct {
	db *gorm.DB
}

// NewVacationRepo 创建 VacationRepository 实例
func NewVacationRepo(db *gorm.DB) VacationRepository {
	return &vacationRepo{db: db}
}

func (r *vacationRepo) Create(ctx context.Context, vacation *model.Vacation) error {
	return r.db.WithContext(ctx).Create(vacation).Error
}

func (r *vacationRepo) ListApprovedCovering(ctx context.Context, day time.Time) ([]model.Vacation, error) {
	var vacations []model.Vacation
	d := day.Format("2006-01-02")
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_date <= ? AND end_date >= ?", model.VacationApproved, d, d).
		Order("start_date ASC").
		Find(&vacations).Error
	return vacations, err
}

func (r *vacationRepo) ListByUser(ctx context.Context, userID string) ([]model.Vacation, error) {
	var vacations []model.Vacation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&vacations).Error
	return vacations, err
}
