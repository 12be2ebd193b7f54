package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
)

// RadioSessionRepository 电台节目数据访问接口
type RadioSessionRepository interface {
	Create(ctx context.Context, session *model.RadioSession) error
	// ListCandidates 返回可能在指定日期发生的节目：当天的单次节目 + 此前开始的周期节目
	ListCandidates(ctx context.Context, day time.Time) ([]model.RadioSession, error)
}

type radioSessionRepo struct {
	db *gorm.DB
}

// NewRadioSessionRepo 创建 RadioSessionRepository 实例
func NewRadioSessionRepo(db *gorm.DB) RadioSessionRepository {
	return &radioSessionRepo{db: db}
}

func (r *radioSessionRepo) Create(ctx context.Context, session *model.RadioSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *radioSessionRepo) ListCandidates(ctx context.Context, day time.Time) ([]model.RadioSession, error) {
	var sessions []model.RadioSession
	d := day.Format("2006-01-02")
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("date = ? OR (recurrence <> '' AND date <= ?)", d, d).
		Order("time_from ASC").
		Find(&sessions).Error
	return sessions, err
}
