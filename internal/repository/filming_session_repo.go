package repository

import (
	"context"

	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
)

// FilmingSessionRepository 拍摄场次数据访问接口
type FilmingSessionRepository interface {
	Create(ctx context.Context, session *model.FilmingSession) error
	GetByID(ctx context.Context, id string) (*model.FilmingSession, error)
}

type filmingSessionRepo struct {
	db *gorm.DB
}

// NewFilmingSessionRepo 创建 FilmingSessionRepository 实例
func NewFilmingSessionRepo(db *gorm.DB) FilmingSessionRepository {
	return &filmingSessionRepo{db: db}
}

func (r *filmingSessionRepo) Create(ctx context.Context, session *model.FilmingSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *filmingSessionRepo) GetByID(ctx context.Context, id string) (*model.FilmingSession, error) {
	var session model.FilmingSession
	err := r.db.WithContext(ctx).
		Preload("Stab").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}
