package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User           UserRepository
	Stab           StabRepository
	CrewRole       CrewRoleRepository
	FilmingSession FilmingSessionRepository
	Assignment     AssignmentRepository
	ChangeLog      AssignmentChangeLogRepository
	Vacation       VacationRepository
	RadioSession   RadioSessionRepository
	Absence        AbsenceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		User:           NewUserRepo(db),
		Stab:           NewStabRepo(db),
		CrewRole:       NewCrewRoleRepo(db),
		FilmingSession: NewFilmingSessionRepo(db),
		Assignment:     NewAssignmentRepo(db),
		ChangeLog:      NewAssignmentChangeLogRepo(db),
		Vacation:       NewVacationRepo(db),
		RadioSession:   NewRadioSessionRepo(db),
		Absence:        NewAbsenceRepo(db),
	}
}

// BeginTx 开启事务。db 为 nil（单元测试 mock 场景）时返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 副本；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
