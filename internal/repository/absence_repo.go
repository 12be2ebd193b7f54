package repository

import (
	"context"

	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
)

// AbsenceRepository 缺课记录数据访问接口
type AbsenceRepository interface {
	BatchCreate(ctx context.Context, absences []model.Absence) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]model.Absence, error)
	DeleteGenerated(ctx context.Context, assignmentID string) error
}

type absenceRepo struct {
	db *gorm.DB
}

// NewAbsenceRepo 创建 AbsenceRepository 实例
func NewAbsenceRepo(db *gorm.DB) AbsenceRepository {
	return &absenceRepo{db: db}
}

func (r *absenceRepo) BatchCreate(ctx context.Context, absences []model.Absence) error {
	if len(absences) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("User").Create(&absences).Error
}

func (r *absenceRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.Absence, error) {
	var absences []model.Absence
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("assignment_id = ?", assignmentID).
		Order("date ASC, time_from ASC").
		Find(&absences).Error
	return absences, err
}

// DeleteGenerated 仅删除自动生成的记录，手工录入的保留
func (r *absenceRepo) DeleteGenerated(ctx context.Context, assignmentID string) error {
	return r.db.WithContext(ctx).
		Where("assignment_id = ? AND auto_generated = ?", assignmentID, true).
		Delete(&model.Absence{}).Error
}
