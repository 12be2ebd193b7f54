package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
	pkgerrors "mediaklub/backend/pkg/errors"
)

// AssignmentRepository 拍摄组分配数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	GetBySession(ctx context.Context, sessionID string) (*model.Assignment, error)
	// UpdateState 带乐观锁更新定稿状态，成功后 assignment.Version 自增
	UpdateState(ctx context.Context, assignment *model.Assignment) error
	// ReplacePairs 整体替换分配明细，需在事务内调用
	ReplacePairs(ctx context.Context, assignmentID string, pairs []model.AssignmentPair) error
	ListFinalizedByUser(ctx context.Context, userID string) ([]model.Assignment, error)
	RoleStatisticsByUser(ctx context.Context, userID string) ([]RoleStatistic, error)
}

// AssignmentChangeLogRepository 分配变更日志数据访问接口
type AssignmentChangeLogRepository interface {
	Create(ctx context.Context, log *model.AssignmentChangeLog) error
	ListByAssignment(ctx context.Context, assignmentID string, offset, limit int) ([]model.AssignmentChangeLog, int64, error)
}

// RoleStatistic 单个学生按角色汇总的参与次数
type RoleStatistic struct {
	RoleID         string     `gorm:"column:role_id"`
	RoleName       string     `gorm:"column:role_name"`
	Count          int64      `gorm:"column:count"`
	FinalizedCount int64      `gorm:"column:finalized_count"`
	LastDate       *time.Time `gorm:"column:last_date"`
}

// ── Assignment Repository 实现 ──

type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func orderedPairs(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *assignmentRepo) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Session").
		Preload("Author").
		Preload("Stab").
		Preload("Pairs", orderedPairs).
		Preload("Pairs.User").
		Preload("Pairs.Role")
}

func (r *assignmentRepo) Create(ctx context.Context, assignment *model.Assignment) error {
	return r.db.WithContext(ctx).Omit("Pairs").Create(assignment).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.preloaded(ctx).
		Where("assignment_id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepo) GetBySession(ctx context.Context, sessionID string) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.preloaded(ctx).
		Where("session_id = ?", sessionID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepo) UpdateState(ctx context.Context, assignment *model.Assignment) error {
	oldVersion := assignment.Version
	result := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("assignment_id = ? AND version = ?", assignment.AssignmentID, oldVersion).
		Updates(map[string]interface{}{
			"finalized":  assignment.Finalized,
			"updated_by": assignment.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	assignment.Version = oldVersion + 1
	return nil
}

func (r *assignmentRepo) ReplacePairs(ctx context.Context, assignmentID string, pairs []model.AssignmentPair) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("assignment_id = ?", assignmentID).Delete(&model.AssignmentPair{}).Error; err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}
	for i := range pairs {
		pairs[i].AssignmentID = assignmentID
		pairs[i].Position = i
	}
	return db.Omit("User", "Role").Create(&pairs).Error
}

func (r *assignmentRepo) ListFinalizedByUser(ctx context.Context, userID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	sub := r.db.Model(&model.AssignmentPair{}).Select("assignment_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Preload("Session").
		Preload("Pairs", orderedPairs).
		Preload("Pairs.Role").
		Where("finalized = ? AND assignment_id IN (?)", true, sub).
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) RoleStatisticsByUser(ctx context.Context, userID string) ([]RoleStatistic, error) {
	var stats []RoleStatistic
	err := r.db.WithContext(ctx).
		Table("assignment_pairs AS p").
		Select(`p.role_id, r.name AS role_name, COUNT(*) AS count,
			SUM(CASE WHEN a.finalized THEN 1 ELSE 0 END) AS finalized_count,
			MAX(s.date) AS last_date`).
		Joins("JOIN assignments a ON a.assignment_id = p.assignment_id AND a.deleted_at IS NULL").
		Joins("JOIN crew_roles r ON r.role_id = p.role_id").
		Joins("JOIN filming_sessions s ON s.session_id = a.session_id").
		Where("p.user_id = ?", userID).
		Group("p.role_id, r.name").
		Order("count DESC, r.name ASC").
		Scan(&stats).Error
	return stats, err
}

// ── AssignmentChangeLog Repository 实现 ──

type assignmentChangeLogRepo struct {
	db *gorm.DB
}

func NewAssignmentChangeLogRepo(db *gorm.DB) AssignmentChangeLogRepository {
	return &assignmentChangeLogRepo{db: db}
}

func (r *assignmentChangeLogRepo) Create(ctx context.Context, log *model.AssignmentChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *assignmentChangeLogRepo) ListByAssignment(ctx context.Context, assignmentID string, offset, limit int) ([]model.AssignmentChangeLog, int64, error) {
	var logs []model.AssignmentChangeLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.AssignmentChangeLog{}).
		Where("assignment_id = ?", assignmentID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, total, err
}
