package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/model"
	"mediaklub/backend/internal/repository"
	pkgerrors "mediaklub/backend/pkg/errors"
)

// ── 分配模块业务错误 ──

var (
	ErrAssignmentNotFound  = errors.New("分配不存在")
	ErrAssignmentExists    = errors.New("该场次已存在分配")
	ErrAssignmentStale     = errors.New("分配已被他人修改，请刷新后重试")
	ErrAssignmentFinalized = errors.New("分配已定稿，请先退回草稿")
	ErrAssignmentNotFinal  = errors.New("分配尚未定稿")
	ErrAssignmentForbidden = errors.New("无权修改分配")
	ErrDuplicateStudent    = errors.New("同一学生在分配中只能出现一次")
	ErrInvalidPair         = errors.New("学生或角色 ID 不能为空")
	ErrUnknownStudent      = errors.New("分配中包含不存在的学生")
	ErrUnknownRole         = errors.New("分配中包含不存在的角色")
)

// AssignmentService 拍摄组分配业务接口
type AssignmentService interface {
	GetWithAvailability(ctx context.Context, sessionID string) (*crew.AssignmentWithAvailability, error)
	Create(ctx context.Context, sessionID string, op Operator) (*crew.Assignment, error)
	// Update 整体替换 pair 集合，Finalized 非 nil 时同时设置定稿状态
	Update(ctx context.Context, assignmentID string, req *crew.UpdateRequest, op Operator) (*crew.Assignment, error)
	MarkDone(ctx context.Context, assignmentID string, op Operator) (*crew.Assignment, error)
	MarkDraft(ctx context.Context, assignmentID string, op Operator) (*crew.Assignment, error)
	ListAbsences(ctx context.Context, assignmentID string) ([]dto.AbsenceResponse, error)
	ListChangeLogs(ctx context.Context, assignmentID string, req *dto.ChangeLogListRequest) ([]dto.ChangeLogResponse, int64, error)
	GetByID(ctx context.Context, assignmentID string) (*crew.Assignment, error)
}

type assignmentService struct {
	repo     *repository.Repository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, logger *zap.Logger) AssignmentService {
	return &assignmentService{repo: repo, validate: validator.New(), logger: logger}
}

// ════════════════════════════════════════════════════════════
// GetWithAvailability 分配 + 全体学生可用性组合载荷
// ════════════════════════════════════════════════════════════

func (s *assignmentService) GetWithAvailability(ctx context.Context, sessionID string) (*crew.AssignmentWithAvailability, error) {
	session, err := s.repo.FilmingSession.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询拍摄场次失败", zap.String("id", sessionID), zap.Error(err))
		return nil, err
	}

	var (
		assignment *model.Assignment
		users      []model.User
		vacations  []model.Vacation
		radios     []model.RadioSession
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.repo.Assignment.GetBySession(gctx, sessionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		assignment = a
		return err
	})
	g.Go(func() (err error) {
		users, err = s.repo.User.ListActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		vacations, err = s.repo.Vacation.ListApprovedCovering(gctx, session.Date)
		return err
	})
	g.Go(func() (err error) {
		radios, err = s.repo.RadioSession.ListCandidates(gctx, session.Date)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("加载分配与可用性失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	result := &crew.AssignmentWithAvailability{
		Availability: buildAvailability(session, users, vacations, radios, s.logger),
	}
	if assignment != nil {
		result.Assignment = toCrewAssignment(assignment)
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *assignmentService) GetByID(ctx context.Context, assignmentID string) (*crew.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return toCrewAssignment(a), nil
}

// ────────────────────── Create ──────────────────────

func (s *assignmentService) Create(ctx context.Context, sessionID string, op Operator) (*crew.Assignment, error) {
	if !op.CanEdit() {
		return nil, ErrAssignmentForbidden
	}

	session, err := s.repo.FilmingSession.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if _, err := s.repo.Assignment.GetBySession(ctx, sessionID); err == nil {
		return nil, ErrAssignmentExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	a := &model.Assignment{
		SessionID: session.SessionID,
		AuthorID:  &op.UserID,
		StabID:    session.StabID,
	}
	a.CreatedBy = &op.UserID

	if err := s.repo.Assignment.Create(ctx, a); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrAssignmentExists
		}
		s.logger.Error("创建分配失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建分配",
		zap.String("assignment_id", a.AssignmentID),
		zap.String("session_id", sessionID),
		zap.String("operator", op.UserID))
	return s.GetByID(ctx, a.AssignmentID)
}

// ════════════════════════════════════════════════════════════
// Update 整体替换 pair 集合（可选同时定稿）
// ════════════════════════════════════════════════════════════
//
// 事务内依次执行：
//  1. 替换 assignment_pairs
//  2. 乐观锁更新 finalized / version
//  3. 定稿时重新生成缺课记录，草稿时清除自动生成的记录
//  4. 写入变更日志（含 pair 快照）

func (s *assignmentService) Update(ctx context.Context, assignmentID string, req *crew.UpdateRequest, op Operator) (*crew.Assignment, error) {
	if !op.CanEdit() {
		return nil, ErrAssignmentForbidden
	}
	if err := s.validatePairs(req.Pairs); err != nil {
		return nil, err
	}

	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Finalized {
		return nil, ErrAssignmentFinalized
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != a.Version {
		return nil, ErrAssignmentStale
	}
	if err := s.checkReferences(ctx, req.Pairs); err != nil {
		return nil, err
	}

	finalized := a.Finalized
	if req.Finalized != nil {
		finalized = *req.Finalized
	}
	action := model.ChangeActionUpdate
	if finalized {
		action = model.ChangeActionCommit
	}

	pairs := make([]model.AssignmentPair, 0, len(req.Pairs))
	for _, p := range req.Pairs {
		pairs = append(pairs, model.AssignmentPair{UserID: p.UserID, RoleID: p.RoleID})
	}

	err = s.inTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Assignment.ReplacePairs(ctx, a.AssignmentID, pairs); err != nil {
			return err
		}
		return s.transition(ctx, txRepo, a, finalized, action, req.Pairs, op)
	})
	if err != nil {
		return nil, s.translateWriteError(err, assignmentID)
	}

	s.logger.Info("分配已更新",
		zap.String("assignment_id", assignmentID),
		zap.String("action", action),
		zap.Int("pairs", len(req.Pairs)),
		zap.Int("version", a.Version),
		zap.Bool("conflict_override", op.ConflictOverride),
		zap.String("operator", op.UserID))
	return s.GetByID(ctx, assignmentID)
}

// ────────────────────── MarkDone ──────────────────────

func (s *assignmentService) MarkDone(ctx context.Context, assignmentID string, op Operator) (*crew.Assignment, error) {
	if !op.CanEdit() {
		return nil, ErrAssignmentForbidden
	}
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Finalized {
		return nil, ErrAssignmentFinalized
	}

	err = s.inTx(ctx, func(txRepo *repository.Repository) error {
		return s.transition(ctx, txRepo, a, true, model.ChangeActionMarkDone, pairsOfModel(a), op)
	})
	if err != nil {
		return nil, s.translateWriteError(err, assignmentID)
	}

	s.logger.Info("分配已定稿", zap.String("assignment_id", assignmentID), zap.String("operator", op.UserID))
	return s.GetByID(ctx, assignmentID)
}

// ────────────────────── MarkDraft ──────────────────────

func (s *assignmentService) MarkDraft(ctx context.Context, assignmentID string, op Operator) (*crew.Assignment, error) {
	if !op.CanAdminister() {
		return nil, ErrAssignmentForbidden
	}
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.Finalized {
		return nil, ErrAssignmentNotFinal
	}

	err = s.inTx(ctx, func(txRepo *repository.Repository) error {
		return s.transition(ctx, txRepo, a, false, model.ChangeActionReopen, pairsOfModel(a), op)
	})
	if err != nil {
		return nil, s.translateWriteError(err, assignmentID)
	}

	s.logger.Info("分配已退回草稿", zap.String("assignment_id", assignmentID), zap.String("operator", op.UserID))
	return s.GetByID(ctx, assignmentID)
}

// ────────────────────── ListAbsences ──────────────────────

func (s *assignmentService) ListAbsences(ctx context.Context, assignmentID string) ([]dto.AbsenceResponse, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.AbsenceResponse, 0)
	// 缺课记录仅在定稿后存在
	if !a.Finalized {
		return result, nil
	}

	absences, err := s.repo.Absence.ListByAssignment(ctx, assignmentID)
	if err != nil {
		s.logger.Error("查询缺课记录失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, err
	}
	for _, ab := range absences {
		item := dto.AbsenceResponse{
			ID:            ab.AbsenceID,
			UserID:        ab.UserID,
			Date:          ab.Date.Format(dateLayout),
			TimeFrom:      formatClock(ab.TimeFrom),
			TimeTo:        formatClock(ab.TimeTo),
			Reason:        ab.Reason,
			AutoGenerated: ab.AutoGenerated,
			Excused:       ab.Excused,
		}
		if ab.User != nil {
			item.UserName = toProfile(ab.User).DisplayName()
		}
		result = append(result, item)
	}
	return result, nil
}

// ────────────────────── ListChangeLogs ──────────────────────

func (s *assignmentService) ListChangeLogs(ctx context.Context, assignmentID string, req *dto.ChangeLogListRequest) ([]dto.ChangeLogResponse, int64, error) {
	if _, err := s.load(ctx, assignmentID); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.repo.ChangeLog.ListByAssignment(ctx, assignmentID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询变更日志失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ChangeLogResponse, 0, len(logs))
	for _, l := range logs {
		result = append(result, dto.ChangeLogResponse{
			ID:               l.ChangeLogID,
			Action:           l.Action,
			FromVersion:      l.FromVersion,
			ToVersion:        l.ToVersion,
			PairCount:        l.PairCount,
			ConflictOverride: l.ConflictOverride,
			OperatorID:       l.OperatorID,
			CreatedAt:        l.CreatedAt,
		})
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func (s *assignmentService) load(ctx context.Context, assignmentID string) (*model.Assignment, error) {
	a, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询分配失败", zap.String("id", assignmentID), zap.Error(err))
		return nil, err
	}
	return a, nil
}

// pairInput 校验用的 pair 结构
type pairInput struct {
	UserID string `validate:"required"`
	RoleID string `validate:"required"`
}

type pairSet struct {
	Pairs []pairInput `validate:"unique=UserID,dive"`
}

// validatePairs 校验 pair 非空且学生不重复
func (s *assignmentService) validatePairs(pairs []crew.Pair) error {
	set := pairSet{Pairs: make([]pairInput, 0, len(pairs))}
	for _, p := range pairs {
		set.Pairs = append(set.Pairs, pairInput{UserID: p.UserID, RoleID: p.RoleID})
	}

	err := s.validate.Struct(set)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "unique" {
				return ErrDuplicateStudent
			}
		}
	}
	return ErrInvalidPair
}

// checkReferences 确认所有学生与角色存在
func (s *assignmentService) checkReferences(ctx context.Context, pairs []crew.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	userIDs := make([]string, 0, len(pairs))
	roleSet := make(map[string]struct{})
	for _, p := range pairs {
		userIDs = append(userIDs, p.UserID)
		roleSet[p.RoleID] = struct{}{}
	}
	roleIDs := make([]string, 0, len(roleSet))
	for id := range roleSet {
		roleIDs = append(roleIDs, id)
	}

	users, err := s.repo.User.ListByIDs(ctx, userIDs)
	if err != nil {
		return err
	}
	if len(users) != len(userIDs) {
		return ErrUnknownStudent
	}
	roles, err := s.repo.CrewRole.ListByIDs(ctx, roleIDs)
	if err != nil {
		return err
	}
	if len(roles) != len(roleIDs) {
		return ErrUnknownRole
	}
	return nil
}

// transition 在事务内更新定稿状态、同步缺课记录并写入变更日志
func (s *assignmentService) transition(
	ctx context.Context,
	txRepo *repository.Repository,
	a *model.Assignment,
	finalized bool,
	action string,
	pairs []crew.Pair,
	op Operator,
) error {
	fromVersion := a.Version
	a.Finalized = finalized
	a.UpdatedBy = &op.UserID
	if err := txRepo.Assignment.UpdateState(ctx, a); err != nil {
		return err
	}

	if err := txRepo.Absence.DeleteGenerated(ctx, a.AssignmentID); err != nil {
		return err
	}
	if finalized {
		if err := txRepo.Absence.BatchCreate(ctx, absencesFor(a, pairs)); err != nil {
			return err
		}
	}

	snapshot, err := json.Marshal(pairs)
	if err != nil {
		return err
	}
	return txRepo.ChangeLog.Create(ctx, &model.AssignmentChangeLog{
		AssignmentID:     a.AssignmentID,
		Action:           action,
		FromVersion:      fromVersion,
		ToVersion:        a.Version,
		PairCount:        len(pairs),
		ConflictOverride: op.ConflictOverride,
		Pairs:            datatypes.JSON(snapshot),
		OperatorID:       op.UserID,
	})
}

// inTx 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (s *assignmentService) inTx(ctx context.Context, fn func(txRepo *repository.Repository) error) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(s.repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// translateWriteError 将数据库错误映射为业务错误
func (s *assignmentService) translateWriteError(err error, assignmentID string) error {
	switch {
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		return ErrAssignmentStale
	case pkgerrors.IsUniqueViolation(err):
		return ErrDuplicateStudent
	case pkgerrors.IsForeignKeyViolation(err):
		return ErrUnknownStudent
	}
	s.logger.Error("写入分配失败，事务已回滚", zap.String("assignment_id", assignmentID), zap.Error(err))
	return fmt.Errorf("写入分配失败: %w", err)
}

// absenceReasonLimit absences.reason 列的字符数上限
const absenceReasonLimit = 200

func absencesFor(a *model.Assignment, pairs []crew.Pair) []model.Absence {
	if a.Session == nil {
		return nil
	}
	reason := "拍摄：" + a.Session.Name
	if r := []rune(reason); len(r) > absenceReasonLimit {
		reason = string(r[:absenceReasonLimit])
	}
	absences := make([]model.Absence, 0, len(pairs))
	for _, p := range pairs {
		absences = append(absences, model.Absence{
			AssignmentID:  a.AssignmentID,
			UserID:        p.UserID,
			Date:          a.Session.Date,
			TimeFrom:      a.Session.TimeFrom,
			TimeTo:        a.Session.TimeTo,
			Reason:        reason,
			AutoGenerated: true,
			Excused:       true,
		})
	}
	return absences
}

func pairsOfModel(a *model.Assignment) []crew.Pair {
	pairs := make([]crew.Pair, 0, len(a.Pairs))
	for _, p := range a.Pairs {
		pairs = append(pairs, crew.Pair{UserID: p.UserID, RoleID: p.RoleID})
	}
	return pairs
}

// toCrewAssignment 将 model.Assignment 转换为引擎与接口共用的结构
func toCrewAssignment(a *model.Assignment) *crew.Assignment {
	out := &crew.Assignment{
		ID:        a.AssignmentID,
		SessionID: a.SessionID,
		Pairs:     make([]crew.RolePair, 0, len(a.Pairs)),
		Finalized: a.Finalized,
		CreatedAt: a.CreatedAt,
		Version:   a.Version,
	}
	if a.Author != nil {
		out.Author = toProfile(a.Author).DisplayName()
	}
	if a.Stab != nil {
		out.Stab = a.Stab.Name
	}

	roles := make(map[string]struct{})
	for _, p := range a.Pairs {
		pair := crew.RolePair{
			User: crew.UserRef{ID: p.UserID},
			Role: crew.RoleRef{ID: p.RoleID},
		}
		if p.User != nil {
			pair.User.Username = p.User.Username
			pair.User.FirstName = p.User.FirstName
			pair.User.LastName = p.User.LastName
			pair.User.FullName = p.User.FullName
		}
		if p.Role != nil {
			pair.Role.Name = p.Role.Name
		}
		out.Pairs = append(out.Pairs, pair)
		roles[p.RoleID] = struct{}{}
	}
	out.MemberCount = len(out.Pairs)
	out.RoleCount = len(roles)
	return out
}
