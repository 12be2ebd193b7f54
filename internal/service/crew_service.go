package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"mediaklub/backend/config"
	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/dto"
)

// ── 组员编辑业务错误 ──

var (
	ErrTooManyEditSessions          = errors.New("编辑会话过多，请稍后重试")
	ErrConflictConfirmationRequired = errors.New("存在休假或电台冲突，需要确认")
)

// ConflictConfirmationError 携带需要确认的冲突组员
type ConflictConfirmationError struct {
	Notices []crew.ConflictNotice
}

func (e *ConflictConfirmationError) Error() string {
	return fmt.Sprintf("%s（%d 人）", ErrConflictConfirmationRequired.Error(), len(e.Notices))
}

func (e *ConflictConfirmationError) Unwrap() error { return ErrConflictConfirmationRequired }

var tracer = otel.Tracer("mediaklub/crew")

// CrewEditorService 服务端组员编辑会话。
// 每个（场次, 编辑者）持有一个草稿，草稿在空闲超时后被清理
type CrewEditorService interface {
	View(ctx context.Context, sessionID string, filter crew.Filter, op Operator) (*dto.CrewViewResponse, error)
	EnterEdit(ctx context.Context, sessionID string, op Operator) (*dto.CrewViewResponse, error)
	CancelEdit(ctx context.Context, sessionID string, op Operator) (*dto.CrewViewResponse, error)
	AddMember(ctx context.Context, sessionID string, req *dto.AddMemberRequest, op Operator) (*dto.CrewViewResponse, error)
	RemoveMember(ctx context.Context, sessionID, studentID string, op Operator) (*dto.CrewViewResponse, error)
	ChangeRole(ctx context.Context, sessionID, studentID, roleID string, op Operator) (*dto.CrewViewResponse, error)
	Commit(ctx context.Context, sessionID string, req *dto.CommitRequest, op Operator) (*dto.CommitResponse, error)
	Reopen(ctx context.Context, sessionID string, op Operator) (*crew.Assignment, error)
	MarkDone(ctx context.Context, sessionID string, op Operator) (*crew.Assignment, error)
	// Sweep 清理空闲超时的编辑会话，返回清理数量
	Sweep(now time.Time) int
	// Run 按配置间隔执行 Sweep，直到 ctx 取消
	Run(ctx context.Context)
}

type editorKey struct {
	sessionID string
	userID    string
}

type editorEntry struct {
	editor   *crew.Editor
	role     string
	lastUsed time.Time
}

type crewEditorService struct {
	cfg         *config.EditorConfig
	assignments AssignmentService
	users       UserService
	roles       RoleService
	events      *EventHub
	logger      *zap.Logger
	now         func() time.Time

	mu      sync.Mutex
	editors map[editorKey]*editorEntry
}

// NewCrewEditorService 创建 CrewEditorService 实例
func NewCrewEditorService(
	cfg *config.EditorConfig,
	assignments AssignmentService,
	users UserService,
	roles RoleService,
	events *EventHub,
	logger *zap.Logger,
) CrewEditorService {
	return &crewEditorService{
		cfg:         cfg,
		assignments: assignments,
		users:       users,
		roles:       roles,
		events:      events,
		logger:      logger,
		now:         time.Now,
		editors:     make(map[editorKey]*editorEntry),
	}
}

// ────────────────────── View ──────────────────────

func (s *crewEditorService) View(ctx context.Context, sessionID string, filter crew.Filter, op Operator) (*dto.CrewViewResponse, error) {
	ctrl, err := s.load(ctx, sessionID, s.lookup(sessionID, op), op)
	if err != nil {
		return nil, err
	}
	return s.buildView(sessionID, ctrl, filter), nil
}

// ────────────────────── EnterEdit ──────────────────────

func (s *crewEditorService) EnterEdit(ctx context.Context, sessionID string, op Operator) (*dto.CrewViewResponse, error) {
	if !op.CanEdit() {
		return nil, crew.ErrNotPermitted
	}
	editor, err := s.acquire(ctx, sessionID, op)
	if err != nil {
		return nil, err
	}
	ctrl, err := s.load(ctx, sessionID, editor, op)
	if err != nil {
		return nil, err
	}
	wasActive := editor.Active()
	if err := ctrl.EnterEdit(); err != nil {
		return nil, err
	}
	if !wasActive {
		s.publish(EventEditStarted, sessionID, ctrl, op)
	}
	return s.buildView(sessionID, ctrl, crew.Filter{}), nil
}

// ────────────────────── CancelEdit ──────────────────────

func (s *crewEditorService) CancelEdit(ctx context.Context, sessionID string, op Operator) (*dto.CrewViewResponse, error) {
	if editor := s.release(sessionID, op); editor != nil {
		editor.CancelEdit()
	}
	ctrl, err := s.load(ctx, sessionID, nil, op)
	if err != nil {
		return nil, err
	}
	s.publish(EventEditCancelled, sessionID, ctrl, op)
	return s.buildView(sessionID, ctrl, crew.Filter{}), nil
}

// ────────────────────── AddMember ──────────────────────

func (s *crewEditorService) AddMember(ctx context.Context, sessionID string, req *dto.AddMemberRequest, op Operator) (*dto.CrewViewResponse, error) {
	editor := s.lookup(sessionID, op)
	if editor == nil {
		return nil, crew.ErrEditNotActive
	}
	ctrl, err := s.load(ctx, sessionID, editor, op)
	if err != nil {
		return nil, err
	}

	if cl := ctrl.Classify(req.StudentID); cl.HasConflict() {
		if !req.ConfirmConflict {
			notice := crew.ConflictNotice{StudentID: req.StudentID, Status: cl.Status, Detail: cl.Detail}
			if p, err := s.users.GetDetails(ctx, req.StudentID); err == nil {
				notice.Name = p.DisplayName()
			}
			crewMutations.WithLabelValues("add", "unconfirmed").Inc()
			return nil, &ConflictConfirmationError{Notices: []crew.ConflictNotice{notice}}
		}
		crewConflictOverrides.WithLabelValues("add").Inc()
		s.logger.Info("确认冲突后添加组员",
			zap.String("session_id", sessionID),
			zap.String("student_id", req.StudentID),
			zap.String("status", string(cl.Status)),
			zap.String("operator", op.UserID))
	}

	if _, err := editor.AddMember(ctx, req.StudentID, req.RoleID); err != nil {
		crewMutations.WithLabelValues("add", "error").Inc()
		if errors.Is(err, crew.ErrProfileFetch) {
			s.logger.Warn("添加组员时加载学生资料失败",
				zap.String("session_id", sessionID),
				zap.String("student_id", req.StudentID),
				zap.Error(err))
		}
		return nil, err
	}
	crewMutations.WithLabelValues("add", "ok").Inc()
	s.publish(EventDraftChanged, sessionID, ctrl, op)
	return s.buildView(sessionID, ctrl, crew.Filter{}), nil
}

// ────────────────────── RemoveMember ──────────────────────

func (s *crewEditorService) RemoveMember(ctx context.Context, sessionID, studentID string, op Operator) (*dto.CrewViewResponse, error) {
	return s.mutate(ctx, sessionID, "remove", op, func(e *crew.Editor) (bool, error) {
		return e.RemoveMember(studentID)
	})
}

// ────────────────────── ChangeRole ──────────────────────

func (s *crewEditorService) ChangeRole(ctx context.Context, sessionID, studentID, roleID string, op Operator) (*dto.CrewViewResponse, error) {
	return s.mutate(ctx, sessionID, "change_role", op, func(e *crew.Editor) (bool, error) {
		return e.ChangeRole(studentID, roleID)
	})
}

// ════════════════════════════════════════════════════════════
// Commit 冲突检查 + 整体替换 + 定稿
// ════════════════════════════════════════════════════════════

func (s *crewEditorService) Commit(ctx context.Context, sessionID string, req *dto.CommitRequest, op Operator) (*dto.CommitResponse, error) {
	ctx, span := tracer.Start(ctx, "crew.commit", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("operator", op.UserID),
	))
	defer span.End()

	editor := s.lookup(sessionID, op)
	if editor == nil {
		return nil, crew.ErrEditNotActive
	}
	if req.ExpectedVersion != nil {
		if err := editor.Rebase(*req.ExpectedVersion); err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.Int("expected_version", *req.ExpectedVersion))
	}

	backend := &crewBackend{assignments: s.assignments, users: s.users, op: op}
	ctrl := crew.NewController(backend, op.Capability(), editor)
	if err := ctrl.Load(ctx, sessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}

	confirm := func(notices []crew.ConflictNotice) bool {
		if req.ConfirmConflicts {
			backend.op.ConflictOverride = true
		}
		return req.ConfirmConflicts
	}
	outcome, err := ctrl.Commit(ctx, confirm)
	if err != nil {
		crewCommits.WithLabelValues(commitFailureOutcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		s.logger.Warn("提交组员失败，草稿已保留",
			zap.String("session_id", sessionID),
			zap.String("operator", op.UserID),
			zap.Error(err))
		return nil, err
	}
	if outcome.Aborted {
		crewCommits.WithLabelValues("aborted").Inc()
		span.SetAttributes(attribute.Int("conflicts", len(outcome.Conflicts)))
		return nil, &ConflictConfirmationError{Notices: outcome.Conflicts}
	}

	if backend.op.ConflictOverride {
		crewConflictOverrides.WithLabelValues("commit").Inc()
	}
	crewCommits.WithLabelValues("committed").Inc()
	s.release(sessionID, op)

	resp := &dto.CommitResponse{
		Committed:  outcome.Committed,
		Stale:      outcome.Stale,
		Conflicts:  outcome.Conflicts,
		Assignment: outcome.Assignment,
	}
	if resp.Assignment != nil {
		span.SetAttributes(attribute.Int("version", resp.Assignment.Version))
	}
	s.logger.Info("组员已提交并定稿",
		zap.String("session_id", sessionID),
		zap.Bool("stale", outcome.Stale),
		zap.Bool("conflict_override", backend.op.ConflictOverride),
		zap.String("operator", op.UserID))
	s.publish(EventCommitted, sessionID, ctrl, op)
	return resp, nil
}

// ────────────────────── Reopen ──────────────────────

func (s *crewEditorService) Reopen(ctx context.Context, sessionID string, op Operator) (*crew.Assignment, error) {
	ctx, span := tracer.Start(ctx, "crew.reopen", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	ctrl, err := s.load(ctx, sessionID, nil, op)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	a, err := ctrl.Reopen(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reopen failed")
		return nil, err
	}
	s.publish(EventReopened, sessionID, ctrl, op)
	return a, nil
}

// ────────────────────── MarkDone ──────────────────────

func (s *crewEditorService) MarkDone(ctx context.Context, sessionID string, op Operator) (*crew.Assignment, error) {
	ctx, span := tracer.Start(ctx, "crew.mark_done", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	editor := s.lookup(sessionID, op)
	ctrl, err := s.load(ctx, sessionID, editor, op)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	a, err := ctrl.MarkDone(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark done failed")
		return nil, err
	}
	s.release(sessionID, op)
	s.publish(EventMarkedDone, sessionID, ctrl, op)
	return a, nil
}

// ────────────────────── Sweep / Run ──────────────────────

func (s *crewEditorService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

func (s *crewEditorService) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range s.editors {
		if now.Sub(entry.lastUsed) < s.cfg.IdleTTL {
			continue
		}
		entry.editor.CancelEdit()
		delete(s.editors, key)
		removed++
	}
	crewEditSessions.Set(float64(len(s.editors)))
	return removed
}

func (s *crewEditorService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Info("已清理空闲编辑会话", zap.Int("count", n))
			}
		}
	}
}

// ── 内部辅助方法 ──

// lookup 返回已有的编辑器并刷新活跃时间，不存在时返回 nil
func (s *crewEditorService) lookup(sessionID string, op Operator) *crew.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.editors[editorKey{sessionID, op.UserID}]
	if !ok {
		return nil
	}
	// 角色变更后旧权限失效
	if entry.role != op.Role {
		entry.editor.CancelEdit()
		delete(s.editors, editorKey{sessionID, op.UserID})
		crewEditSessions.Set(float64(len(s.editors)))
		return nil
	}
	entry.lastUsed = s.now()
	return entry.editor
}

// acquire 返回已有编辑器或新建一个
func (s *crewEditorService) acquire(ctx context.Context, sessionID string, op Operator) (*crew.Editor, error) {
	if e := s.lookup(sessionID, op); e != nil {
		return e, nil
	}

	roles, err := s.roles.List(ctx, "")
	if err != nil {
		return nil, err
	}
	editor := crew.NewEditor(op.Capability(), roles, userProfiles{s.users})

	s.mu.Lock()
	defer s.mu.Unlock()

	key := editorKey{sessionID, op.UserID}
	if entry, ok := s.editors[key]; ok {
		entry.lastUsed = s.now()
		return entry.editor, nil
	}
	if len(s.editors) >= s.cfg.MaxSessions && s.sweepLocked(s.now()) == 0 {
		s.logger.Warn("编辑会话数已达上限", zap.Int("max_sessions", s.cfg.MaxSessions))
		return nil, ErrTooManyEditSessions
	}
	s.editors[key] = &editorEntry{editor: editor, role: op.Role, lastUsed: s.now()}
	crewEditSessions.Set(float64(len(s.editors)))
	return editor, nil
}

// release 移除编辑会话，返回被移除的编辑器
func (s *crewEditorService) release(sessionID string, op Operator) *crew.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := editorKey{sessionID, op.UserID}
	entry, ok := s.editors[key]
	if !ok {
		return nil
	}
	delete(s.editors, key)
	crewEditSessions.Set(float64(len(s.editors)))
	return entry.editor
}

// load 构建并加载单次请求使用的控制器。editor 为 nil 时使用未激活的临时编辑器
func (s *crewEditorService) load(ctx context.Context, sessionID string, editor *crew.Editor, op Operator) (*crew.Controller, error) {
	if editor == nil {
		editor = crew.NewEditor(op.Capability(), nil, nil)
	}
	backend := &crewBackend{assignments: s.assignments, users: s.users, op: op}
	ctrl := crew.NewController(backend, op.Capability(), editor)
	if err := ctrl.Load(ctx, sessionID); err != nil {
		s.logger.Error("加载组员数据失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return ctrl, nil
}

func (s *crewEditorService) mutate(
	ctx context.Context,
	sessionID, op string,
	caller Operator,
	fn func(e *crew.Editor) (bool, error),
) (*dto.CrewViewResponse, error) {
	editor := s.lookup(sessionID, caller)
	if editor == nil {
		return nil, crew.ErrEditNotActive
	}
	changed, err := fn(editor)
	if err != nil {
		crewMutations.WithLabelValues(op, "error").Inc()
		return nil, err
	}
	ctrl, err := s.load(ctx, sessionID, editor, caller)
	if err != nil {
		return nil, err
	}
	if !changed {
		crewMutations.WithLabelValues(op, "ignored").Inc()
		return s.buildView(sessionID, ctrl, crew.Filter{}), nil
	}
	crewMutations.WithLabelValues(op, "ok").Inc()
	s.publish(EventDraftChanged, sessionID, ctrl, caller)
	return s.buildView(sessionID, ctrl, crew.Filter{}), nil
}

func (s *crewEditorService) buildView(sessionID string, ctrl *crew.Controller, filter crew.Filter) *dto.CrewViewResponse {
	editor := ctrl.Editor()
	view := crew.Project(ctrl.Visible(), filter)

	resp := &dto.CrewViewResponse{
		SessionID:   sessionID,
		State:       ctrl.State(),
		Editing:     editor.Active(),
		Dirty:       editor.Dirty(),
		Members:     make([]dto.CrewMemberView, 0, len(view.Members)),
		Total:       view.Total,
		UniqueRoles: view.UniqueRoles,
		UniqueStabs: view.UniqueStabs,
		RoleCounts:  view.RoleCounts,
		Summary:     ctrl.Index().Summary(),
	}
	if a := ctrl.Assignment(); a != nil {
		resp.AssignmentID = a.ID
		resp.Version = a.Version
	}
	for _, m := range view.Members {
		cl := ctrl.Classify(m.StudentID)
		item := dto.CrewMemberView{Member: m, Availability: cl.Status}
		if badge, ok := crew.BadgeFor(cl); ok {
			item.Badge = &badge
		}
		resp.Members = append(resp.Members, item)
	}
	return resp
}

func (s *crewEditorService) publish(kind, sessionID string, ctrl *crew.Controller, op Operator) {
	if s.events == nil {
		return
	}
	ev := CrewEvent{Type: kind, SessionID: sessionID, ActorID: op.UserID, At: s.now()}
	if a := ctrl.Assignment(); a != nil {
		ev.AssignmentID = a.ID
		ev.Version = a.Version
	}
	s.events.Publish(ev)
}

func commitFailureOutcome(err error) string {
	if errors.Is(err, ErrAssignmentStale) {
		return "stale"
	}
	return "failed"
}

// ── crew 引擎的存储端适配 ──

// crewBackend 以调用方身份实现 crew.AssignmentBackend
type crewBackend struct {
	assignments AssignmentService
	users       UserService
	op          Operator
}

func (b *crewBackend) GetAssignmentWithAvailability(ctx context.Context, sessionID string) (*crew.AssignmentWithAvailability, error) {
	return b.assignments.GetWithAvailability(ctx, sessionID)
}

func (b *crewBackend) ListProfiles(ctx context.Context) ([]crew.Profile, error) {
	return b.users.ListDetailed(ctx)
}

func (b *crewBackend) UpdateAssignment(ctx context.Context, assignmentID string, req crew.UpdateRequest) (*crew.Assignment, error) {
	return b.assignments.Update(ctx, assignmentID, &req, b.op)
}

func (b *crewBackend) MarkAssignmentDone(ctx context.Context, assignmentID string) (*crew.Assignment, error) {
	return b.assignments.MarkDone(ctx, assignmentID, b.op)
}

func (b *crewBackend) MarkAssignmentDraft(ctx context.Context, assignmentID string) (*crew.Assignment, error) {
	return b.assignments.MarkDraft(ctx, assignmentID, b.op)
}

// userProfiles 将 UserService 适配为 crew.ProfileFetcher
type userProfiles struct {
	users UserService
}

func (p userProfiles) GetUserDetails(ctx context.Context, userID string) (*crew.Profile, error) {
	return p.users.GetDetails(ctx, userID)
}
