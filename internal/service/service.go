package service

import (
	"go.uber.org/zap"

	"mediaklub/backend/config"
	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/model"
	"mediaklub/backend/internal/repository"
	"mediaklub/backend/pkg/jwt"
	"mediaklub/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Role       RoleService
	Filming    FilmingService
	Assignment AssignmentService
	Crew       CrewEditorService
	Export     ExportService
	Calendar   CalendarService
	Events     *EventHub
}

// NewService 创建 Service 聚合。rdb 可为 nil（Redis 未启用）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	events := NewEventHub()
	if rdb != nil {
		events.AttachRelay(rdb, logger)
	}
	users := NewUserService(repo, logger)
	roles := NewRoleService(repo, logger)
	assignments := NewAssignmentService(repo, logger)

	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:       users,
		Role:       roles,
		Filming:    NewFilmingService(repo, logger),
		Assignment: assignments,
		Crew:       NewCrewEditorService(&cfg.Editor, assignments, users, roles, events, logger),
		Export:     NewExportService(repo, assignments, users, logger),
		Calendar:   NewCalendarService(cfg.Database.Timezone, repo, logger),
		Events:     events,
	}
}

// Operator 发起请求的调用方，由 Handler 从 JWT 上下文构造
type Operator struct {
	UserID string
	Role   string
	// ConflictOverride 调用方已确认冲突组员，写入变更日志
	ConflictOverride bool
}

// CanEdit 是否可编辑拍摄组分配
func (o Operator) CanEdit() bool {
	return o.Role == model.UserRoleAdmin || o.Role == model.UserRoleEditor
}

// CanAdminister 是否可执行管理操作（退回草稿）
func (o Operator) CanAdminister() bool {
	return o.Role == model.UserRoleAdmin
}

// Capability 转换为编辑器权限
func (o Operator) Capability() crew.Capability {
	return crew.Capability{UserID: o.UserID, CanEdit: o.CanEdit(), CanAdminister: o.CanAdminister()}
}
