package handler

import (
	"go.uber.org/zap"

	"mediaklub/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Role       *RoleHandler
	Filming    *FilmingHandler
	Assignment *AssignmentHandler
	Crew       *CrewHandler
	Export     *ExportHandler
	Calendar   *CalendarHandler
	Events     *EventsHandler
}

// NewHandler 创建 Handler 聚合。allowOrigins 用于 WebSocket 的来源校验
func NewHandler(svc *service.Service, allowOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Role:       NewRoleHandler(svc.Role),
		Filming:    NewFilmingHandler(svc.Filming),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Crew:       NewCrewHandler(svc.Crew),
		Export:     NewExportHandler(svc.Export),
		Calendar:   NewCalendarHandler(svc.Calendar),
		Events:     NewEventsHandler(svc.Events, allowOrigins, logger),
	}
}
