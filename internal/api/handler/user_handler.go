package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mediaklub/backend/internal/service"
	"mediaklub/backend/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListDetailed 全部启用学生的详细资料
// GET /api/v1/users
func (h *UserHandler) ListDetailed(c *gin.Context) {
	users, err := h.userSvc.ListDetailed(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": users, "total": len(users)})
}

// GetUser 用户基本信息
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// GetDetails 单个学生的详细资料
// GET /api/v1/users/:id/details
func (h *UserHandler) GetDetails(c *gin.Context) {
	profile, err := h.userSvc.GetDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, profile)
}

// GetRoleStatistics 学生担任各角色的统计
// GET /api/v1/users/:id/role-statistics
func (h *UserHandler) GetRoleStatistics(c *gin.Context) {
	stats, err := h.userSvc.GetRoleStatistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, stats)
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, "用户不存在")
	default:
		response.InternalError(c)
	}
}
