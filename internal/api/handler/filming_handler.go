package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/service"
	"mediaklub/backend/pkg/response"
)

// FilmingHandler 拍摄场次 HTTP 处理器
type FilmingHandler struct {
	filmingSvc service.FilmingService
}

// NewFilmingHandler 创建 FilmingHandler
func NewFilmingHandler(filmingSvc service.FilmingService) *FilmingHandler {
	return &FilmingHandler{filmingSvc: filmingSvc}
}

// GetSession 拍摄场次详情
// GET /api/v1/filming-sessions/:id
func (h *FilmingHandler) GetSession(c *gin.Context) {
	session, err := h.filmingSvc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleFilmingError(c, err)
		return
	}

	response.OK(c, session)
}

// CreateSession 新建拍摄场次
// POST /api/v1/filming-sessions
func (h *FilmingHandler) CreateSession(c *gin.Context) {
	var req dto.CreateFilmingSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13000, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.filmingSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleFilmingError(c, err)
		return
	}

	response.Created(c, session)
}

func (h *FilmingHandler) handleFilmingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13001, "拍摄场次不存在")
	case errors.Is(err, service.ErrSessionTimeRange):
		response.BadRequest(c, 13002, "开始时间必须早于结束时间")
	case errors.Is(err, service.ErrStabNotFound):
		response.BadRequest(c, 13003, "摄制组不存在")
	default:
		response.InternalError(c)
	}
}
