package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/service"
	"mediaklub/backend/pkg/response"
)

// CalendarHandler iCalendar 导出与电台节目导入
type CalendarHandler struct {
	svc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler 实例
func NewCalendarHandler(svc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

// MyCalendar 当前用户已定稿拍摄任务
// GET /api/v1/users/me/calendar.ics
func (h *CalendarHandler) MyCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	h.writeCalendar(c, userID)
}

// UserCalendar 指定学生的拍摄任务日历
// GET /api/v1/users/:id/calendar.ics
func (h *CalendarHandler) UserCalendar(c *gin.Context) {
	h.writeCalendar(c, c.Param("id"))
}

func (h *CalendarHandler) writeCalendar(c *gin.Context, userID string) {
	body, err := h.svc.UserCalendar(c.Request.Context(), userID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="mediaklub.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// ImportRadioSessions 导入电台节目 ICS
// POST /api/v1/radio-sessions/import
//
// multipart/form-data: file=ICS, radio_stab, participant_ids（可重复）
func (h *CalendarHandler) ImportRadioSessions(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ImportRadioSessionsRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 17000, "参数校验失败")
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 17000, "请上传 ICS 文件")
		return
	}
	defer file.Close()

	resp, err := h.svc.ImportRadioSessions(c.Request.Context(), file, &req, callerID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}
	response.Created(c, resp)
}

func handleCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, "用户不存在")
	case errors.Is(err, service.ErrICSInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 17001, "ICS 格式解析失败", err.Error())
	case errors.Is(err, service.ErrICSEmpty):
		response.BadRequest(c, 17002, "ICS 中没有可导入的节目")
	case errors.Is(err, service.ErrUnknownStudent):
		response.BadRequest(c, 14009, "参与者中包含不存在的学生")
	default:
		response.InternalError(c)
	}
}
