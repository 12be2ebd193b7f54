package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"mediaklub/backend/internal/service"
	"mediaklub/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCrew 导出场次组员名单
// GET /api/v1/export/crew?session_id=xxx
func (h *ExportHandler) ExportCrew(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, 10001, "session_id 不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportCrew(c.Request.Context(), sessionID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13001, "拍摄场次不存在")
	case errors.Is(err, service.ErrExportNoAssignment):
		response.NotFound(c, 16101, "该场次尚未创建分配")
	default:
		response.InternalError(c)
	}
}
