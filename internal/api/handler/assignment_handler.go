package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/service"
	"mediaklub/backend/pkg/response"
)

// AssignmentHandler 拍摄组分配 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// GetWithAvailability 场次分配 + 学生可用性
// GET /api/v1/filming-sessions/:id/assignment
//
// 场次尚无分配时 data 中只包含 user_availability
func (h *AssignmentHandler) GetWithAvailability(c *gin.Context) {
	result, err := h.assignmentSvc.GetWithAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// CreateAssignment 为场次创建空草稿分配
// POST /api/v1/filming-sessions/:id/assignment
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	a, err := h.assignmentSvc.Create(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.Created(c, a)
}

// UpdateAssignment 整体替换 pair 集合，可同时设置 kesz
// PUT /api/v1/assignments/:id
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	op, ok := MustGetOperator(c)
	if !ok {
		return
	}
	op.ConflictOverride = req.ConflictOverride

	update := &crew.UpdateRequest{
		Pairs:           make([]crew.Pair, 0, len(req.Pairs)),
		Finalized:       req.Kesz,
		ExpectedVersion: req.ExpectedVersion,
	}
	for _, p := range req.Pairs {
		update.Pairs = append(update.Pairs, crew.Pair{UserID: p.UserID, RoleID: p.RoleID})
	}

	a, err := h.assignmentSvc.Update(c.Request.Context(), c.Param("id"), update, op)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// MarkDone 定稿
// POST /api/v1/assignments/:id/done
func (h *AssignmentHandler) MarkDone(c *gin.Context) {
	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	a, err := h.assignmentSvc.MarkDone(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// MarkDraft 退回草稿（管理员）
// POST /api/v1/assignments/:id/draft
func (h *AssignmentHandler) MarkDraft(c *gin.Context) {
	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	a, err := h.assignmentSvc.MarkDraft(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// ListAbsences 定稿生成的缺课记录
// GET /api/v1/assignments/:id/absences
func (h *AssignmentHandler) ListAbsences(c *gin.Context) {
	absences, err := h.assignmentSvc.ListAbsences(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": absences})
}

// ListChangeLogs 分配变更日志
// GET /api/v1/assignments/:id/change-logs
func (h *AssignmentHandler) ListChangeLogs(c *gin.Context) {
	var req dto.ChangeLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14000, "参数校验失败")
		return
	}

	logs, total, err := h.assignmentSvc.ListChangeLogs(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleAssignmentError(c, err)
		return
	}

	response.OKPage(c, logs, total, req.GetPage(), req.GetPageSize())
}

// handleAssignmentError 分配相关错误映射，组员编辑接口共用
func handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13001, "拍摄场次不存在")
	case errors.Is(err, service.ErrAssignmentNotFound), errors.Is(err, crew.ErrNoAssignment):
		response.NotFound(c, 14001, "分配不存在")
	case errors.Is(err, service.ErrAssignmentExists):
		response.Conflict(c, 14002, "该场次已存在分配")
	case errors.Is(err, service.ErrAssignmentStale):
		response.Conflict(c, 14003, "分配已被他人修改，请刷新后重试")
	case errors.Is(err, service.ErrAssignmentFinalized), errors.Is(err, crew.ErrAssignmentFinalized):
		response.Conflict(c, 14004, "分配已定稿，请先退回草稿")
	case errors.Is(err, service.ErrAssignmentNotFinal):
		response.Conflict(c, 14005, "分配尚未定稿")
	case errors.Is(err, service.ErrAssignmentForbidden), errors.Is(err, crew.ErrNotPermitted):
		response.Forbidden(c, 14006, "无权修改分配")
	case errors.Is(err, service.ErrDuplicateStudent), errors.Is(err, crew.ErrDuplicateMember):
		response.BadRequest(c, 14007, "同一学生在分配中只能出现一次")
	case errors.Is(err, service.ErrInvalidPair):
		response.BadRequest(c, 14008, "学生或角色 ID 不能为空")
	case errors.Is(err, service.ErrUnknownStudent):
		response.BadRequest(c, 14009, "分配中包含不存在的学生")
	case errors.Is(err, service.ErrUnknownRole), errors.Is(err, crew.ErrUnknownRole):
		response.BadRequest(c, 14010, "角色不存在")
	case errors.Is(err, crew.ErrInvalidTransition):
		response.Conflict(c, 14011, "当前分配状态不允许该操作")
	default:
		response.InternalError(c)
	}
}
