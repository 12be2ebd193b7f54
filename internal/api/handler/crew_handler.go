package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/service"
	"mediaklub/backend/pkg/response"
)

// CrewHandler 组员编辑 HTTP 处理器
//
// 编辑草稿保存在服务端，按（场次, 当前用户）区分
type CrewHandler struct {
	crewSvc service.CrewEditorService
}

// NewCrewHandler 创建 CrewHandler
func NewCrewHandler(crewSvc service.CrewEditorService) *CrewHandler {
	return &CrewHandler{crewSvc: crewSvc}
}

// View 组员视图（编辑中返回草稿）
// GET /api/v1/filming-sessions/:id/crew?search=&role_id=&stab=
func (h *CrewHandler) View(c *gin.Context) {
	var req dto.CrewViewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 15000, "参数校验失败")
		return
	}

	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	filter := crew.Filter{Search: req.Search, RoleID: req.RoleID, Stab: req.Stab}
	view, err := h.crewSvc.View(c.Request.Context(), c.Param("id"), filter, op)
	if err != nil {
		handleCrewError(c, err)
		return
	}

	response.OK(c, view)
}

// EnterEdit 进入编辑模式
// POST /api/v1/filming-sessions/:id/crew/edit
func (h *CrewHandler) EnterEdit(c *gin.Context) {
	h.withOperator(c, func(op service.Operator) (interface{}, error) {
		return h.crewSvc.EnterEdit(c.Request.Context(), c.Param("id"), op)
	})
}

// CancelEdit 放弃草稿
// DELETE /api/v1/filming-sessions/:id/crew/edit
func (h *CrewHandler) CancelEdit(c *gin.Context) {
	h.withOperator(c, func(op service.Operator) (interface{}, error) {
		return h.crewSvc.CancelEdit(c.Request.Context(), c.Param("id"), op)
	})
}

// AddMember 添加组员
// POST /api/v1/filming-sessions/:id/crew/members
func (h *CrewHandler) AddMember(c *gin.Context) {
	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 15000, "参数校验失败")
		return
	}

	h.withOperator(c, func(op service.Operator) (interface{}, error) {
		return h.crewSvc.AddMember(c.Request.Context(), c.Param("id"), &req, op)
	})
}

// RemoveMember 移除组员
// DELETE /api/v1/filming-sessions/:id/crew/members/:student_id
func (h *CrewHandler) RemoveMember(c *gin.Context) {
	h.withOperator(c, func(op service.Operator) (interface{}, error) {
		return h.crewSvc.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("student_id"), op)
	})
}

// ChangeRole 修改组员角色
// PUT /api/v1/filming-sessions/:id/crew/members/:student_id/role
func (h *CrewHandler) ChangeRole(c *gin.Context) {
	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 15000, "参数校验失败")
		return
	}

	h.withOperator(c, func(op service.Operator) (interface{}, error) {
		return h.crewSvc.ChangeRole(c.Request.Context(), c.Param("id"), c.Param("student_id"), req.RoleID, op)
	})
}

// Commit 提交草稿并定稿
// POST /api/v1/filming-sessions/:id/crew/commit
func (h *CrewHandler) Commit(c *gin.Context) {
	var req dto.CommitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 15000, "参数校验失败")
			return
		}
	}

	h.withOperator(c, func(op service.Operator) (interface{}, error) {
		return h.crewSvc.Commit(c.Request.Context(), c.Param("id"), &req, op)
	})
}

// Reopen 已定稿分配退回草稿（管理员）
// POST /api/v1/filming-sessions/:id/crew/reopen
func (h *CrewHandler) Reopen(c *gin.Context) {
	h.withOperator(c, func(op service.Operator) (interface{}, error) {
		return h.crewSvc.Reopen(c.Request.Context(), c.Param("id"), op)
	})
}

// MarkDone 不修改组员直接定稿
// POST /api/v1/filming-sessions/:id/crew/done
func (h *CrewHandler) MarkDone(c *gin.Context) {
	h.withOperator(c, func(op service.Operator) (interface{}, error) {
		return h.crewSvc.MarkDone(c.Request.Context(), c.Param("id"), op)
	})
}

func (h *CrewHandler) withOperator(c *gin.Context, fn func(op service.Operator) (interface{}, error)) {
	op, ok := MustGetOperator(c)
	if !ok {
		return
	}

	result, err := fn(op)
	if err != nil {
		handleCrewError(c, err)
		return
	}

	response.OK(c, result)
}

func handleCrewError(c *gin.Context, err error) {
	var confirmErr *service.ConflictConfirmationError
	switch {
	case errors.As(err, &confirmErr):
		response.ErrorWithData(c, http.StatusConflict, 15003, "存在休假或电台冲突，需要确认",
			gin.H{"conflicts": confirmErr.Notices})
	case errors.Is(err, crew.ErrEditNotActive):
		response.Conflict(c, 15001, "当前不在编辑模式")
	case errors.Is(err, service.ErrTooManyEditSessions):
		response.TooManyRequests(c, 15002, "编辑会话过多，请稍后重试")
	case errors.Is(err, crew.ErrPendingChanges):
		response.Conflict(c, 15004, "存在未保存的修改，请先提交或取消")
	case errors.Is(err, crew.ErrProfileFetch):
		response.Error(c, http.StatusBadGateway, 15005, "加载学生资料失败")
	case errors.Is(err, crew.ErrEditCancelled):
		response.Conflict(c, 15006, "编辑已取消，组员未添加")
	case errors.Is(err, crew.ErrCommitInProgress):
		response.Conflict(c, 15007, "草稿正在提交，请稍后重试")
	default:
		handleAssignmentError(c, err)
	}
}
