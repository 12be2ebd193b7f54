package dto

import "time"

// ── 拍摄组分配 DTO ──

// PairRequest 学生-角色对（整体替换写入）
type PairRequest struct {
	UserID string `json:"user_id"      binding:"required,uuid"`
	RoleID string `json:"szerepkor_id" binding:"required,uuid"`
}

// UpdateAssignmentRequest PUT /assignments/:id
type UpdateAssignmentRequest struct {
	Pairs           []PairRequest `json:"student_role_pairs" binding:"omitempty,dive"`
	Kesz            *bool         `json:"kesz"`
	ExpectedVersion *int          `json:"expected_version"   binding:"omitempty,min=1"`
	// ConflictOverride 调用方已确认冲突，仅用于审计
	ConflictOverride bool `json:"conflict_override"`
}

// AbsenceResponse 缺课记录
type AbsenceResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	Date          string `json:"date"`
	TimeFrom      string `json:"time_from"`
	TimeTo        string `json:"time_to"`
	Reason        string `json:"reason,omitempty"`
	AutoGenerated bool   `json:"auto_generated"`
	Excused       bool   `json:"excused"`
}

// ChangeLogListRequest 变更日志分页参数
type ChangeLogListRequest struct {
	PaginationRequest
}

// ChangeLogResponse 分配变更日志
type ChangeLogResponse struct {
	ID               string    `json:"id"`
	Action           string    `json:"action"`
	FromVersion      int       `json:"from_version"`
	ToVersion        int       `json:"to_version"`
	PairCount        int       `json:"pair_count"`
	ConflictOverride bool      `json:"conflict_override"`
	OperatorID       string    `json:"operator_id"`
	CreatedAt        time.Time `json:"created_at"`
}
