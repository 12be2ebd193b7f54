package dto

import "mediaklub/backend/internal/crew"

// ── 组员编辑 DTO ──

// CrewViewRequest GET /filming-sessions/:id/crew 查询参数
type CrewViewRequest struct {
	Search string `form:"search"  binding:"omitempty,max=100"`
	RoleID string `form:"role_id" binding:"omitempty,uuid"`
	Stab   string `form:"stab"    binding:"omitempty,max=50"`
}

// AddMemberRequest 添加组员
type AddMemberRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	RoleID    string `json:"role_id"    binding:"required,uuid"`
	// ConfirmConflict 学生存在休假/电台冲突时需显式确认
	ConfirmConflict bool `json:"confirm_conflict"`
}

// ChangeRoleRequest 修改组员角色
type ChangeRoleRequest struct {
	RoleID string `json:"role_id" binding:"required,uuid"`
}

// CommitRequest 提交定稿
type CommitRequest struct {
	ConfirmConflicts bool `json:"confirm_conflicts"`
	// ExpectedVersion 版本冲突后重新加载得到的版本号，保留草稿按此版本重试
	ExpectedVersion *int `json:"expected_version" binding:"omitempty,min=1"`
}

// CrewMemberView 组员 + 可用性徽标
type CrewMemberView struct {
	crew.Member
	Availability crew.Status `json:"availability"`
	Badge        *crew.Badge `json:"badge,omitempty"`
}

// CrewViewResponse 组员视图
type CrewViewResponse struct {
	SessionID    string                   `json:"session_id"`
	AssignmentID string                   `json:"assignment_id,omitempty"`
	State        crew.State               `json:"state"`
	Editing      bool                     `json:"editing"`
	Dirty        bool                     `json:"dirty"`
	Version      int                      `json:"version"`
	Members      []CrewMemberView         `json:"members"`
	Total        int                      `json:"total"`
	UniqueRoles  int                      `json:"unique_roles"`
	UniqueStabs  int                      `json:"unique_stabs"`
	RoleCounts   []crew.RoleCount         `json:"role_counts"`
	Summary      crew.AvailabilitySummary `json:"availability_summary"`
}

// CommitResponse 提交结果
type CommitResponse struct {
	Committed  bool                  `json:"committed"`
	Stale      bool                  `json:"stale,omitempty"`
	Conflicts  []crew.ConflictNotice `json:"conflicts,omitempty"`
	Assignment *crew.Assignment      `json:"assignment,omitempty"`
}
