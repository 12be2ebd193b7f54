package dto

// ── 用户模块 DTO ──

// RoleStatisticResponse 单个角色的参与统计
type RoleStatisticResponse struct {
	RoleID         string `json:"role_id"`
	RoleName       string `json:"role_name"`
	Count          int64  `json:"count"`
	FinalizedCount int64  `json:"finalized_count"`
	LastDate       string `json:"last_date,omitempty"`
}

// RoleStatisticsSummary 角色统计汇总
type RoleStatisticsSummary struct {
	TotalAssignments int64  `json:"total_assignments"`
	TotalFinalized   int64  `json:"total_finalized"`
	DistinctRoles    int    `json:"distinct_roles"`
	MostFrequentRole string `json:"most_frequent_role,omitempty"`
}

// UserRoleStatisticsResponse GET /users/:id/role-statistics
type UserRoleStatisticsResponse struct {
	UserID         string                  `json:"user_id"`
	Summary        RoleStatisticsSummary   `json:"summary"`
	RoleStatistics []RoleStatisticResponse `json:"role_statistics"`
}
