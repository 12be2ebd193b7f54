package crew

import "strings"

// Filter 组员列表筛选条件，空字段不过滤
type Filter struct {
	Search string
	RoleID string
	Stab   string
}

// Matches 同时应用搜索、角色与 stab 条件
func (f Filter) Matches(m Member) bool {
	if f.RoleID != "" && m.RoleID != f.RoleID {
		return false
	}
	if f.Stab != "" && !strings.EqualFold(m.StabName, f.Stab) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	for _, field := range []string{m.DisplayName, m.Username, m.RoleName, m.ClassName, m.StabName, m.Email} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// RoleCount 单个角色的人数
type RoleCount struct {
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
	Count    int    `json:"count"`
}

// View 组员列表的派生视图。
// 计数基于完整列表，Members 为筛选后的子集
type View struct {
	Members     []Member    `json:"members"`
	Total       int         `json:"total"`
	UniqueRoles int         `json:"unique_roles"`
	UniqueStabs int         `json:"unique_stabs"`
	RoleCounts  []RoleCount `json:"role_counts"`
}

// Project 每次从头重新计算所有派生视图
func Project(members []Member, f Filter) View {
	v := View{
		Members:    make([]Member, 0, len(members)),
		Total:      len(members),
		RoleCounts: make([]RoleCount, 0),
	}

	roleIdx := make(map[string]int)
	stabs := make(map[string]struct{})
	for _, m := range members {
		if f.Matches(m) {
			v.Members = append(v.Members, m)
		}
		if i, ok := roleIdx[m.RoleID]; ok {
			v.RoleCounts[i].Count++
		} else {
			roleIdx[m.RoleID] = len(v.RoleCounts)
			v.RoleCounts = append(v.RoleCounts, RoleCount{RoleID: m.RoleID, RoleName: m.RoleName, Count: 1})
		}
		// 占位 stab 不计入
		if m.StabName != "" && m.StabName != fallbackValue {
			stabs[m.StabName] = struct{}{}
		}
	}
	v.UniqueRoles = len(v.RoleCounts)
	v.UniqueStabs = len(stabs)
	return v
}
