// Package crew 拍摄组分配的核心引擎：可用性索引、名单物化、草稿编辑器与定稿状态机。
//
// 本包只处理已获取的快照，存储与传输由 AssignmentBackend / ProfileFetcher 接口提供。
package crew

import (
	"context"
	"strings"
	"time"
)

// fallbackValue 详细资料缺失时的占位值
const fallbackValue = "N/A"

// UserRef 分配对与可用性记录中内嵌的用户引用
type UserRef struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	FullName  string `json:"full_name,omitempty"`
}

// DisplayName 优先全名，其次“姓 名”，最后用户名
func (u UserRef) DisplayName() string {
	return displayName(u.FullName, u.FirstName, u.LastName, u.Username)
}

// RoleRef 分配对中内嵌的角色引用
type RoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Role 拍摄角色（szerepkör）。AcademicYear 为 nil 表示不限学年
type Role struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	AcademicYear *string `json:"academic_year,omitempty"`
}

// Profile 学生详细资料
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	ClassName string `json:"class_name"`
	StabName  string `json:"stab_name"`
}

// DisplayName 与 UserRef.DisplayName 规则一致
func (p Profile) DisplayName() string {
	return displayName(p.FullName, p.FirstName, p.LastName, p.Username)
}

// Member 物化后的组员：(学生, 角色) 对 + 资料字段
type Member struct {
	StudentID   string `json:"student_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	RoleID      string `json:"role_id"`
	RoleName    string `json:"role_name"`
	ClassName   string `json:"class_name"`
	StabName    string `json:"stab_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// RolePair 已存储的 (学生, 角色) 关系
type RolePair struct {
	User UserRef `json:"user"`
	Role RoleRef `json:"szerepkor"`
}

// Pair 写入用的 (学生, 角色) 关系
type Pair struct {
	UserID string `json:"user_id"`
	RoleID string `json:"szerepkor_id"`
}

// Assignment 单个拍摄场次的组员分配聚合
type Assignment struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"forgatas"`
	Pairs       []RolePair `json:"student_role_pairs"`
	Finalized   bool       `json:"kesz"`
	Author      string     `json:"author,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Stab        string     `json:"stab,omitempty"`
	Version     int        `json:"version"`
	MemberCount int        `json:"student_count"`
	RoleCount   int        `json:"role_count"`
}

// AssignmentWithAvailability 场次的组合读取载荷。Assignment 为 nil 表示尚未创建分配
type AssignmentWithAvailability struct {
	*Assignment
	Availability AvailabilitySnapshot `json:"user_availability"`
}

// UpdateRequest 整体替换分配的 pair 集合
type UpdateRequest struct {
	Pairs           []Pair `json:"student_role_pairs"`
	Finalized       *bool  `json:"kesz,omitempty"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

// Capability 调用方权限，由外部显式传入
type Capability struct {
	UserID        string
	CanEdit       bool
	CanAdminister bool
}

// ProfileFetcher 加载单个学生详细资料
type ProfileFetcher interface {
	GetUserDetails(ctx context.Context, userID string) (*Profile, error)
}

// AssignmentBackend 定稿控制器依赖的存储端
type AssignmentBackend interface {
	GetAssignmentWithAvailability(ctx context.Context, sessionID string) (*AssignmentWithAvailability, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
	UpdateAssignment(ctx context.Context, assignmentID string, req UpdateRequest) (*Assignment, error)
	MarkAssignmentDone(ctx context.Context, assignmentID string) (*Assignment, error)
	MarkAssignmentDraft(ctx context.Context, assignmentID string) (*Assignment, error)
}

func displayName(full, first, last, username string) string {
	if s := strings.TrimSpace(full); s != "" {
		return s
	}
	if s := strings.TrimSpace(strings.TrimSpace(last) + " " + strings.TrimSpace(first)); s != "" {
		return s
	}
	return username
}

// PairsOf 将组员转换为写入格式，保持顺序
func PairsOf(members []Member) []Pair {
	pairs := make([]Pair, 0, len(members))
	for _, m := range members {
		pairs = append(pairs, Pair{UserID: m.StudentID, RoleID: m.RoleID})
	}
	return pairs
}
