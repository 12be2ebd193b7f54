package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"mediaklub/backend/internal/model"
)

// ── 测试辅助 ──

func setupTestUserService() (UserService, *testRepos) {
	repos := newTestRepos()
	return NewUserService(repos.repo, zap.NewNop()), repos
}

// ── ListDetailed / GetDetails 测试 ──

func TestUserService_ListDetailed_SkipsInactive(t *testing.T) {
	svc, repos := setupTestUserService()
	repos.addStudent("u1", "anna", "Kovács", "Anna")
	repos.addStudent("u2", "bela", "Nagy", "Béla").IsActive = false

	profiles, err := svc.ListDetailed(context.Background())
	if err != nil {
		t.Fatalf("ListDetailed 应成功: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("期望 1 个学生，实际 %d", len(profiles))
	}
	if profiles[0].StabName != "A" || profiles[0].ClassName != "11.F" {
		t.Errorf("资料字段未正确映射: %+v", profiles[0])
	}
}

func TestUserService_GetDetails(t *testing.T) {
	svc, repos := setupTestUserService()
	repos.addStudent("u1", "anna", "Kovács", "Anna")

	p, err := svc.GetDetails(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetDetails 应成功: %v", err)
	}
	if p.DisplayName() != "Kovács Anna" {
		t.Errorf("期望 DisplayName=Kovács Anna，实际=%s", p.DisplayName())
	}

	if _, err := svc.GetDetails(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestUserService_GetByID_FullNamePreferred(t *testing.T) {
	svc, repos := setupTestUserService()
	u := repos.addStudent("u1", "anna", "Kovács", "Anna")
	u.FullName = "Dr. Kovács Anna"

	resp, err := svc.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if resp.FullName != "Dr. Kovács Anna" {
		t.Errorf("期望 FullName 优先，实际=%s", resp.FullName)
	}
}

// ── GetRoleStatistics 测试 ──

func TestUserService_GetRoleStatistics(t *testing.T) {
	svc, repos := setupTestUserService()
	repos.addStudent("u1", "anna", "Kovács", "Anna")

	repos.addSession("s1")
	s2 := repos.addSession("s2")
	s2.Date = time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	repos.addSession("s3")

	repos.addAssignment("s1", true, model.AssignmentPair{UserID: "u1", RoleID: "role-cam"})
	repos.addAssignment("s2", false, model.AssignmentPair{UserID: "u1", RoleID: "role-cam"})
	repos.addAssignment("s3", true, model.AssignmentPair{UserID: "u1", RoleID: "role-snd"})

	resp, err := svc.GetRoleStatistics(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetRoleStatistics 应成功: %v", err)
	}
	if resp.Summary.TotalAssignments != 3 {
		t.Errorf("期望 TotalAssignments=3，实际=%d", resp.Summary.TotalAssignments)
	}
	if resp.Summary.TotalFinalized != 2 {
		t.Errorf("期望 TotalFinalized=2，实际=%d", resp.Summary.TotalFinalized)
	}
	if resp.Summary.DistinctRoles != 2 {
		t.Errorf("期望 DistinctRoles=2，实际=%d", resp.Summary.DistinctRoles)
	}
	if resp.Summary.MostFrequentRole != "摄像" {
		t.Errorf("期望 MostFrequentRole=摄像，实际=%s", resp.Summary.MostFrequentRole)
	}
	if resp.RoleStatistics[0].LastDate != "2025-04-02" {
		t.Errorf("期望 LastDate=2025-04-02，实际=%s", resp.RoleStatistics[0].LastDate)
	}
}

func TestUserService_GetRoleStatistics_Empty(t *testing.T) {
	svc, repos := setupTestUserService()
	repos.addStudent("u1", "anna", "Kovács", "Anna")

	resp, err := svc.GetRoleStatistics(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetRoleStatistics 应成功: %v", err)
	}
	if resp.RoleStatistics == nil || len(resp.RoleStatistics) != 0 {
		t.Errorf("期望空数组，实际=%v", resp.RoleStatistics)
	}
	if _, err := svc.GetRoleStatistics(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
