//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mediaklub/backend/internal/model"
	"mediaklub/backend/internal/repository"
	"mediaklub/backend/pkg/database"
	pkgerrors "mediaklub/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=mediaklub password=mediaklub_password dbname=mediaklub_test sslmode=disable TimeZone=Europe/Budapest"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用正式迁移脚本建表
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func truncateAll(t *testing.T) {
	t.Helper()
	err := testDB.Exec(`TRUNCATE absences, radio_session_participants, radio_sessions, vacations,
		assignment_change_logs, assignment_pairs, assignments, filming_sessions, crew_roles, users, stabs CASCADE`).Error
	if err != nil {
		t.Fatalf("清空测试数据失败: %v", err)
	}
}

type fixture struct {
	repo    *repository.Repository
	users   []*model.User
	roles   []*model.CrewRole
	session *model.FilmingSession
}

// setupFixture 创建 2 名学生、2 个角色和 1 个拍摄场次
func setupFixture(t *testing.T) *fixture {
	t.Helper()
	truncateAll(t)
	ctx := context.Background()
	f := &fixture{repo: repository.NewRepository(testDB)}

	for i, name := range []string{"Kovács", "Tóth"} {
		u := &model.User{
			Username:     fmt.Sprintf("student%d", i),
			FirstName:    "Diák",
			LastName:     name,
			PasswordHash: "$2a$10$placeholder",
			Role:         model.UserRoleStudent,
			IsActive:     true,
		}
		if err := f.repo.User.Create(ctx, u); err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
		f.users = append(f.users, u)
	}

	for _, name := range []string{"摄像", "导播"} {
		r := &model.CrewRole{Name: name, IsActive: true}
		if err := f.repo.CrewRole.Create(ctx, r); err != nil {
			t.Fatalf("创建角色失败: %v", err)
		}
		f.roles = append(f.roles, r)
	}

	f.session = &model.FilmingSession{
		Name:     "校庆直播",
		Date:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		TimeFrom: "10:00",
		TimeTo:   "12:00",
		Kind:     "event",
	}
	if err := f.repo.FilmingSession.Create(ctx, f.session); err != nil {
		t.Fatalf("创建拍摄场次失败: %v", err)
	}
	return f
}

func (f *fixture) newAssignment(t *testing.T, repo *repository.Repository) *model.Assignment {
	t.Helper()
	a := &model.Assignment{SessionID: f.session.SessionID}
	if err := repo.Assignment.Create(context.Background(), a); err != nil {
		t.Fatalf("创建分配失败: %v", err)
	}
	return a
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	tx, err := f.repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	a := f.newAssignment(t, f.repo.WithTx(tx))
	tx.Rollback()

	if _, err := f.repo.Assignment.GetByID(ctx, a.AssignmentID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("期望回滚后查不到分配，实际 err=%v", err)
	}
}

func TestTransaction_Commit(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	tx, err := f.repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := f.repo.WithTx(tx)
	a := f.newAssignment(t, txRepo)
	if err := txRepo.Assignment.ReplacePairs(ctx, a.AssignmentID, []model.AssignmentPair{
		{UserID: f.users[0].UserID, RoleID: f.roles[0].RoleID},
	}); err != nil {
		tx.Rollback()
		t.Fatalf("事务内写入明细失败: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}

	found, err := f.repo.Assignment.GetBySession(ctx, f.session.SessionID)
	if err != nil {
		t.Fatalf("提交后查询分配失败: %v", err)
	}
	if found.AssignmentID != a.AssignmentID || len(found.Pairs) != 1 {
		t.Errorf("期望 1 条明细，实际 %d", len(found.Pairs))
	}
}

func TestAssignment_UniquePerSession(t *testing.T) {
	f := setupFixture(t)
	f.newAssignment(t, f.repo)

	dup := &model.Assignment{SessionID: f.session.SessionID}
	if err := f.repo.Assignment.Create(context.Background(), dup); err == nil {
		t.Fatal("同一场次不应创建第二条分配")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Assignment_ConflictDetected(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.newAssignment(t, f.repo)

	copy1, _ := f.repo.Assignment.GetByID(ctx, a.AssignmentID)
	copy2, _ := f.repo.Assignment.GetByID(ctx, a.AssignmentID)

	copy1.Finalized = true
	if err := f.repo.Assignment.UpdateState(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}
	if copy1.Version != 2 {
		t.Errorf("期望 version=2，实际 %d", copy1.Version)
	}

	copy2.Finalized = false
	if err := f.repo.Assignment.UpdateState(ctx, copy2); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Pairs / Statistics
// ═══════════════════════════════════════════════════════════

func TestReplacePairs_KeepsOrder(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.newAssignment(t, f.repo)

	first := []model.AssignmentPair{
		{UserID: f.users[0].UserID, RoleID: f.roles[0].RoleID},
	}
	if err := f.repo.Assignment.ReplacePairs(ctx, a.AssignmentID, first); err != nil {
		t.Fatalf("写入明细失败: %v", err)
	}

	// 整体替换：旧明细被清除，顺序按提交顺序
	second := []model.AssignmentPair{
		{UserID: f.users[1].UserID, RoleID: f.roles[1].RoleID},
		{UserID: f.users[0].UserID, RoleID: f.roles[1].RoleID},
	}
	if err := f.repo.Assignment.ReplacePairs(ctx, a.AssignmentID, second); err != nil {
		t.Fatalf("替换明细失败: %v", err)
	}

	found, err := f.repo.Assignment.GetByID(ctx, a.AssignmentID)
	if err != nil {
		t.Fatalf("查询分配失败: %v", err)
	}
	if len(found.Pairs) != 2 {
		t.Fatalf("期望 2 条明细，实际 %d", len(found.Pairs))
	}
	if found.Pairs[0].UserID != f.users[1].UserID || found.Pairs[1].UserID != f.users[0].UserID {
		t.Errorf("明细顺序错误")
	}
	if found.Pairs[0].User == nil || found.Pairs[0].Role == nil || found.Pairs[0].Role.Name != "导播" {
		t.Errorf("明细关联未预加载")
	}
}

func TestRoleStatisticsByUser(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.newAssignment(t, f.repo)
	_ = f.repo.Assignment.ReplacePairs(ctx, a.AssignmentID, []model.AssignmentPair{
		{UserID: f.users[0].UserID, RoleID: f.roles[0].RoleID},
	})
	a.Finalized = true
	if err := f.repo.Assignment.UpdateState(ctx, a); err != nil {
		t.Fatalf("定稿失败: %v", err)
	}

	stats, err := f.repo.Assignment.RoleStatisticsByUser(ctx, f.users[0].UserID)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if len(stats) != 1 || stats[0].RoleName != "摄像" || stats[0].Count != 1 || stats[0].FinalizedCount != 1 {
		t.Errorf("统计结果错误: %+v", stats)
	}

	finalized, err := f.repo.Assignment.ListFinalizedByUser(ctx, f.users[0].UserID)
	if err != nil || len(finalized) != 1 {
		t.Errorf("期望 1 条已定稿分配，实际 %d (%v)", len(finalized), err)
	}
	if none, _ := f.repo.Assignment.ListFinalizedByUser(ctx, f.users[1].UserID); len(none) != 0 {
		t.Errorf("未参与的学生不应有定稿分配")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Vacation / Radio / Absence
// ═══════════════════════════════════════════════════════════

func TestVacation_ListApprovedCovering(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	vacations := []*model.Vacation{
		{UserID: f.users[0].UserID, StartDate: date(2025, 3, 13), EndDate: date(2025, 3, 15), Status: model.VacationApproved},
		{UserID: f.users[1].UserID, StartDate: date(2025, 3, 14), EndDate: date(2025, 3, 14), Status: model.VacationPending},
		{UserID: f.users[1].UserID, StartDate: date(2025, 3, 1), EndDate: date(2025, 3, 2), Status: model.VacationApproved},
	}
	for _, v := range vacations {
		if err := f.repo.Vacation.Create(ctx, v); err != nil {
			t.Fatalf("创建请假失败: %v", err)
		}
	}

	got, err := f.repo.Vacation.ListApprovedCovering(ctx, date(2025, 3, 14))
	if err != nil {
		t.Fatalf("查询请假失败: %v", err)
	}
	if len(got) != 1 || got[0].UserID != f.users[0].UserID {
		t.Errorf("期望仅 1 条已批准请假，实际 %d", len(got))
	}
}

func TestRadioSession_ListCandidates(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	sessions := []*model.RadioSession{
		{RadioStab: "B3", Date: date(2025, 3, 7), TimeFrom: "11:00", TimeTo: "13:00", Recurrence: "FREQ=WEEKLY;BYDAY=FR",
			Participants: []model.RadioSessionParticipant{{UserID: f.users[0].UserID}}},
		{RadioStab: "A1", Date: date(2025, 3, 14), TimeFrom: "08:00", TimeTo: "08:45"},
		{RadioStab: "A2", Date: date(2025, 3, 20), TimeFrom: "08:00", TimeTo: "08:45", Recurrence: "FREQ=DAILY"},
	}
	for _, s := range sessions {
		if err := f.repo.RadioSession.Create(ctx, s); err != nil {
			t.Fatalf("创建电台节目失败: %v", err)
		}
	}

	got, err := f.repo.RadioSession.ListCandidates(ctx, date(2025, 3, 14))
	if err != nil {
		t.Fatalf("查询电台节目失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 个候选节目，实际 %d", len(got))
	}
	for _, s := range got {
		if s.RadioStab == "B3" && !s.HasParticipant(f.users[0].UserID) {
			t.Errorf("参与者未预加载")
		}
	}
}

func TestAbsence_DeleteGenerated(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	a := f.newAssignment(t, f.repo)

	absences := []model.Absence{
		{AssignmentID: a.AssignmentID, UserID: f.users[0].UserID, Date: f.session.Date, TimeFrom: "10:00", TimeTo: "12:00", AutoGenerated: true, Excused: true},
		{AssignmentID: a.AssignmentID, UserID: f.users[1].UserID, Date: f.session.Date, TimeFrom: "10:00", TimeTo: "12:00", AutoGenerated: false, Excused: true},
	}
	if err := f.repo.Absence.BatchCreate(ctx, absences); err != nil {
		t.Fatalf("批量创建缺课记录失败: %v", err)
	}
	// auto_generated 带默认值，零值需单独更新
	if err := testDB.Model(&model.Absence{}).Where("user_id = ?", f.users[1].UserID).
		Update("auto_generated", false).Error; err != nil {
		t.Fatalf("标记手动记录失败: %v", err)
	}
	if err := f.repo.Absence.DeleteGenerated(ctx, a.AssignmentID); err != nil {
		t.Fatalf("删除自动生成记录失败: %v", err)
	}

	left, err := f.repo.Absence.ListByAssignment(ctx, a.AssignmentID)
	if err != nil {
		t.Fatalf("查询缺课记录失败: %v", err)
	}
	if len(left) != 1 || left[0].AutoGenerated {
		t.Errorf("期望仅保留 1 条手动记录，实际 %d", len(left))
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
