package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/model"
)

func setupTestCalendarService() (CalendarService, *testRepos) {
	repos := newTestRepos()
	repos.addStudent("u1", "anna", "Kovács", "Anna")
	repos.addStudent("u2", "bela", "Nagy", "Béla")
	repos.addSession("s1")
	return NewCalendarService("Europe/Budapest", repos.repo, zap.NewNop()), repos
}

func icsDoc(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//radio//HU"}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

// ── UserCalendar 测试 ──

func TestCalendar_UserCalendar(t *testing.T) {
	svc, repos := setupTestCalendarService()
	repos.addSession("s2")
	repos.addAssignment("s1", true, model.AssignmentPair{UserID: "u1", RoleID: "role-cam"})
	// 草稿不出现在日历中
	repos.addAssignment("s2", false, model.AssignmentPair{UserID: "u1", RoleID: "role-snd"})

	out, err := svc.UserCalendar(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UserCalendar 应成功: %v", err)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("输出应为合法 iCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("期望 1 个事件，实际 %d", len(events))
	}
	summary := events[0].GetProperty(ics.ComponentPropertySummary)
	if summary == nil || summary.Value != "拍摄：校庆直播（摄像）" {
		t.Errorf("SUMMARY 错误: %+v", summary)
	}
	start, err := events[0].GetStartAt()
	if err != nil {
		t.Fatalf("读取 DTSTART 失败: %v", err)
	}
	// 布达佩斯 3 月为 UTC+1
	if want := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("DTSTART 期望 %s，实际 %s", want, start)
	}
}

func TestCalendar_UserCalendar_UnknownUser(t *testing.T) {
	svc, _ := setupTestCalendarService()

	if _, err := svc.UserCalendar(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── ImportRadioSessions 测试 ──

func TestCalendar_ImportRadioSessions(t *testing.T) {
	svc, repos := setupTestCalendarService()
	doc := icsDoc(
		"BEGIN:VEVENT",
		"UID:radio-1@test",
		"DTSTART;TZID=Europe/Budapest:20250307T110000",
		"DTEND;TZID=Europe/Budapest:20250307T130000",
		"RRULE:FREQ=WEEKLY;BYDAY=FR",
		"SUMMARY:Reggeli adás",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:radio-2@test",
		"DTSTART;TZID=Europe/Budapest:20250310T080000",
		"DURATION:PT45M",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:broken@test",
		"SUMMARY:缺少开始时间",
		"END:VEVENT",
	)

	resp, err := svc.ImportRadioSessions(context.Background(), strings.NewReader(doc), &dto.ImportRadioSessionsRequest{
		RadioStab:      "B3",
		ParticipantIDs: []string{"u1"},
	}, "user-admin")
	if err != nil {
		t.Fatalf("ImportRadioSessions 应成功: %v", err)
	}
	if resp.Imported != 2 || resp.Skipped != 1 {
		t.Errorf("期望导入 2 跳过 1，实际 %+v", resp)
	}

	weekly := repos.radios.sessions[0]
	if weekly.TimeFrom != "11:00" || weekly.TimeTo != "13:00" || weekly.Recurrence != "FREQ=WEEKLY;BYDAY=FR" {
		t.Errorf("周期节目字段错误: %+v", weekly)
	}
	if !weekly.HasParticipant("u1") || weekly.RadioStab != "B3" {
		t.Errorf("参与者或 stab 错误: %+v", weekly)
	}
	if repos.radios.sessions[1].TimeTo != "08:45" {
		t.Errorf("DURATION 推算结束时间错误: %s", repos.radios.sessions[1].TimeTo)
	}

	// 导入的周期节目参与可用性计算
	assignments := NewAssignmentService(repos.repo, zap.NewNop())
	result, err := assignments.GetWithAvailability(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetWithAvailability 应成功: %v", err)
	}
	if result.Availability.Summary.RadioSessionCount != 1 || result.Availability.WithRadioSession[0].User.ID != "u1" {
		t.Errorf("u1 应因电台节目冲突: %+v", result.Availability.WithRadioSession)
	}
}

func TestCalendar_ImportRadioSessions_Errors(t *testing.T) {
	svc, _ := setupTestCalendarService()

	_, err := svc.ImportRadioSessions(context.Background(), strings.NewReader(icsDoc()), &dto.ImportRadioSessionsRequest{
		RadioStab: "B3", ParticipantIDs: []string{"u1"},
	}, "user-admin")
	if !errors.Is(err, ErrICSEmpty) {
		t.Errorf("期望 ErrICSEmpty，实际: %v", err)
	}

	_, err = svc.ImportRadioSessions(context.Background(), strings.NewReader(icsDoc()), &dto.ImportRadioSessionsRequest{
		RadioStab: "B3", ParticipantIDs: []string{"ghost"},
	}, "user-admin")
	if !errors.Is(err, ErrUnknownStudent) {
		t.Errorf("期望 ErrUnknownStudent，实际: %v", err)
	}
}
