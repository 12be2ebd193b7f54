package model

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestVacation_Covers(t *testing.T) {
	v := &Vacation{StartDate: day("2026-03-02"), EndDate: day("2026-03-04")}

	cases := map[string]bool{
		"2026-03-01": false,
		"2026-03-02": true,
		"2026-03-03": true,
		"2026-03-04": true,
		"2026-03-05": false,
	}
	for d, want := range cases {
		if got := v.Covers(day(d)); got != want {
			t.Errorf("Covers(%s) 期望 %v，实际 %v", d, want, got)
		}
	}

	// 带时间部分的日期按天比较
	if !v.Covers(day("2026-03-04").Add(18 * time.Hour)) {
		t.Error("当天晚些时候也应被覆盖")
	}
}

func TestRadioSession_OccursOnSingle(t *testing.T) {
	s := &RadioSession{Date: day("2026-03-03")}

	ok, err := s.OccursOn(day("2026-03-03"))
	if err != nil || !ok {
		t.Fatalf("单次节目当天应发生: ok=%v err=%v", ok, err)
	}
	ok, _ = s.OccursOn(day("2026-03-10"))
	if ok {
		t.Error("单次节目不应在其他日期发生")
	}
}

func TestRadioSession_OccursOnWeekly(t *testing.T) {
	// 2026-03-03 为周二
	s := &RadioSession{Date: day("2026-03-03"), Recurrence: "FREQ=WEEKLY;BYDAY=TU;COUNT=4"}

	for _, d := range []string{"2026-03-03", "2026-03-10", "2026-03-24"} {
		ok, err := s.OccursOn(day(d))
		if err != nil {
			t.Fatalf("OccursOn(%s) 出错: %v", d, err)
		}
		if !ok {
			t.Errorf("期望 %s 有节目", d)
		}
	}
	for _, d := range []string{"2026-02-24", "2026-03-04", "2026-03-31"} {
		ok, _ := s.OccursOn(day(d))
		if ok {
			t.Errorf("期望 %s 无节目", d)
		}
	}
}

func TestRadioSession_InvalidRecurrence(t *testing.T) {
	s := &RadioSession{Date: day("2026-03-03"), Recurrence: "NOT-A-RULE"}
	if _, err := s.OccursOn(day("2026-03-10")); err == nil {
		t.Error("非法 recurrence 应返回错误")
	}
}

func TestRadioSession_HasParticipant(t *testing.T) {
	s := &RadioSession{Participants: []RadioSessionParticipant{{UserID: "u1"}}}
	if !s.HasParticipant("u1") || s.HasParticipant("u2") {
		t.Error("HasParticipant 结果不正确")
	}
}

func TestUser_CanEditCrew(t *testing.T) {
	for role, want := range map[string]bool{UserRoleAdmin: true, UserRoleEditor: true, UserRoleStudent: false} {
		u := &User{Role: role}
		if u.CanEditCrew() != want {
			t.Errorf("role=%s 期望 %v", role, want)
		}
	}
}
