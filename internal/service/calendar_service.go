package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"mediaklub/backend/internal/dto"
	"mediaklub/backend/internal/model"
	"mediaklub/backend/internal/repository"
)

// ── 日历模块 ──────────────────────────────────────────────
//
// 导出：学生已定稿的拍摄任务 → iCalendar 订阅
// 导入：电台节目 ICS（含 RRULE）→ radio_sessions
// ─────────────────────────────────────────────────────────────

const icsMaxFileSize = 5 * 1024 * 1024 // 5MB

var (
	ErrICSInvalid = errors.New("ICS 格式解析失败")
	ErrICSEmpty   = errors.New("ICS 中没有可导入的节目")
)

// CalendarService 日历导入导出业务接口
type CalendarService interface {
	// UserCalendar 返回学生已定稿拍摄任务的 iCalendar 文本
	UserCalendar(ctx context.Context, userID string) (string, error)
	// ImportRadioSessions 将 ICS 中的 VEVENT 导入为电台节目
	ImportRadioSessions(ctx context.Context, r io.Reader, req *dto.ImportRadioSessionsRequest, callerID string) (*dto.ImportRadioSessionsResponse, error)
}

type calendarService struct {
	loc    *time.Location
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例，时区无效时回退到 UTC
func NewCalendarService(timezone string, repo *repository.Repository, logger *zap.Logger) CalendarService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("加载时区失败，日历使用 UTC", zap.String("timezone", timezone), zap.Error(err))
		loc = time.UTC
	}
	return &calendarService{loc: loc, repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// UserCalendar 导出
// ════════════════════════════════════════════════════════════

func (s *calendarService) UserCalendar(ctx context.Context, userID string) (string, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		return "", ErrUserNotFound
	}

	assignments, err := s.repo.Assignment.ListFinalizedByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询已定稿分配失败", zap.String("user_id", userID), zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//mediaklub//crew//HU")
	cal.SetXWRCalName("拍摄任务 - " + toProfile(user).DisplayName())

	stamp := time.Now().UTC()
	for i := range assignments {
		a := &assignments[i]
		if a.Session == nil {
			continue
		}
		start, err1 := atClock(a.Session.Date, a.Session.TimeFrom, s.loc)
		end, err2 := atClock(a.Session.Date, a.Session.TimeTo, s.loc)
		if err1 != nil || err2 != nil {
			s.logger.Warn("场次时段无法解析，已跳过", zap.String("session_id", a.SessionID))
			continue
		}

		roleName := ""
		for _, p := range a.Pairs {
			if p.UserID == userID && p.Role != nil {
				roleName = p.Role.Name
			}
		}

		event := cal.AddEvent(fmt.Sprintf("%s-%s@mediaklub", a.AssignmentID, userID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		summary := "拍摄：" + a.Session.Name
		if roleName != "" {
			summary += "（" + roleName + "）"
		}
		event.SetSummary(summary)
		if a.Session.Location != "" {
			event.SetLocation(a.Session.Location)
		}
		if a.Session.Description != "" {
			event.SetDescription(a.Session.Description)
		}
	}
	return cal.Serialize(), nil
}

// ════════════════════════════════════════════════════════════
// ImportRadioSessions 导入
// ════════════════════════════════════════════════════════════
//
//   - DTSTART/DTEND 确定首次日期与时段
//   - RRULE 原样保存为 recurrence，无法解析的规则跳过整个事件
//   - 缺少 DTEND 时尝试 DURATION，仍缺失则跳过

func (s *calendarService) ImportRadioSessions(ctx context.Context, r io.Reader, req *dto.ImportRadioSessionsRequest, callerID string) (*dto.ImportRadioSessionsResponse, error) {
	users, err := s.repo.User.ListByIDs(ctx, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(req.ParticipantIDs) {
		return nil, ErrUnknownStudent
	}

	cal, err := ics.ParseCalendar(io.LimitReader(r, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSInvalid, err)
	}

	resp := &dto.ImportRadioSessionsResponse{}
	sessions := make([]*model.RadioSession, 0)
	for _, evt := range cal.Events() {
		rs, ok := s.parseRadioEvent(evt, req.RadioStab)
		if !ok {
			resp.Skipped++
			continue
		}
		for _, id := range req.ParticipantIDs {
			rs.Participants = append(rs.Participants, model.RadioSessionParticipant{UserID: id})
		}
		rs.CreatedBy = &callerID
		sessions = append(sessions, rs)
	}
	if len(sessions) == 0 {
		return nil, ErrICSEmpty
	}

	for _, rs := range sessions {
		if err := s.repo.RadioSession.Create(ctx, rs); err != nil {
			s.logger.Error("保存电台节目失败", zap.String("radio_stab", req.RadioStab), zap.Error(err))
			return nil, err
		}
		resp.Imported++
	}

	s.logger.Info("电台节目导入完成",
		zap.String("radio_stab", req.RadioStab),
		zap.Int("imported", resp.Imported),
		zap.Int("skipped", resp.Skipped),
		zap.String("operator", callerID))
	return resp, nil
}

func (s *calendarService) parseRadioEvent(evt *ics.VEvent, radioStab string) (*model.RadioSession, bool) {
	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, s.loc)
	if err != nil {
		return nil, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, s.loc)
	if err != nil {
		dur := evt.GetProperty(ics.ComponentPropertyDuration)
		if dur == nil {
			return nil, false
		}
		d, err := parseICSDuration(dur.Value)
		if err != nil {
			return nil, false
		}
		dtEnd = dtStart.Add(d)
	}
	if !dtEnd.After(dtStart) {
		return nil, false
	}

	rs := &model.RadioSession{
		RadioStab: radioStab,
		Date:      time.Date(dtStart.Year(), dtStart.Month(), dtStart.Day(), 0, 0, 0, 0, time.UTC),
		TimeFrom:  dtStart.Format(clockLayout),
		TimeTo:    dtEnd.Format(clockLayout),
	}
	if summary := evt.GetProperty(ics.ComponentPropertySummary); summary != nil {
		rs.Description = strings.TrimSpace(summary.Value)
	}
	if prop := evt.GetProperty(ics.ComponentPropertyRrule); prop != nil {
		if _, err := rrule.StrToROption(prop.Value); err != nil {
			s.logger.Warn("RRULE 无法解析，已跳过事件", zap.String("rrule", prop.Value), zap.Error(err))
			return nil, false
		}
		rs.Recurrence = prop.Value
	}
	return rs, true
}

// ── 辅助函数 ──

// parseICSDateTime 从 VEVENT 中解析日期时间属性，支持 UTC、TZID 与浮动时间
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

// parseICSDuration 解析 RFC 5545 DURATION 的时分秒部分（如 PT1H30M）
func parseICSDuration(v string) (time.Duration, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if !strings.HasPrefix(v, "PT") {
		return 0, fmt.Errorf("不支持的 DURATION: %s", v)
	}
	return time.ParseDuration(strings.ToLower(strings.TrimPrefix(v, "PT")))
}
