package service

import (
	"time"

	"go.uber.org/zap"

	"mediaklub/backend/internal/crew"
	"mediaklub/backend/internal/model"
)

// buildAvailability 按场次日期与时段计算每个学生的冲突列表。
//
//   - 已批准且覆盖场次日期的请假 → 休假列表
//   - 当天发生、时段与场次重叠且学生参与的电台节目 → 电台列表
//   - 两类冲突可同时存在，学生同时出现在两个列表中，条目携带全部冲突
//   - 无冲突 → 可用列表（conflicts 为空）
func buildAvailability(
	session *model.FilmingSession,
	users []model.User,
	vacations []model.Vacation,
	radios []model.RadioSession,
	logger *zap.Logger,
) crew.AvailabilitySnapshot {
	conflicts := make(map[string][]crew.Conflict)
	hasVacation := make(map[string]bool)
	hasRadio := make(map[string]bool)

	for i := range vacations {
		v := &vacations[i]
		if v.Status != model.VacationApproved || !v.Covers(session.Date) {
			continue
		}
		conflicts[v.UserID] = append(conflicts[v.UserID], crew.Conflict{
			Type:      crew.ConflictVacation,
			Reason:    v.Reason,
			StartDate: v.StartDate.Format(dateLayout),
			EndDate:   v.EndDate.Format(dateLayout),
		})
		hasVacation[v.UserID] = true
	}

	sessFrom, errFrom := parseClock(session.TimeFrom)
	sessTo, errTo := parseClock(session.TimeTo)
	if errFrom != nil || errTo != nil {
		// 场次时段异常时按整天处理
		logger.Warn("场次时段无法解析，按整天计算电台冲突",
			zap.String("session_id", session.SessionID),
			zap.String("time_from", session.TimeFrom),
			zap.String("time_to", session.TimeTo))
		sessFrom, sessTo = 0, 24*time.Hour
	}

	for i := range radios {
		r := &radios[i]
		ok, err := r.OccursOn(session.Date)
		if err != nil {
			logger.Warn("电台节目周期规则无效，已跳过",
				zap.String("radio_session_id", r.RadioSessionID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		from, err1 := parseClock(r.TimeFrom)
		to, err2 := parseClock(r.TimeTo)
		if err1 != nil || err2 != nil || !overlaps(sessFrom, sessTo, from, to) {
			continue
		}
		for _, p := range r.Participants {
			conflicts[p.UserID] = append(conflicts[p.UserID], crew.Conflict{
				Type:      crew.ConflictRadioSession,
				RadioStab: r.RadioStab,
				Date:      session.Date.Format(dateLayout),
				TimeFrom:  formatClock(r.TimeFrom),
				TimeTo:    formatClock(r.TimeTo),
			})
			hasRadio[p.UserID] = true
		}
	}

	snap := crew.AvailabilitySnapshot{
		Available:        make([]crew.AvailabilityEntry, 0, len(users)),
		OnVacation:       make([]crew.AvailabilityEntry, 0),
		WithRadioSession: make([]crew.AvailabilityEntry, 0),
	}
	for i := range users {
		u := &users[i]
		entry := crew.AvailabilityEntry{
			User: crew.UserRef{
				ID:        u.UserID,
				Username:  u.Username,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				FullName:  u.FullName,
			},
			Availability: crew.Availability{Conflicts: conflicts[u.UserID]},
		}
		if entry.Availability.Conflicts == nil {
			entry.Availability.Conflicts = []crew.Conflict{}
		}

		if hasVacation[u.UserID] {
			snap.OnVacation = append(snap.OnVacation, entry)
		}
		if hasRadio[u.UserID] {
			snap.WithRadioSession = append(snap.WithRadioSession, entry)
		}
		if !hasVacation[u.UserID] && !hasRadio[u.UserID] {
			snap.Available = append(snap.Available, entry)
		}
	}

	snap.Summary = crew.AvailabilitySummary{
		AvailableCount:    len(snap.Available),
		VacationCount:     len(snap.OnVacation),
		RadioSessionCount: len(snap.WithRadioSession),
	}
	return snap
}
