package model

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// RadioSession 电台节目表，对应 radio_sessions
type RadioSession struct {
	RadioSessionID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"radio_session_id"`
	RadioStab      string    `gorm:"type:varchar(20);not null"                      json:"radio_stab"` // 如 A1, B3
	Date           time.Time `gorm:"type:date;not null"                             json:"date"`       // 单次节目日期 / 周期节目首次日期
	TimeFrom       string    `gorm:"type:time;not null"                             json:"time_from"`
	TimeTo         string    `gorm:"type:time;not null"                             json:"time_to"`
	Recurrence     string    `gorm:"type:varchar(200);not null;default:''"          json:"recurrence,omitempty"` // RRULE，如 FREQ=WEEKLY;BYDAY=TU
	Description    string    `gorm:"type:text"                                      json:"description,omitempty"`
	BaseModel

	// 关联
	Participants []RadioSessionParticipant `gorm:"foreignKey:RadioSessionID" json:"participants,omitempty"`
}

// TableName 指定表名
func (RadioSession) TableName() string { return "radio_sessions" }

// OccursOn 节目是否在指定日期进行
func (s *RadioSession) OccursOn(day time.Time) (bool, error) {
	d := truncateDay(day)
	start := truncateDay(s.Date)
	if s.Recurrence == "" {
		return d.Equal(start), nil
	}
	if d.Before(start) {
		return false, nil
	}

	opt, err := rrule.StrToROption(s.Recurrence)
	if err != nil {
		return false, fmt.Errorf("解析 recurrence %q 失败: %w", s.Recurrence, err)
	}
	opt.Dtstart = start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return false, fmt.Errorf("构建 recurrence 失败: %w", err)
	}
	return len(rule.Between(d, d.Add(23*time.Hour), true)) > 0, nil
}

// HasParticipant 学生是否参与该节目
func (s *RadioSession) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// RadioSessionParticipant 电台节目参与者，对应 radio_session_participants
type RadioSessionParticipant struct {
	RadioSessionID string `gorm:"type:uuid;primaryKey" json:"radio_session_id"`
	UserID         string `gorm:"type:uuid;primaryKey" json:"user_id"`
}

// TableName 指定表名
func (RadioSessionParticipant) TableName() string { return "radio_session_participants" }
