package model

import "time"

// 请假审批状态
const (
	VacationPending  = "pending"
	VacationApproved = "approved"
	VacationDenied   = "denied"
)

// Vacation 请假（távollét）表，对应 vacations
type Vacation struct {
	VacationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"vacation_id"`
	UserID     string    `gorm:"type:uuid;not null"                             json:"user_id"`
	StartDate  time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate    time.Time `gorm:"type:date;not null"                             json:"end_date"`
	Reason     string    `gorm:"type:varchar(200)"                              json:"reason,omitempty"`
	Status     string    `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | approved | denied
	VersionedModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Vacation) TableName() string { return "vacations" }

// Covers 请假是否覆盖指定日期（按天比较）
func (v *Vacation) Covers(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(truncateDay(v.StartDate)) && !d.After(truncateDay(v.EndDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
