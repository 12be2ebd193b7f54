package model

import "time"

// Absence 缺课记录表，对应 absences
// 分配定稿时为每个组员自动生成，退回草稿时删除自动生成的记录
type Absence struct {
	AbsenceID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"absence_id"`
	AssignmentID  string    `gorm:"type:uuid;not null"                             json:"assignment_id"`
	UserID        string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Date          time.Time `gorm:"type:date;not null"                             json:"date"`
	TimeFrom      string    `gorm:"type:time;not null"                             json:"time_from"`
	TimeTo        string    `gorm:"type:time;not null"                             json:"time_to"`
	Reason        string    `gorm:"type:varchar(200)"                              json:"reason,omitempty"`
	AutoGenerated bool      `gorm:"not null;default:true"                          json:"auto_generated"`
	Excused       bool      `gorm:"not null;default:true"                          json:"excused"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Absence) TableName() string { return "absences" }
