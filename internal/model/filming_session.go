package model

import "time"

// FilmingSession 拍摄场次（forgatás）表，对应 filming_sessions
type FilmingSession struct {
	SessionID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	Name        string    `gorm:"type:varchar(200);not null"                     json:"name"`
	Description string    `gorm:"type:text"                                      json:"description,omitempty"`
	Location    string    `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	Date        time.Time `gorm:"type:date;not null"                             json:"date"`
	TimeFrom    string    `gorm:"type:time;not null"                             json:"time_from"`
	TimeTo      string    `gorm:"type:time;not null"                             json:"time_to"`
	Kind        string    `gorm:"type:varchar(20);not null;default:'regular'"    json:"kind"` // regular | event | rehearsal | other
	StabID      *string   `gorm:"type:uuid"                                      json:"stab_id,omitempty"`
	VersionedModel

	// 关联
	Stab *Stab `gorm:"foreignKey:StabID;references:StabID" json:"stab,omitempty"`
}

// TableName 指定表名
func (FilmingSession) TableName() string { return "filming_sessions" }
