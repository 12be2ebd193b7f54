package model

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment 拍摄组分配表，对应 assignments（每个场次至多一条）
type Assignment struct {
	AssignmentID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	SessionID    string  `gorm:"type:uuid;not null;uniqueIndex"                 json:"session_id"`
	Finalized    bool    `gorm:"not null;default:false"                         json:"finalized"` // kész
	AuthorID     *string `gorm:"type:uuid"                                      json:"author_id,omitempty"`
	StabID       *string `gorm:"type:uuid"                                      json:"stab_id,omitempty"`
	VersionedModel

	// 关联
	Session *FilmingSession  `gorm:"foreignKey:SessionID;references:SessionID" json:"session,omitempty"`
	Author  *User            `gorm:"foreignKey:AuthorID;references:UserID"     json:"author,omitempty"`
	Stab    *Stab            `gorm:"foreignKey:StabID;references:StabID"       json:"stab,omitempty"`
	Pairs   []AssignmentPair `gorm:"foreignKey:AssignmentID"                   json:"pairs,omitempty"`
}

func (Assignment) TableName() string { return "assignments" }

// AssignmentPair 分配明细（学生-角色对）表，对应 assignment_pairs，整体替换写入
type AssignmentPair struct {
	PairID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"pair_id"`
	AssignmentID string    `gorm:"type:uuid;not null"                             json:"assignment_id"`
	UserID       string    `gorm:"type:uuid;not null"                             json:"user_id"`
	RoleID       string    `gorm:"type:uuid;not null"                             json:"role_id"`
	Position     int       `gorm:"not null;default:0"                             json:"position"` // 提交顺序
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	User *User     `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
	Role *CrewRole `gorm:"foreignKey:RoleID;references:RoleID" json:"role,omitempty"`
}

func (AssignmentPair) TableName() string { return "assignment_pairs" }

// 变更类型
const (
	ChangeActionUpdate   = "update"
	ChangeActionCommit   = "commit"
	ChangeActionMarkDone = "mark_done"
	ChangeActionReopen   = "reopen"
)

// AssignmentChangeLog 分配变更记录表，对应 assignment_change_logs（纯审计日志）
type AssignmentChangeLog struct {
	ChangeLogID      string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	AssignmentID     string         `gorm:"type:uuid;not null"                             json:"assignment_id"`
	Action           string         `gorm:"type:varchar(20);not null"                      json:"action"` // update | commit | mark_done | reopen
	FromVersion      int            `gorm:"not null"                                       json:"from_version"`
	ToVersion        int            `gorm:"not null"                                       json:"to_version"`
	PairCount        int            `gorm:"not null;default:0"                             json:"pair_count"`
	ConflictOverride bool           `gorm:"not null;default:false"                         json:"conflict_override"`
	Pairs            datatypes.JSON `gorm:"type:jsonb"                                     json:"pairs,omitempty"` // 变更后的 pair 快照
	OperatorID       string         `gorm:"type:uuid;not null"                             json:"operator_id"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (AssignmentChangeLog) TableName() string { return "assignment_change_logs" }
