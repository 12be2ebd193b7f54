package model

// CrewRole 拍摄角色（szerepkör）表，对应 crew_roles
type CrewRole struct {
	RoleID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"role_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Description  string  `gorm:"type:text"                                      json:"description,omitempty"`
	AcademicYear *string `gorm:"type:varchar(9)"                                json:"academic_year,omitempty"` // 如 2025/2026，NULL 表示通用
	IsActive     bool    `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (CrewRole) TableName() string { return "crew_roles" }
