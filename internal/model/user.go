package model

// 用户角色
const (
	UserRoleAdmin   = "admin"
	UserRoleEditor  = "editor"
	UserRoleStudent = "student"
)

// User 用户表，对应 users
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string  `gorm:"type:varchar(50);not null;uniqueIndex"          json:"username"`
	FirstName    string  `gorm:"type:varchar(100);not null;default:''"          json:"first_name"`
	LastName     string  `gorm:"type:varchar(100);not null;default:''"          json:"last_name"`
	FullName     string  `gorm:"type:varchar(200)"                              json:"full_name,omitempty"` // 为空时由姓名拼接
	Email        string  `gorm:"type:varchar(255)"                              json:"email"`
	Phone        string  `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	ClassName    string  `gorm:"type:varchar(20)"                               json:"class_name,omitempty"` // 如 11.F
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'student'"    json:"role"` // admin | editor | student
	StabID       *string `gorm:"type:uuid"                                      json:"stab_id,omitempty"`
	IsActive     bool    `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Stab *Stab `gorm:"foreignKey:StabID;references:StabID" json:"stab,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// CanEditCrew 是否可编辑拍摄组分配
func (u *User) CanEditCrew() bool {
	return u.Role == UserRoleAdmin || u.Role == UserRoleEditor
}
