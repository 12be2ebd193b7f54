package model

// Stab 摄制组（stáb）表，对应 stabs
type Stab struct {
	StabID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"stab_id"`
	Name        string `gorm:"type:varchar(50);not null"                      json:"name"`
	Description string `gorm:"type:text"                                      json:"description,omitempty"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Stab) TableName() string { return "stabs" }
