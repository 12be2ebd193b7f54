package dto

// ── 拍摄场次 DTO ──

// CreateFilmingSessionRequest 创建拍摄场次请求
type CreateFilmingSessionRequest struct {
	Name        string  `json:"name"        binding:"required,max=200"`
	Description string  `json:"description" binding:"omitempty,max=2000"`
	Location    string  `json:"location"    binding:"omitempty,max=200"`
	Date        string  `json:"date"        binding:"required,datetime=2006-01-02"`
	TimeFrom    string  `json:"time_from"   binding:"required,datetime=15:04"`
	TimeTo      string  `json:"time_to"     binding:"required,datetime=15:04"`
	Kind        string  `json:"kind"        binding:"omitempty,oneof=regular event rehearsal other"`
	StabID      *string `json:"stab_id"     binding:"omitempty,uuid"`
}

// FilmingSessionResponse 拍摄场次响应
type FilmingSessionResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	Date        string        `json:"date"`
	TimeFrom    string        `json:"time_from"`
	TimeTo      string        `json:"time_to"`
	Kind        string        `json:"kind"`
	Stab        *StabResponse `json:"stab,omitempty"`
}

// RoleListRequest 角色列表查询参数
type RoleListRequest struct {
	AcademicYear string `form:"academic_year" binding:"omitempty,max=9"`
}
