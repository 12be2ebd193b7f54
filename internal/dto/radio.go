package dto

// ── 电台节目 DTO ──

// ImportRadioSessionsRequest POST /radio-sessions/import（multipart，file 字段为 ICS）
type ImportRadioSessionsRequest struct {
	RadioStab      string   `form:"radio_stab"      binding:"required,max=20"`
	ParticipantIDs []string `form:"participant_ids" binding:"required,min=1,unique,dive,uuid"`
}

// ImportRadioSessionsResponse 导入结果
type ImportRadioSessionsResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
