package crew

// ── 可用性索引 ──

// ConflictType 冲突条目类型
type ConflictType string

const (
	ConflictVacation     ConflictType = "vacation"
	ConflictRadioSession ConflictType = "radio_session"
)

// Conflict 学生无法参加拍摄的一条原因。
// vacation 使用 Reason/StartDate/EndDate，radio_session 使用 RadioStab/Date/TimeFrom/TimeTo
type Conflict struct {
	Type      ConflictType `json:"type"`
	Reason    string       `json:"reason,omitempty"`
	StartDate string       `json:"start_date,omitempty"`
	EndDate   string       `json:"end_date,omitempty"`
	RadioStab string       `json:"radio_stab,omitempty"`
	Date      string       `json:"date,omitempty"`
	TimeFrom  string       `json:"time_from,omitempty"`
	TimeTo    string       `json:"time_to,omitempty"`
}

// Availability 单个学生的冲突列表
type Availability struct {
	Conflicts []Conflict `json:"conflicts"`
}

// AvailabilityEntry 可用性列表中的一条记录
type AvailabilityEntry struct {
	User         UserRef      `json:"user"`
	Availability Availability `json:"availability"`
}

// AvailabilitySummary 后端返回的各列表计数
type AvailabilitySummary struct {
	AvailableCount    int `json:"available_count"`
	VacationCount     int `json:"vacation_count"`
	RadioSessionCount int `json:"radio_session_count"`
}

// AvailabilitySnapshot 单个场次的原始可用性数据
type AvailabilitySnapshot struct {
	Available        []AvailabilityEntry `json:"users_available"`
	OnVacation       []AvailabilityEntry `json:"users_on_vacation"`
	WithRadioSession []AvailabilityEntry `json:"users_with_radio_session"`
	Summary          AvailabilitySummary `json:"summary"`
}

// Status 学生的冲突分类
type Status string

const (
	StatusAvailable        Status = "available"
	StatusVacationConflict Status = "vacation_conflict"
	StatusRadioConflict    Status = "radio_conflict"
	StatusUnknown          Status = "unknown"
)

// Classification 单次查询结果。
// 学生在列表中但没有对应类型的冲突条目时 Detail 为 nil
type Classification struct {
	StudentID string    `json:"student_id"`
	Status    Status    `json:"status"`
	Detail    *Conflict `json:"detail,omitempty"`
}

// HasConflict 是否为休假或电台冲突
func (c Classification) HasConflict() bool {
	return c.Status == StatusVacationConflict || c.Status == StatusRadioConflict
}

// AvailabilityIndex 按学生 ID 建立的只读索引
type AvailabilityIndex struct {
	vacation  map[string][]Conflict
	radio     map[string][]Conflict
	available map[string]bool
	summary   AvailabilitySummary
}

// NewAvailabilityIndex 一次性构建查询表。
// 同一列表中重复出现的学生，冲突条目按列表顺序合并
func NewAvailabilityIndex(snapshot AvailabilitySnapshot) *AvailabilityIndex {
	ix := &AvailabilityIndex{
		vacation:  make(map[string][]Conflict, len(snapshot.OnVacation)),
		radio:     make(map[string][]Conflict, len(snapshot.WithRadioSession)),
		available: make(map[string]bool, len(snapshot.Available)),
		summary:   snapshot.Summary,
	}
	for _, e := range snapshot.OnVacation {
		ix.vacation[e.User.ID] = append(ix.vacation[e.User.ID], e.Availability.Conflicts...)
	}
	for _, e := range snapshot.WithRadioSession {
		ix.radio[e.User.ID] = append(ix.radio[e.User.ID], e.Availability.Conflicts...)
	}
	for _, e := range snapshot.Available {
		if len(e.Availability.Conflicts) == 0 {
			ix.available[e.User.ID] = true
		}
	}
	return ix
}

// Classify 返回单个学生的状态。
// 优先级固定：休假 > 电台 > 可用 > 未知
func (ix *AvailabilityIndex) Classify(studentID string) Classification {
	c := Classification{StudentID: studentID, Status: StatusUnknown}
	if ix == nil {
		return c
	}
	if conflicts, ok := ix.vacation[studentID]; ok {
		c.Status = StatusVacationConflict
		c.Detail = firstOfType(conflicts, ConflictVacation)
		return c
	}
	if conflicts, ok := ix.radio[studentID]; ok {
		c.Status = StatusRadioConflict
		c.Detail = firstOfType(conflicts, ConflictRadioSession)
		return c
	}
	if ix.available[studentID] {
		c.Status = StatusAvailable
	}
	return c
}

// Summary 返回随列表一起下发的计数
func (ix *AvailabilityIndex) Summary() AvailabilitySummary {
	if ix == nil {
		return AvailabilitySummary{}
	}
	return ix.summary
}

func firstOfType(conflicts []Conflict, t ConflictType) *Conflict {
	for i := range conflicts {
		if conflicts[i].Type == t {
			c := conflicts[i]
			return &c
		}
	}
	return nil
}
