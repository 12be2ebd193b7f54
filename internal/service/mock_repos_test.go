package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"mediaklub/backend/internal/model"
	"mediaklub/backend/internal/repository"
	pkgerrors "mediaklub/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListActive(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.IsActive {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

// ── Mock StabRepository ──

type mockStabRepo struct {
	stabs map[string]*model.Stab
}

func newMockStabRepo() *mockStabRepo {
	return &mockStabRepo{stabs: map[string]*model.Stab{
		"stab-a": {StabID: "stab-a", Name: "A", IsActive: true},
	}}
}

func (m *mockStabRepo) Create(_ context.Context, stab *model.Stab) error {
	if stab.StabID == "" {
		stab.StabID = "stab-" + stab.Name
	}
	m.stabs[stab.StabID] = stab
	return nil
}

func (m *mockStabRepo) GetByID(_ context.Context, id string) (*model.Stab, error) {
	if s, ok := m.stabs[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStabRepo) GetByName(_ context.Context, name string) (*model.Stab, error) {
	for _, s := range m.stabs {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStabRepo) List(_ context.Context) ([]model.Stab, error) {
	var result []model.Stab
	for _, s := range m.stabs {
		result = append(result, *s)
	}
	return result, nil
}

// ── Mock CrewRoleRepository ──

type mockCrewRoleRepo struct {
	roles map[string]*model.CrewRole
}

func newMockCrewRoleRepo() *mockCrewRoleRepo {
	return &mockCrewRoleRepo{roles: map[string]*model.CrewRole{
		"role-cam": {RoleID: "role-cam", Name: "摄像", IsActive: true},
		"role-snd": {RoleID: "role-snd", Name: "录音", IsActive: true},
		"role-dir": {RoleID: "role-dir", Name: "导演", IsActive: true},
	}}
}

func (m *mockCrewRoleRepo) Create(_ context.Context, role *model.CrewRole) error {
	m.roles[role.RoleID] = role
	return nil
}

func (m *mockCrewRoleRepo) GetByID(_ context.Context, id string) (*model.CrewRole, error) {
	if r, ok := m.roles[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCrewRoleRepo) List(_ context.Context, academicYear string) ([]model.CrewRole, error) {
	var result []model.CrewRole
	for _, r := range m.roles {
		if !r.IsActive {
			continue
		}
		if academicYear != "" && r.AcademicYear != nil && *r.AcademicYear != academicYear {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockCrewRoleRepo) ListByIDs(_ context.Context, ids []string) ([]model.CrewRole, error) {
	var result []model.CrewRole
	for _, id := range ids {
		if r, ok := m.roles[id]; ok {
			result = append(result, *r)
		}
	}
	return result, nil
}

// ── Mock FilmingSessionRepository ──

type mockFilmingSessionRepo struct {
	sessions map[string]*model.FilmingSession
}

func newMockFilmingSessionRepo() *mockFilmingSessionRepo {
	return &mockFilmingSessionRepo{sessions: make(map[string]*model.FilmingSession)}
}

func (m *mockFilmingSessionRepo) Create(_ context.Context, session *model.FilmingSession) error {
	if session.SessionID == "" {
		session.SessionID = "sess-" + session.Name
	}
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockFilmingSessionRepo) GetByID(_ context.Context, id string) (*model.FilmingSession, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	assignments map[string]*model.Assignment
	sessions    *mockFilmingSessionRepo
	users       *mockUserRepo
	roles       *mockCrewRoleRepo
	// replaceErr 非 nil 时 ReplacePairs 返回该错误
	replaceErr error
}

func newMockAssignmentRepo(sessions *mockFilmingSessionRepo, users *mockUserRepo, roles *mockCrewRoleRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{
		assignments: make(map[string]*model.Assignment),
		sessions:    sessions,
		users:       users,
		roles:       roles,
	}
}

// hydrate 返回带关联的副本，模拟 Preload
func (m *mockAssignmentRepo) hydrate(a *model.Assignment) *model.Assignment {
	cp := *a
	cp.Session = m.sessions.sessions[a.SessionID]
	if a.AuthorID != nil {
		cp.Author = m.users.users[*a.AuthorID]
	}
	cp.Pairs = make([]model.AssignmentPair, len(a.Pairs))
	for i, p := range a.Pairs {
		p.User = m.users.users[p.UserID]
		p.Role = m.roles.roles[p.RoleID]
		cp.Pairs[i] = p
	}
	return &cp
}

func (m *mockAssignmentRepo) Create(_ context.Context, assignment *model.Assignment) error {
	for _, a := range m.assignments {
		if a.SessionID == assignment.SessionID {
			return gorm.ErrDuplicatedKey
		}
	}
	if assignment.AssignmentID == "" {
		assignment.AssignmentID = "asg-" + assignment.SessionID
	}
	if assignment.Version == 0 {
		assignment.Version = 1
	}
	assignment.CreatedAt = time.Now()
	cp := *assignment
	m.assignments[assignment.AssignmentID] = &cp
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return m.hydrate(a), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) GetBySession(_ context.Context, sessionID string) (*model.Assignment, error) {
	for _, a := range m.assignments {
		if a.SessionID == sessionID {
			return m.hydrate(a), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) UpdateState(_ context.Context, assignment *model.Assignment) error {
	stored, ok := m.assignments[assignment.AssignmentID]
	if !ok || stored.Version != assignment.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Finalized = assignment.Finalized
	stored.Version++
	assignment.Version = stored.Version
	return nil
}

func (m *mockAssignmentRepo) ReplacePairs(_ context.Context, assignmentID string, pairs []model.AssignmentPair) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	stored, ok := m.assignments[assignmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Pairs = make([]model.AssignmentPair, 0, len(pairs))
	for i, p := range pairs {
		p.AssignmentID = assignmentID
		p.Position = i
		stored.Pairs = append(stored.Pairs, p)
	}
	return nil
}

func (m *mockAssignmentRepo) ListFinalizedByUser(_ context.Context, userID string) ([]model.Assignment, error) {
	var result []model.Assignment
	for _, a := range m.assignments {
		if !a.Finalized {
			continue
		}
		for _, p := range a.Pairs {
			if p.UserID == userID {
				result = append(result, *m.hydrate(a))
				break
			}
		}
	}
	return result, nil
}

func (m *mockAssignmentRepo) RoleStatisticsByUser(_ context.Context, userID string) ([]repository.RoleStatistic, error) {
	byRole := make(map[string]*repository.RoleStatistic)
	var order []string
	for _, a := range m.assignments {
		for _, p := range a.Pairs {
			if p.UserID != userID {
				continue
			}
			st, ok := byRole[p.RoleID]
			if !ok {
				st = &repository.RoleStatistic{RoleID: p.RoleID}
				if r := m.roles.roles[p.RoleID]; r != nil {
					st.RoleName = r.Name
				}
				byRole[p.RoleID] = st
				order = append(order, p.RoleID)
			}
			st.Count++
			if a.Finalized {
				st.FinalizedCount++
			}
			if s := m.sessions.sessions[a.SessionID]; s != nil {
				if st.LastDate == nil || s.Date.After(*st.LastDate) {
					d := s.Date
					st.LastDate = &d
				}
			}
		}
	}
	result := make([]repository.RoleStatistic, 0, len(order))
	for _, id := range order {
		result = append(result, *byRole[id])
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return result, nil
}

// ── Mock AssignmentChangeLogRepository ──

type mockChangeLogRepo struct {
	logs []model.AssignmentChangeLog
}

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.AssignmentChangeLog) error {
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockChangeLogRepo) ListByAssignment(_ context.Context, assignmentID string, offset, limit int) ([]model.AssignmentChangeLog, int64, error) {
	var all []model.AssignmentChangeLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].AssignmentID == assignmentID {
			all = append(all, m.logs[i])
		}
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock VacationRepository ──

type mockVacationRepo struct {
	vacations []model.Vacation
}

func (m *mockVacationRepo) Create(_ context.Context, vacation *model.Vacation) error {
	m.vacations = append(m.vacations, *vacation)
	return nil
}

func (m *mockVacationRepo) ListApprovedCovering(_ context.Context, day time.Time) ([]model.Vacation, error) {
	var result []model.Vacation
	for i := range m.vacations {
		if m.vacations[i].Status == model.VacationApproved && m.vacations[i].Covers(day) {
			result = append(result, m.vacations[i])
		}
	}
	return result, nil
}

func (m *mockVacationRepo) ListByUser(_ context.Context, userID string) ([]model.Vacation, error) {
	var result []model.Vacation
	for _, v := range m.vacations {
		if v.UserID == userID {
			result = append(result, v)
		}
	}
	return result, nil
}

// ── Mock RadioSessionRepository ──

type mockRadioSessionRepo struct {
	sessions []model.RadioSession
}

func (m *mockRadioSessionRepo) Create(_ context.Context, session *model.RadioSession) error {
	if session.RadioSessionID == "" {
		session.RadioSessionID = "radio-" + session.RadioStab + "-" + session.Date.Format("20060102")
	}
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *mockRadioSessionRepo) ListCandidates(_ context.Context, day time.Time) ([]model.RadioSession, error) {
	var result []model.RadioSession
	for _, s := range m.sessions {
		if !s.Date.After(day) {
			result = append(result, s)
		}
	}
	return result, nil
}

// ── Mock AbsenceRepository ──

type mockAbsenceRepo struct {
	absences []model.Absence
	users    *mockUserRepo
}

func (m *mockAbsenceRepo) BatchCreate(_ context.Context, absences []model.Absence) error {
	for _, a := range absences {
		if a.AbsenceID == "" {
			a.AbsenceID = "abs-" + a.AssignmentID + "-" + a.UserID
		}
		m.absences = append(m.absences, a)
	}
	return nil
}

func (m *mockAbsenceRepo) ListByAssignment(_ context.Context, assignmentID string) ([]model.Absence, error) {
	var result []model.Absence
	for _, a := range m.absences {
		if a.AssignmentID == assignmentID {
			a.User = m.users.users[a.UserID]
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockAbsenceRepo) DeleteGenerated(_ context.Context, assignmentID string) error {
	kept := m.absences[:0]
	for _, a := range m.absences {
		if a.AssignmentID == assignmentID && a.AutoGenerated {
			continue
		}
		kept = append(kept, a)
	}
	m.absences = kept
	return nil
}

// ── 测试夹具 ──

type testRepos struct {
	repo        *repository.Repository
	users       *mockUserRepo
	stabs       *mockStabRepo
	roles       *mockCrewRoleRepo
	sessions    *mockFilmingSessionRepo
	assignments *mockAssignmentRepo
	changeLogs  *mockChangeLogRepo
	vacations   *mockVacationRepo
	radios      *mockRadioSessionRepo
	absences    *mockAbsenceRepo
}

func newTestRepos() *testRepos {
	t := &testRepos{
		users:      newMockUserRepo(),
		stabs:      newMockStabRepo(),
		roles:      newMockCrewRoleRepo(),
		sessions:   newMockFilmingSessionRepo(),
		changeLogs: &mockChangeLogRepo{},
		vacations:  &mockVacationRepo{},
		radios:     &mockRadioSessionRepo{},
	}
	t.absences = &mockAbsenceRepo{users: t.users}
	t.assignments = newMockAssignmentRepo(t.sessions, t.users, t.roles)
	t.repo = &repository.Repository{
		User:           t.users,
		Stab:           t.stabs,
		CrewRole:       t.roles,
		FilmingSession: t.sessions,
		Assignment:     t.assignments,
		ChangeLog:      t.changeLogs,
		Vacation:       t.vacations,
		RadioSession:   t.radios,
		Absence:        t.absences,
	}
	return t
}

// addStudent 预置一个启用的学生
func (t *testRepos) addStudent(id, username, lastName, firstName string) *model.User {
	u := &model.User{
		UserID:    id,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Email:     username + "@mediaklub.test",
		ClassName: "11.F",
		Role:      model.UserRoleStudent,
		IsActive:  true,
		StabID:    strPtr("stab-a"),
		Stab:      &model.Stab{StabID: "stab-a", Name: "A"},
	}
	t.users.users[id] = u
	return u
}

// addSession 预置 2025-03-14 10:00-12:00 的拍摄场次
func (t *testRepos) addSession(id string) *model.FilmingSession {
	s := &model.FilmingSession{
		SessionID: id,
		Name:      "校庆直播",
		Location:  "礼堂",
		Date:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		TimeFrom:  "10:00:00",
		TimeTo:    "12:00:00",
		Kind:      "event",
	}
	t.sessions.sessions[id] = s
	return s
}

// addAssignment 预置分配
func (t *testRepos) addAssignment(sessionID string, finalized bool, pairs ...model.AssignmentPair) *model.Assignment {
	a := &model.Assignment{
		AssignmentID: "asg-" + sessionID,
		SessionID:    sessionID,
		Finalized:    finalized,
		AuthorID:     strPtr("user-editor"),
		Pairs:        pairs,
	}
	a.Version = 1
	t.assignments.assignments[a.AssignmentID] = a
	return a
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

var (
	editorOp  = Operator{UserID: "user-editor", Role: model.UserRoleEditor}
	adminOp   = Operator{UserID: "user-admin", Role: model.UserRoleAdmin}
	studentOp = Operator{UserID: "user-student", Role: model.UserRoleStudent}
)
