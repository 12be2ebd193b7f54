package crew

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── 测试辅助 ──

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	err      error
	calls    int
	// 非 nil 时，拉取资料期间阻塞直到收到信号
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeProfiles) GetUserDetails(_ context.Context, id string) (*Profile, error) {
	f.mu.Lock()
	f.calls++
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

var testRoles = []Role{{ID: "r1", Name: "Operatőr"}, {ID: "r2", Name: "Riporter"}}

func editorCap() Capability { return Capability{UserID: "editor-1", CanEdit: true} }

func newTestEditor(profiles *fakeProfiles) *Editor {
	return NewEditor(editorCap(), testRoles, profiles)
}

func baseRoster() []Member {
	return []Member{
		{StudentID: "u1", DisplayName: "Kiss Anna", RoleID: "r1", RoleName: "Operatőr"},
		{StudentID: "u2", DisplayName: "Nagy Béla", RoleID: "r2", RoleName: "Riporter"},
	}
}

// ── EnterEdit / CancelEdit ──

func TestEditor_EnterEditClonesRoster(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	roster := baseRoster()

	require.NoError(t, e.EnterEdit(roster, false, 3))
	assert.True(t, e.Active())
	assert.Equal(t, 3, e.BaseVersion())
	assert.False(t, e.Dirty())

	// 草稿修改不影响原名单
	_, err := e.RemoveMember("u1")
	require.NoError(t, err)
	assert.Len(t, roster, 2)
	assert.Equal(t, "u1", roster[0].StudentID)
}

func TestEditor_EnterEditTwiceIsNoop(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))
	_, _ = e.RemoveMember("u1")

	require.NoError(t, e.EnterEdit(baseRoster(), false, 2))
	assert.Len(t, e.Draft(), 1)
	assert.Equal(t, 1, e.BaseVersion())
}

func TestEditor_EnterEditRefusals(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	assert.ErrorIs(t, e.EnterEdit(baseRoster(), true, 1), ErrAssignmentFinalized)
	assert.False(t, e.Active())

	viewer := NewEditor(Capability{UserID: "s1"}, testRoles, &fakeProfiles{})
	assert.ErrorIs(t, viewer.EnterEdit(baseRoster(), false, 1), ErrNotPermitted)
}

func TestEditor_CancelRestoresServerRoster(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	roster := baseRoster()
	require.NoError(t, e.EnterEdit(roster, false, 1))

	_, _ = e.RemoveMember("u1")
	_, _ = e.ChangeRole("u2", "r1")
	e.CancelEdit()

	assert.False(t, e.Active())
	assert.Nil(t, e.Draft())
	assert.Equal(t, roster, e.Visible(roster))

	// 重复取消安全
	e.CancelEdit()
}

// ── ChangeRole / RemoveMember ──

func TestEditor_ChangeRole(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))

	ok, err := e.ChangeRole("u1", "r2")
	require.NoError(t, err)
	assert.True(t, ok)
	once := e.Draft()

	// 幂等
	ok, err = e.ChangeRole("u1", "r2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, once, e.Draft())
	assert.Equal(t, "Riporter", once[0].RoleName)
	assert.True(t, e.Dirty())

	// 未知角色或学生：静默忽略
	ok, err = e.ChangeRole("u1", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = e.ChangeRole("nobody", "r1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, once, e.Draft())
}

func TestEditor_MutationsOutsideEditMode(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})

	_, err := e.ChangeRole("u1", "r2")
	assert.ErrorIs(t, err, ErrEditNotActive)
	_, err = e.RemoveMember("u1")
	assert.ErrorIs(t, err, ErrEditNotActive)
	_, err = e.AddMember(context.Background(), "u3", "r1")
	assert.ErrorIs(t, err, ErrEditNotActive)
}

func TestEditor_RemoveMember(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))

	ok, err := e.RemoveMember("u1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.RemoveMember("u1")
	require.NoError(t, err)
	assert.False(t, ok)

	draft := e.Draft()
	require.Len(t, draft, 1)
	assert.Equal(t, "u2", draft[0].StudentID)
}

// ── AddMember ──

func TestEditor_AddMember(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*Profile{
		"u3": {ID: "u3", Username: "ctoth", FirstName: "Cili", LastName: "Tóth", ClassName: "9.F", Email: "c@example.com"},
	}}
	e := newTestEditor(profiles)
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))

	m, err := e.AddMember(context.Background(), "u3", "r2")
	require.NoError(t, err)
	assert.Equal(t, "Tóth Cili", m.DisplayName)
	assert.Equal(t, "Riporter", m.RoleName)
	assert.Equal(t, "9.F", m.ClassName)
	assert.Equal(t, "N/A", m.StabName)

	draft := e.Draft()
	require.Len(t, draft, 3)
	assert.Equal(t, "u3", draft[2].StudentID)
	assert.Equal(t, 1, profiles.calls)
}

func TestEditor_AddMemberDuplicate(t *testing.T) {
	profiles := &fakeProfiles{}
	e := newTestEditor(profiles)
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))
	before := e.Draft()

	_, err := e.AddMember(context.Background(), "u1", "r2")
	assert.ErrorIs(t, err, ErrDuplicateMember)
	assert.Equal(t, before, e.Draft())
	assert.Zero(t, profiles.calls)
}

func TestEditor_AddMemberUnknownRole(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))

	_, err := e.AddMember(context.Background(), "u3", "nope")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestEditor_AddMemberFetchFailure(t *testing.T) {
	cause := errors.New("backend down")
	e := newTestEditor(&fakeProfiles{err: cause})
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))
	before := e.Draft()

	_, err := e.AddMember(context.Background(), "u3", "r1")
	assert.ErrorIs(t, err, ErrProfileFetch)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, before, e.Draft())
}

func TestEditor_AddMemberCancelledDuringFetch(t *testing.T) {
	profiles := &fakeProfiles{
		profiles: map[string]*Profile{"u3": {ID: "u3", Username: "ctoth"}},
		gate:     make(chan struct{}),
		entered:  make(chan struct{}, 1),
	}
	e := newTestEditor(profiles)
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))

	done := make(chan error, 1)
	go func() {
		_, err := e.AddMember(context.Background(), "u3", "r1")
		done <- err
	}()

	<-profiles.entered
	// 拉取期间取消并重新进入编辑
	e.CancelEdit()
	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))
	close(profiles.gate)

	assert.ErrorIs(t, <-done, ErrEditCancelled)
	assert.Len(t, e.Draft(), 2)
}

func TestEditor_Rebase(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	assert.ErrorIs(t, e.Rebase(2), ErrEditNotActive)

	require.NoError(t, e.EnterEdit(baseRoster(), false, 1))
	_, _ = e.RemoveMember("u2")
	require.NoError(t, e.Rebase(4))
	assert.Equal(t, 4, e.BaseVersion())
	assert.Len(t, e.Draft(), 1)
	assert.True(t, e.Dirty())
}

func TestEditor_VisibleFollowsMode(t *testing.T) {
	e := newTestEditor(&fakeProfiles{})
	server := baseRoster()

	assert.Equal(t, server, e.Visible(server))

	require.NoError(t, e.EnterEdit(server, false, 1))
	_, _ = e.RemoveMember("u2")
	assert.Len(t, e.Visible(server), 1)
}
