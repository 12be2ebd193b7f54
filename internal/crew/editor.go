package crew

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ── 编辑器业务错误 ──

var (
	ErrNotPermitted        = errors.New("无权执行该操作")
	ErrAssignmentFinalized = errors.New("分配已定稿，请先重新打开")
	ErrEditNotActive       = errors.New("当前不在编辑模式")
	ErrDuplicateMember     = errors.New("该学生已在组员名单中")
	ErrUnknownRole         = errors.New("角色不存在")
	ErrProfileFetch        = errors.New("加载学生资料失败")
	ErrEditCancelled       = errors.New("编辑已取消，组员未添加")
	ErrCommitInProgress    = errors.New("草稿正在提交，请稍后重试")
)

// Editor 编辑模式下的组员名单工作副本。
// 编辑模式之外草稿不作为数据来源
type Editor struct {
	mu         sync.Mutex
	capability Capability
	roles      map[string]Role
	profiles   ProfileFetcher

	active      bool
	committing  bool
	generation  uint64
	baseVersion int
	base        []Member
	draft       []Member
}

// NewEditor 基于固定角色集合创建编辑器（初始未激活）
func NewEditor(capability Capability, roles []Role, profiles ProfileFetcher) *Editor {
	byID := make(map[string]Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	return &Editor{capability: capability, roles: byID, profiles: profiles}
}

// EnterEdit 将 roster 克隆为草稿，已在编辑中时为空操作。
// version 为草稿所基于的分配版本号
func (e *Editor) EnterEdit(roster []Member, finalized bool, version int) error {
	if !e.capability.CanEdit {
		return ErrNotPermitted
	}
	if finalized {
		return ErrAssignmentFinalized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active {
		return nil
	}
	e.active = true
	e.generation++
	e.baseVersion = version
	e.base = cloneMembers(roster)
	e.draft = cloneMembers(roster)
	return nil
}

// CancelEdit 丢弃草稿，任意时刻调用均安全
func (e *Editor) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

// ChangeRole 原地修改草稿组员的角色。
// 未知角色或学生忽略并返回 false
func (e *Editor) ChangeRole(studentID, roleID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.mutable(); err != nil {
		return false, err
	}
	role, ok := e.roles[roleID]
	if !ok {
		return false, nil
	}
	i := e.indexOf(studentID)
	if i < 0 {
		return false, nil
	}
	e.draft[i].RoleID = role.ID
	e.draft[i].RoleName = role.Name
	return true, nil
}

// RemoveMember 从草稿中移除学生
func (e *Editor) RemoveMember(studentID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.mutable(); err != nil {
		return false, err
	}
	i := e.indexOf(studentID)
	if i < 0 {
		return false, nil
	}
	e.draft = append(e.draft[:i:i], e.draft[i+1:]...)
	return true, nil
}

// AddMember 加载学生资料并追加到草稿末尾。冲突确认由调用方负责。
// 拉取资料期间不持有锁；若期间编辑模式已结束则放弃追加
func (e *Editor) AddMember(ctx context.Context, studentID, roleID string) (Member, error) {
	e.mu.Lock()
	if err := e.mutable(); err != nil {
		e.mu.Unlock()
		return Member{}, err
	}
	if e.indexOf(studentID) >= 0 {
		e.mu.Unlock()
		return Member{}, ErrDuplicateMember
	}
	role, ok := e.roles[roleID]
	if !ok {
		e.mu.Unlock()
		return Member{}, ErrUnknownRole
	}
	generation := e.generation
	e.mu.Unlock()

	profile, err := e.profiles.GetUserDetails(ctx, studentID)
	if err != nil {
		return Member{}, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	if profile == nil {
		return Member{}, ErrProfileFetch
	}
	member := MemberFromProfile(UserRef{ID: studentID, Username: profile.Username}, RoleRef{ID: role.ID, Name: role.Name}, profile)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active || e.generation != generation {
		return Member{}, ErrEditCancelled
	}
	if e.committing {
		return Member{}, ErrCommitInProgress
	}
	// 并发添加可能已先完成
	if e.indexOf(studentID) >= 0 {
		return Member{}, ErrDuplicateMember
	}
	e.draft = append(e.draft, member)
	return member, nil
}

// Active 是否处于编辑模式
func (e *Editor) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Draft 返回草稿副本，非编辑模式返回 nil
func (e *Editor) Draft() []Member {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return nil
	}
	return cloneMembers(e.draft)
}

// BaseVersion 进入编辑模式时的分配版本号
func (e *Editor) BaseVersion() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseVersion
}

// Rebase 将草稿改为基于 version 提交，草稿内容不变。
// 版本冲突后客户端重新加载分配时使用
func (e *Editor) Rebase(version int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable(); err != nil {
		return err
	}
	e.baseVersion = version
	return nil
}

// Dirty 草稿是否与克隆来源不同
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty()
}

func (e *Editor) dirty() bool {
	if !e.active || len(e.base) != len(e.draft) {
		return e.active
	}
	for i := range e.base {
		if e.base[i].StudentID != e.draft[i].StudentID || e.base[i].RoleID != e.draft[i].RoleID {
			return true
		}
	}
	return false
}

// Visible 当前应展示的名单：编辑中为草稿，否则为服务端名单
func (e *Editor) Visible(serverRoster []Member) []Member {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return cloneMembers(e.draft)
	}
	return cloneMembers(serverRoster)
}

// beginCommit 冻结草稿并返回其副本、代次与基准版本。
// 冻结期间的修改返回 ErrCommitInProgress，直到 finish 或 abortCommit
func (e *Editor) beginCommit() ([]Member, uint64, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.mutable(); err != nil {
		return nil, 0, 0, err
	}
	e.committing = true
	return cloneMembers(e.draft), e.generation, e.baseVersion, nil
}

// freezeClean 直接定稿前冻结未修改的草稿；不在编辑模式时仅返回当前代次
func (e *Editor) freezeClean() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return e.generation, nil
	}
	if e.committing {
		return 0, ErrCommitInProgress
	}
	if e.dirty() {
		return 0, ErrPendingChanges
	}
	e.committing = true
	return e.generation, nil
}

// abortCommit 解除冻结，草稿保留
func (e *Editor) abortCommit(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation == generation {
		e.committing = false
	}
}

// finish 提交成功后清空草稿；提交期间若已重新进入编辑模式则保留
func (e *Editor) finish(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation == generation {
		e.reset()
	}
}

func (e *Editor) mutable() error {
	if !e.active {
		return ErrEditNotActive
	}
	if e.committing {
		return ErrCommitInProgress
	}
	return nil
}

func (e *Editor) reset() {
	e.active = false
	e.committing = false
	e.generation++
	e.base = nil
	e.draft = nil
}

func (e *Editor) indexOf(studentID string) int {
	for i := range e.draft {
		if e.draft[i].StudentID == studentID {
			return i
		}
	}
	return -1
}

func cloneMembers(in []Member) []Member {
	if in == nil {
		return []Member{}
	}
	out := make([]Member, len(in))
	copy(out, in)
	return out
}
