package crew

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ── 定稿控制器 ──

var (
	ErrNoAssignment      = errors.New("该场次尚未创建分配")
	ErrInvalidTransition = errors.New("当前分配状态不允许该操作")
	ErrPendingChanges    = errors.New("存在未保存的修改，请先提交或取消")
	ErrNotLoaded         = errors.New("分配尚未加载")
)

// State 分配的生命周期状态
type State string

const (
	StateNoAssignment State = "no_assignment"
	StateDraft        State = "draft"
	StateFinalized    State = "finalized"
)

// ConflictNotice 提交检查发现的冲突组员
type ConflictNotice struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Detail    *Conflict `json:"detail,omitempty"`
}

// Confirm 存在冲突时决定是否继续提交
type Confirm func(notices []ConflictNotice) bool

// ConfirmOverride 返回固定应答的 Confirm
func ConfirmOverride(ok bool) Confirm {
	return func([]ConflictNotice) bool { return ok }
}

// CommitOutcome 无错误时的提交结果。
// 提交成功但随后的重新加载失败时 Stale 为 true
type CommitOutcome struct {
	Committed  bool             `json:"committed"`
	Aborted    bool             `json:"aborted"`
	Conflicts  []ConflictNotice `json:"conflicts,omitempty"`
	Assignment *Assignment      `json:"assignment,omitempty"`
	Stale      bool             `json:"stale,omitempty"`
}

// Controller 驱动单个场次分配的 Draft/Finalized 状态转换。
// 面向单次请求使用，非并发安全（内部的 Editor 是并发安全的）
type Controller struct {
	backend    AssignmentBackend
	capability Capability
	editor     *Editor

	sessionID  string
	loaded     bool
	assignment *Assignment
	index      *AvailabilityIndex
	roster     []Member
}

// NewController 创建控制器
func NewController(backend AssignmentBackend, capability Capability, editor *Editor) *Controller {
	return &Controller{backend: backend, capability: capability, editor: editor}
}

// Load 并发拉取组合载荷与学生资料，并据此重建可用性索引与服务端名单
func (c *Controller) Load(ctx context.Context, sessionID string) error {
	var (
		payload  *AssignmentWithAvailability
		profiles []Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.backend.GetAssignmentWithAvailability(gctx, sessionID)
		if err != nil {
			return fmt.Errorf("加载分配失败: %w", err)
		}
		payload = p
		return nil
	})
	g.Go(func() error {
		ps, err := c.backend.ListProfiles(gctx)
		if err != nil {
			return fmt.Errorf("加载学生资料失败: %w", err)
		}
		profiles = ps
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if payload == nil {
		payload = &AssignmentWithAvailability{}
	}

	c.sessionID = sessionID
	c.assignment = payload.Assignment
	c.index = NewAvailabilityIndex(payload.Availability)
	c.roster = nil
	if payload.Assignment != nil {
		c.roster = Materialize(payload.Assignment.Pairs, profiles)
	}
	c.loaded = true
	return nil
}

// State 由已加载的分配推导状态
func (c *Controller) State() State {
	switch {
	case c.assignment == nil:
		return StateNoAssignment
	case c.assignment.Finalized:
		return StateFinalized
	default:
		return StateDraft
	}
}

// Assignment 最近一次加载的分配，不存在时为 nil
func (c *Controller) Assignment() *Assignment { return c.assignment }

// Index 最近一次加载的可用性索引
func (c *Controller) Index() *AvailabilityIndex { return c.index }

// Roster 最近一次加载的服务端名单
func (c *Controller) Roster() []Member { return cloneMembers(c.roster) }

// Editor 控制器使用的编辑器
func (c *Controller) Editor() *Editor { return c.editor }

// Visible 当前应展示的名单
func (c *Controller) Visible() []Member { return c.editor.Visible(c.roster) }

// Classify 在当前索引中查询单个学生
func (c *Controller) Classify(studentID string) Classification {
	return c.index.Classify(studentID)
}

// EnterEdit 以服务端名单进入编辑模式
func (c *Controller) EnterEdit() error {
	if !c.loaded {
		return ErrNotLoaded
	}
	switch c.State() {
	case StateNoAssignment:
		return ErrNoAssignment
	case StateFinalized:
		return ErrAssignmentFinalized
	}
	return c.editor.EnterEdit(c.roster, false, c.assignment.Version)
}

// Conflicts 列出组员中的休假与电台冲突
func (c *Controller) Conflicts(members []Member) []ConflictNotice {
	notices := make([]ConflictNotice, 0)
	for _, m := range members {
		cl := c.index.Classify(m.StudentID)
		if cl.HasConflict() {
			notices = append(notices, ConflictNotice{StudentID: m.StudentID, Name: m.DisplayName, Status: cl.Status, Detail: cl.Detail})
		}
	}
	return notices
}

// Commit 定稿草稿。
// 存在冲突组员时需 confirm 返回 true，拒绝则不做任何修改；后端失败时保留草稿以便重试
func (c *Controller) Commit(ctx context.Context, confirm Confirm) (*CommitOutcome, error) {
	if !c.capability.CanEdit {
		return nil, ErrNotPermitted
	}
	if !c.loaded {
		return nil, ErrNotLoaded
	}
	switch c.State() {
	case StateNoAssignment:
		return nil, ErrNoAssignment
	case StateFinalized:
		return nil, ErrInvalidTransition
	}

	draft, generation, version, err := c.editor.beginCommit()
	if err != nil {
		return nil, err
	}

	if notices := c.Conflicts(draft); len(notices) > 0 {
		if confirm == nil || !confirm(notices) {
			c.editor.abortCommit(generation)
			return &CommitOutcome{Aborted: true, Conflicts: notices}, nil
		}
	}

	done := true
	updated, err := c.backend.UpdateAssignment(ctx, c.assignment.ID, UpdateRequest{
		Pairs:           PairsOf(draft),
		Finalized:       &done,
		ExpectedVersion: &version,
	})
	if err != nil {
		c.editor.abortCommit(generation)
		return nil, err
	}

	c.editor.finish(generation)
	return c.afterWrite(ctx, updated), nil
}

// Reopen 将已定稿分配退回草稿状态，pair 不变
func (c *Controller) Reopen(ctx context.Context) (*Assignment, error) {
	if !c.capability.CanAdminister {
		return nil, ErrNotPermitted
	}
	if !c.loaded {
		return nil, ErrNotLoaded
	}
	if c.State() != StateFinalized {
		return nil, ErrInvalidTransition
	}
	updated, err := c.backend.MarkAssignmentDraft(ctx, c.assignment.ID)
	if err != nil {
		return nil, err
	}
	return c.afterWrite(ctx, updated).Assignment, nil
}

// MarkDone 不经编辑直接将当前存储的分配定稿
func (c *Controller) MarkDone(ctx context.Context) (*Assignment, error) {
	if !c.capability.CanEdit {
		return nil, ErrNotPermitted
	}
	if !c.loaded {
		return nil, ErrNotLoaded
	}
	switch c.State() {
	case StateNoAssignment:
		return nil, ErrNoAssignment
	case StateFinalized:
		return nil, ErrInvalidTransition
	}
	generation, err := c.editor.freezeClean()
	if err != nil {
		return nil, err
	}
	updated, err := c.backend.MarkAssignmentDone(ctx, c.assignment.ID)
	if err != nil {
		c.editor.abortCommit(generation)
		return nil, err
	}
	c.editor.finish(generation)
	return c.afterWrite(ctx, updated).Assignment, nil
}

// afterWrite 写入后重新加载；加载失败时沿用写入结果并标记 Stale
func (c *Controller) afterWrite(ctx context.Context, updated *Assignment) *CommitOutcome {
	out := &CommitOutcome{Committed: true, Assignment: updated}
	if err := c.Load(ctx, c.sessionID); err != nil {
		c.assignment = updated
		out.Stale = true
		return out
	}
	if c.assignment != nil {
		out.Assignment = c.assignment
	}
	return out
}
