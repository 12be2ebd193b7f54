package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 组员编辑事件类型
const (
	EventEditStarted   = "edit_started"
	EventEditCancelled = "edit_cancelled"
	EventDraftChanged  = "draft_changed"
	EventCommitted     = "committed"
	EventReopened      = "reopened"
	EventMarkedDone    = "marked_done"
)

// CrewEvent 推送给订阅同一场次客户端的事件
type CrewEvent struct {
	Type         string    `json:"type"`
	SessionID    string    `json:"session_id"`
	AssignmentID string    `json:"assignment_id,omitempty"`
	ActorID      string    `json:"actor_id"`
	Version      int       `json:"version,omitempty"`
	At           time.Time `json:"at"`
}

// eventBuffer 每个订阅者的缓冲长度，满时丢弃新事件
const eventBuffer = 16

// EventRelay 跨实例事件广播，*redis.Client 实现该接口
type EventRelay interface {
	PublishEvent(ctx context.Context, payload []byte) error
	SubscribeEvents(ctx context.Context) (<-chan []byte, func() error)
}

// relayEnvelope 广播消息，origin 用于过滤本实例发出的事件
type relayEnvelope struct {
	Origin string    `json:"origin"`
	Event  CrewEvent `json:"event"`
}

const relayPublishTimeout = 2 * time.Second

// EventHub 按场次分发组员编辑事件
type EventHub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]chan CrewEvent

	origin string
	relay  EventRelay
	logger *zap.Logger
}

// NewEventHub 创建事件中心
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[string]map[uint64]chan CrewEvent)}
}

// Subscribe 订阅场次事件，返回的 cancel 关闭通道并可重复调用
func (h *EventHub) Subscribe(sessionID string) (<-chan CrewEvent, func()) {
	ch := make(chan CrewEvent, eventBuffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[uint64]chan CrewEvent)
	}
	h.subs[sessionID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[sessionID], id)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// AttachRelay 启用跨实例广播，需在 Publish 之前调用
func (h *EventHub) AttachRelay(relay EventRelay, logger *zap.Logger) {
	h.relay = relay
	h.logger = logger
	h.origin = uuid.NewString()
}

// Publish 投递给本实例订阅者并广播到其他实例
func (h *EventHub) Publish(ev CrewEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.deliver(ev)

	if h.relay == nil {
		return
	}
	payload, err := json.Marshal(relayEnvelope{Origin: h.origin, Event: ev})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()
	if err := h.relay.PublishEvent(ctx, payload); err != nil {
		h.logger.Warn("事件广播失败", zap.String("type", ev.Type), zap.Error(err))
	}
}

// RunRelay 接收其他实例的事件并投递给本实例订阅者，阻塞至 ctx 结束
func (h *EventHub) RunRelay(ctx context.Context) {
	if h.relay == nil {
		return
	}
	msgs, closeFn := h.relay.SubscribeEvents(ctx)
	defer func() { _ = closeFn() }()

	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-msgs:
			if !ok {
				return
			}
			var env relayEnvelope
			if err := json.Unmarshal(b, &env); err != nil {
				h.logger.Warn("忽略无法解析的广播事件", zap.Error(err))
				continue
			}
			if env.Origin == h.origin {
				continue
			}
			h.deliver(env.Event)
		}
	}
}

// deliver 非阻塞投递，慢订阅者会丢失事件
func (h *EventHub) deliver(ev CrewEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers 场次当前订阅者数量
func (h *EventHub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
