// Package replication 房间文档广播
//
// 每次提交后把完整文档推送给该房间的所有订阅者（包括发起者本身），
// 客户端以广播为准收敛状态。
package replication

import (
	"context"
	"log/slog"
	"sync"

	"sudooom.grimoire/internal/model"
)

// EventType 广播事件类型
type EventType string

const (
	EventRoomUpdated EventType = "ROOM_UPDATED"
	EventRoomClosed  EventType = "ROOM_CLOSED"
)

// Event 广播事件
type Event struct {
	Type    EventType   `json:"type"`
	RoomID  string      `json:"roomId"`
	Version int64       `json:"version"`
	Room    *model.Room `json:"room,omitempty"`
}

// Handler 事件回调
type Handler func(Event)

// Channel 广播通道
type Channel interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe 订阅房间事件，返回取消订阅函数
	Subscribe(roomID string, handler Handler) (func(), error)
}

// LocalHub 进程内广播，单实例部署与测试使用
type LocalHub struct {
	mu     sync.RWMutex
	subs   map[string]map[int]Handler
	nextID int
	logger *slog.Logger
}

// NewLocalHub 创建进程内广播
func NewLocalHub() *LocalHub {
	return &LocalHub{
		subs:   make(map[string]map[int]Handler),
		logger: slog.Default().With("component", "LocalHub"),
	}
}

func (h *LocalHub) Publish(ctx context.Context, event Event) error {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.subs[event.RoomID]))
	for _, fn := range h.subs[event.RoomID] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(event)
	}
	h.logger.Debug("Published room event", "roomId", event.RoomID, "type", event.Type, "subscribers", len(handlers))
	return nil
}

func (h *LocalHub) Subscribe(roomID string, handler Handler) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[int]Handler)
	}
	h.subs[roomID][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[roomID], id)
			if len(h.subs[roomID]) == 0 {
				delete(h.subs, roomID)
			}
		})
	}, nil
}

// Subscribers 房间当前订阅数
func (h *LocalHub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[roomID])
}
