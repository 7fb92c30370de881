package gateway

import (
	"log/slog"
	"sync"
	"time"

	"sudooom.grimoire/internal/model"
)

const requestMemory = 128

// entry 进程内的房间条目
// mu 串行化同一房间的所有变更；doc 是最近一次提交的文档，只整体替换，不原地修改
type entry struct {
	mu         sync.Mutex
	roomID     string
	doc        *model.Room
	dirty      bool // 降级模式下尚未写入存储/广播
	lastActive time.Time
	requests   *recentRequests
}

// registry 房间注册表
// 管理进程内房间条目的生命周期，不活跃且已落盘的条目会被淘汰，下次访问时重新从存储加载
type registry struct {
	rooms        sync.Map // roomId -> *entry
	evictTimeout time.Duration
	logger       *slog.Logger
}

func newRegistry(evictTimeout time.Duration) *registry {
	return &registry{
		evictTimeout: evictTimeout,
		logger:       slog.Default().With("component", "RoomRegistry"),
	}
}

// getOrCreate 获取或创建条目（新条目的 doc 为空，由调用方在持锁后加载）
func (r *registry) getOrCreate(roomID string) *entry {
	if val, ok := r.rooms.Load(roomID); ok {
		return val.(*entry)
	}
	e := &entry{roomID: roomID, requests: newRecentRequests(requestMemory)}
	actual, _ := r.rooms.LoadOrStore(roomID, e)
	return actual.(*entry)
}

func (r *registry) get(roomID string) (*entry, bool) {
	val, ok := r.rooms.Load(roomID)
	if !ok {
		return nil, false
	}
	return val.(*entry), true
}

func (r *registry) remove(roomID string) {
	r.rooms.Delete(roomID)
}

// count 当前条目数
func (r *registry) count() int {
	count := 0
	r.rooms.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// each 遍历所有条目
func (r *registry) each(fn func(e *entry)) {
	r.rooms.Range(func(key, value any) bool {
		fn(value.(*entry))
		return true
	})
}

// evictInactive 淘汰不活跃的条目，dirty 条目保留到重新落盘为止
func (r *registry) evictInactive(now time.Time) {
	toEvict := []string{}

	r.each(func(e *entry) {
		e.mu.Lock()
		idle := now.Sub(e.lastActive) > r.evictTimeout
		dirty := e.dirty
		e.mu.Unlock()
		if idle && !dirty {
			toEvict = append(toEvict, e.roomID)
		}
	})

	for _, roomID := range toEvict {
		r.remove(roomID)
		r.logger.Info("Evicted inactive room", "roomId", roomID)
	}
}
