// Package gateway 变更网关
//
// 所有对房间文档的修改都经过这里：按授权表校验意图，在同一房间内串行执行，
// 在文档副本上应用、版本号加一、追加旁白日志，然后持久化并广播。
// 持久化或广播失败时进入降级模式：变更保留在内存中，后台循环负责补写。
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"sudooom.grimoire/internal/archive"
	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/replication"
	"sudooom.grimoire/internal/seat"
	"sudooom.grimoire/internal/store"
)

// Options 网关配置
type Options struct {
	MinSeats       int
	MaxSeats       int
	MaxRooms       int
	EvictTimeout   time.Duration
	EvictInterval  time.Duration
	ResyncInterval time.Duration
	LockRetries    int
	LockRetryWait  time.Duration
}

func (o *Options) applyDefaults() {
	if o.MinSeats <= 0 {
		o.MinSeats = 5
	}
	if o.MaxSeats <= 0 {
		o.MaxSeats = 20
	}
	if o.MaxRooms <= 0 {
		o.MaxRooms = 5000
	}
	if o.EvictTimeout <= 0 {
		o.EvictTimeout = 30 * time.Minute
	}
	if o.EvictInterval <= 0 {
		o.EvictInterval = time.Minute
	}
	if o.ResyncInterval <= 0 {
		o.ResyncInterval = 5 * time.Second
	}
	if o.LockRetries < 0 {
		o.LockRetries = 0
	}
	if o.LockRetryWait <= 0 {
		o.LockRetryWait = 20 * time.Millisecond
	}
}

// Deps 网关依赖
type Deps struct {
	Store   store.DocumentStore
	Ledger  seat.Ledger
	Locker  store.Locker // 为空时只做进程内串行
	Channel replication.Channel
	Archive archive.Emitter // 为空时不归档
	Catalog *catalog.Catalog
}

// Gateway 变更网关
type Gateway struct {
	store   store.DocumentStore
	ledger  seat.Ledger
	locker  store.Locker
	channel replication.Channel
	archive archive.Emitter
	catalog *catalog.Catalog
	opts    Options

	rooms *registry

	now     func() time.Time
	newID   func() string
	newRand func() *rand.Rand

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger *slog.Logger
}

// New 创建网关并启动后台维护循环（补写降级房间、淘汰不活跃房间）
func New(deps Deps, opts Options) *Gateway {
	opts.applyDefaults()
	locker := deps.Locker
	if locker == nil {
		locker = store.NopLocker{}
	}

	g := &Gateway{
		store:   deps.Store,
		ledger:  deps.Ledger,
		locker:  locker,
		channel: deps.Channel,
		archive: deps.Archive,
		catalog: deps.Catalog,
		opts:    opts,
		rooms:   newRegistry(opts.EvictTimeout),
		now:     time.Now,
		newID:   uuid.NewString,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		stopChan: make(chan struct{}),
		logger:   slog.Default().With("component", "Gateway"),
	}

	g.wg.Add(1)
	go g.maintainLoop()

	return g
}

// Catalog 网关使用的角色目录
func (g *Gateway) Catalog() *catalog.Catalog {
	return g.catalog
}

// ActiveRooms 进程内缓存的房间数
func (g *Gateway) ActiveRooms() int {
	return g.rooms.count()
}

// Dispatch 处理一条变更意图
// 授权失败、前置条件失败、座位竞争都通过 Outcome 返回；只有房间无法加载时返回 error
func (g *Gateway) Dispatch(ctx context.Context, roomID string, actor Actor, intent Intent) (Outcome, error) {
	p, ok := policies[intent.Type]
	if !ok {
		g.logger.Warn("Unknown intent", "roomId", roomID, "userId", actor.UserID, "intent", intent.Type)
		return Outcome{Status: StatusDenied, Reason: ErrUnknownIntent.Error()}, nil
	}

	e := g.rooms.getOrCreate(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if intent.RequestID != "" && e.doc != nil && e.requests.contains(intent.RequestID) {
		return outcomeOf(StatusDuplicate, "", e.doc), nil
	}

	unlock, err := g.lockRoom(ctx, roomID)
	switch {
	case errors.Is(err, store.ErrRoomBusy):
		if e.doc == nil {
			return Outcome{Status: StatusDenied, Reason: store.ErrRoomBusy.Error()}, nil
		}
		g.logger.Warn("Room busy", "roomId", roomID, "intent", intent.Type)
		return outcomeOf(StatusDenied, store.ErrRoomBusy.Error(), e.doc), nil
	case err != nil:
		// 分布式锁不可用时仍有进程内互斥
		g.logger.Error("Room lock unavailable", "roomId", roomID, "error", err)
	default:
		defer unlock()
	}

	if err := g.refresh(ctx, e); err != nil {
		return Outcome{}, err
	}
	if intent.RequestID != "" && e.requests.contains(intent.RequestID) {
		return outcomeOf(StatusDuplicate, "", e.doc), nil
	}

	doc := e.doc
	now := g.now()
	e.lastActive = now

	if err := authorize(doc, actor, p, intent); err != nil {
		g.logger.Warn("Intent denied",
			"roomId", roomID, "userId", actor.UserID, "intent", intent.Type, "reason", err)
		return outcomeOf(StatusDenied, err.Error(), doc), nil
	}

	m := &mutation{
		ctx:    ctx,
		g:      g,
		room:   doc.Clone(),
		actor:  actor,
		intent: intent,
		now:    now,
	}
	if err := p.apply(m); err != nil {
		if isContention(err) {
			g.logger.Info("Seat contended",
				"roomId", roomID, "userId", actor.UserID, "seatId", intent.SeatID, "reason", err)
			return outcomeOf(StatusContended, err.Error(), doc), nil
		}

		g.logger.Info("Intent rejected",
			"roomId", roomID, "userId", actor.UserID, "intent", intent.Type, "reason", err)
		rejected := doc.Clone()
		rejected.AppendLog(fmt.Sprintf("%s: %s rejected (%s)", actorName(doc, actor), intent.Type, err), true, now)
		g.commit(ctx, e, rejected, now, false)
		return outcomeOf(StatusRejected, err.Error(), e.doc), nil
	}

	if m.narration == "" {
		m.narrate(true, "%s: %s", actorName(doc, actor), intent.Type)
	}
	m.room.AppendLog(m.narration, m.private, now)
	g.checkEndgame(m)

	g.commit(ctx, e, m.room, now, m.ledgerDown)
	e.requests.add(intent.RequestID)

	g.logger.Debug("Intent applied",
		"roomId", roomID, "userId", actor.UserID, "intent", intent.Type, "version", e.doc.Version)
	return outcomeOf(StatusApplied, "", e.doc), nil
}

func outcomeOf(status Status, reason string, doc *model.Room) Outcome {
	return Outcome{
		Status:   status,
		Reason:   reason,
		Version:  doc.Version,
		Degraded: doc.Degraded,
		Room:     doc,
	}
}

func isContention(err error) bool {
	return errors.Is(err, seat.ErrSeatOccupied) || errors.Is(err, seat.ErrAlreadySeated)
}

// lockRoom 获取跨进程房间锁，忙时短暂重试
func (g *Gateway) lockRoom(ctx context.Context, roomID string) (func(), error) {
	var lastErr error
	for attempt := 0; attempt <= g.opts.LockRetries; attempt++ {
		unlock, err := g.locker.Lock(ctx, roomID)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, store.ErrRoomBusy) {
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, store.ErrRoomBusy
		case <-time.After(g.opts.LockRetryWait):
		}
	}
	return nil, lastErr
}

// refresh 从存储重新加载已提交的文档（其他进程可能已提交新版本）
// 降级中的房间以本地文档为准
func (g *Gateway) refresh(ctx context.Context, e *entry) error {
	if e.dirty {
		return nil
	}

	doc, err := g.store.Load(ctx, e.roomID)
	switch {
	case err == nil:
		if e.doc == nil || doc.Version >= e.doc.Version {
			e.doc = doc
		}
		return nil
	case errors.Is(err, store.ErrRoomNotFound), errors.Is(err, store.ErrRoomCorrupt):
		g.rooms.remove(e.roomID)
		e.doc = nil
		return fmt.Errorf("%w: %w", ErrRoomUnavailable, err)
	default:
		if e.doc == nil {
			g.rooms.remove(e.roomID)
			return fmt.Errorf("%w: %w", ErrRoomUnavailable, err)
		}
		g.logger.Error("Failed to reload room, using cached document", "roomId", e.roomID, "error", err)
		return nil
	}
}

// commit 提交新文档：版本号加一、持久化、广播
// ledgerStale 表示本次变更没能写入座位账本，需要按文档重建
func (g *Gateway) commit(ctx context.Context, e *entry, doc *model.Room, now time.Time, ledgerStale bool) {
	doc.Version = e.doc.Version + 1
	doc.UpdatedAt = now
	if ledgerStale {
		doc.Degraded = true
	}
	e.doc = doc
	e.dirty = true

	// 失败时已进入降级模式，由 resync 补写
	_ = g.flush(ctx, e)
}

// flush 把条目中的文档写入存储并广播
// 文档处于降级状态时，成功后清除标记并用文档重建座位账本
func (g *Gateway) flush(ctx context.Context, e *entry) error {
	doc := e.doc
	recovering := doc.Degraded
	if recovering {
		doc = doc.Clone()
		doc.Degraded = false
	}

	if err := g.store.Save(ctx, doc); err != nil {
		return g.degrade(e, "persist", err)
	}
	if err := g.channel.Publish(ctx, replication.Event{
		Type:    replication.EventRoomUpdated,
		RoomID:  doc.RoomID,
		Version: doc.Version,
		Room:    doc.Clone(),
	}); err != nil {
		return g.degrade(e, "publish", err)
	}
	if recovering {
		if err := g.ledger.Restore(ctx, doc.RoomID, len(doc.Seats), seat.OccupantsOf(doc)); err != nil {
			return g.degrade(e, "ledger", err)
		}
		g.logger.Info("Room recovered from degraded mode", "roomId", doc.RoomID, "version", doc.Version)
	}

	e.doc = doc
	e.dirty = false
	return nil
}

func (g *Gateway) degrade(e *entry, stage string, err error) error {
	if !e.doc.Degraded {
		doc := e.doc.Clone()
		doc.Degraded = true
		e.doc = doc
	}
	e.dirty = true
	g.logger.Error("Room degraded", "roomId", e.roomID, "stage", stage, "version", e.doc.Version, "error", err)
	return err
}

// maintainLoop 后台维护：补写降级房间，淘汰不活跃房间
func (g *Gateway) maintainLoop() {
	defer g.wg.Done()

	resyncTicker := time.NewTicker(g.opts.ResyncInterval)
	defer resyncTicker.Stop()
	evictTicker := time.NewTicker(g.opts.EvictInterval)
	defer evictTicker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-resyncTicker.C:
			g.resync(context.Background())
		case <-evictTicker.C:
			g.rooms.evictInactive(g.now())
		}
	}
}

// resync 对所有 dirty 条目重试持久化与广播
func (g *Gateway) resync(ctx context.Context) {
	g.rooms.each(func(e *entry) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.dirty || e.doc == nil {
			return
		}
		if err := g.flush(ctx, e); err != nil {
			g.logger.Debug("Resync failed", "roomId", e.roomID, "error", err)
		}
	})
}

// Shutdown 停止后台循环，并最后尝试一次补写
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.stopOnce.Do(func() {
		close(g.stopChan)
	})
	g.wg.Wait()
	g.resync(ctx)

	g.logger.Info("Gateway shutdown complete", "rooms", g.rooms.count())
	return nil
}
