// Package archive 对局归档
//
// 游戏结束（或房间关闭）时生成一条不可变的归档记录，异步写入外部存储。
package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/workerpool"
)

// SeatFate 座位最终身份与存活情况
type SeatFate struct {
	SeatID          int                `json:"seatId"`
	DisplayName     string             `json:"displayName"`
	Kind            model.OccupantKind `json:"kind,omitempty"`
	TrueRoleID      string             `json:"trueRoleId"`
	PresentedRoleID string             `json:"presentedRoleId"`
	Team            model.Team         `json:"team,omitempty"`
	IsAlive         bool               `json:"isAlive"`
}

// Record 归档记录
type Record struct {
	ID              string             `json:"id"`
	RoomID          string             `json:"roomId"`
	ScriptID        string             `json:"scriptId"`
	StorytellerName string             `json:"storytellerName"`
	Winner          model.Team         `json:"winner,omitempty"` // 房间在结束前关闭时为空
	Reason          string             `json:"reason"`
	Seats           []SeatFate         `json:"seats"`
	Transcript      []model.Message    `json:"transcript"`
	Log             []model.LogEntry   `json:"log"`
	VoteHistory     []model.VoteRecord `json:"voteHistory"`
	Nights          int                `json:"nights"`
	StartedAt       time.Time          `json:"startedAt"`
	ArchivedAt      time.Time          `json:"archivedAt"`
}

// RoleLookup 查询角色阵营
type RoleLookup interface {
	Role(id string) (catalog.Role, bool)
}

// Build 从房间文档生成归档记录
func Build(room *model.Room, roles RoleLookup, id string, now time.Time) Record {
	rec := Record{
		ID:              id,
		RoomID:          room.RoomID,
		ScriptID:        room.ScriptID,
		StorytellerName: room.StorytellerName,
		Seats:           make([]SeatFate, 0, len(room.Seats)),
		Transcript:      append([]model.Message{}, room.Messages...),
		Log:             append([]model.LogEntry{}, room.Log...),
		VoteHistory:     append([]model.VoteRecord{}, room.VoteHistory...),
		Nights:          room.NightNumber,
		StartedAt:       room.CreatedAt,
		ArchivedAt:      now,
	}
	if room.GameOver != nil {
		rec.Winner = room.GameOver.Winner
		rec.Reason = room.GameOver.Reason
	} else {
		rec.Reason = "room closed"
	}

	for _, s := range room.Seats {
		if s.Occupant == nil {
			continue
		}
		fate := SeatFate{
			SeatID:          s.ID,
			DisplayName:     s.Occupant.DisplayName,
			Kind:            s.Occupant.Kind,
			TrueRoleID:      s.TrueRoleID,
			PresentedRoleID: s.PresentedRoleID,
			IsAlive:         s.IsAlive,
		}
		if r, ok := roles.Role(s.TrueRoleID); ok {
			fate.Team = r.Team()
		}
		rec.Seats = append(rec.Seats, fate)
	}
	return rec
}

// Sink 归档存储
type Sink interface {
	Archive(ctx context.Context, rec Record) error
}

// Emitter 网关使用的发送端，调用方不等待结果
type Emitter interface {
	Emit(rec Record)
}

// AsyncSink 通过 worker pool 异步写入 Sink
type AsyncSink struct {
	sink    Sink
	pool    *workerpool.Pool
	timeout time.Duration
	logger  *slog.Logger
}

// NewAsyncSink 创建异步归档
func NewAsyncSink(sink Sink, workers, queueSize int) *AsyncSink {
	logger := slog.Default().With("component", "ArchiveSink")
	return &AsyncSink{
		sink:    sink,
		pool:    workerpool.New(workers, queueSize, logger),
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// Emit 提交归档任务，队列已满时丢弃并记录错误
func (a *AsyncSink) Emit(rec Record) {
	ok := a.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.sink.Archive(ctx, rec); err != nil {
			a.logger.Error("Failed to archive game", "roomId", rec.RoomID, "archiveId", rec.ID, "error", err)
			return
		}
		a.logger.Info("Game archived", "roomId", rec.RoomID, "archiveId", rec.ID, "winner", rec.Winner)
	})
	if !ok {
		a.logger.Error("Archive queue full, record dropped", "roomId", rec.RoomID, "archiveId", rec.ID)
	}
}

// Close 等待队列中的归档写完
func (a *AsyncSink) Close() {
	a.pool.Shutdown()
}

// MemorySink 进程内归档，归档关闭或测试时使用
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// NewMemorySink 创建进程内归档
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Archive(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MemorySink) Emit(rec Record) {
	m.Archive(context.Background(), rec)
}

// Records 已归档的记录
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record{}, m.records...)
}
