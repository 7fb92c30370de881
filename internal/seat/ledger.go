// Package seat 座位账本
//
// 座位认领/释放是唯一绕过整文档读-改-写的变更：两个客户端可能同时看到同一个空座位，
// 因此认领必须在持久化存储上以单步条件更新完成（"当前为空才写入我"），而不是基于客户端缓存。
package seat

import (
	"context"
	"errors"

	"sudooom.grimoire/internal/model"
)

// 失败原因（同时作为存储过程返回的原因字符串）
const (
	ReasonOK            = "OK"
	ReasonSeatOccupied  = "SEAT_OCCUPIED"
	ReasonAlreadySeated = "ALREADY_SEATED"
	ReasonInvalidSeat   = "INVALID_SEAT"
	ReasonNotOccupant   = "NOT_OCCUPANT"
	ReasonRoomNotFound  = "ROOM_NOT_FOUND"
)

var (
	ErrSeatOccupied  = errors.New(ReasonSeatOccupied)
	ErrAlreadySeated = errors.New(ReasonAlreadySeated)
	ErrInvalidSeat   = errors.New(ReasonInvalidSeat)
	ErrNotOccupant   = errors.New(ReasonNotOccupant)
	ErrRoomNotFound  = errors.New(ReasonRoomNotFound)
)

var reasonErrors = map[string]error{
	ReasonSeatOccupied:  ErrSeatOccupied,
	ReasonAlreadySeated: ErrAlreadySeated,
	ReasonInvalidSeat:   ErrInvalidSeat,
	ReasonNotOccupant:   ErrNotOccupant,
	ReasonRoomNotFound:  ErrRoomNotFound,
}

// Result 原子操作结果：成功标记 + 失败原因
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	SeatID int    `json:"seatId"`
}

// Err 把失败原因转换为哨兵错误，成功返回 nil
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	if err, ok := reasonErrors[r.Reason]; ok {
		return err
	}
	return errors.New(r.Reason)
}

func ok(seatID int) Result {
	return Result{OK: true, Reason: ReasonOK, SeatID: seatID}
}

func fail(seatID int, reason string) Result {
	return Result{OK: false, Reason: reason, SeatID: seatID}
}

// Ledger 座位账本
// 返回的 error 只表示传输/存储故障；业务失败通过 Result.OK=false 和 Reason 表达
type Ledger interface {
	// Init 初始化房间账本（清空占据信息）
	Init(ctx context.Context, roomID string, seatCount int) error
	// Claim 当且仅当座位为空且用户未占据其他座位时写入占据者
	Claim(ctx context.Context, roomID string, seatID int, occupant model.Occupant) (Result, error)
	// Release 当且仅当座位由该用户占据时清空
	Release(ctx context.Context, roomID string, seatID int, userID string) (Result, error)
	// ForceRelease 说书人强制清空座位
	ForceRelease(ctx context.Context, roomID string, seatID int) (Result, error)
	// Resize 修改座位数，被移除的座位必须为空
	Resize(ctx context.Context, roomID string, seatCount int) (Result, error)
	// Snapshot 读取当前占据情况
	Snapshot(ctx context.Context, roomID string) (map[int]model.Occupant, error)
	// Restore 用文档中的占据情况覆盖账本（降级模式恢复后使用）
	Restore(ctx context.Context, roomID string, seatCount int, occupants map[int]model.Occupant) error
	// Drop 删除房间账本
	Drop(ctx context.Context, roomID string) error
}

// OccupantsOf 从文档提取占据情况
func OccupantsOf(room *model.Room) map[int]model.Occupant {
	out := make(map[int]model.Occupant)
	for _, s := range room.Seats {
		if s.Occupant != nil {
			out[s.ID] = *s.Occupant
		}
	}
	return out
}
