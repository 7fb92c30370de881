package gateway

import (
	"context"
	"fmt"
	"time"

	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/seat"
)

// mutation 一次意图执行的上下文
// room 是已提交文档的副本，执行函数直接修改它；返回 error 时副本被丢弃
type mutation struct {
	ctx    context.Context
	g      *Gateway
	room   *model.Room
	actor  Actor
	intent Intent
	now    time.Time

	narration string
	private   bool

	ledgerDown bool // 座位账本不可用，本次座位变更只在文档中生效
}

// narrate 设置本次变更的旁白日志
func (m *mutation) narrate(private bool, format string, args ...any) {
	m.narration = fmt.Sprintf(format, args...)
	m.private = private
}

// seat 意图所指的座位
func (m *mutation) seat() (*model.Seat, error) {
	s := m.room.Seat(m.intent.SeatID)
	if s == nil {
		return nil, seat.ErrInvalidSeat
	}
	return s, nil
}

// occupiedSeat 意图所指的座位，必须有人
func (m *mutation) occupiedSeat(id int) (*model.Seat, error) {
	s := m.room.Seat(id)
	if s == nil {
		return nil, seat.ErrInvalidSeat
	}
	if s.Occupant == nil {
		return nil, ErrSeatEmpty
	}
	return s, nil
}

// ledgerAvailable 降级中或账本已出错时座位判定在文档上进行
func (m *mutation) ledgerAvailable() bool {
	return !m.ledgerDown && !m.room.Degraded
}

func (m *mutation) ledgerFailed(op string, err error) {
	m.g.logger.Error("Seat ledger unavailable, deciding locally",
		"roomId", m.room.RoomID, "seatId", m.intent.SeatID, "op", op, "error", err)
	m.ledgerDown = true
}

// seatLabel 旁白中的座位描述
func seatLabel(s *model.Seat) string {
	if s.Occupant == nil {
		return fmt.Sprintf("seat %d", s.ID)
	}
	return fmt.Sprintf("seat %d (%s)", s.ID, s.Occupant.DisplayName)
}

// actorName 旁白中的发起者名称
func actorName(room *model.Room, actor Actor) string {
	if room.IsStoryteller(actor.UserID) {
		return "storyteller"
	}
	if actor.DisplayName != "" {
		return actor.DisplayName
	}
	return actor.UserID
}

// refreshSetup 每个有人座位都有身份时为 READY，否则为 ASSIGNING；STARTED 不变
func refreshSetup(room *model.Room) {
	if room.Phase != model.PhaseSetup || room.SetupPhase == model.SetupStarted {
		return
	}
	if rolesComplete(room) {
		room.SetupPhase = model.SetupReady
	} else {
		room.SetupPhase = model.SetupAssigning
	}
}

func rolesComplete(room *model.Room) bool {
	if room.OccupiedCount() == 0 {
		return false
	}
	for i := range room.Seats {
		if room.Seats[i].Occupant != nil && !room.Seats[i].HasRole() {
			return false
		}
	}
	return true
}
