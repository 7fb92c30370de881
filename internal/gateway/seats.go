package gateway

import (
	"fmt"
	"strings"

	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/seat"
)

// ============================================================================
// 座位意图：认领/释放经过座位账本的原子条件更新，再同步到文档
// ============================================================================

func applyClaimSeat(m *mutation) error {
	if m.room.IsStoryteller(m.actor.UserID) {
		return ErrStorytellerSeat
	}
	s, err := m.seat()
	if err != nil {
		return err
	}

	name := strings.TrimSpace(m.actor.DisplayName)
	if name == "" {
		name = "player"
	}
	occupant := model.Occupant{Kind: model.OccupantHuman, UserID: m.actor.UserID, DisplayName: name}
	if err := m.claim(s.ID, occupant); err != nil {
		return err
	}

	s.Occupant = &occupant
	refreshSetup(m.room)
	m.narrate(false, "%s took seat %d", name, s.ID)
	return nil
}

func applyAddVirtual(m *mutation) error {
	s, err := m.seat()
	if err != nil {
		return err
	}

	name := strings.TrimSpace(m.intent.DisplayName)
	if name == "" {
		name = fmt.Sprintf("Virtual %d", s.ID+1)
	}
	occupant := model.Occupant{Kind: model.OccupantVirtual, UserID: "virtual-" + m.g.newID(), DisplayName: name}
	if err := m.claim(s.ID, occupant); err != nil {
		return err
	}

	s.Occupant = &occupant
	refreshSetup(m.room)
	m.narrate(false, "virtual player %s added at seat %d", name, s.ID)
	return nil
}

func applyReleaseSeat(m *mutation) error {
	s, err := m.occupiedSeat(m.intent.SeatID)
	if err != nil {
		return err
	}
	label := seatLabel(s)
	if err := m.release(s, false); err != nil {
		return err
	}

	vacate(s)
	refreshSetup(m.room)
	m.narrate(false, "%s left", label)
	return nil
}

func applyKickSeat(m *mutation) error {
	s, err := m.occupiedSeat(m.intent.SeatID)
	if err != nil {
		return err
	}
	label := seatLabel(s)
	if err := m.release(s, true); err != nil {
		return err
	}

	vacate(s)
	refreshSetup(m.room)
	m.narrate(false, "%s was removed by the storyteller", label)
	return nil
}

func applySetSeatCount(m *mutation) error {
	n := m.intent.SeatCount
	if n < m.g.opts.MinSeats || n > m.g.opts.MaxSeats {
		return ErrInvalidSeatCount
	}
	for i := n; i < len(m.room.Seats); i++ {
		if m.room.Seats[i].Occupant != nil {
			return ErrSeatsOccupied
		}
	}

	if m.ledgerAvailable() {
		res, err := m.g.ledger.Resize(m.ctx, m.room.RoomID, n)
		switch {
		case err != nil:
			m.ledgerFailed("resize", err)
		case res.Reason == seat.ReasonRoomNotFound:
			m.ledgerDown = true
		case !res.OK:
			return ErrSeatsOccupied
		}
	}

	old := len(m.room.Seats)
	if n < old {
		m.room.Seats = m.room.Seats[:n]
	}
	for i := old; i < n; i++ {
		m.room.Seats = append(m.room.Seats, model.NewSeat(i))
	}
	m.narrate(false, "seat count changed from %d to %d", old, n)
	return nil
}

// vacate 清空座位占据者；身份与状态标记留给说书人处理
func vacate(s *model.Seat) {
	s.Occupant = nil
	s.VoteState = model.VoteState{}
}

// claim 在账本上原子认领座位；账本不可用时在文档上判定
func (m *mutation) claim(seatID int, occupant model.Occupant) error {
	if m.ledgerAvailable() {
		res, err := m.g.ledger.Claim(m.ctx, m.room.RoomID, seatID, occupant)
		if err == nil && res.Reason == seat.ReasonRoomNotFound {
			// 账本丢失（过期或重启），按文档重建后重试一次
			err = m.g.ledger.Restore(m.ctx, m.room.RoomID, len(m.room.Seats), seat.OccupantsOf(m.room))
			if err == nil {
				res, err = m.g.ledger.Claim(m.ctx, m.room.RoomID, seatID, occupant)
			}
		}
		if err == nil {
			return res.Err()
		}
		m.ledgerFailed("claim", err)
	}
	return claimLocally(m.room, seatID, occupant.UserID)
}

// release 在账本上释放座位；force 为说书人强制清空
func (m *mutation) release(s *model.Seat, force bool) error {
	if !m.ledgerAvailable() {
		return nil
	}

	var (
		res seat.Result
		err error
	)
	if force {
		res, err = m.g.ledger.ForceRelease(m.ctx, m.room.RoomID, s.ID)
	} else {
		res, err = m.g.ledger.Release(m.ctx, m.room.RoomID, s.ID, s.Occupant.UserID)
	}
	switch {
	case err != nil:
		m.ledgerFailed("release", err)
		return nil
	case res.OK:
		return nil
	case res.Reason == seat.ReasonRoomNotFound, res.Reason == seat.ReasonNotOccupant:
		// 账本与文档不一致，以文档为准并在提交时重建账本
		m.ledgerDown = true
		return nil
	default:
		return res.Err()
	}
}

// claimLocally 与账本相同的判定规则，作用于文档
func claimLocally(room *model.Room, seatID int, userID string) error {
	s := room.Seat(seatID)
	if s == nil {
		return seat.ErrInvalidSeat
	}
	if s.Occupant != nil {
		if s.OccupiedBy(userID) {
			return nil
		}
		return seat.ErrSeatOccupied
	}
	if room.SeatOf(userID) != nil {
		return seat.ErrAlreadySeated
	}
	return nil
}
