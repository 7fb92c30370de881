// Package voting 投票状态机
//
// 时钟指针从被提名者的下一个座位开始逐个轮询，最后轮询被提名者本人；
// 指针处理完被提名者的座位即完成一圈并自动结算。
package voting

import (
	"errors"
	"time"

	"sudooom.grimoire/internal/model"
)

var (
	ErrNoBallot       = errors.New("NO_ACTIVE_VOTE")
	ErrInvalidNominee = errors.New("INVALID_NOMINEE")
	ErrBallotClosed   = errors.New("VOTE_CLOSED")
	ErrInvalidSeat    = errors.New("INVALID_SEAT")
	ErrSeatLocked     = errors.New("SEAT_LOCKED")
	ErrNoVoteLeft     = errors.New("NO_VOTE_LEFT")
)

// NoNominator 说书人直接发起投票
const NoNominator = -1

// Threshold 处决所需票数：存活且有人的座位数（含虚拟玩家）过半
func Threshold(room *model.Room) int {
	return room.AliveCount()/2 + 1
}

// Start 对被提名者开启一轮投票
func Start(room *model.Room, nomineeSeatID, nominatorSeatID int) (*model.Ballot, error) {
	nominee := room.Seat(nomineeSeatID)
	if nominee == nil || nominee.Occupant == nil || !nominee.CanVote() {
		return nil, ErrInvalidNominee
	}
	if nominatorSeatID != NoNominator {
		if s := room.Seat(nominatorSeatID); s == nil || s.Occupant == nil {
			return nil, ErrInvalidSeat
		}
	}

	room.ClearVoteFlags()
	room.NominationCount++
	room.Nomination = nil
	room.Voting = &model.Ballot{
		Round:           room.NominationCount,
		NomineeSeatID:   nomineeSeatID,
		NominatorSeatID: nominatorSeatID,
		ClockHand:       (nomineeSeatID + 1) % len(room.Seats),
		Votes:           []int{},
		GhostVotesSpent: []int{},
		IsOpen:          true,
	}
	room.Phase = model.PhaseVoting
	return room.Voting, nil
}

// AdvanceClockHand 处理指针下的座位并前移
// 举手的座位计入票数，死亡座位同时消耗死亡票；无论是否举手座位都会被锁定。
// 处理完被提名者后自动结算，返回投票记录。
func AdvanceClockHand(room *model.Room, now time.Time) (*model.VoteRecord, error) {
	b := room.Voting
	if b == nil || !b.IsOpen {
		return nil, ErrNoBallot
	}

	seat := room.Seat(b.ClockHand)
	if seat != nil && !seat.VoteState.Locked {
		if seat.Occupant != nil && seat.VoteState.HandRaised && seat.CanVote() {
			b.Votes = append(b.Votes, seat.ID)
			if !seat.IsAlive {
				seat.HasGhostVote = false
				b.GhostVotesSpent = append(b.GhostVotesSpent, seat.ID)
			}
		}
		seat.VoteState.Locked = true
	}

	if b.ClockHand == b.NomineeSeatID {
		return resolve(room, now), nil
	}
	b.ClockHand = (b.ClockHand + 1) % len(room.Seats)
	return nil, nil
}

func resolve(room *model.Room, now time.Time) *model.VoteRecord {
	b := room.Voting
	threshold := Threshold(room)
	outcome := model.OutcomeSurvived
	if len(b.Votes) >= threshold {
		outcome = model.OutcomeExecuted
	}
	return finish(room, threshold, outcome, now)
}

// Close 手动取消投票：退还本轮消耗的死亡票并记录为 cancelled
func Close(room *model.Room, now time.Time) (*model.VoteRecord, error) {
	b := room.Voting
	if b == nil {
		return nil, ErrNoBallot
	}
	for _, id := range b.GhostVotesSpent {
		if s := room.Seat(id); s != nil {
			s.HasGhostVote = true
		}
	}
	return finish(room, Threshold(room), model.OutcomeCancelled, now), nil
}

func finish(room *model.Room, threshold int, outcome model.VoteOutcome, now time.Time) *model.VoteRecord {
	b := room.Voting
	rec := model.VoteRecord{
		Round:         b.Round,
		NomineeSeatID: b.NomineeSeatID,
		Votes:         append([]int{}, b.Votes...),
		Threshold:     threshold,
		Outcome:       outcome,
		At:            now,
	}
	room.VoteHistory = append(room.VoteHistory, rec)
	room.Voting = nil
	room.ClearVoteFlags()
	room.Phase = model.PhaseDay
	return &room.VoteHistory[len(room.VoteHistory)-1]
}

// ToggleHand 座位占据者举手/放下
func ToggleHand(room *model.Room, seatID int) (bool, error) {
	b := room.Voting
	if b == nil || !b.IsOpen {
		return false, ErrBallotClosed
	}
	seat := room.Seat(seatID)
	if seat == nil || seat.Occupant == nil {
		return false, ErrInvalidSeat
	}
	if seat.VoteState.Locked {
		return false, ErrSeatLocked
	}
	if !seat.CanVote() {
		return false, ErrNoVoteLeft
	}
	seat.VoteState.HandRaised = !seat.VoteState.HandRaised
	return seat.VoteState.HandRaised, nil
}
