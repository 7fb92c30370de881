package model

import "time"

// VoteOutcome 投票结果
type VoteOutcome string

const (
	OutcomeExecuted  VoteOutcome = "executed"
	OutcomeSurvived  VoteOutcome = "survived"
	OutcomeCancelled VoteOutcome = "cancelled"
)

// Ballot 进行中的投票
type Ballot struct {
	Round           int   `json:"round"`
	NomineeSeatID   int   `json:"nomineeSeatId"`
	NominatorSeatID int   `json:"nominatorSeatId"` // -1 表示说书人直接发起
	ClockHand       int   `json:"clockHand"`
	Votes           []int `json:"votes"`
	GhostVotesSpent []int `json:"ghostVotesSpent"` // 本轮消耗的死亡票，取消时退还
	IsOpen          bool  `json:"isOpen"`
}

// VoteRecord 投票记录
type VoteRecord struct {
	Round         int         `json:"round"`
	NomineeSeatID int         `json:"nomineeSeatId"`
	Votes         []int       `json:"votes"`
	Threshold     int         `json:"threshold"`
	Outcome       VoteOutcome `json:"outcome"`
	At            time.Time   `json:"at"`
}

// ActionKind 夜晚行动类型
type ActionKind string

const (
	ActionNone               ActionKind = ""
	ActionChooseOnePlayer    ActionKind = "choose_one_player"
	ActionChooseTwoPlayers   ActionKind = "choose_two_players"
	ActionBinaryChoice       ActionKind = "binary_choice"
	ActionSimpleConfirmation ActionKind = "simple_confirmation"
)

// NightActionRequest 玩家提交的夜晚行动，等待说书人裁定
type NightActionRequest struct {
	ID          string     `json:"id"`
	SeatID      int        `json:"seatId"`
	RoleID      string     `json:"roleId"`
	Kind        ActionKind `json:"kind"`
	Targets     []int      `json:"targets"`
	Choice      *bool      `json:"choice,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	Resolved    bool       `json:"resolved"`
	Result      string     `json:"result,omitempty"`
}
