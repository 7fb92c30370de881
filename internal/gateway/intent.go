package gateway

import (
	"sudooom.grimoire/internal/model"
)

// IntentType 变更意图类型
type IntentType string

const (
	IntentClaimSeat          IntentType = "CLAIM_SEAT"
	IntentReleaseSeat        IntentType = "RELEASE_SEAT"
	IntentAddVirtual         IntentType = "ADD_VIRTUAL"
	IntentKickSeat           IntentType = "KICK_SEAT"
	IntentSetSeatCount       IntentType = "SET_SEAT_COUNT"
	IntentAssignRole         IntentType = "ASSIGN_ROLE"
	IntentClearRole          IntentType = "CLEAR_ROLE"
	IntentAutoAssign         IntentType = "AUTO_ASSIGN"
	IntentDistributeRoles    IntentType = "DISTRIBUTE_ROLES"
	IntentResetSetup         IntentType = "RESET_SETUP"
	IntentStartGame          IntentType = "START_GAME"
	IntentStartNight         IntentType = "START_NIGHT"
	IntentStartDay           IntentType = "START_DAY"
	IntentNightAdvance       IntentType = "NIGHT_ADVANCE"
	IntentNightRetreat       IntentType = "NIGHT_RETREAT"
	IntentSubmitNightAction  IntentType = "SUBMIT_NIGHT_ACTION"
	IntentResolveNightAction IntentType = "RESOLVE_NIGHT_ACTION"
	IntentNominate           IntentType = "NOMINATE"
	IntentCancelNomination   IntentType = "CANCEL_NOMINATION"
	IntentStartVote          IntentType = "START_VOTE"
	IntentAdvanceClockHand   IntentType = "ADVANCE_CLOCK_HAND"
	IntentCloseVote          IntentType = "CLOSE_VOTE"
	IntentToggleHand         IntentType = "TOGGLE_HAND"
	IntentSetAlive           IntentType = "SET_ALIVE"
	IntentSetAbilityUsed     IntentType = "SET_ABILITY_USED"
	IntentAddStatus          IntentType = "ADD_STATUS"
	IntentRemoveStatus       IntentType = "REMOVE_STATUS"
	IntentAddReminder        IntentType = "ADD_REMINDER"
	IntentRemoveReminder     IntentType = "REMOVE_REMINDER"
	IntentDeclareWinner      IntentType = "DECLARE_WINNER"
	IntentSendMessage        IntentType = "SEND_MESSAGE"
)

// Intent 客户端提交的变更意图
// 各字段按类型选用；SeatID 是意图作用的座位
type Intent struct {
	Type      IntentType `json:"type"`
	RequestID string     `json:"requestId,omitempty"` // 客户端生成，用于重复投递去重

	SeatID          int   `json:"seatId"`
	NominatorSeatID *int  `json:"nominatorSeatId,omitempty"`
	SeatCount       int   `json:"seatCount,omitempty"`
	Targets         []int `json:"targets,omitempty"`
	Choice          *bool `json:"choice,omitempty"`

	RoleID          string `json:"roleId,omitempty"`
	PresentedRoleID string `json:"presentedRoleId,omitempty"`
	DisplayName     string `json:"displayName,omitempty"`

	Alive    *bool           `json:"alive,omitempty"`
	Used     *bool           `json:"used,omitempty"`
	Status   string          `json:"status,omitempty"`
	Reminder *model.Reminder `json:"reminder,omitempty"`
	Index    int             `json:"index,omitempty"`

	ActionID    string     `json:"actionId,omitempty"`
	Result      string     `json:"result,omitempty"`
	Winner      model.Team `json:"winner,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Text        string     `json:"text,omitempty"`
	RecipientID string     `json:"recipientId,omitempty"`
}

// Actor 发起意图的身份（来自令牌，不信任客户端声明的说书人身份）
type Actor struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Status 处理结果状态
type Status string

const (
	StatusApplied   Status = "APPLIED"
	StatusDenied    Status = "DENIED"    // 授权失败，文档不变
	StatusRejected  Status = "REJECTED"  // 前置条件失败，仅写入旁白日志
	StatusContended Status = "CONTENDED" // 座位竞争失败
	StatusDuplicate Status = "DUPLICATE" // 重复投递，未再次应用
)

// Outcome 意图处理结果
type Outcome struct {
	Status   Status `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Version  int64  `json:"version"`
	Degraded bool   `json:"degraded,omitempty"`

	// Room 处理后的房间文档，由边缘层按调用者身份渲染
	Room *model.Room `json:"-"`
}

// Applied 是否已生效
func (o Outcome) Applied() bool {
	return o.Status == StatusApplied
}
