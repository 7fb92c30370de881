package gateway

import (
	"slices"

	"sudooom.grimoire/internal/model"
)

// capability 发起者需要具备的身份
type capability int

const (
	capMember      capability = iota // 任意已识别用户
	capOccupant                      // 意图所指座位的占据者（虚拟座位由说书人代为操作）
	capStoryteller                   // 说书人
)

// setupGate 准备阶段子状态的限制
type setupGate int

const (
	setupAny     setupGate = iota
	setupOpen              // 身份尚未发放（setupPhase != STARTED）
	setupStarted           // 身份已发放
)

// policy 意图的授权规则与执行函数
type policy struct {
	capability capability
	phases     []model.Phase // 为空表示不限阶段
	setup      setupGate
	afterOver  bool // 游戏结束后仍允许
	apply      func(m *mutation) error
}

var (
	anyPhase   []model.Phase
	setupOnly  = []model.Phase{model.PhaseSetup}
	inPlay     = []model.Phase{model.PhaseNight, model.PhaseDay, model.PhaseNomination, model.PhaseVoting}
	dayOrNomin = []model.Phase{model.PhaseDay, model.PhaseNomination}
)

// policies 意图授权表，授权判断只在这里
// 执行函数内的检查（如提名、开启投票时座位是否有人）属于前置条件，失败返回 REJECTED 而非 DENIED
var policies = map[IntentType]policy{
	IntentClaimSeat:   {capability: capMember, phases: anyPhase, afterOver: true, apply: applyClaimSeat},
	IntentReleaseSeat: {capability: capOccupant, phases: anyPhase, afterOver: true, apply: applyReleaseSeat},
	IntentAddVirtual:  {capability: capStoryteller, phases: setupOnly, setup: setupOpen, apply: applyAddVirtual},
	IntentKickSeat:    {capability: capStoryteller, phases: anyPhase, afterOver: true, apply: applyKickSeat},

	IntentSetSeatCount:    {capability: capStoryteller, phases: setupOnly, setup: setupOpen, apply: applySetSeatCount},
	IntentAssignRole:      {capability: capStoryteller, phases: setupOnly, setup: setupOpen, apply: applyAssignRole},
	IntentClearRole:       {capability: capStoryteller, phases: setupOnly, setup: setupOpen, apply: applyClearRole},
	IntentAutoAssign:      {capability: capStoryteller, phases: setupOnly, setup: setupOpen, apply: applyAutoAssign},
	IntentDistributeRoles: {capability: capStoryteller, phases: setupOnly, setup: setupOpen, apply: applyDistributeRoles},
	IntentResetSetup:      {capability: capStoryteller, phases: anyPhase, afterOver: true, apply: applyResetSetup},
	IntentStartGame:       {capability: capStoryteller, phases: setupOnly, setup: setupStarted, apply: applyStartGame},

	IntentStartNight:         {capability: capStoryteller, phases: []model.Phase{model.PhaseDay}, apply: applyStartNight},
	IntentStartDay:           {capability: capStoryteller, phases: []model.Phase{model.PhaseNight}, apply: applyStartDay},
	IntentNightAdvance:       {capability: capStoryteller, phases: []model.Phase{model.PhaseNight}, apply: applyNightAdvance},
	IntentNightRetreat:       {capability: capStoryteller, phases: []model.Phase{model.PhaseNight}, apply: applyNightRetreat},
	IntentSubmitNightAction:  {capability: capOccupant, phases: []model.Phase{model.PhaseNight}, apply: applySubmitNightAction},
	IntentResolveNightAction: {capability: capStoryteller, phases: inPlay, apply: applyResolveNightAction},

	IntentNominate:         {capability: capStoryteller, phases: []model.Phase{model.PhaseDay}, apply: applyNominate},
	IntentCancelNomination: {capability: capStoryteller, phases: []model.Phase{model.PhaseNomination}, apply: applyCancelNomination},
	IntentStartVote:        {capability: capStoryteller, phases: dayOrNomin, apply: applyStartVote},
	IntentAdvanceClockHand: {capability: capStoryteller, phases: []model.Phase{model.PhaseVoting}, apply: applyAdvanceClockHand},
	IntentCloseVote:        {capability: capStoryteller, phases: []model.Phase{model.PhaseVoting}, apply: applyCloseVote},
	IntentToggleHand:       {capability: capOccupant, phases: []model.Phase{model.PhaseVoting}, apply: applyToggleHand},

	IntentSetAlive:       {capability: capStoryteller, phases: inPlay, apply: applySetAlive},
	IntentSetAbilityUsed: {capability: capStoryteller, phases: anyPhase, apply: applySetAbilityUsed},
	IntentAddStatus:      {capability: capStoryteller, phases: anyPhase, apply: applyAddStatus},
	IntentRemoveStatus:   {capability: capStoryteller, phases: anyPhase, apply: applyRemoveStatus},
	IntentAddReminder:    {capability: capStoryteller, phases: anyPhase, apply: applyAddReminder},
	IntentRemoveReminder: {capability: capStoryteller, phases: anyPhase, apply: applyRemoveReminder},
	IntentDeclareWinner:  {capability: capStoryteller, phases: inPlay, apply: applyDeclareWinner},

	IntentSendMessage: {capability: capMember, phases: anyPhase, afterOver: true, apply: applySendMessage},
}

// authorize 按授权表检查发起者身份、阶段与准备子状态
func authorize(room *model.Room, actor Actor, p policy, intent Intent) error {
	if actor.UserID == "" {
		return ErrNoIdentity
	}

	switch p.capability {
	case capStoryteller:
		if !room.IsStoryteller(actor.UserID) {
			return ErrNotStoryteller
		}
	case capOccupant:
		s := room.Seat(intent.SeatID)
		if s == nil || s.Occupant == nil {
			return ErrNotOccupant
		}
		proxy := s.Occupant.Kind == model.OccupantVirtual && room.IsStoryteller(actor.UserID)
		if !s.OccupiedBy(actor.UserID) && !proxy {
			return ErrNotOccupant
		}
	}

	if len(p.phases) > 0 && !slices.Contains(p.phases, room.Phase) {
		return ErrWrongPhase
	}

	switch p.setup {
	case setupOpen:
		if room.SetupPhase == model.SetupStarted {
			return ErrRolesDistributed
		}
	case setupStarted:
		if room.SetupPhase != model.SetupStarted {
			return ErrRolesNotDealt
		}
	}

	if room.IsOver() && !p.afterOver {
		return ErrGameOver
	}
	return nil
}
