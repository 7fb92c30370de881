package gateway

import (
	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/night"
)

// ============================================================================
// 准备阶段：身份分配、发放、开局与重置
// ============================================================================

func applyAssignRole(m *mutation) error {
	s, err := m.seat()
	if err != nil {
		return err
	}

	roleID := m.intent.RoleID
	role, ok := m.g.catalog.Role(roleID)
	if !ok || role.Pseudo || !m.g.catalog.InScript(m.room.ScriptID, roleID) {
		return ErrInvalidRole
	}
	presented := m.intent.PresentedRoleID
	if presented == "" {
		presented = roleID
	}
	if !m.g.catalog.ValidPresentation(roleID, presented) {
		return ErrInvalidPresentation
	}

	s.TrueRoleID = roleID
	s.PresentedRoleID = presented
	refreshSetup(m.room)
	if presented != roleID {
		m.narrate(true, "%s assigned %s (shown as %s)", seatLabel(s), roleID, presented)
	} else {
		m.narrate(true, "%s assigned %s", seatLabel(s), roleID)
	}
	return nil
}

func applyClearRole(m *mutation) error {
	s, err := m.seat()
	if err != nil {
		return err
	}
	s.TrueRoleID = ""
	s.PresentedRoleID = ""
	refreshSetup(m.room)
	m.narrate(true, "%s role cleared", seatLabel(s))
	return nil
}

// applyAutoAssign 按人数配置随机分配身份给所有有人座位
func applyAutoAssign(m *mutation) error {
	players := m.room.OccupiedCount()
	if players < m.g.opts.MinSeats {
		return ErrNotEnoughPlayers
	}
	assignments, err := m.g.catalog.Compose(m.room.ScriptID, players, m.g.newRand())
	if err != nil {
		return err
	}

	next := 0
	for i := range m.room.Seats {
		s := &m.room.Seats[i]
		if s.Occupant == nil {
			continue
		}
		s.TrueRoleID = assignments[next].TrueRoleID
		s.PresentedRoleID = assignments[next].PresentedRoleID
		next++
	}
	refreshSetup(m.room)
	m.narrate(true, "roles auto-assigned for %d players", players)
	return nil
}

func applyDistributeRoles(m *mutation) error {
	if !rolesComplete(m.room) {
		return ErrRolesMissing
	}
	m.room.SetupPhase = model.SetupStarted
	m.narrate(false, "roles distributed")
	return nil
}

// applyResetSetup 回到准备阶段，清空对局状态，保留座位占据者与身份
func applyResetSetup(m *mutation) error {
	r := m.room
	r.Phase = model.PhaseSetup
	r.SetupPhase = model.SetupAssigning
	r.NightQueue = []string{}
	r.NightCursor = model.NightNotBegun
	r.NightNumber = 0
	r.PendingActions = []model.NightActionRequest{}
	r.Nomination = nil
	r.Voting = nil
	r.NominationCount = 0
	r.VoteHistory = []model.VoteRecord{}
	r.GameOver = nil
	r.Archived = false

	for i := range r.Seats {
		s := &r.Seats[i]
		s.IsAlive = true
		s.HasGhostVote = true
		s.Statuses = []string{}
		s.Reminders = []model.Reminder{}
		s.HasActedAbility = false
		s.VoteState = model.VoteState{}
	}
	refreshSetup(r)
	m.narrate(false, "setup reset")
	return nil
}

func applyStartGame(m *mutation) error {
	if m.room.OccupiedCount() < m.g.opts.MinSeats {
		return ErrNotEnoughPlayers
	}
	if !rolesComplete(m.room) {
		return ErrRolesMissing
	}
	night.Start(m.room, m.g.catalog)
	m.narrate(false, "the game begins: night %d falls", m.room.NightNumber)
	return nil
}
