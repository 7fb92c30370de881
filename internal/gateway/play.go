package gateway

import (
	"strings"
	"unicode/utf8"

	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/night"
	"sudooom.grimoire/internal/voting"
)

const maxMessageLength = 500

// ============================================================================
// 夜晚
// ============================================================================

func applyStartNight(m *mutation) error {
	night.Start(m.room, m.g.catalog)
	m.narrate(false, "night %d falls", m.room.NightNumber)
	return nil
}

func applyStartDay(m *mutation) error {
	night.Finish(m.room)
	m.narrate(false, "day breaks")
	return nil
}

func applyNightAdvance(m *mutation) error {
	night.Advance(m.room)
	m.narrateCursor()
	return nil
}

func applyNightRetreat(m *mutation) error {
	night.Retreat(m.room)
	m.narrateCursor()
	return nil
}

func (m *mutation) narrateCursor() {
	if roleID, ok := night.Current(m.room); ok {
		m.narrate(true, "night step %d: %s", m.room.NightCursor+1, roleID)
		return
	}
	m.narrate(true, "night steps complete")
}

func applySubmitNightAction(m *mutation) error {
	sub := night.Submission{Targets: m.intent.Targets, Choice: m.intent.Choice}
	req, err := night.Submit(m.room, m.intent.SeatID, sub, m.g.catalog, m.g.newID(), m.now)
	if err != nil {
		return err
	}
	m.narrate(true, "seat %d submitted %s action %v", req.SeatID, req.RoleID, req.Targets)
	return nil
}

func applyResolveNightAction(m *mutation) error {
	result := strings.TrimSpace(m.intent.Result)
	if result == "" {
		return ErrEmptyText
	}
	req, err := night.Resolve(m.room, m.intent.ActionID, result, m.g.catalog, m.g.newID(), m.now)
	if err != nil {
		return err
	}
	m.narrate(true, "%s action of seat %d resolved: %s", req.RoleID, req.SeatID, result)
	return nil
}

// ============================================================================
// 提名与投票
// ============================================================================

func applyNominate(m *mutation) error {
	nominee, err := m.occupiedSeat(m.intent.SeatID)
	if err != nil {
		return err
	}
	nominator := voting.NoNominator
	if m.intent.NominatorSeatID != nil {
		s, err := m.occupiedSeat(*m.intent.NominatorSeatID)
		if err != nil {
			return err
		}
		nominator = s.ID
	}

	m.room.Nomination = &model.Nomination{NominatorSeatID: nominator, NomineeSeatID: nominee.ID}
	m.room.Phase = model.PhaseNomination
	if nominator == voting.NoNominator {
		m.narrate(false, "%s is nominated", seatLabel(nominee))
	} else {
		m.narrate(false, "%s nominates %s", seatLabel(&m.room.Seats[nominator]), seatLabel(nominee))
	}
	return nil
}

func applyCancelNomination(m *mutation) error {
	m.room.Nomination = nil
	m.room.Phase = model.PhaseDay
	m.narrate(false, "nomination cancelled")
	return nil
}

// applyStartVote 对当前提名（或意图指定的座位）开启投票
func applyStartVote(m *mutation) error {
	nominee, nominator := m.intent.SeatID, voting.NoNominator
	if n := m.room.Nomination; n != nil {
		nominee, nominator = n.NomineeSeatID, n.NominatorSeatID
	} else if m.room.Seat(nominee) == nil {
		return ErrNoNominee
	}

	ballot, err := voting.Start(m.room, nominee, nominator)
	if err != nil {
		return err
	}
	m.narrate(false, "vote on %s begins, %d votes needed",
		seatLabel(&m.room.Seats[ballot.NomineeSeatID]), voting.Threshold(m.room))
	return nil
}

func applyAdvanceClockHand(m *mutation) error {
	if m.room.Voting == nil {
		return voting.ErrNoBallot
	}
	hand := m.room.Voting.ClockHand
	rec, err := voting.AdvanceClockHand(m.room, m.now)
	if err != nil {
		return err
	}
	if rec != nil {
		m.narrate(false, "vote on seat %d: %d of %d needed, %s",
			rec.NomineeSeatID, len(rec.Votes), rec.Threshold, rec.Outcome)
		return nil
	}
	m.narrate(false, "clock hand passes seat %d", hand)
	return nil
}

func applyCloseVote(m *mutation) error {
	rec, err := voting.Close(m.room, m.now)
	if err != nil {
		return err
	}
	m.narrate(false, "vote on seat %d cancelled", rec.NomineeSeatID)
	return nil
}

func applyToggleHand(m *mutation) error {
	raised, err := voting.ToggleHand(m.room, m.intent.SeatID)
	if err != nil {
		return err
	}
	if raised {
		m.narrate(false, "seat %d raised a hand", m.intent.SeatID)
	} else {
		m.narrate(false, "seat %d lowered a hand", m.intent.SeatID)
	}
	return nil
}

// ============================================================================
// 说书人标记
// ============================================================================

func applySetAlive(m *mutation) error {
	if m.intent.Alive == nil {
		return ErrMissingField
	}
	s, err := m.occupiedSeat(m.intent.SeatID)
	if err != nil {
		return err
	}
	s.IsAlive = *m.intent.Alive
	if s.IsAlive {
		m.narrate(false, "%s returns to life", seatLabel(s))
	} else {
		m.narrate(false, "%s died", seatLabel(s))
	}
	return nil
}

func applySetAbilityUsed(m *mutation) error {
	if m.intent.Used == nil {
		return ErrMissingField
	}
	s, err := m.seat()
	if err != nil {
		return err
	}
	s.HasActedAbility = *m.intent.Used
	m.narrate(true, "%s ability used: %t", seatLabel(s), s.HasActedAbility)
	return nil
}

func applyAddStatus(m *mutation) error {
	status := strings.TrimSpace(m.intent.Status)
	if status == "" {
		return ErrInvalidStatus
	}
	s, err := m.seat()
	if err != nil {
		return err
	}
	if !s.HasStatus(status) {
		s.Statuses = append(s.Statuses, status)
	}
	m.narrate(true, "%s is now %s", seatLabel(s), status)
	return nil
}

func applyRemoveStatus(m *mutation) error {
	s, err := m.seat()
	if err != nil {
		return err
	}
	status := strings.TrimSpace(m.intent.Status)
	if !s.HasStatus(status) {
		return ErrInvalidStatus
	}
	kept := s.Statuses[:0]
	for _, st := range s.Statuses {
		if st != status {
			kept = append(kept, st)
		}
	}
	s.Statuses = kept
	m.narrate(true, "%s is no longer %s", seatLabel(s), status)
	return nil
}

func applyAddReminder(m *mutation) error {
	rem := m.intent.Reminder
	if rem == nil || strings.TrimSpace(rem.Text) == "" {
		return ErrEmptyText
	}
	s, err := m.seat()
	if err != nil {
		return err
	}
	s.Reminders = append(s.Reminders, model.Reminder{Text: strings.TrimSpace(rem.Text), Public: rem.Public})
	m.narrate(!rem.Public, "reminder on %s: %s", seatLabel(s), rem.Text)
	return nil
}

func applyRemoveReminder(m *mutation) error {
	s, err := m.seat()
	if err != nil {
		return err
	}
	i := m.intent.Index
	if i < 0 || i >= len(s.Reminders) {
		return ErrReminderNotFound
	}
	removed := s.Reminders[i]
	s.Reminders = append(s.Reminders[:i], s.Reminders[i+1:]...)
	m.narrate(!removed.Public, "reminder removed from %s: %s", seatLabel(s), removed.Text)
	return nil
}

func applyDeclareWinner(m *mutation) error {
	winner := m.intent.Winner
	if winner != model.TeamGood && winner != model.TeamEvil {
		return ErrInvalidWinner
	}
	reason := strings.TrimSpace(m.intent.Reason)
	if reason == "" {
		reason = "declared by the storyteller"
	}
	cancelOpenBallot(m.room, m.now)
	m.room.GameOver = &model.GameOver{Winner: winner, Reason: reason, At: m.now}
	m.narrate(false, "game over: %s wins (%s)", winner, reason)
	return nil
}

// ============================================================================
// 消息
// ============================================================================

// applySendMessage 公开消息或私信；私信对象只能是说书人或座位占据者
func applySendMessage(m *mutation) error {
	text := strings.TrimSpace(m.intent.Text)
	if text == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return ErrTextTooLong
	}
	recipient := m.intent.RecipientID
	if recipient != "" && !m.room.IsStoryteller(recipient) && m.room.SeatOf(recipient) == nil {
		return ErrUnknownRecipient
	}

	sender := actorName(m.room, m.actor)
	if m.room.IsStoryteller(m.actor.UserID) {
		sender = m.room.StorytellerName
	}
	m.room.Messages = append(m.room.Messages, model.Message{
		ID:          m.g.newID(),
		Kind:        model.MessageChat,
		SenderID:    m.actor.UserID,
		SenderName:  sender,
		RecipientID: recipient,
		Text:        text,
		At:          m.now,
	})
	m.narrate(true, "%s sent a message", sender)
	return nil
}
