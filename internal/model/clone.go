package model

// Clone 深拷贝房间文档
// 网关在副本上执行变更，校验失败时原文档保持不变
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r

	c.Seats = make([]Seat, len(r.Seats))
	for i := range r.Seats {
		c.Seats[i] = r.Seats[i].clone()
	}
	c.NightQueue = append([]string{}, r.NightQueue...)
	c.PendingActions = make([]NightActionRequest, len(r.PendingActions))
	for i, req := range r.PendingActions {
		req.Targets = append([]int{}, req.Targets...)
		if req.Choice != nil {
			v := *req.Choice
			req.Choice = &v
		}
		c.PendingActions[i] = req
	}
	if r.Nomination != nil {
		n := *r.Nomination
		c.Nomination = &n
	}
	if r.Voting != nil {
		b := *r.Voting
		b.Votes = append([]int{}, r.Voting.Votes...)
		b.GhostVotesSpent = append([]int{}, r.Voting.GhostVotesSpent...)
		c.Voting = &b
	}
	c.VoteHistory = make([]VoteRecord, len(r.VoteHistory))
	for i, rec := range r.VoteHistory {
		rec.Votes = append([]int{}, rec.Votes...)
		c.VoteHistory[i] = rec
	}
	c.Messages = append([]Message{}, r.Messages...)
	c.Log = append([]LogEntry{}, r.Log...)
	if r.GameOver != nil {
		g := *r.GameOver
		c.GameOver = &g
	}
	return &c
}

func (s Seat) clone() Seat {
	if s.Occupant != nil {
		o := *s.Occupant
		s.Occupant = &o
	}
	s.Statuses = append([]string{}, s.Statuses...)
	s.Reminders = append([]Reminder{}, s.Reminders...)
	return s
}
