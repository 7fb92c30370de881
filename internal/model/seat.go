package model

// OccupantKind 座位占据者类型
type OccupantKind string

const (
	OccupantHuman   OccupantKind = "human"
	OccupantVirtual OccupantKind = "virtual" // 说书人代为操作的虚拟玩家
)

// Occupant 座位占据者
type Occupant struct {
	Kind        OccupantKind `json:"kind"`
	UserID      string       `json:"userId"`
	DisplayName string       `json:"displayName"`
}

// VoteState 投票中的座位状态
type VoteState struct {
	HandRaised bool `json:"handRaised"`
	Locked     bool `json:"locked"`
}

// Reminder 座位提示标记
type Reminder struct {
	Text   string `json:"text"`
	Public bool   `json:"public"`
}

// Seat 座位
// TrueRoleID 是真实身份，PresentedRoleID 是告知占据者的身份，两者可以不同（如酒鬼）
type Seat struct {
	ID              int        `json:"id"`
	Occupant        *Occupant  `json:"occupant,omitempty"`
	IsAlive         bool       `json:"isAlive"`
	HasGhostVote    bool       `json:"hasGhostVote"`
	TrueRoleID      string     `json:"trueRoleId,omitempty"`
	PresentedRoleID string     `json:"presentedRoleId,omitempty"`
	Statuses        []string   `json:"statuses"`
	Reminders       []Reminder `json:"reminders"`
	HasActedAbility bool       `json:"hasActedAbility"`
	VoteState       VoteState  `json:"voteState"`
}

// NewSeat 创建空座位
func NewSeat(id int) Seat {
	return Seat{
		ID:           id,
		IsAlive:      true,
		HasGhostVote: true,
		Statuses:     []string{},
		Reminders:    []Reminder{},
	}
}

// OccupiedBy 判断座位是否由指定用户占据
func (s *Seat) OccupiedBy(userID string) bool {
	return userID != "" && s.Occupant != nil && s.Occupant.UserID == userID
}

// HasRole 座位是否已分配身份
func (s *Seat) HasRole() bool {
	return s.TrueRoleID != ""
}

// CanVote 存活或仍持有死亡票
func (s *Seat) CanVote() bool {
	return s.IsAlive || s.HasGhostVote
}

// HasStatus 判断是否带有某状态
func (s *Seat) HasStatus(status string) bool {
	for _, st := range s.Statuses {
		if st == status {
			return true
		}
	}
	return false
}
