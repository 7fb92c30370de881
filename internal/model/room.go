package model

import "time"

// Phase 房间当前阶段
type Phase string

const (
	PhaseSetup      Phase = "SETUP"
	PhaseNight      Phase = "NIGHT"
	PhaseDay        Phase = "DAY"
	PhaseNomination Phase = "NOMINATION"
	PhaseVoting     Phase = "VOTING"
)

// SetupPhase 准备阶段子状态，STARTED 之后只能通过 RESET_SETUP 回退
type SetupPhase string

const (
	SetupAssigning SetupPhase = "ASSIGNING"
	SetupReady     SetupPhase = "READY"
	SetupStarted   SetupPhase = "STARTED"
)

// Team 阵营
type Team string

const (
	TeamGood Team = "good"
	TeamEvil Team = "evil"
)

// NightNotBegun 夜晚尚未开始时的游标值
const NightNotBegun = -1

// Room 房间文档（唯一权威状态，整体以 JSON 持久化并广播）
type Room struct {
	RoomID          string               `json:"roomId"`          // 房间码（人工输入的短码）
	ScriptID        string               `json:"scriptId"`        // 剧本ID
	StorytellerID   string               `json:"storytellerId"`   // 说书人用户ID
	StorytellerName string               `json:"storytellerName"` // 说书人昵称
	Phase           Phase                `json:"phase"`           // 当前阶段
	SetupPhase      SetupPhase           `json:"setupPhase"`      // 准备阶段子状态
	Seats           []Seat               `json:"seats"`           // 座位（下标即座位ID）
	NightQueue      []string             `json:"nightQueue"`      // 本夜行动角色队列
	NightCursor     int                  `json:"nightCursor"`     // 夜晚游标，-1 表示未开始
	NightNumber     int                  `json:"nightNumber"`     // 已开始的夜晚数
	PendingActions  []NightActionRequest `json:"pendingActions"`  // 待说书人处理的夜晚行动
	Nomination      *Nomination          `json:"nomination,omitempty"`
	Voting          *Ballot              `json:"voting,omitempty"` // 仅在 VOTING 阶段存在
	NominationCount int                  `json:"nominationCount"`
	VoteHistory     []VoteRecord         `json:"voteHistory"`
	Messages        []Message            `json:"messages"`
	Log             []LogEntry           `json:"log"`
	GameOver        *GameOver            `json:"gameOver,omitempty"`
	Archived        bool                 `json:"archived"`
	Degraded        bool                 `json:"degraded"` // 持久化/广播不可用，仅本地生效
	Version         int64                `json:"version"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// Nomination 提名（NOMINATION 阶段）
type Nomination struct {
	NominatorSeatID int `json:"nominatorSeatId"`
	NomineeSeatID   int `json:"nomineeSeatId"`
}

// GameOver 游戏结束信息
type GameOver struct {
	Winner Team      `json:"winner"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// NewRoom 创建空房间文档
func NewRoom(roomID, scriptID, storytellerID, storytellerName string, seatCount int, now time.Time) *Room {
	seats := make([]Seat, seatCount)
	for i := range seats {
		seats[i] = NewSeat(i)
	}
	return &Room{
		RoomID:          roomID,
		ScriptID:        scriptID,
		StorytellerID:   storytellerID,
		StorytellerName: storytellerName,
		Phase:           PhaseSetup,
		SetupPhase:      SetupAssigning,
		Seats:           seats,
		NightQueue:      []string{},
		NightCursor:     NightNotBegun,
		PendingActions:  []NightActionRequest{},
		VoteHistory:     []VoteRecord{},
		Messages:        []Message{},
		Log:             []LogEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsStoryteller 判断用户是否为说书人
func (r *Room) IsStoryteller(userID string) bool {
	return userID != "" && r.StorytellerID == userID
}

// Seat 按ID获取座位，越界返回 nil
func (r *Room) Seat(id int) *Seat {
	if id < 0 || id >= len(r.Seats) {
		return nil
	}
	return &r.Seats[id]
}

// SeatOf 查找用户占据的座位
func (r *Room) SeatOf(userID string) *Seat {
	if userID == "" {
		return nil
	}
	for i := range r.Seats {
		if r.Seats[i].OccupiedBy(userID) {
			return &r.Seats[i]
		}
	}
	return nil
}

// OccupiedCount 已被占据的座位数
func (r *Room) OccupiedCount() int {
	n := 0
	for i := range r.Seats {
		if r.Seats[i].Occupant != nil {
			n++
		}
	}
	return n
}

// AliveCount 存活且有人的座位数（含虚拟玩家）
func (r *Room) AliveCount() int {
	n := 0
	for i := range r.Seats {
		if r.Seats[i].Occupant != nil && r.Seats[i].IsAlive {
			n++
		}
	}
	return n
}

// IsOver 游戏是否已结束
func (r *Room) IsOver() bool {
	return r.GameOver != nil
}

// AppendLog 追加旁白日志
func (r *Room) AppendLog(text string, private bool, now time.Time) {
	seq := 1
	if n := len(r.Log); n > 0 {
		seq = r.Log[n-1].Seq + 1
	}
	r.Log = append(r.Log, LogEntry{Seq: seq, Text: text, Private: private, At: now})
}

// ClearVoteFlags 清除所有座位的举手/锁定标记
func (r *Room) ClearVoteFlags() {
	for i := range r.Seats {
		r.Seats[i].VoteState = VoteState{}
	}
}

// LogEntry 旁白/审计日志
type LogEntry struct {
	Seq     int       `json:"seq"`
	Text    string    `json:"text"`
	Private bool      `json:"private"` // 仅说书人可见
	At      time.Time `json:"at"`
}
