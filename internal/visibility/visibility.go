// Package visibility 按观看者身份裁剪房间文档
//
// Apply 是纯函数：不修改输入文档，对任何观看者（包括没有座位的旁观者）都返回结果。
// 非说书人永远拿不到任何座位的真实身份，唯一例外是带 sees_grimoire 标记的角色。
package visibility

import (
	"time"

	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/night"
)

// Viewer 观看者描述，随视图一起下发给客户端
type Viewer struct {
	UserID        string `json:"userId"`
	SeatID        int    `json:"seatId"` // -1 表示旁观者
	IsStoryteller bool   `json:"isStoryteller"`
	SeesGrimoire  bool   `json:"seesGrimoire"`
}

// SeatView 座位投影
// 机密字段使用 omitempty，被裁剪时不会出现在 JSON 中
type SeatView struct {
	ID              int              `json:"id"`
	Occupant        *model.Occupant  `json:"occupant,omitempty"`
	IsAlive         bool             `json:"isAlive"`
	HasGhostVote    bool             `json:"hasGhostVote"`
	TrueRoleID      string           `json:"trueRoleId,omitempty"`
	PresentedRoleID string           `json:"presentedRoleId,omitempty"`
	Statuses        []string         `json:"statuses,omitempty"`
	HasActedAbility *bool            `json:"hasActedAbility,omitempty"`
	Reminders       []model.Reminder `json:"reminders"`
	VoteState       model.VoteState  `json:"voteState"`
}

// View 观看者可见的房间视图
type View struct {
	RoomID          string                     `json:"roomId"`
	ScriptID        string                     `json:"scriptId"`
	StorytellerName string                     `json:"storytellerName"`
	Phase           model.Phase                `json:"phase"`
	SetupPhase      model.SetupPhase           `json:"setupPhase"`
	Seats           []SeatView                 `json:"seats"`
	NightActive     bool                       `json:"nightActive"`
	NightCursor     int                        `json:"nightCursor"`
	NightNumber     int                        `json:"nightNumber"`
	NightQueue      []string                   `json:"nightQueue,omitempty"`
	YourTurn        bool                       `json:"yourTurn"`
	PendingActions  []model.NightActionRequest `json:"pendingActions"`
	Nomination      *model.Nomination          `json:"nomination,omitempty"`
	Voting          *model.Ballot              `json:"voting,omitempty"`
	NominationCount int                        `json:"nominationCount"`
	VoteHistory     []model.VoteRecord         `json:"voteHistory"`
	Messages        []model.Message            `json:"messages"`
	Log             []model.LogEntry           `json:"log"`
	GameOver        *model.GameOver            `json:"gameOver,omitempty"`
	Degraded        bool                       `json:"degraded,omitempty"`
	Version         int64                      `json:"version"`
	UpdatedAt       time.Time                  `json:"updatedAt"`
	Viewer          Viewer                     `json:"viewer"`
}

// Roles 过滤所需的角色元数据
type Roles interface {
	night.Roles
	SeesGrimoire(roleID string) bool
}

// Filter 可见性过滤器
type Filter struct {
	roles Roles
}

// New 创建过滤器
func New(roles Roles) *Filter {
	return &Filter{roles: roles}
}

// Apply 生成观看者视图
func (f *Filter) Apply(doc *model.Room, viewerID string, isStoryteller bool) View {
	doc = doc.Clone()

	viewer := f.describe(doc, viewerID, isStoryteller)
	own := doc.SeatOf(viewerID)

	v := View{
		RoomID:          doc.RoomID,
		ScriptID:        doc.ScriptID,
		StorytellerName: doc.StorytellerName,
		Phase:           doc.Phase,
		SetupPhase:      doc.SetupPhase,
		Seats:           make([]SeatView, len(doc.Seats)),
		NightActive:     doc.Phase == model.PhaseNight,
		NightCursor:     doc.NightCursor,
		NightNumber:     doc.NightNumber,
		Nomination:      doc.Nomination,
		Voting:          doc.Voting,
		NominationCount: doc.NominationCount,
		VoteHistory:     doc.VoteHistory,
		GameOver:        doc.GameOver,
		Version:         doc.Version,
		UpdatedAt:       doc.UpdatedAt,
		Viewer:          viewer,
	}

	if isStoryteller {
		for i := range doc.Seats {
			v.Seats[i] = fullSeat(&doc.Seats[i])
		}
		v.NightQueue = doc.NightQueue
		v.PendingActions = doc.PendingActions
		v.Messages = doc.Messages
		v.Log = doc.Log
		v.Degraded = doc.Degraded
		return v
	}

	for i := range doc.Seats {
		s := &doc.Seats[i]
		switch {
		case own != nil && s.ID == own.ID:
			v.Seats[i] = ownSeat(s, viewer.SeesGrimoire)
		case viewer.SeesGrimoire:
			sv := publicSeat(s)
			sv.TrueRoleID = s.TrueRoleID
			sv.PresentedRoleID = s.PresentedRoleID
			v.Seats[i] = sv
		default:
			v.Seats[i] = publicSeat(s)
		}
	}

	v.YourTurn = own != nil && night.ActsNow(doc, own, f.roles)
	v.PendingActions = []model.NightActionRequest{}
	for _, req := range doc.PendingActions {
		if own != nil && req.SeatID == own.ID {
			v.PendingActions = append(v.PendingActions, req)
		}
	}
	v.Messages = []model.Message{}
	for _, m := range doc.Messages {
		if m.VisibleTo(viewerID) {
			v.Messages = append(v.Messages, m)
		}
	}
	v.Log = []model.LogEntry{}
	for _, e := range doc.Log {
		if !e.Private {
			v.Log = append(v.Log, e)
		}
	}
	return v
}

// Describe 观看者描述，不过滤文档时随完整文档一起下发
func (f *Filter) Describe(doc *model.Room, viewerID string) Viewer {
	return f.describe(doc, viewerID, doc.IsStoryteller(viewerID))
}

func (f *Filter) describe(doc *model.Room, viewerID string, isStoryteller bool) Viewer {
	viewer := Viewer{UserID: viewerID, SeatID: -1, IsStoryteller: isStoryteller}
	if own := doc.SeatOf(viewerID); own != nil {
		viewer.SeatID = own.ID
		viewer.SeesGrimoire = !isStoryteller && f.roles.SeesGrimoire(own.TrueRoleID)
	}
	return viewer
}

func fullSeat(s *model.Seat) SeatView {
	acted := s.HasActedAbility
	return SeatView{
		ID:              s.ID,
		Occupant:        s.Occupant,
		IsAlive:         s.IsAlive,
		HasGhostVote:    s.HasGhostVote,
		TrueRoleID:      s.TrueRoleID,
		PresentedRoleID: s.PresentedRoleID,
		Statuses:        s.Statuses,
		HasActedAbility: &acted,
		Reminders:       s.Reminders,
		VoteState:       s.VoteState,
	}
}

// ownSeat 自己的座位：只给告知身份，不告诉占据者自己是否被欺骗
func ownSeat(s *model.Seat, seesGrimoire bool) SeatView {
	sv := publicSeat(s)
	sv.PresentedRoleID = s.PresentedRoleID
	if seesGrimoire {
		sv.TrueRoleID = s.TrueRoleID
	}
	sv.Statuses = s.Statuses
	acted := s.HasActedAbility
	sv.HasActedAbility = &acted
	return sv
}

func publicSeat(s *model.Seat) SeatView {
	reminders := make([]model.Reminder, 0, len(s.Reminders))
	for _, r := range s.Reminders {
		if r.Public {
			reminders = append(reminders, r)
		}
	}
	return SeatView{
		ID:           s.ID,
		Occupant:     s.Occupant,
		IsAlive:      s.IsAlive,
		HasGhostVote: s.HasGhostVote,
		Reminders:    reminders,
		VoteState:    s.VoteState,
	}
}
