// Package night 夜晚顺序引擎
//
// 只负责夜晚行动的排序、游标移动和消息路由，不裁定任何规则效果：
// 玩家提交的行动进入待处理队列，由说书人裁定后以私信写回。
package night

import (
	"errors"
	"slices"
	"time"

	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/model"
)

var (
	ErrNotNight        = errors.New("NOT_NIGHT")
	ErrNotYourTurn     = errors.New("NOT_YOUR_TURN")
	ErrNoAction        = errors.New("ROLE_HAS_NO_ACTION")
	ErrInvalidTargets  = errors.New("INVALID_TARGETS")
	ErrChoiceRequired  = errors.New("CHOICE_REQUIRED")
	ErrRequestNotFound = errors.New("REQUEST_NOT_FOUND")
	ErrAlreadyResolved = errors.New("ALREADY_RESOLVED")
	ErrNoRecipient     = errors.New("NO_RECIPIENT")
)

// Roles 引擎需要的角色元数据
type Roles interface {
	Role(id string) (catalog.Role, bool)
	FirstNightOrder(scriptID string) []string
	OtherNightOrder(scriptID string) []string
}

// Submission 玩家提交的行动内容
type Submission struct {
	Targets []int `json:"targets"`
	Choice  *bool `json:"choice,omitempty"`
}

// IsFirstNight 是否为首夜（以已开始的夜晚计数判断，不依赖死亡情况）
func IsFirstNight(room *model.Room) bool {
	return room.NightNumber == 0
}

// BuildQueue 计算即将开始的夜晚需要行动的角色
// 保留：有存活座位以该角色为真实或告知身份；或邪恶类别条目且该类别仍有存活座位（由说书人代为操作）
func BuildQueue(room *model.Room, roles Roles) []string {
	var order []string
	if IsFirstNight(room) {
		order = roles.FirstNightOrder(room.ScriptID)
	} else {
		order = roles.OtherNightOrder(room.ScriptID)
	}

	queue := make([]string, 0, len(order))
	for _, id := range order {
		role, ok := roles.Role(id)
		if !ok {
			continue
		}
		if !role.Pseudo && hasLivingHolder(room, id) {
			queue = append(queue, id)
			continue
		}
		if role.IsEvilCategory() && hasLivingCategory(room, roles, role.Category) {
			queue = append(queue, id)
		}
	}
	return queue
}

func hasLivingHolder(room *model.Room, roleID string) bool {
	for i := range room.Seats {
		s := &room.Seats[i]
		if s.Occupant == nil || !s.IsAlive {
			continue
		}
		if s.TrueRoleID == roleID || s.PresentedRoleID == roleID {
			return true
		}
	}
	return false
}

func hasLivingCategory(room *model.Room, roles Roles, cat catalog.Category) bool {
	for i := range room.Seats {
		s := &room.Seats[i]
		if s.Occupant == nil || !s.IsAlive || s.TrueRoleID == "" {
			continue
		}
		if r, ok := roles.Role(s.TrueRoleID); ok && r.Category == cat {
			return true
		}
	}
	return false
}

// Start 进入夜晚：生成队列，游标归零，夜晚计数加一
// 已裁定的行动请求被清理，未裁定的保留给说书人
func Start(room *model.Room, roles Roles) {
	room.NightQueue = BuildQueue(room, roles)
	room.NightCursor = 0
	room.NightNumber++
	room.Phase = model.PhaseNight

	pending := make([]model.NightActionRequest, 0, len(room.PendingActions))
	for _, req := range room.PendingActions {
		if !req.Resolved {
			pending = append(pending, req)
		}
	}
	room.PendingActions = pending
}

// Finish 结束夜晚，游标回到未开始
func Finish(room *model.Room) {
	room.Phase = model.PhaseDay
	room.NightCursor = model.NightNotBegun
}

// Advance 游标后移，最多到队列长度（表示所有角色已行动）
func Advance(room *model.Room) {
	room.NightCursor = clamp(room.NightCursor+1, len(room.NightQueue))
}

// Retreat 游标前移，最少到 0
func Retreat(room *model.Room) {
	room.NightCursor = clamp(room.NightCursor-1, len(room.NightQueue))
}

func clamp(v, upper int) int {
	return max(0, min(v, upper))
}

// Current 当前游标处的角色
func Current(room *model.Room) (string, bool) {
	if room.Phase != model.PhaseNight {
		return "", false
	}
	if room.NightCursor < 0 || room.NightCursor >= len(room.NightQueue) {
		return "", false
	}
	return room.NightQueue[room.NightCursor], true
}

// ActsNow 座位是否可以在当前游标处提交行动
// 按占据者所知的身份（告知身份）匹配；邪恶类别条目也允许该类别的存活座位提交
func ActsNow(room *model.Room, seat *model.Seat, roles Roles) bool {
	roleID, ok := Current(room)
	if !ok || seat == nil || seat.Occupant == nil || !seat.HasRole() {
		return false
	}
	known := seat.PresentedRoleID
	if known == "" {
		known = seat.TrueRoleID
	}
	if known == roleID {
		return true
	}
	step, ok := roles.Role(roleID)
	if !ok || !step.IsEvilCategory() || !seat.IsAlive {
		return false
	}
	held, ok := roles.Role(seat.TrueRoleID)
	return ok && held.Category == step.Category
}

// Submit 校验并排队玩家的夜晚行动
// 同一座位在同一步骤的未裁定请求会被覆盖，重复投递不产生多条请求
func Submit(room *model.Room, seatID int, sub Submission, roles Roles, id string, now time.Time) (*model.NightActionRequest, error) {
	if room.Phase != model.PhaseNight {
		return nil, ErrNotNight
	}
	seat := room.Seat(seatID)
	if !ActsNow(room, seat, roles) {
		return nil, ErrNotYourTurn
	}
	roleID, _ := Current(room)
	role, _ := roles.Role(roleID)
	if role.Action == model.ActionNone {
		return nil, ErrNoAction
	}
	if err := validate(room, role.Action, sub); err != nil {
		return nil, err
	}

	req := model.NightActionRequest{
		ID:          id,
		SeatID:      seatID,
		RoleID:      roleID,
		Kind:        role.Action,
		Targets:     append([]int{}, sub.Targets...),
		Choice:      sub.Choice,
		SubmittedAt: now,
	}
	for i := range room.PendingActions {
		p := &room.PendingActions[i]
		if !p.Resolved && p.SeatID == seatID && p.RoleID == roleID {
			req.ID = p.ID
			*p = req
			return p, nil
		}
	}
	room.PendingActions = append(room.PendingActions, req)
	return &room.PendingActions[len(room.PendingActions)-1], nil
}

func validate(room *model.Room, kind model.ActionKind, sub Submission) error {
	switch kind {
	case model.ActionChooseOnePlayer:
		if len(sub.Targets) != 1 {
			return ErrInvalidTargets
		}
	case model.ActionChooseTwoPlayers:
		if len(sub.Targets) != 2 || sub.Targets[0] == sub.Targets[1] {
			return ErrInvalidTargets
		}
	case model.ActionBinaryChoice:
		if sub.Choice == nil {
			return ErrChoiceRequired
		}
		if len(sub.Targets) != 0 {
			return ErrInvalidTargets
		}
	case model.ActionSimpleConfirmation:
		if len(sub.Targets) != 0 {
			return ErrInvalidTargets
		}
	}
	for _, t := range sub.Targets {
		if s := room.Seat(t); s == nil || s.Occupant == nil {
			return ErrInvalidTargets
		}
	}
	return nil
}

// Resolve 说书人裁定请求：写回私信给提交者，一次性能力标记为已使用
func Resolve(room *model.Room, requestID, result string, roles Roles, messageID string, now time.Time) (*model.NightActionRequest, error) {
	idx := slices.IndexFunc(room.PendingActions, func(r model.NightActionRequest) bool {
		return r.ID == requestID
	})
	if idx < 0 {
		return nil, ErrRequestNotFound
	}
	req := &room.PendingActions[idx]
	if req.Resolved {
		return nil, ErrAlreadyResolved
	}

	seat := room.Seat(req.SeatID)
	if seat == nil || seat.Occupant == nil {
		return nil, ErrNoRecipient
	}

	req.Resolved = true
	req.Result = result
	room.Messages = append(room.Messages, model.Message{
		ID:          messageID,
		Kind:        model.MessageNightResult,
		SenderID:    room.StorytellerID,
		SenderName:  room.StorytellerName,
		RecipientID: seat.Occupant.UserID,
		Text:        result,
		At:          now,
	})

	if role, ok := roles.Role(req.RoleID); ok && role.OneShot {
		seat.HasActedAbility = true
	}
	return req, nil
}
