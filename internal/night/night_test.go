package night

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/model"
)

// 座位: 0 洗衣妇, 1 酒鬼(告知为图书管理员), 2 投毒者, 3 小恶魔, 4 共情者, 5 僧侣, 6 占卜师
func newRoom(t *testing.T) (*model.Room, *catalog.Catalog) {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("加载目录失败: %v", err)
	}

	r := model.NewRoom("ABCD", "trouble_brewing", "st", "Storyteller", 7, time.Now())
	roles := []string{"washerwoman", "drunk", "poisoner", "imp", "empath", "monk", "fortune_teller"}
	for i, id := range roles {
		r.Seats[i].Occupant = &model.Occupant{Kind: model.OccupantHuman, UserID: fmt.Sprintf("u%d", i), DisplayName: fmt.Sprintf("P%d", i)}
		r.Seats[i].TrueRoleID = id
		r.Seats[i].PresentedRoleID = id
	}
	r.Seats[1].PresentedRoleID = "librarian"
	return r, c
}

func TestBuildQueueFirstNight(t *testing.T) {
	r, c := newRoom(t)

	got := BuildQueue(r, c)
	want := []string{"minion_info", "demon_info", "poisoner", "washerwoman", "librarian", "empath", "fortune_teller", "spy"}
	if !slices.Equal(got, want) {
		t.Errorf("首夜队列错误\n期望 = %v\n实际 = %v", want, got)
	}
}

func TestBuildQueueOtherNight(t *testing.T) {
	r, c := newRoom(t)
	Start(r, c)
	Finish(r)

	got := BuildQueue(r, c)
	// 红唇女郎与间谍未入座，但爪牙类别仍有存活座位，需要保留给说书人代为操作
	want := []string{"poisoner", "monk", "scarlet_woman", "imp", "empath", "fortune_teller", "spy"}
	if !slices.Equal(got, want) {
		t.Errorf("其他夜晚队列错误\n期望 = %v\n实际 = %v", want, got)
	}

	// 死亡的僧侣不再行动
	r.Seats[5].IsAlive = false
	got = BuildQueue(r, c)
	if slices.Contains(got, "monk") {
		t.Errorf("死亡角色不应出现在队列中: %v", got)
	}
}

// TestFirstNightCounterSurvivesRevival 复活不影响首夜判断
func TestFirstNightCounterSurvivesRevival(t *testing.T) {
	r, c := newRoom(t)
	Start(r, c)
	Finish(r)

	r.Seats[4].IsAlive = false
	r.Seats[4].IsAlive = true
	Start(r, c)

	if r.NightNumber != 2 {
		t.Errorf("期望夜晚计数 2, 实际 = %d", r.NightNumber)
	}
	if slices.Contains(r.NightQueue, "washerwoman") {
		t.Errorf("第二夜不应使用首夜顺序: %v", r.NightQueue)
	}
}

func TestCursorBounds(t *testing.T) {
	r, c := newRoom(t)
	Start(r, c)
	n := len(r.NightQueue)

	ops := []func(*model.Room){Advance, Advance, Retreat, Retreat, Retreat, Retreat}
	for i := 0; i < 3*n; i++ {
		ops = append(ops, Advance)
	}
	ops = append(ops, Retreat, Advance, Advance)

	for i, op := range ops {
		op(r)
		if r.NightCursor < 0 || r.NightCursor > n {
			t.Fatalf("第 %d 步游标越界: %d (队列长度 %d)", i, r.NightCursor, n)
		}
	}
	if r.NightCursor != n {
		t.Errorf("期望游标停在 %d, 实际 = %d", n, r.NightCursor)
	}

	for i := 0; i < 2*n; i++ {
		Retreat(r)
	}
	if r.NightCursor != 0 {
		t.Errorf("期望游标停在 0, 实际 = %d", r.NightCursor)
	}
}

func TestSubmitTurnMatching(t *testing.T) {
	r, c := newRoom(t)
	Start(r, c)
	now := time.Now()

	// 游标 0: minion_info，投毒者作为爪牙可以确认
	if _, err := Submit(r, 2, Submission{}, c, "req-0", now); err != nil {
		t.Errorf("爪牙应可在 minion_info 步骤确认: %v", err)
	}
	if _, err := Submit(r, 0, Submission{}, c, "req-x", now); err != ErrNotYourTurn {
		t.Errorf("期望 ErrNotYourTurn, 实际 = %v", err)
	}

	// 移动到 librarian：酒鬼以告知身份匹配
	for r.NightQueue[r.NightCursor] != "librarian" {
		Advance(r)
	}
	if _, err := Submit(r, 1, Submission{}, c, "req-1", now); err != nil {
		t.Errorf("酒鬼应按告知身份行动: %v", err)
	}

	// fortune_teller 需要两个不同目标
	for r.NightQueue[r.NightCursor] != "fortune_teller" {
		Advance(r)
	}
	if _, err := Submit(r, 6, Submission{Targets: []int{3}}, c, "req-2", now); err != ErrInvalidTargets {
		t.Errorf("期望 ErrInvalidTargets, 实际 = %v", err)
	}
	if _, err := Submit(r, 6, Submission{Targets: []int{3, 3}}, c, "req-2", now); err != ErrInvalidTargets {
		t.Errorf("期望重复目标被拒绝, 实际 = %v", err)
	}
	if _, err := Submit(r, 6, Submission{Targets: []int{3, 42}}, c, "req-2", now); err != ErrInvalidTargets {
		t.Errorf("期望越界目标被拒绝, 实际 = %v", err)
	}
	req, err := Submit(r, 6, Submission{Targets: []int{3, 4}}, c, "req-2", now)
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if req.Kind != model.ActionChooseTwoPlayers {
		t.Errorf("期望行动类型 choose_two_players, 实际 = %s", req.Kind)
	}

	// 重复提交覆盖原请求
	if _, err := Submit(r, 6, Submission{Targets: []int{0, 1}}, c, "req-3", now); err != nil {
		t.Fatalf("重复提交失败: %v", err)
	}
	count := 0
	for _, p := range r.PendingActions {
		if p.SeatID == 6 {
			count++
			if p.ID != "req-2" || !slices.Equal(p.Targets, []int{0, 1}) {
				t.Errorf("期望覆盖原请求, 实际 = %+v", p)
			}
		}
	}
	if count != 1 {
		t.Errorf("期望 1 条请求, 实际 = %d", count)
	}
}

func TestSubmitOutsideNight(t *testing.T) {
	r, c := newRoom(t)
	if _, err := Submit(r, 0, Submission{}, c, "req", time.Now()); err != ErrNotNight {
		t.Errorf("期望 ErrNotNight, 实际 = %v", err)
	}
}

func TestResolveWritesPrivateMessage(t *testing.T) {
	r, c := newRoom(t)
	Start(r, c)
	Finish(r)
	Start(r, c)

	// 守鸦人只在其他夜晚行动
	r.Seats[4].TrueRoleID = "ravenkeeper"
	r.Seats[4].PresentedRoleID = "ravenkeeper"
	r.NightQueue = BuildQueue(r, c)
	for r.NightQueue[r.NightCursor] != "ravenkeeper" {
		Advance(r)
	}

	req, err := Submit(r, 4, Submission{Targets: []int{3}}, c, "req-r", time.Now())
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	if _, err := Resolve(r, req.ID, "Seat 3 is the Imp", c, "msg-1", time.Now()); err != nil {
		t.Fatalf("裁定失败: %v", err)
	}
	if !r.Seats[4].HasActedAbility {
		t.Error("一次性能力应标记为已使用")
	}

	msg := r.Messages[len(r.Messages)-1]
	if msg.Kind != model.MessageNightResult || msg.RecipientID != "u4" {
		t.Errorf("期望私信给 u4, 实际 = %+v", msg)
	}
	if msg.IsPublic() {
		t.Error("夜晚结果不应公开")
	}

	if _, err := Resolve(r, req.ID, "again", c, "msg-2", time.Now()); err != ErrAlreadyResolved {
		t.Errorf("期望 ErrAlreadyResolved, 实际 = %v", err)
	}
	if _, err := Resolve(r, "missing", "x", c, "msg-3", time.Now()); err != ErrRequestNotFound {
		t.Errorf("期望 ErrRequestNotFound, 实际 = %v", err)
	}
}
