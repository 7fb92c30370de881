package model

import (
	"encoding/json"
	"testing"
	"time"
)

// TestCloneIsDeep 测试深拷贝互不影响
func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	r := NewRoom("ABCD", "trouble_brewing", "st", "Storyteller", 5, now)
	r.Seats[0].Occupant = &Occupant{Kind: OccupantHuman, UserID: "u1", DisplayName: "Alice"}
	r.Seats[0].Statuses = append(r.Seats[0].Statuses, "poisoned")
	r.Voting = &Ballot{NomineeSeatID: 1, Votes: []int{2}}

	c := r.Clone()
	c.Seats[0].Occupant.DisplayName = "Mallory"
	c.Seats[0].Statuses[0] = "drunk"
	c.Voting.Votes[0] = 4

	if r.Seats[0].Occupant.DisplayName != "Alice" {
		t.Errorf("期望占据者不受影响, 实际 = %s", r.Seats[0].Occupant.DisplayName)
	}
	if r.Seats[0].Statuses[0] != "poisoned" {
		t.Errorf("期望状态不受影响, 实际 = %s", r.Seats[0].Statuses[0])
	}
	if r.Voting.Votes[0] != 2 {
		t.Errorf("期望票数不受影响, 实际 = %d", r.Voting.Votes[0])
	}
}

// TestNewRoomDefaults 测试新房间默认值
func TestNewRoomDefaults(t *testing.T) {
	r := NewRoom("ABCD", "trouble_brewing", "st", "Storyteller", 7, time.Now())

	if r.Phase != PhaseSetup || r.SetupPhase != SetupAssigning {
		t.Errorf("期望 SETUP/ASSIGNING, 实际 = %s/%s", r.Phase, r.SetupPhase)
	}
	if r.NightCursor != NightNotBegun {
		t.Errorf("期望 nightCursor = -1, 实际 = %d", r.NightCursor)
	}
	for i, s := range r.Seats {
		if s.ID != i || !s.IsAlive || !s.HasGhostVote {
			t.Errorf("座位 %d 默认值错误: %+v", i, s)
		}
	}
	if !r.IsStoryteller("st") || r.IsStoryteller("") {
		t.Error("说书人判断错误")
	}
}

// TestRoomJSONShape 测试文档可序列化为 JSON 树，空集合编码为数组
func TestRoomJSONShape(t *testing.T) {
	r := NewRoom("ABCD", "trouble_brewing", "st", "Storyteller", 5, time.Now())
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}

	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if _, ok := tree["nightQueue"].([]any); !ok {
		t.Errorf("期望 nightQueue 为数组, 实际 = %T", tree["nightQueue"])
	}
	if _, ok := tree["voting"]; ok {
		t.Error("期望无投票时不输出 voting")
	}
}

// TestMessageVisibility 测试私信可见性
func TestMessageVisibility(t *testing.T) {
	pub := Message{SenderID: "a"}
	priv := Message{SenderID: "a", RecipientID: "b"}

	if !pub.VisibleTo("") {
		t.Error("公开消息应对旁观者可见")
	}
	if !priv.VisibleTo("a") || !priv.VisibleTo("b") {
		t.Error("私信应对发送者和接收者可见")
	}
	if priv.VisibleTo("c") || priv.VisibleTo("") {
		t.Error("私信不应对第三方可见")
	}
}
