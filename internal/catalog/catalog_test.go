package catalog

import (
	"math/rand/v2"
	"testing"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("加载内置目录失败: %v", err)
	}
	return c
}

// TestNightOrders 测试首夜/其他夜晚顺序
func TestNightOrders(t *testing.T) {
	c := mustDefault(t)

	first := c.FirstNightOrder("trouble_brewing")
	if len(first) == 0 || first[0] != "minion_info" || first[1] != "demon_info" {
		t.Fatalf("首夜顺序错误: %v", first)
	}
	for _, id := range first {
		if id == "imp" || id == "monk" {
			t.Errorf("首夜不应包含 %s", id)
		}
	}

	other := c.OtherNightOrder("trouble_brewing")
	if other[0] != "poisoner" {
		t.Errorf("期望其他夜晚以 poisoner 开始, 实际 = %v", other)
	}
	for _, id := range other {
		if id == "minion_info" || id == "washerwoman" {
			t.Errorf("其他夜晚不应包含 %s", id)
		}
	}
}

// TestValidPresentation 测试身份伪装规则
func TestValidPresentation(t *testing.T) {
	c := mustDefault(t)

	tests := []struct {
		trueID, presented string
		want              bool
	}{
		{"imp", "", true},
		{"imp", "imp", true},
		{"imp", "chef", false},
		{"drunk", "chef", true},
		{"drunk", "saint", false},
		{"drunk", "drunk", false},
		{"minion_info", "", false},
		{"nobody", "", false},
	}
	for _, tt := range tests {
		if got := c.ValidPresentation(tt.trueID, tt.presented); got != tt.want {
			t.Errorf("ValidPresentation(%s, %s) = %v, 期望 %v", tt.trueID, tt.presented, got, tt.want)
		}
	}
}

// TestSeesGrimoire 测试可查看魔典的角色
func TestSeesGrimoire(t *testing.T) {
	c := mustDefault(t)
	if !c.SeesGrimoire("spy") {
		t.Error("期望 spy 可查看魔典")
	}
	if c.SeesGrimoire("imp") || c.SeesGrimoire("unknown") {
		t.Error("期望其他角色不可查看魔典")
	}
}

// TestCompose 测试随机身份分配满足人数配置
func TestCompose(t *testing.T) {
	c := mustDefault(t)
	rng := rand.New(rand.NewPCG(1, 2))

	for players := 5; players <= 15; players++ {
		assignments, err := c.Compose("trouble_brewing", players, rng)
		if err != nil {
			t.Fatalf("%d 人分配失败: %v", players, err)
		}
		if len(assignments) != players {
			t.Fatalf("期望 %d 个身份, 实际 = %d", players, len(assignments))
		}

		seen := map[string]bool{}
		demons := 0
		for _, a := range assignments {
			if seen[a.TrueRoleID] {
				t.Errorf("%d 人局身份重复: %s", players, a.TrueRoleID)
			}
			seen[a.TrueRoleID] = true
			if !c.ValidPresentation(a.TrueRoleID, a.PresentedRoleID) {
				t.Errorf("非法伪装: %s -> %s", a.TrueRoleID, a.PresentedRoleID)
			}
			if r, _ := c.Role(a.TrueRoleID); r.Category == Demon {
				demons++
			}
		}
		if demons != 1 {
			t.Errorf("%d 人局期望 1 个恶魔, 实际 = %d", players, demons)
		}
		for _, a := range assignments {
			if a.PresentedRoleID != a.TrueRoleID && seen[a.PresentedRoleID] {
				t.Errorf("酒鬼被告知的角色 %s 不应在场", a.PresentedRoleID)
			}
		}
	}
}

// TestComposeRejectsSmallGames 测试人数不足
func TestComposeRejectsSmallGames(t *testing.T) {
	c := mustDefault(t)
	if _, err := c.Compose("trouble_brewing", 4, rand.New(rand.NewPCG(1, 1))); err == nil {
		t.Error("期望 4 人局分配失败")
	}
	if _, err := c.Compose("nope", 7, rand.New(rand.NewPCG(1, 1))); err != ErrUnknownScript {
		t.Errorf("期望 ErrUnknownScript, 实际 = %v", err)
	}
}
