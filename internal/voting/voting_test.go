package voting

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"sudooom.grimoire/internal/model"
)

func newRoom(seats int) *model.Room {
	r := model.NewRoom("ABCD", "trouble_brewing", "st", "Storyteller", seats, time.Now())
	for i := range r.Seats {
		r.Seats[i].Occupant = &model.Occupant{Kind: model.OccupantHuman, UserID: fmt.Sprintf("u%d", i)}
	}
	r.Phase = model.PhaseDay
	return r
}

// TestSevenSeatExample 7 座位，5 号已死亡，提名 3 号：3 票对阈值 4，结果存活
func TestSevenSeatExample(t *testing.T) {
	r := newRoom(7)
	r.Seats[5].IsAlive = false

	b, err := Start(r, 3, 0)
	if err != nil {
		t.Fatalf("开启投票失败: %v", err)
	}
	if b.ClockHand != 4 {
		t.Errorf("期望指针从 4 开始, 实际 = %d", b.ClockHand)
	}

	for _, id := range []int{5, 6, 0} {
		if _, err := ToggleHand(r, id); err != nil {
			t.Fatalf("座位 %d 举手失败: %v", id, err)
		}
	}

	var rec *model.VoteRecord
	for i := 0; i < 7; i++ {
		got, err := AdvanceClockHand(r, time.Now())
		if err != nil {
			t.Fatalf("第 %d 次推进失败: %v", i, err)
		}
		if got != nil {
			if i != 6 {
				t.Fatalf("期望第 7 次推进结算, 实际第 %d 次", i+1)
			}
			rec = got
		}
	}

	if rec == nil {
		t.Fatal("期望自动结算")
	}
	if len(rec.Votes) != 3 || rec.Threshold != 4 || rec.Outcome != model.OutcomeSurvived {
		t.Errorf("期望 3 票/阈值 4/survived, 实际 = %+v", rec)
	}
	if r.Seats[5].HasGhostVote {
		t.Error("死亡座位投票后应消耗死亡票")
	}
	if r.Voting != nil || r.Phase != model.PhaseDay {
		t.Errorf("结算后应回到白天且无投票, 实际 phase = %s", r.Phase)
	}
}

// TestCircuitClosure 任意举手组合下，推进 seatCount 次恰好结算一次
func TestCircuitClosure(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		n := 5 + rng.IntN(16)
		r := newRoom(n)
		nominee := rng.IntN(n)
		if _, err := Start(r, nominee, NoNominator); err != nil {
			t.Fatalf("开启投票失败: %v", err)
		}

		raised := map[int]bool{}
		resolutions := 0
		var rec *model.VoteRecord
		for i := 0; i < n; i++ {
			// 指针到达前随机举手
			for id := range r.Seats {
				if r.Seats[id].VoteState.Locked || rng.IntN(4) != 0 {
					continue
				}
				if up, err := ToggleHand(r, id); err == nil {
					raised[id] = up
				}
			}
			got, err := AdvanceClockHand(r, time.Now())
			if err != nil {
				t.Fatalf("推进失败: %v", err)
			}
			if got != nil {
				resolutions++
				rec = got
			}
		}

		if resolutions != 1 {
			t.Fatalf("期望恰好结算 1 次, 实际 = %d", resolutions)
		}
		want := 0
		for _, up := range raised {
			if up {
				want++
			}
		}
		if len(rec.Votes) != want {
			t.Errorf("期望 %d 票, 实际 = %d", want, len(rec.Votes))
		}
		if _, err := AdvanceClockHand(r, time.Now()); err != ErrNoBallot {
			t.Errorf("结算后再次推进应返回 ErrNoBallot, 实际 = %v", err)
		}
	}
}

func TestLockedSeatCannotToggle(t *testing.T) {
	r := newRoom(5)
	Start(r, 0, NoNominator)

	AdvanceClockHand(r, time.Now()) // 锁定 1 号
	if _, err := ToggleHand(r, 1); err != ErrSeatLocked {
		t.Errorf("期望 ErrSeatLocked, 实际 = %v", err)
	}
	if _, err := ToggleHand(r, 9); err != ErrInvalidSeat {
		t.Errorf("期望 ErrInvalidSeat, 实际 = %v", err)
	}
}

func TestToggleOutsideVote(t *testing.T) {
	r := newRoom(5)
	if _, err := ToggleHand(r, 1); err != ErrBallotClosed {
		t.Errorf("期望 ErrBallotClosed, 实际 = %v", err)
	}
}

// TestGhostVoteConservation 取消投票退还本轮消耗的死亡票，结算后不退还
func TestGhostVoteConservation(t *testing.T) {
	r := newRoom(6)
	r.Seats[2].IsAlive = false

	Start(r, 0, NoNominator)
	ToggleHand(r, 2)
	AdvanceClockHand(r, time.Now()) // 1
	AdvanceClockHand(r, time.Now()) // 2 消耗死亡票
	if r.Seats[2].HasGhostVote {
		t.Fatal("期望死亡票已消耗")
	}

	rec, err := Close(r, time.Now())
	if err != nil {
		t.Fatalf("取消投票失败: %v", err)
	}
	if rec.Outcome != model.OutcomeCancelled {
		t.Errorf("期望 cancelled, 实际 = %s", rec.Outcome)
	}
	if !r.Seats[2].HasGhostVote {
		t.Error("取消投票应退还死亡票")
	}

	// 第二轮正常结算后死亡票不再退还
	Start(r, 0, NoNominator)
	ToggleHand(r, 2)
	for i := 0; i < 6; i++ {
		AdvanceClockHand(r, time.Now())
	}
	if r.Seats[2].HasGhostVote {
		t.Error("结算后死亡票不应退还")
	}

	// 没有死亡票的死亡座位不能举手
	Start(r, 0, NoNominator)
	if _, err := ToggleHand(r, 2); err != ErrNoVoteLeft {
		t.Errorf("期望 ErrNoVoteLeft, 实际 = %v", err)
	}

	if len(r.VoteHistory) != 2 || r.NominationCount != 3 {
		t.Errorf("期望 2 条记录/3 次提名, 实际 = %d/%d", len(r.VoteHistory), r.NominationCount)
	}
}

func TestStartRejectsInvalidNominee(t *testing.T) {
	r := newRoom(5)
	r.Seats[4].Occupant = nil

	for _, id := range []int{-1, 5, 4} {
		if _, err := Start(r, id, NoNominator); err != ErrInvalidNominee {
			t.Errorf("座位 %d: 期望 ErrInvalidNominee, 实际 = %v", id, err)
		}
	}
	if r.Voting != nil || r.NominationCount != 0 {
		t.Error("失败的开启不应修改房间")
	}
}

func TestExecutedOutcome(t *testing.T) {
	r := newRoom(5)
	Start(r, 2, 1)
	for _, id := range []int{0, 1, 3} {
		ToggleHand(r, id)
	}
	var rec *model.VoteRecord
	for i := 0; i < 5; i++ {
		if got, _ := AdvanceClockHand(r, time.Now()); got != nil {
			rec = got
		}
	}
	if rec == nil || rec.Outcome != model.OutcomeExecuted {
		t.Fatalf("期望 executed, 实际 = %+v", rec)
	}
	slices.Sort(rec.Votes)
	if !slices.Equal(rec.Votes, []int{0, 1, 3}) {
		t.Errorf("票数错误: %v", rec.Votes)
	}
}

// TestNomineeHandCounted 被提名者最后被轮询，其举手计入票数
func TestNomineeHandCounted(t *testing.T) {
	r := newRoom(5)
	Start(r, 2, NoNominator)
	for _, id := range []int{0, 1, 2} {
		if _, err := ToggleHand(r, id); err != nil {
			t.Fatalf("座位 %d 举手失败: %v", id, err)
		}
	}
	var rec *model.VoteRecord
	for i := 0; i < 5; i++ {
		if got, _ := AdvanceClockHand(r, time.Now()); got != nil {
			rec = got
		}
	}
	if rec == nil {
		t.Fatal("期望自动结算")
	}
	if !slices.Equal(rec.Votes, []int{0, 1, 2}) || rec.Outcome != model.OutcomeExecuted {
		t.Errorf("期望 票数 [0 1 2] 且 executed, 实际 = %v %s", rec.Votes, rec.Outcome)
	}
}
