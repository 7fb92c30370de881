package seat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"sudooom.grimoire/internal/model"
)

func human(id string) model.Occupant {
	return model.Occupant{Kind: model.OccupantHuman, UserID: id, DisplayName: "player-" + id}
}

// ledgers 返回两种实现，保证语义一致
func ledgers(t *testing.T) map[string]Ledger {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Ledger{
		"memory": NewMemoryLedger(),
		"redis":  NewRedisLedger(client, time.Hour),
	}
}

func TestClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			if err := l.Init(ctx, "ROOM", 7); err != nil {
				t.Fatalf("初始化失败: %v", err)
			}

			res, err := l.Claim(ctx, "ROOM", 3, human("u1"))
			if err != nil || !res.OK {
				t.Fatalf("期望认领成功, 实际 = %+v, %v", res, err)
			}

			// 重复投递同一个认领是幂等的
			res, _ = l.Claim(ctx, "ROOM", 3, human("u1"))
			if !res.OK {
				t.Errorf("期望重复认领成功, 实际 = %+v", res)
			}

			res, _ = l.Claim(ctx, "ROOM", 3, human("u2"))
			if res.OK || res.Reason != ReasonSeatOccupied {
				t.Errorf("期望 SEAT_OCCUPIED, 实际 = %+v", res)
			}
			if res.Err() != ErrSeatOccupied {
				t.Errorf("期望 ErrSeatOccupied, 实际 = %v", res.Err())
			}

			res, _ = l.Claim(ctx, "ROOM", 4, human("u1"))
			if res.Reason != ReasonAlreadySeated {
				t.Errorf("期望 ALREADY_SEATED, 实际 = %+v", res)
			}

			res, _ = l.Claim(ctx, "ROOM", 7, human("u3"))
			if res.Reason != ReasonInvalidSeat {
				t.Errorf("期望 INVALID_SEAT, 实际 = %+v", res)
			}

			res, _ = l.Release(ctx, "ROOM", 3, "u2")
			if res.Reason != ReasonNotOccupant {
				t.Errorf("期望 NOT_OCCUPANT, 实际 = %+v", res)
			}

			res, _ = l.Release(ctx, "ROOM", 3, "u1")
			if !res.OK {
				t.Errorf("期望释放成功, 实际 = %+v", res)
			}

			res, _ = l.Claim(ctx, "ROOM", 3, human("u2"))
			if !res.OK {
				t.Errorf("期望释放后可再次认领, 实际 = %+v", res)
			}

			snap, err := l.Snapshot(ctx, "ROOM")
			if err != nil {
				t.Fatalf("快照失败: %v", err)
			}
			if len(snap) != 1 || snap[3].UserID != "u2" {
				t.Errorf("快照错误: %+v", snap)
			}
		})
	}
}

func TestClaimUnknownRoom(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			res, err := l.Claim(ctx, "NOPE", 0, human("u1"))
			if err != nil {
				t.Fatalf("不应返回传输错误: %v", err)
			}
			if res.Reason != ReasonRoomNotFound {
				t.Errorf("期望 ROOM_NOT_FOUND, 实际 = %+v", res)
			}
		})
	}
}

// TestConcurrentClaimSameSeat 并发认领同一个空座位，至多一个成功
func TestConcurrentClaimSameSeat(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			if err := l.Init(ctx, "RACE", 10); err != nil {
				t.Fatalf("初始化失败: %v", err)
			}

			const contenders = 32
			var wins, contended atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < contenders; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res, err := l.Claim(ctx, "RACE", 5, human(fmt.Sprintf("u%d", i)))
					if err != nil {
						t.Errorf("认领失败: %v", err)
						return
					}
					if res.OK {
						wins.Add(1)
					} else if res.Reason == ReasonSeatOccupied {
						contended.Add(1)
					}
				}(i)
			}
			wg.Wait()

			if wins.Load() != 1 {
				t.Errorf("期望恰好 1 个成功, 实际 = %d", wins.Load())
			}
			if contended.Load() != contenders-1 {
				t.Errorf("期望 %d 个 SEAT_OCCUPIED, 实际 = %d", contenders-1, contended.Load())
			}
		})
	}
}

func TestForceReleaseAndResize(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			if err := l.Init(ctx, "ROOM", 8); err != nil {
				t.Fatalf("初始化失败: %v", err)
			}
			l.Claim(ctx, "ROOM", 7, human("u1"))

			res, _ := l.Resize(ctx, "ROOM", 6)
			if res.Reason != ReasonSeatOccupied {
				t.Errorf("期望缩减时 SEAT_OCCUPIED, 实际 = %+v", res)
			}

			res, _ = l.ForceRelease(ctx, "ROOM", 7)
			if !res.OK {
				t.Fatalf("期望强制释放成功, 实际 = %+v", res)
			}

			res, _ = l.Resize(ctx, "ROOM", 6)
			if !res.OK {
				t.Errorf("期望缩减成功, 实际 = %+v", res)
			}

			// 强制释放后用户可以认领其他座位
			res, _ = l.Claim(ctx, "ROOM", 2, human("u1"))
			if !res.OK {
				t.Errorf("期望认领成功, 实际 = %+v", res)
			}
		})
	}
}

func TestRestoreAndDrop(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			occupants := map[int]model.Occupant{0: human("a"), 4: human("b")}
			if err := l.Restore(ctx, "ROOM", 5, occupants); err != nil {
				t.Fatalf("恢复失败: %v", err)
			}

			res, _ := l.Claim(ctx, "ROOM", 4, human("c"))
			if res.Reason != ReasonSeatOccupied {
				t.Errorf("期望恢复后座位已占据, 实际 = %+v", res)
			}
			res, _ = l.Claim(ctx, "ROOM", 1, human("a"))
			if res.Reason != ReasonAlreadySeated {
				t.Errorf("期望 ALREADY_SEATED, 实际 = %+v", res)
			}

			if err := l.Drop(ctx, "ROOM"); err != nil {
				t.Fatalf("删除失败: %v", err)
			}
			if _, err := l.Snapshot(ctx, "ROOM"); err != ErrRoomNotFound {
				t.Errorf("期望 ErrRoomNotFound, 实际 = %v", err)
			}
		})
	}
}
