package gateway

import (
	"fmt"
	"time"

	"sudooom.grimoire/internal/archive"
	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/voting"
)

const (
	ReasonDemonDead    = "demon is dead"
	ReasonTwoRemaining = "only two players remain"
)

// evaluateEndgame 仅有的两条自动结束条件
// 所有恶魔死亡：善良获胜；恶魔存活且存活座位不超过两个：邪恶获胜。未分配恶魔时不判定
func evaluateEndgame(room *model.Room, roles archive.RoleLookup) (model.Team, string, bool) {
	demons, living := 0, 0
	for i := range room.Seats {
		s := &room.Seats[i]
		if s.Occupant == nil {
			continue
		}
		r, ok := roles.Role(s.TrueRoleID)
		if !ok || r.Category != catalog.Demon {
			continue
		}
		demons++
		if s.IsAlive {
			living++
		}
	}

	switch {
	case demons == 0:
		return "", "", false
	case living == 0:
		return model.TeamGood, ReasonDemonDead, true
	case room.AliveCount() <= 2:
		return model.TeamEvil, ReasonTwoRemaining, true
	}
	return "", "", false
}

// checkEndgame 在变更后检查结束条件；游戏刚结束时发出唯一一条归档
func (g *Gateway) checkEndgame(m *mutation) {
	room := m.room
	if room.GameOver == nil && room.Phase != model.PhaseSetup {
		if winner, reason, over := evaluateEndgame(room, g.catalog); over {
			cancelOpenBallot(room, m.now)
			room.GameOver = &model.GameOver{Winner: winner, Reason: reason, At: m.now}
			room.AppendLog(fmt.Sprintf("game over: %s wins (%s)", winner, reason), false, m.now)
			g.logger.Info("Game over", "roomId", room.RoomID, "winner", winner, "reason", reason)
		}
	}
	if room.GameOver != nil && !room.Archived {
		g.emitArchive(room, m.now)
	}
}

// cancelOpenBallot 游戏结束时取消未结算的投票，退还本轮消耗的死亡票
func cancelOpenBallot(room *model.Room, now time.Time) {
	if room.Voting == nil {
		return
	}
	if rec, err := voting.Close(room, now); err == nil {
		room.AppendLog(fmt.Sprintf("vote on seat %d cancelled", rec.NomineeSeatID), false, now)
	}
}

// emitArchive 发出归档（不等待结果）并标记已归档
func (g *Gateway) emitArchive(room *model.Room, now time.Time) {
	room.Archived = true
	if g.archive == nil {
		return
	}
	g.archive.Emit(archive.Build(room, g.catalog, g.newID(), now))
}
