package catalog

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrUnsupportedPlayerCount 人数不在配置表范围内
var ErrUnsupportedPlayerCount = errors.New("UNSUPPORTED_PLAYER_COUNT")

// Composition 各类别角色数量
type Composition struct {
	Townsfolk int
	Outsiders int
	Minions   int
	Demons    int
}

// 5-15 人的标准配置，超过 15 人沿用 15 人配置
var compositionTable = map[int]Composition{
	5:  {3, 0, 1, 1},
	6:  {3, 1, 1, 1},
	7:  {5, 0, 1, 1},
	8:  {5, 1, 1, 1},
	9:  {5, 2, 1, 1},
	10: {7, 0, 2, 1},
	11: {7, 1, 2, 1},
	12: {7, 2, 2, 1},
	13: {9, 0, 3, 1},
	14: {9, 1, 3, 1},
	15: {9, 2, 3, 1},
}

// CompositionFor 查询人数对应的基础配置
func CompositionFor(players int) (Composition, error) {
	if players < 5 {
		return Composition{}, ErrUnsupportedPlayerCount
	}
	if players > 15 {
		players = 15
	}
	return compositionTable[players], nil
}

// Assignment 单个座位的身份分配
type Assignment struct {
	TrueRoleID      string
	PresentedRoleID string
}

// Compose 为指定人数随机生成一组身份
// 爪牙的 setup_outsiders 会把镇民名额换成外来者；presents_as 角色会被告知为一个不在场的对应类别角色
func (c *Catalog) Compose(scriptID string, players int, rng *rand.Rand) ([]Assignment, error) {
	script, ok := c.scripts[scriptID]
	if !ok {
		return nil, ErrUnknownScript
	}
	comp, err := CompositionFor(players)
	if err != nil {
		return nil, err
	}

	pool := map[Category][]string{}
	for _, id := range script.Roles {
		r := c.roles[id]
		pool[r.Category] = append(pool[r.Category], id)
	}
	for cat := range pool {
		ids := pool[cat]
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}

	take := func(cat Category, n int) ([]string, error) {
		if n > len(pool[cat]) {
			return nil, fmt.Errorf("script %s has not enough %s roles", scriptID, cat)
		}
		picked := pool[cat][:n]
		pool[cat] = pool[cat][n:]
		return picked, nil
	}

	demons, err := take(Demon, comp.Demons)
	if err != nil {
		return nil, err
	}
	minions, err := take(Minion, comp.Minions)
	if err != nil {
		return nil, err
	}
	for _, id := range minions {
		shift := c.roles[id].SetupOutsiders
		if shift > comp.Townsfolk {
			shift = comp.Townsfolk
		}
		comp.Townsfolk -= shift
		comp.Outsiders += shift
	}
	outsiders, err := take(Outsider, comp.Outsiders)
	if err != nil {
		return nil, err
	}
	townsfolk, err := take(Townsfolk, comp.Townsfolk)
	if err != nil {
		return nil, err
	}

	chosen := make([]string, 0, players)
	chosen = append(chosen, townsfolk...)
	chosen = append(chosen, outsiders...)
	chosen = append(chosen, minions...)
	chosen = append(chosen, demons...)
	for len(chosen) < players {
		// 超过 15 人时多余座位用剩余的善良角色补足
		cat := Townsfolk
		if len(pool[Townsfolk]) <= 1 {
			cat = Outsider
		}
		extra, err := take(cat, 1)
		if err != nil {
			return nil, err
		}
		chosen = append(chosen, extra...)
	}
	rng.Shuffle(len(chosen), func(i, j int) { chosen[i], chosen[j] = chosen[j], chosen[i] })

	out := make([]Assignment, len(chosen))
	for i, id := range chosen {
		a := Assignment{TrueRoleID: id, PresentedRoleID: id}
		if cat := c.roles[id].PresentsAs; cat != "" {
			if len(pool[cat]) == 0 {
				return nil, fmt.Errorf("no unused %s role to present %s as", cat, id)
			}
			a.PresentedRoleID = pool[cat][0]
			pool[cat] = pool[cat][1:]
		}
		out[i] = a
	}
	return out, nil
}
