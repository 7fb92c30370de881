// Package catalog 角色与剧本内容表
//
// 只读；夜晚顺序引擎、可见性过滤和身份分配从这里读取角色元数据，不会修改它。
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"sudooom.grimoire/internal/model"
)

//go:embed roles.yaml
var defaultRoles []byte

var (
	ErrUnknownRole   = errors.New("UNKNOWN_ROLE")
	ErrUnknownScript = errors.New("UNKNOWN_SCRIPT")
)

// Category 角色类别
type Category string

const (
	Townsfolk Category = "townsfolk"
	Outsider  Category = "outsider"
	Minion    Category = "minion"
	Demon     Category = "demon"
)

// Role 角色元数据
type Role struct {
	ID             string           `yaml:"id" json:"id"`
	Name           string           `yaml:"name" json:"name"`
	Category       Category         `yaml:"category" json:"category"`
	Pseudo         bool             `yaml:"pseudo" json:"pseudo,omitempty"` // 仅占夜晚顺序，不可分配
	FirstNight     int              `yaml:"first_night" json:"firstNight,omitempty"`
	OtherNight     int              `yaml:"other_night" json:"otherNight,omitempty"`
	Action         model.ActionKind `yaml:"action" json:"action,omitempty"`
	OneShot        bool             `yaml:"one_shot" json:"oneShot,omitempty"`
	SeesGrimoire   bool             `yaml:"sees_grimoire" json:"seesGrimoire,omitempty"`
	PresentsAs     Category         `yaml:"presents_as" json:"presentsAs,omitempty"` // 被告知为该类别的另一个角色
	SetupOutsiders int              `yaml:"setup_outsiders" json:"setupOutsiders,omitempty"`
	Ability        string           `yaml:"ability" json:"ability"`
}

// Team 角色所属阵营
func (r Role) Team() model.Team {
	if r.IsEvilCategory() {
		return model.TeamEvil
	}
	return model.TeamGood
}

// IsEvilCategory 爪牙或恶魔类别
func (r Role) IsEvilCategory() bool {
	return r.Category == Minion || r.Category == Demon
}

// Script 剧本
type Script struct {
	ID    string   `yaml:"id" json:"id"`
	Name  string   `yaml:"name" json:"name"`
	Roles []string `yaml:"roles" json:"roles"`
}

type document struct {
	Roles   []Role   `yaml:"roles"`
	Scripts []Script `yaml:"scripts"`
}

// Catalog 角色/剧本目录
type Catalog struct {
	roles   map[string]Role
	scripts map[string]Script
	order   []string // 剧本ID，按加载顺序
}

// Default 加载内置目录
func Default() (*Catalog, error) {
	return Load(defaultRoles)
}

// Load 从 YAML 解析目录
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		roles:   make(map[string]Role, len(doc.Roles)),
		scripts: make(map[string]Script, len(doc.Scripts)),
	}
	for _, r := range doc.Roles {
		if r.ID == "" {
			return nil, fmt.Errorf("role without id")
		}
		c.roles[r.ID] = r
	}
	for _, s := range doc.Scripts {
		for _, id := range s.Roles {
			if _, ok := c.roles[id]; !ok {
				return nil, fmt.Errorf("script %s: %w: %s", s.ID, ErrUnknownRole, id)
			}
		}
		c.scripts[s.ID] = s
		c.order = append(c.order, s.ID)
	}
	return c, nil
}

// Role 查找角色
func (c *Catalog) Role(id string) (Role, bool) {
	r, ok := c.roles[id]
	return r, ok
}

// Script 查找剧本
func (c *Catalog) Script(id string) (Script, bool) {
	s, ok := c.scripts[id]
	return s, ok
}

// Scripts 全部剧本
func (c *Catalog) Scripts() []Script {
	out := make([]Script, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.scripts[id])
	}
	return out
}

// SeesGrimoire 角色是否能查看全部身份
func (c *Catalog) SeesGrimoire(roleID string) bool {
	r, ok := c.roles[roleID]
	return ok && r.SeesGrimoire
}

// InScript 角色是否属于剧本（伪角色不属于任何剧本）
func (c *Catalog) InScript(scriptID, roleID string) bool {
	s, ok := c.scripts[scriptID]
	if !ok {
		return false
	}
	for _, id := range s.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// ValidPresentation 校验真实身份与告知身份的组合
// 只有带 presents_as 的角色可以被告知为另一个角色，且该角色必须属于指定类别
func (c *Catalog) ValidPresentation(trueID, presentedID string) bool {
	t, ok := c.roles[trueID]
	if !ok || t.Pseudo {
		return false
	}
	if presentedID == "" || presentedID == trueID {
		return t.PresentsAs == ""
	}
	if t.PresentsAs == "" {
		return false
	}
	p, ok := c.roles[presentedID]
	return ok && !p.Pseudo && p.Category == t.PresentsAs
}

// FirstNightOrder 首夜标准顺序（含伪角色）
func (c *Catalog) FirstNightOrder(scriptID string) []string {
	return c.nightOrder(scriptID, func(r Role) int { return r.FirstNight })
}

// OtherNightOrder 其他夜晚标准顺序
func (c *Catalog) OtherNightOrder(scriptID string) []string {
	return c.nightOrder(scriptID, func(r Role) int { return r.OtherNight })
}

func (c *Catalog) nightOrder(scriptID string, index func(Role) int) []string {
	candidates := make([]Role, 0)
	for _, r := range c.roles {
		if index(r) == 0 {
			continue
		}
		if r.Pseudo || c.InScript(scriptID, r.ID) {
			candidates = append(candidates, r)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return index(candidates[i]) < index(candidates[j])
	})

	order := make([]string, len(candidates))
	for i, r := range candidates {
		order[i] = r.ID
	}
	return order
}
