package handler

import (
	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/visibility"
)

// Payload 下发给客户端的房间载荷
// Room 为完整文档（客户端自行过滤）或服务端过滤后的视图
type Payload struct {
	Viewer visibility.Viewer `json:"viewer"`
	Room   any               `json:"room"`
}

// Renderer 按观看者渲染房间
type Renderer struct {
	filter     *visibility.Filter
	edgeFilter bool
}

// NewRenderer 创建渲染器，edgeFilter 为 true 时在服务端应用可见性过滤
func NewRenderer(roles visibility.Roles, edgeFilter bool) *Renderer {
	return &Renderer{filter: visibility.New(roles), edgeFilter: edgeFilter}
}

// Render 渲染房间载荷
func (r *Renderer) Render(doc *model.Room, viewerID string) Payload {
	if r.edgeFilter {
		view := r.filter.Apply(doc, viewerID, doc.IsStoryteller(viewerID))
		return Payload{Viewer: view.Viewer, Room: view}
	}
	return Payload{Viewer: r.filter.Describe(doc, viewerID), Room: doc}
}
