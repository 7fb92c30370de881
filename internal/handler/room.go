package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.grimoire/internal/gateway"
	"sudooom.grimoire/internal/middleware"
	"sudooom.grimoire/pkg/response"
)

// RoomHandler 房间处理器
type RoomHandler struct {
	gateway       *gateway.Gateway
	renderer      *Renderer
	defaultScript string
	logger        *slog.Logger
}

// NewRoomHandler 创建房间处理器
func NewRoomHandler(gw *gateway.Gateway, renderer *Renderer, defaultScript string) *RoomHandler {
	return &RoomHandler{
		gateway:       gw,
		renderer:      renderer,
		defaultScript: defaultScript,
		logger:        slog.Default().With("component", "RoomHandler"),
	}
}

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	SeatCount int    `json:"seatCount" binding:"required"`
	ScriptID  string `json:"scriptId"`
}

// OutcomeData 意图处理结果；生效时附带调用者视角的房间
type OutcomeData struct {
	gateway.Outcome
	Payload *Payload `json:"payload,omitempty"`
}

func actorOf(c *gin.Context) gateway.Actor {
	return gateway.Actor{
		UserID:      middleware.GetUserID(c),
		DisplayName: middleware.GetDisplayName(c),
	}
}

func roomCode(c *gin.Context) string {
	return gateway.NormalizeCode(c.Param("code"))
}

// CreateRoom 创建房间，调用者成为说书人
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}
	if req.ScriptID == "" {
		req.ScriptID = h.defaultScript
	}

	actor := actorOf(c)
	doc, err := h.gateway.CreateRoom(c.Request.Context(), actor, req.SeatCount, req.ScriptID)
	if err != nil {
		h.logger.Warn("Failed to create room", "userId", actor.UserID, "error", err)
		response.ErrorFromAppError(c, appErrorOf(err))
		return
	}
	response.Success(c, h.renderer.Render(doc, actor.UserID))
}

// GetRoom 调用者视角的房间
func (h *RoomHandler) GetRoom(c *gin.Context) {
	doc, err := h.gateway.Room(c.Request.Context(), roomCode(c))
	if err != nil {
		response.ErrorFromAppError(c, appErrorOf(err))
		return
	}
	response.Success(c, h.renderer.Render(doc, middleware.GetUserID(c)))
}

// Dispatch 提交一条意图
func (h *RoomHandler) Dispatch(c *gin.Context) {
	var intent gateway.Intent
	if err := c.ShouldBindJSON(&intent); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}
	h.dispatch(c, intent)
}

// ClaimSeat 认领座位
func (h *RoomHandler) ClaimSeat(c *gin.Context) {
	h.seatIntent(c, gateway.IntentClaimSeat)
}

// ReleaseSeat 离开座位
func (h *RoomHandler) ReleaseSeat(c *gin.Context) {
	h.seatIntent(c, gateway.IntentReleaseSeat)
}

func (h *RoomHandler) seatIntent(c *gin.Context, kind gateway.IntentType) {
	seatID, err := strconv.Atoi(c.Param("seat"))
	if err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, "invalid seat id")
		return
	}
	h.dispatch(c, gateway.Intent{
		Type:      kind,
		SeatID:    seatID,
		RequestID: c.Query("requestId"),
	})
}

func (h *RoomHandler) dispatch(c *gin.Context, intent gateway.Intent) {
	actor := actorOf(c)
	out, err := h.gateway.Dispatch(c.Request.Context(), roomCode(c), actor, intent)
	if err != nil {
		response.ErrorFromAppError(c, appErrorOf(err))
		return
	}

	data := OutcomeData{Outcome: out}
	if out.Room != nil {
		payload := h.renderer.Render(out.Room, actor.UserID)
		data.Payload = &payload
	}

	code := outcomeCode(out)
	if code == response.CodeSuccess {
		response.Success(c, data)
		return
	}
	response.ErrorWithData(c, code, out.Reason, data)
}

// CloseRoom 说书人关闭房间
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	if err := h.gateway.CloseRoom(c.Request.Context(), roomCode(c), actorOf(c)); err != nil {
		response.ErrorFromAppError(c, appErrorOf(err))
		return
	}
	response.Success(c, nil)
}

// ListScripts 可用剧本
func (h *RoomHandler) ListScripts(c *gin.Context) {
	response.Success(c, h.gateway.Catalog().Scripts())
}
