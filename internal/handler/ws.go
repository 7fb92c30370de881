package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sudooom.grimoire/internal/gateway"
	"sudooom.grimoire/internal/middleware"
	"sudooom.grimoire/internal/replication"
	"sudooom.grimoire/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

// 推送与接收的消息类型
const (
	MessageRoom    = "room"
	MessageClosed  = "closed"
	MessageIntent  = "intent"
	MessageOutcome = "outcome"
	MessageError   = "error"
)

// Envelope WebSocket 消息信封
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type serverEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// WSHandler 房间推送通道：连接时推送一次房间，之后每次广播都推送最新文档
type WSHandler struct {
	gateway  *gateway.Gateway
	channel  replication.Channel
	renderer *Renderer
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(gw *gateway.Gateway, channel replication.Channel, renderer *Renderer, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		gateway:  gw,
		channel:  channel,
		renderer: renderer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
		logger: slog.Default().With("component", "WSHandler"),
	}
}

// wsClient 单个连接；读协程与推送协程都会写，写操作串行化
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(value)
}

func (c *wsClient) writeControl(messageType int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, nil, time.Now().Add(writeWait))
}

// Serve GET /ws?room=CODE&token=JWT
func (h *WSHandler) Serve(c *gin.Context) {
	roomID := gateway.NormalizeCode(c.Query("room"))
	actor := actorOf(c)
	ctx := c.Request.Context()

	// 先订阅再加载
	// 订阅回调在网关持有房间锁时同步执行，只记录最新事件并唤醒推送协程
	var latest atomic.Pointer[replication.Event]
	notify := make(chan struct{}, 1)
	unsubscribe, err := h.channel.Subscribe(roomID, func(ev replication.Event) {
		latest.Store(&ev)
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	if err != nil {
		h.logger.Error("Failed to subscribe room", "roomId", roomID, "error", err)
		response.ErrorFromAppError(c, appErrorOf(err))
		return
	}
	defer unsubscribe()

	doc, err := h.gateway.Room(ctx, roomID)
	if err != nil {
		response.ErrorFromAppError(c, appErrorOf(err))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "roomId", roomID, "error", err)
		return
	}
	client := &wsClient{conn: conn}
	defer conn.Close()

	if err := client.writeJSON(serverEnvelope{Type: MessageRoom, Payload: h.renderer.Render(doc, actor.UserID)}); err != nil {
		return
	}
	h.logger.Info("Websocket connected", "roomId", roomID, "userId", actor.UserID)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.pushLoop(ctx, client, roomID, actor.UserID, doc.Version, &latest, notify, done)
	}()

	h.readLoop(ctx, client, roomID, actor)
	close(done)
	wg.Wait()
	h.logger.Info("Websocket disconnected", "roomId", roomID, "userId", actor.UserID)
}

// pushLoop 推送房间更新与心跳
func (h *WSHandler) pushLoop(ctx context.Context, client *wsClient, roomID, viewerID string, sent int64,
	latest *atomic.Pointer[replication.Event], notify <-chan struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.writeControl(websocket.PingMessage); err != nil {
				return
			}
		case <-notify:
			ev := latest.Load()
			if ev == nil {
				continue
			}
			if ev.Type == replication.EventRoomClosed {
				_ = client.writeJSON(serverEnvelope{Type: MessageClosed, Payload: gin.H{"roomId": roomID}})
				_ = client.writeControl(websocket.CloseMessage)
				_ = client.conn.Close()
				return
			}
			if ev.Version < sent {
				continue
			}

			doc := ev.Room
			if doc == nil {
				var err error
				if doc, err = h.gateway.Room(ctx, roomID); err != nil {
					h.logger.Warn("Failed to load room for push", "roomId", roomID, "error", err)
					continue
				}
			}
			if err := client.writeJSON(serverEnvelope{Type: MessageRoom, Payload: h.renderer.Render(doc, viewerID)}); err != nil {
				return
			}
			sent = doc.Version
		}
	}
}

// readLoop 读取客户端意图，直到连接断开
func (h *WSHandler) readLoop(ctx context.Context, client *wsClient, roomID string, actor gateway.Actor) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Websocket read error", "roomId", roomID, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type != MessageIntent {
			_ = client.writeJSON(serverEnvelope{Type: MessageError, Payload: "invalid message"})
			continue
		}
		var intent gateway.Intent
		if err := json.Unmarshal(env.Payload, &intent); err != nil {
			_ = client.writeJSON(serverEnvelope{Type: MessageError, Payload: "invalid intent"})
			continue
		}

		out, err := h.gateway.Dispatch(ctx, roomID, actor, intent)
		if err != nil {
			_ = client.writeJSON(serverEnvelope{Type: MessageError, Payload: appErrorOf(err).Message})
			continue
		}
		if err := client.writeJSON(serverEnvelope{Type: MessageOutcome, Payload: out}); err != nil {
			return
		}
	}
}
