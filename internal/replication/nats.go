package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix 房间广播主题前缀
const DefaultSubjectPrefix = "grimoire.room"

// ErrNotConnected NATS 未连接
var ErrNotConnected = errors.New("NATS_NOT_CONNECTED")

// ClientConfig NATS 连接配置
type ClientConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Connect 创建 NATS 连接
func Connect(cfg ClientConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("grimoire"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
		nats.Timeout(10 * time.Second),
	}

	return nats.Connect(cfg.URL, opts...)
}

// BuildRoomSubject 房间广播主题
// Subject: grimoire.room.{roomId}
func BuildRoomSubject(prefix, roomID string) string {
	return fmt.Sprintf("%s.%s", prefix, roomID)
}

// NATSChannel 基于 NATS 的跨实例广播
type NATSChannel struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSChannel 创建 NATS 广播通道
func NewNATSChannel(nc *nats.Conn, prefix string) *NATSChannel {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSChannel{
		nc:     nc,
		prefix: prefix,
		logger: slog.Default().With("component", "NATSChannel"),
	}
}

// Publish 发布房间事件
// 连接断开时 nats.go 会缓冲消息，这里显式检查连接状态以便网关进入降级模式
func (c *NATSChannel) Publish(ctx context.Context, event Event) error {
	if !c.nc.IsConnected() {
		return ErrNotConnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("Failed to marshal event", "roomId", event.RoomID, "error", err)
		return err
	}

	subject := BuildRoomSubject(c.prefix, event.RoomID)
	if err := c.nc.Publish(subject, data); err != nil {
		c.logger.Error("Failed to publish room event", "roomId", event.RoomID, "error", err)
		return err
	}

	c.logger.Debug("Published room event", "subject", subject, "type", event.Type, "version", event.Version)
	return nil
}

// Subscribe 订阅房间事件
func (c *NATSChannel) Subscribe(roomID string, handler Handler) (func(), error) {
	subject := BuildRoomSubject(c.prefix, roomID)
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logger.Error("Failed to unmarshal event", "subject", msg.Subject, "error", err)
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, err
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.logger.Warn("Failed to unsubscribe", "subject", subject, "error", err)
		}
	}, nil
}
