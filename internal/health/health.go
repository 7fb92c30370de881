package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const (
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
	StateDisabled     = "disabled" // 未配置该依赖
)

const pingTimeout = 2 * time.Second

// Status 健康状态
type Status struct {
	Service  string `json:"service"`
	NATS     string `json:"nats"`
	Redis    string `json:"redis"`
	Database string `json:"database"`
	Rooms    int    `json:"rooms"`
}

// Ready 所有已配置的依赖均已连接
func (s *Status) Ready() bool {
	for _, state := range []string{s.NATS, s.Redis, s.Database} {
		if state == StateDisconnected {
			return false
		}
	}
	return true
}

// RoomCounter 活跃房间计数
type RoomCounter interface {
	ActiveRooms() int
}

// Checker 健康检查器，未配置的依赖传 nil
type Checker struct {
	nc          *nats.Conn
	redisClient *redis.Client
	db          *pgxpool.Pool
	rooms       RoomCounter
}

// NewChecker 创建健康检查器
func NewChecker(nc *nats.Conn, redisClient *redis.Client, db *pgxpool.Pool, rooms RoomCounter) *Checker {
	return &Checker{
		nc:          nc,
		redisClient: redisClient,
		db:          db,
		rooms:       rooms,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service:  "grimoire",
		NATS:     StateDisabled,
		Redis:    StateDisabled,
		Database: StateDisabled,
	}

	// 检查 NATS
	if h.nc != nil {
		status.NATS = state(h.nc.IsConnected())
	}

	// 检查 Redis
	if h.redisClient != nil {
		redisCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		status.Redis = state(h.redisClient.Ping(redisCtx).Err() == nil)
	}

	// 检查 PostgreSQL
	if h.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		status.Database = state(h.db.Ping(dbCtx) == nil)
	}

	if h.rooms != nil {
		status.Rooms = h.rooms.ActiveRooms()
	}
	return status
}

func state(ok bool) string {
	if ok {
		return StateConnected
	}
	return StateDisconnected
}

// Handler /health 总是 200（存活），/ready 在依赖断开时返回 503
func (h *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, h.Check(r.Context()))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())
		code := http.StatusOK
		if !status.Ready() {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, status)
	})
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status *Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
