package gateway

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/replication"
	"sudooom.grimoire/internal/store"
	"sudooom.grimoire/internal/visibility"
)

// 房间码字母表（去掉易混淆的 I 和 O）
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	codeLength   = 4
	codeAttempts = 16
)

var errCodeExhausted = errors.New("ROOM_CODE_EXHAUSTED")

// CreateRoom 创建房间，调用者成为说书人
func (g *Gateway) CreateRoom(ctx context.Context, storyteller Actor, seatCount int, scriptID string) (*model.Room, error) {
	if storyteller.UserID == "" {
		return nil, ErrNoIdentity
	}
	if seatCount < g.opts.MinSeats || seatCount > g.opts.MaxSeats {
		return nil, ErrInvalidSeatCount
	}
	if _, ok := g.catalog.Script(scriptID); !ok {
		return nil, catalog.ErrUnknownScript
	}
	if g.rooms.count() >= g.opts.MaxRooms {
		return nil, ErrTooManyRooms
	}

	roomID, err := g.freeCode(ctx)
	if err != nil {
		return nil, err
	}

	now := g.now()
	name := strings.TrimSpace(storyteller.DisplayName)
	if name == "" {
		name = "Storyteller"
	}
	doc := model.NewRoom(roomID, scriptID, storyteller.UserID, name, seatCount, now)
	doc.Version = 1
	doc.AppendLog(fmt.Sprintf("room created by %s with %d seats", name, seatCount), false, now)

	if err := g.ledger.Init(ctx, roomID, seatCount); err != nil {
		return nil, fmt.Errorf("failed to init seat ledger: %w", err)
	}
	if err := g.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save room: %w", err)
	}

	e := g.rooms.getOrCreate(roomID)
	e.mu.Lock()
	e.doc = doc
	e.lastActive = now
	e.mu.Unlock()

	g.logger.Info("Room created", "roomId", roomID, "userId", storyteller.UserID, "seats", seatCount, "script", scriptID)
	return doc.Clone(), nil
}

// freeCode 生成一个存储中不存在的房间码
func (g *Gateway) freeCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		if _, ok := g.rooms.get(code); ok {
			continue
		}
		_, err = g.store.Load(ctx, code)
		switch {
		case errors.Is(err, store.ErrRoomNotFound):
			return code, nil
		case err == nil, errors.Is(err, store.ErrRoomCorrupt):
			continue
		default:
			return "", fmt.Errorf("failed to check room code: %w", err)
		}
	}
	return "", errCodeExhausted
}

func randomCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode 房间码统一为大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CloseRoom 说书人关闭房间：未归档的已开局对局先归档，然后删除文档与座位账本
func (g *Gateway) CloseRoom(ctx context.Context, roomID string, actor Actor) error {
	e := g.rooms.getOrCreate(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := g.refresh(ctx, e); err != nil {
		return err
	}
	doc := e.doc
	if !doc.IsStoryteller(actor.UserID) {
		return ErrNotStoryteller
	}

	if !doc.Archived && doc.NightNumber > 0 {
		closing := doc.Clone()
		g.emitArchive(closing, g.now())
	}

	if err := g.store.Delete(ctx, roomID); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if err := g.ledger.Drop(ctx, roomID); err != nil {
		g.logger.Error("Failed to drop seat ledger", "roomId", roomID, "error", err)
	}
	if err := g.channel.Publish(ctx, replication.Event{
		Type:    replication.EventRoomClosed,
		RoomID:  roomID,
		Version: doc.Version,
	}); err != nil {
		g.logger.Error("Failed to publish room closed", "roomId", roomID, "error", err)
	}

	g.rooms.remove(roomID)
	e.doc = nil
	g.logger.Info("Room closed", "roomId", roomID, "userId", actor.UserID)
	return nil
}

// Room 当前房间文档（副本）
func (g *Gateway) Room(ctx context.Context, roomID string) (*model.Room, error) {
	e := g.rooms.getOrCreate(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := g.refresh(ctx, e); err != nil {
		return nil, err
	}
	e.lastActive = g.now()
	return e.doc.Clone(), nil
}

// View 按观察者身份过滤后的房间
func (g *Gateway) View(ctx context.Context, roomID, viewerID string) (visibility.View, error) {
	doc, err := g.Room(ctx, roomID)
	if err != nil {
		return visibility.View{}, err
	}
	return visibility.New(g.catalog).Apply(doc, viewerID, doc.IsStoryteller(viewerID)), nil
}
