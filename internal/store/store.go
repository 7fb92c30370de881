// Package store 房间文档存储
//
// 整个房间以单个 JSON 文档保存，键为房间码；每次提交整体覆盖并刷新 TTL。
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sudooom.grimoire/internal/model"
)

var (
	// ErrRoomNotFound 文档不存在
	ErrRoomNotFound = errors.New("ROOM_NOT_FOUND")
	// ErrRoomCorrupt 文档无法解析
	ErrRoomCorrupt = errors.New("ROOM_CORRUPT")
)

// DocumentStore 房间文档存储
type DocumentStore interface {
	Load(ctx context.Context, roomID string) (*model.Room, error)
	Save(ctx context.Context, room *model.Room) error
	Delete(ctx context.Context, roomID string) error
}

// RedisStore Redis 文档存储
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore 创建 Redis 文档存储
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "DocumentStore"),
	}
}

// Load 从 Redis 获取房间文档
func (s *RedisStore) Load(ctx context.Context, roomID string) (*model.Room, error) {
	data, err := s.client.Get(ctx, BuildRoomKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		s.logger.Error("Failed to unmarshal room", "roomId", roomID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRoomCorrupt, err)
	}
	return &room, nil
}

// Save 整体写入房间文档并刷新 TTL
func (s *RedisStore) Save(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}
	if err := s.client.Set(ctx, BuildRoomKey(room.RoomID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	return nil
}

// Delete 删除房间文档
func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	return s.client.Del(ctx, BuildRoomKey(roomID)).Err()
}

// MemoryStore 进程内文档存储，保存序列化后的字节，读写互不共享内存
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
	// failSave 非 nil 时 Save 返回该错误，用于模拟存储不可达
	failSave error
}

// NewMemoryStore 创建进程内存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, roomID string) (*model.Room, error) {
	s.mu.RLock()
	data, ok := s.docs[roomID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoomCorrupt, err)
	}
	return &room, nil
}

func (s *MemoryStore) Save(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	s.docs[room.RoomID] = data
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, roomID)
	return nil
}

// SetFailSave 并发安全地切换存储故障
func (s *MemoryStore) SetFailSave(err error) {
	s.mu.Lock()
	s.failSave = err
	s.mu.Unlock()
}

// Put 直接写入原始字节（测试损坏文档用）
func (s *MemoryStore) Put(roomID string, data []byte) {
	s.mu.Lock()
	s.docs[roomID] = data
	s.mu.Unlock()
}
