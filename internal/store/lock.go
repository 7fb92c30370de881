package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockFailed 获取锁失败（Redis 不可达）
	ErrLockFailed = errors.New("LOCK_FAILED")
	// ErrRoomBusy 房间正被其他进程操作
	ErrRoomBusy = errors.New("ROOM_BUSY")
)

// Locker 跨进程房间锁
type Locker interface {
	// Lock 获取房间锁，返回释放函数
	Lock(ctx context.Context, roomID string) (unlock func(), err error)
}

// 只删除自己持有的锁，避免锁过期后误删他人的锁
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker 基于 SETNX 的房间分布式锁
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker 创建分布式锁
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, roomID string) (func(), error) {
	key := BuildRoomLockKey(roomID)
	token := uuid.NewString()

	locked, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockFailed, err)
	}
	if !locked {
		return nil, ErrRoomBusy
	}

	return func() {
		// 调用方的 ctx 可能已取消，释放锁使用独立的短超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlockScript.Run(releaseCtx, l.client, []string{key}, token)
	}, nil
}

// NopLocker 单进程部署使用，房间内串行由网关的进程内互斥保证
type NopLocker struct{}

func (NopLocker) Lock(ctx context.Context, roomID string) (func(), error) {
	return func() {}, nil
}
