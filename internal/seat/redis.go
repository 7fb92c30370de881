package seat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sudooom.grimoire/internal/model"
	"sudooom.grimoire/internal/store"
)

// KEYS: 1=meta 2=seats 3=occupants
// ARGV: 1=seatId 2=userId 3=occupantJSON 4=ttlSeconds
var claimScript = redis.NewScript(`
local count = redis.call('HGET', KEYS[1], 'count')
if not count then
  return {0, 'ROOM_NOT_FOUND'}
end
local seat = tonumber(ARGV[1])
if seat == nil or seat < 0 or seat >= tonumber(count) then
  return {0, 'INVALID_SEAT'}
end
local held = redis.call('HGET', KEYS[3], ARGV[2])
if held then
  if held == ARGV[1] then
    return {1, 'OK'}
  end
  return {0, 'ALREADY_SEATED'}
end
if redis.call('HEXISTS', KEYS[2], ARGV[1]) == 1 then
  return {0, 'SEAT_OCCUPIED'}
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
redis.call('HSET', KEYS[3], ARGV[2], ARGV[1])
local ttl = tonumber(ARGV[4])
if ttl and ttl > 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
  redis.call('EXPIRE', KEYS[2], ttl)
  redis.call('EXPIRE', KEYS[3], ttl)
end
return {1, 'OK'}
`)

// KEYS: 1=meta 2=seats 3=occupants
// ARGV: 1=seatId 2=userId
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0, 'ROOM_NOT_FOUND'}
end
local held = redis.call('HGET', KEYS[3], ARGV[2])
if held ~= ARGV[1] then
  return {0, 'NOT_OCCUPANT'}
end
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[2])
return {1, 'OK'}
`)

// KEYS: 1=meta 2=seats 3=occupants
// ARGV: 1=seatId
var forceReleaseScript = redis.NewScript(`
local count = redis.call('HGET', KEYS[1], 'count')
if not count then
  return {0, 'ROOM_NOT_FOUND'}
end
local seat = tonumber(ARGV[1])
if seat == nil or seat < 0 or seat >= tonumber(count) then
  return {0, 'INVALID_SEAT'}
end
local occ = redis.call('HGET', KEYS[2], ARGV[1])
if occ then
  local decoded = cjson.decode(occ)
  redis.call('HDEL', KEYS[3], decoded['userId'])
  redis.call('HDEL', KEYS[2], ARGV[1])
end
return {1, 'OK'}
`)

// KEYS: 1=meta 2=seats
// ARGV: 1=newCount
var resizeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0, 'ROOM_NOT_FOUND'}
end
local limit = tonumber(ARGV[1])
for _, field in ipairs(redis.call('HKEYS', KEYS[2])) do
  if tonumber(field) >= limit then
    return {0, 'SEAT_OCCUPIED'}
  end
end
redis.call('HSET', KEYS[1], 'count', ARGV[1])
return {1, 'OK'}
`)

// RedisLedger 基于 Redis Lua 脚本的座位账本
// 每个认领/释放都是一次往返的原子脚本调用
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLedger 创建 Redis 座位账本，ttl 与房间文档保持一致
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "SeatLedger"),
	}
}

func keys(roomID string) []string {
	return []string{
		store.BuildLedgerMetaKey(roomID),
		store.BuildSeatsKey(roomID),
		store.BuildOccupantsKey(roomID),
	}
}

func (l *RedisLedger) Init(ctx context.Context, roomID string, seatCount int) error {
	return l.Restore(ctx, roomID, seatCount, nil)
}

func (l *RedisLedger) Claim(ctx context.Context, roomID string, seatID int, occupant model.Occupant) (Result, error) {
	data, err := json.Marshal(occupant)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal occupant: %w", err)
	}

	raw, err := claimScript.Run(ctx, l.client, keys(roomID),
		seatID, occupant.UserID, string(data), int64(l.ttl/time.Second)).Result()
	if err != nil {
		l.logger.Error("Seat claim script failed", "roomId", roomID, "seatId", seatID, "error", err)
		return Result{}, fmt.Errorf("seat claim: %w", err)
	}
	return parseResult(raw, seatID)
}

func (l *RedisLedger) Release(ctx context.Context, roomID string, seatID int, userID string) (Result, error) {
	raw, err := releaseScript.Run(ctx, l.client, keys(roomID), seatID, userID).Result()
	if err != nil {
		l.logger.Error("Seat release script failed", "roomId", roomID, "seatId", seatID, "error", err)
		return Result{}, fmt.Errorf("seat release: %w", err)
	}
	return parseResult(raw, seatID)
}

func (l *RedisLedger) ForceRelease(ctx context.Context, roomID string, seatID int) (Result, error) {
	raw, err := forceReleaseScript.Run(ctx, l.client, keys(roomID), seatID).Result()
	if err != nil {
		return Result{}, fmt.Errorf("seat force release: %w", err)
	}
	return parseResult(raw, seatID)
}

func (l *RedisLedger) Resize(ctx context.Context, roomID string, seatCount int) (Result, error) {
	raw, err := resizeScript.Run(ctx, l.client, keys(roomID)[:2], seatCount).Result()
	if err != nil {
		return Result{}, fmt.Errorf("seat resize: %w", err)
	}
	return parseResult(raw, -1)
}

func (l *RedisLedger) Snapshot(ctx context.Context, roomID string) (map[int]model.Occupant, error) {
	exists, err := l.client.Exists(ctx, store.BuildLedgerMetaKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrRoomNotFound
	}

	fields, err := l.client.HGetAll(ctx, store.BuildSeatsKey(roomID)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[int]model.Occupant, len(fields))
	for field, data := range fields {
		id, err := strconv.Atoi(field)
		if err != nil {
			l.logger.Warn("Invalid seat field in ledger", "roomId", roomID, "field", field)
			continue
		}
		var occ model.Occupant
		if err := json.Unmarshal([]byte(data), &occ); err != nil {
			l.logger.Warn("Invalid occupant in ledger", "roomId", roomID, "seatId", id, "error", err)
			continue
		}
		out[id] = occ
	}
	return out, nil
}

func (l *RedisLedger) Restore(ctx context.Context, roomID string, seatCount int, occupants map[int]model.Occupant) error {
	k := keys(roomID)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k[1], k[2])
		pipe.HSet(ctx, k[0], "count", seatCount)
		for id, occ := range occupants {
			data, err := json.Marshal(occ)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, k[1], strconv.Itoa(id), string(data))
			pipe.HSet(ctx, k[2], occ.UserID, strconv.Itoa(id))
		}
		if l.ttl > 0 {
			for _, key := range k {
				pipe.Expire(ctx, key, l.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seat ledger restore: %w", err)
	}
	return nil
}

func (l *RedisLedger) Drop(ctx context.Context, roomID string) error {
	return l.client.Del(ctx, keys(roomID)...).Err()
}

// parseResult 解析脚本返回的 {成功标记, 原因}
func parseResult(raw interface{}, seatID int) (Result, error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return Result{}, fmt.Errorf("unexpected script reply: %v", raw)
	}
	flag, _ := values[0].(int64)
	reason, _ := values[1].(string)
	return Result{OK: flag == 1, Reason: reason, SeatID: seatID}, nil
}
