package store

import "fmt"

const (
	// RoomKeyPrefix 房间相关 Redis Key 前缀
	RoomKeyPrefix = "grimoire:room:"
)

// BuildRoomKey 房间文档 Key
// Key: grimoire:room:{roomId}
func BuildRoomKey(roomID string) string {
	return RoomKeyPrefix + roomID
}

// BuildRoomLockKey 房间分布式锁 Key
func BuildRoomLockKey(roomID string) string {
	return fmt.Sprintf("%s%s:lock", RoomKeyPrefix, roomID)
}

// BuildLedgerMetaKey 座位账本元数据 Key（座位数）
func BuildLedgerMetaKey(roomID string) string {
	return fmt.Sprintf("%s%s:ledger", RoomKeyPrefix, roomID)
}

// BuildSeatsKey 座位 -> 占据者 JSON
func BuildSeatsKey(roomID string) string {
	return fmt.Sprintf("%s%s:seats", RoomKeyPrefix, roomID)
}

// BuildOccupantsKey 用户 -> 座位
func BuildOccupantsKey(roomID string) string {
	return fmt.Sprintf("%s%s:occupants", RoomKeyPrefix, roomID)
}
