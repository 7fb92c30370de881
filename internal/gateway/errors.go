package gateway

import "errors"

// 网关错误定义

var (
	// ErrRoomUnavailable 房间文档不存在或无法解析，调用方决定重试或放弃
	ErrRoomUnavailable = errors.New("ROOM_UNAVAILABLE")

	// ErrTooManyRooms 进程内房间数已达上限
	ErrTooManyRooms = errors.New("TOO_MANY_ROOMS")
)

// 授权失败（DENIED）
var (
	ErrNoIdentity       = errors.New("NO_IDENTITY")
	ErrNotStoryteller   = errors.New("NOT_STORYTELLER")
	ErrNotOccupant      = errors.New("NOT_SEAT_OCCUPANT")
	ErrWrongPhase       = errors.New("WRONG_PHASE")
	ErrRolesDistributed = errors.New("ROLES_DISTRIBUTED")
	ErrRolesNotDealt    = errors.New("ROLES_NOT_DISTRIBUTED")
	ErrGameOver         = errors.New("GAME_OVER")
	ErrUnknownIntent    = errors.New("UNKNOWN_INTENT")
)

// 前置条件失败（REJECTED，写入旁白日志）
var (
	ErrStorytellerSeat     = errors.New("STORYTELLER_CANNOT_SIT")
	ErrSeatEmpty           = errors.New("SEAT_EMPTY")
	ErrSeatsOccupied       = errors.New("OCCUPIED_SEAT_REMOVED")
	ErrMissingField        = errors.New("MISSING_FIELD")
	ErrInvalidSeatCount    = errors.New("INVALID_SEAT_COUNT")
	ErrRolesMissing        = errors.New("ROLES_MISSING")
	ErrNotEnoughPlayers    = errors.New("NOT_ENOUGH_PLAYERS")
	ErrInvalidRole         = errors.New("INVALID_ROLE")
	ErrInvalidPresentation = errors.New("INVALID_PRESENTATION")
	ErrNoNominee           = errors.New("NO_NOMINEE")
	ErrEmptyText           = errors.New("EMPTY_TEXT")
	ErrTextTooLong         = errors.New("TEXT_TOO_LONG")
	ErrInvalidWinner       = errors.New("INVALID_WINNER")
	ErrInvalidStatus       = errors.New("INVALID_STATUS")
	ErrReminderNotFound    = errors.New("REMINDER_NOT_FOUND")
	ErrUnknownRecipient    = errors.New("UNKNOWN_RECIPIENT")
)
