package handler

import (
	"errors"

	"sudooom.grimoire/internal/apperr"
	"sudooom.grimoire/internal/auth"
	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/gateway"
	"sudooom.grimoire/internal/store"
)

// appErrorOf 把网关、目录与令牌错误映射为对外错误码
func appErrorOf(err error) *apperr.AppError {
	var appErr *apperr.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, gateway.ErrRoomUnavailable):
		return apperr.ErrRoomUnavailable.Wrap(err)
	case errors.Is(err, gateway.ErrTooManyRooms):
		return apperr.ErrTooManyRooms.Wrap(err)
	case errors.Is(err, gateway.ErrNoIdentity):
		return apperr.ErrUnauthorized.Wrap(err)
	case errors.Is(err, gateway.ErrNotStoryteller):
		return apperr.ErrDenied.Wrap(err)
	case errors.Is(err, gateway.ErrInvalidSeatCount),
		errors.Is(err, catalog.ErrUnknownScript):
		return apperr.ErrInvalidParams.WithMessage(err.Error())
	case errors.Is(err, store.ErrRoomBusy):
		return apperr.ErrRoomBusy.Wrap(err)
	case errors.Is(err, auth.ErrTokenExpired):
		return apperr.ErrTokenExpired
	case errors.Is(err, auth.ErrTokenInvalid):
		return apperr.ErrTokenInvalid
	default:
		return apperr.ErrServerError.Wrap(err)
	}
}

// outcomeCode 意图处理结果对应的响应码
// DUPLICATE 视为成功：同一请求已经生效过
func outcomeCode(out gateway.Outcome) int {
	switch out.Status {
	case gateway.StatusApplied, gateway.StatusDuplicate:
		return apperr.CodeSuccess
	case gateway.StatusContended:
		return apperr.CodeSeatContention
	case gateway.StatusRejected:
		return apperr.CodePrecondition
	case gateway.StatusDenied:
		if out.Reason == store.ErrRoomBusy.Error() {
			return apperr.CodeRoomBusy
		}
		return apperr.CodeDenied
	default:
		return apperr.CodeServerError
	}
}
