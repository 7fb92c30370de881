package seat

import (
	"context"
	"sync"

	"sudooom.grimoire/internal/model"
)

type roomLedger struct {
	count int
	seats map[int]model.Occupant
	users map[string]int
}

// MemoryLedger 进程内座位账本，语义与 RedisLedger 一致
type MemoryLedger struct {
	mu    sync.Mutex
	rooms map[string]*roomLedger
}

// NewMemoryLedger 创建进程内账本
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rooms: make(map[string]*roomLedger)}
}

func (l *MemoryLedger) Init(ctx context.Context, roomID string, seatCount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rooms[roomID] = &roomLedger{
		count: seatCount,
		seats: make(map[int]model.Occupant),
		users: make(map[string]int),
	}
	return nil
}

func (l *MemoryLedger) Claim(ctx context.Context, roomID string, seatID int, occupant model.Occupant) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, found := l.rooms[roomID]
	if !found {
		return fail(seatID, ReasonRoomNotFound), nil
	}
	if seatID < 0 || seatID >= r.count {
		return fail(seatID, ReasonInvalidSeat), nil
	}
	if held, seated := r.users[occupant.UserID]; seated {
		if held == seatID {
			return ok(seatID), nil
		}
		return fail(seatID, ReasonAlreadySeated), nil
	}
	if _, taken := r.seats[seatID]; taken {
		return fail(seatID, ReasonSeatOccupied), nil
	}

	r.seats[seatID] = occupant
	r.users[occupant.UserID] = seatID
	return ok(seatID), nil
}

func (l *MemoryLedger) Release(ctx context.Context, roomID string, seatID int, userID string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, found := l.rooms[roomID]
	if !found {
		return fail(seatID, ReasonRoomNotFound), nil
	}
	if held, seated := r.users[userID]; !seated || held != seatID {
		return fail(seatID, ReasonNotOccupant), nil
	}
	delete(r.seats, seatID)
	delete(r.users, userID)
	return ok(seatID), nil
}

func (l *MemoryLedger) ForceRelease(ctx context.Context, roomID string, seatID int) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, found := l.rooms[roomID]
	if !found {
		return fail(seatID, ReasonRoomNotFound), nil
	}
	if seatID < 0 || seatID >= r.count {
		return fail(seatID, ReasonInvalidSeat), nil
	}
	if occ, taken := r.seats[seatID]; taken {
		delete(r.users, occ.UserID)
		delete(r.seats, seatID)
	}
	return ok(seatID), nil
}

func (l *MemoryLedger) Resize(ctx context.Context, roomID string, seatCount int) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, found := l.rooms[roomID]
	if !found {
		return fail(-1, ReasonRoomNotFound), nil
	}
	for id := range r.seats {
		if id >= seatCount {
			return fail(id, ReasonSeatOccupied), nil
		}
	}
	r.count = seatCount
	return ok(-1), nil
}

func (l *MemoryLedger) Snapshot(ctx context.Context, roomID string) (map[int]model.Occupant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, found := l.rooms[roomID]
	if !found {
		return nil, ErrRoomNotFound
	}
	out := make(map[int]model.Occupant, len(r.seats))
	for id, occ := range r.seats {
		out[id] = occ
	}
	return out, nil
}

func (l *MemoryLedger) Restore(ctx context.Context, roomID string, seatCount int, occupants map[int]model.Occupant) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := &roomLedger{
		count: seatCount,
		seats: make(map[int]model.Occupant, len(occupants)),
		users: make(map[string]int, len(occupants)),
	}
	for id, occ := range occupants {
		r.seats[id] = occ
		r.users[occ.UserID] = id
	}
	l.rooms[roomID] = r
	return nil
}

func (l *MemoryLedger) Drop(ctx context.Context, roomID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rooms, roomID)
	return nil
}
