package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

const fireTimeout = 5 * time.Second

type dispatcher interface {
	Dispatch(ctx context.Context, roomID, actorID string, cmd entity.Command) (*entity.Room, error)
}

// TurnAuthority is the single owner of every room's countdown. Timers are
// derived only from committed snapshots: each Observe replaces whatever was
// scheduled for that room, so a deadline cancelled by any other path never
// fires into live state, and a stale firing loses the version race anyway.
type TurnAuthority struct {
	logger   *slog.Logger
	dispatch dispatcher

	mu       sync.Mutex
	timers   map[string]*time.Timer
	observed map[string]int64
	closed   bool

	now func() time.Time
}

func NewTurnAuthority(logger *slog.Logger) *TurnAuthority {
	return &TurnAuthority{
		logger:   logger.With("component", "turn-authority"),
		timers:   make(map[string]*time.Timer),
		observed: make(map[string]int64),
		now:      time.Now,
	}
}

// Bind wires the coordinator in after construction; the coordinator and the
// authority reference each other.
func (that *TurnAuthority) Bind(dispatch dispatcher) {
	that.dispatch = dispatch
}

// Observe re-derives the scheduled action for the room from a committed
// snapshot: resolve the pending pair once the reveal delay elapses when two
// cards are flipped, force a turn timeout at the deadline when fewer are,
// nothing otherwise. Commits may report out of order, so snapshots at or
// below the last observed version are dropped; only a strictly newer
// snapshot may replace or cancel the pending timer.
func (that *TurnAuthority) Observe(room *entity.Room) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if room.Version <= that.observed[room.ID] {
		return
	}
	that.observed[room.ID] = room.Version

	if timer, ok := that.timers[room.ID]; ok {
		timer.Stop()
		delete(that.timers, room.ID)
	}

	if that.closed {
		return
	}

	state := room.GameData.Memory
	if room.Game != entity.GameMemory || state == nil {
		return
	}
	if state.Phase != entity.MemoryPhasePlaying || state.DeadlineAt == nil {
		return
	}

	cmdType := entity.CommandTurnTimeout
	if len(state.Flipped) == 2 {
		cmdType = entity.CommandResolvePair
	}

	delay := time.UnixMilli(*state.DeadlineAt).Sub(that.now())
	if delay < 0 {
		delay = 0
	}

	roomID := room.ID
	that.timers[roomID] = time.AfterFunc(delay, func() {
		that.fire(roomID, cmdType)
	})
}

// Forget drops any pending timer for the room, e.g. when it is deleted.
func (that *TurnAuthority) Forget(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if timer, ok := that.timers[roomID]; ok {
		timer.Stop()
		delete(that.timers, roomID)
	}
	delete(that.observed, roomID)
}

// Shutdown stops every pending timer.
func (that *TurnAuthority) Shutdown() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
	for id, timer := range that.timers {
		timer.Stop()
		delete(that.timers, id)
	}
}

func (that *TurnAuthority) fire(roomID string, cmdType entity.CommandType) {
	log := that.logger.With("method", "fire", "room", roomID, "command", cmdType)

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	_, err := that.dispatch.Dispatch(ctx, roomID, SystemActor, entity.Command{Type: cmdType})
	if err == nil {
		return
	}

	// a player command beat the deadline; the precondition rejection is
	// the cancellation working as intended
	if errors.Is(err, apperror.ErrWrongPhase) || errors.Is(err, apperror.ErrRoomNotFound) {
		log.Debug("scheduled command is stale", "error", err)
		return
	}

	log.Error("failed to dispatch scheduled command", "error", err)
}
