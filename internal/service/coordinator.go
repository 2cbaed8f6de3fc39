package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
	"github.com/jonxycate/juegos-parejas-backend/internal/game"
	"github.com/jonxycate/juegos-parejas-backend/internal/pkg"
	"github.com/jonxycate/juegos-parejas-backend/internal/repository"
)

// SystemActor is the identity the turn authority dispatches synthetic
// commands under.
const SystemActor = "@turn-authority"

const createCodeAttempts = 3

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	CommitIfVersion(ctx context.Context, room *entity.Room) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (*repository.RoomSubscription, error)
}

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
}

// snapshotObserver is notified of every committed snapshot so the turn
// authority can re-derive its timers from committed state only.
type snapshotObserver interface {
	Observe(room *entity.Room)
}

// RoomCoordinator owns the top-level room phase machine and is the single
// mutation entry point: every change is a read-copy-apply cycle committed
// with a compare-and-swap on the room version and retried a bounded number
// of times.
type RoomCoordinator struct {
	logger *slog.Logger

	rooms    roomRepo
	players  playerRepo
	engines  game.Registry
	observer snapshotObserver

	commitRetries int
	now           func() time.Time
	newRoomCode   func() string
}

func NewRoomCoordinator(logger *slog.Logger, rooms roomRepo, players playerRepo, engines game.Registry, observer snapshotObserver, commitRetries int) *RoomCoordinator {
	return &RoomCoordinator{
		logger: logger.With("component", "coordinator"),

		rooms:    rooms,
		players:  players,
		engines:  engines,
		observer: observer,

		commitRetries: commitRetries,
		now:           time.Now,
		newRoomCode:   pkg.GenerateRoomCode,
	}
}

// CreateRoom opens a new room with the caller seated as p1.
func (that *RoomCoordinator) CreateRoom(ctx context.Context, playerID string) (*entity.Room, error) {
	player, err := that.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	var room *entity.Room
	for attempt := 0; attempt < createCodeAttempts; attempt++ {
		code := that.newRoomCode()

		seat := *player
		seat.RoomID = code
		seat.Connected = true

		room = entity.NewRoom(code, &seat)

		err = that.rooms.Create(ctx, room)
		if errors.Is(err, apperror.ErrRoomExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		player.RoomID = code
		if err = that.players.CreateOrUpdate(ctx, player); err != nil {
			// the room would otherwise be left behind without a player
			// mapping pointing at it
			if delErr := that.rooms.DeleteByID(ctx, code); delErr != nil {
				that.logger.Error("failed to delete orphaned room", "room", code, "error", delErr)
			}

			return nil, fmt.Errorf("failed to update player: %w", err)
		}

		that.logger.Info("room created", "room", code, "player", playerID)

		return room, nil
	}

	return nil, fmt.Errorf("%w: could not allocate a free code", apperror.ErrRoomExists)
}

// JoinRoom seats the caller into the room's free slot. Joining a room the
// caller is already seated in is a no-op that returns the current state.
func (that *RoomCoordinator) JoinRoom(ctx context.Context, roomID, playerID string) (*entity.Room, entity.Role, error) {
	player, err := that.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get player by id: %w", err)
	}

	var role entity.Role
	room, err := that.update(ctx, roomID, func(room *entity.Room) error {
		seat := *player
		seat.RoomID = room.ID
		seat.Connected = true

		role, err = room.Seat(&seat)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	player.RoomID = room.ID
	if err = that.players.CreateOrUpdate(ctx, player); err != nil {
		return nil, "", fmt.Errorf("failed to update player: %w", err)
	}

	that.logger.Info("player joined", "room", roomID, "player", playerID, "role", role)

	return room, role, nil
}

// SelectGame lets p1 pick the game kind; valid before the first game starts
// and again after a round finished, never mid-game.
func (that *RoomCoordinator) SelectGame(ctx context.Context, roomID, playerID string, kind entity.GameKind) (*entity.Room, error) {
	engine, err := that.engines.ForKind(kind)
	if err != nil {
		return nil, err
	}

	return that.update(ctx, roomID, func(room *entity.Room) error {
		role, ok := room.RoleOf(playerID)
		if !ok || role != entity.RoleP1 {
			return apperror.ErrNotYourTurn
		}

		if !room.IsReady() && !room.IsFinished() {
			return apperror.ErrWrongPhase
		}

		room.Game = kind
		room.GameData = entity.GameData{}
		if err := engine.NewRound(room); err != nil {
			return err
		}
		room.Phase = entity.PhasePlaying

		return nil
	})
}

// Dispatch validates and applies one game command through the active
// engine. The turn authority uses the same path with the SystemActor
// identity, so timeouts are indistinguishable from player commands in the
// commit pipeline.
func (that *RoomCoordinator) Dispatch(ctx context.Context, roomID, actorID string, cmd entity.Command) (*entity.Room, error) {
	return that.update(ctx, roomID, func(room *entity.Room) error {
		role, err := that.resolveRole(room, actorID)
		if err != nil {
			return err
		}

		if !room.IsPlaying() {
			return apperror.ErrWrongPhase
		}

		engine, err := that.engines.ForKind(room.Game)
		if err != nil {
			return err
		}

		return engine.Apply(room, role, cmd, that.now())
	})
}

// NextRound re-initializes the finished game from its factory, applying the
// kind's role-swap rule.
func (that *RoomCoordinator) NextRound(ctx context.Context, roomID, playerID string) (*entity.Room, error) {
	return that.update(ctx, roomID, func(room *entity.Room) error {
		if _, ok := room.RoleOf(playerID); !ok {
			return apperror.ErrNotYourTurn
		}

		engine, err := that.engines.ForKind(room.Game)
		if err != nil {
			return err
		}

		if !engine.RoundOver(room) {
			return apperror.ErrWrongPhase
		}

		if err := engine.NewRound(room); err != nil {
			return err
		}
		room.Phase = entity.PhasePlaying

		return nil
	})
}

// SetConnected mirrors the transport's view of a player's connectivity into
// the room document.
func (that *RoomCoordinator) SetConnected(ctx context.Context, roomID, playerID string, connected bool) (*entity.Room, error) {
	return that.update(ctx, roomID, func(room *entity.Room) error {
		role, ok := room.RoleOf(playerID)
		if !ok {
			return apperror.ErrNotYourTurn
		}

		room.PlayerByRole(role).Connected = connected

		return nil
	})
}

func (that *RoomCoordinator) GetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	return room, nil
}

func (that *RoomCoordinator) Subscribe(ctx context.Context, roomID string) (*repository.RoomSubscription, error) {
	if _, err := that.rooms.GetByID(ctx, roomID); err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	subscription, err := that.rooms.Subscribe(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	return subscription, nil
}

// update runs one read-copy-apply-commit cycle, retrying the whole cycle on
// version conflicts before surfacing apperror.ErrConcurrencyConflict.
func (that *RoomCoordinator) update(ctx context.Context, roomID string, mutate func(room *entity.Room) error) (*entity.Room, error) {
	log := that.logger.With("method", "update", "room", roomID)

	for attempt := 0; attempt < that.commitRetries; attempt++ {
		room, err := that.rooms.GetByID(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to get room by id: %w", err)
		}

		if err = mutate(room); err != nil {
			return nil, err
		}

		committed, err := that.rooms.CommitIfVersion(ctx, room)
		if errors.Is(err, apperror.ErrVersionConflict) {
			log.Debug("commit lost the race, retrying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to commit room: %w", err)
		}

		if that.observer != nil {
			that.observer.Observe(committed)
		}

		return committed, nil
	}

	return nil, apperror.ErrConcurrencyConflict
}

func (that *RoomCoordinator) resolveRole(room *entity.Room, actorID string) (entity.Role, error) {
	if actorID == SystemActor {
		return entity.RoleSystem, nil
	}

	role, ok := room.RoleOf(actorID)
	if !ok {
		return "", apperror.ErrNotYourTurn
	}

	return role, nil
}
