package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
	"github.com/jonxycate/juegos-parejas-backend/internal/pkg"
	"github.com/jonxycate/juegos-parejas-backend/internal/repository"
)

type userRepo interface {
	Save(ctx context.Context, user *entity.User) error
	Find(ctx context.Context, email string) (*entity.User, error)
}

// IdentityService yields a stable opaque identity per connected
// participant, available before any command is issued.
type IdentityService interface {
	EnsurePlayer(ctx context.Context, playerID string) (*entity.Player, error)
	UpdateProfile(ctx context.Context, playerID, displayName, avatarToken string) (*entity.Player, error)
	AttachAccount(ctx context.Context, playerID, email string) (*entity.User, error)
}

type identityService struct {
	logger *slog.Logger

	players playerRepo
	users   userRepo
}

func NewIdentityService(logger *slog.Logger, players playerRepo, users userRepo) IdentityService {
	return &identityService{
		logger: logger.With("component", "identity"),

		players: players,
		users:   users,
	}
}

// EnsurePlayer returns the player for a session id, creating one when the
// id is unknown or empty.
func (that *identityService) EnsurePlayer(ctx context.Context, playerID string) (*entity.Player, error) {
	if playerID == "" {
		return that.createPlayer(ctx, pkg.GenerateNewSessionID())
	}

	player, err := that.players.GetByID(ctx, playerID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return that.createPlayer(ctx, playerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	return player, nil
}

func (that *identityService) UpdateProfile(ctx context.Context, playerID, displayName, avatarToken string) (*entity.Player, error) {
	player, err := that.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if displayName != "" {
		player.DisplayName = displayName
	}
	if avatarToken != "" {
		player.AvatarToken = avatarToken
	}

	if err = that.players.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	return player, nil
}

// AttachAccount links a durable profile row to the session player, keeping
// an existing row's profile when one is found.
func (that *identityService) AttachAccount(ctx context.Context, playerID, email string) (*entity.User, error) {
	player, err := that.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	user, err := that.users.Find(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		user = &entity.User{
			Email:       email,
			DisplayName: player.DisplayName,
			AvatarToken: player.AvatarToken,
		}
		if err = that.users.Save(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to save user into storage: %w", err)
		}

		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user into storage: %w", err)
	}

	if user.DisplayName != "" {
		player.DisplayName = user.DisplayName
	}
	if user.AvatarToken != "" {
		player.AvatarToken = user.AvatarToken
	}
	if err = that.players.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	return user, nil
}

func (that *identityService) createPlayer(ctx context.Context, id string) (*entity.Player, error) {
	player := &entity.Player{ID: id}

	if err := that.players.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	that.logger.Info("player created", "player", id)

	return player, nil
}
