package game

import (
	"time"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

// Engine validates and applies the commands of one game kind against the
// room document. Engines never touch storage; the coordinator loads a fresh
// copy, lets the engine mutate it and commits all-or-nothing.
type Engine interface {
	Kind() entity.GameKind

	// NewRound initializes the kind's game data on the room, applying the
	// kind's role-swap rule when a previous round exists.
	NewRound(room *entity.Room) error

	// Apply executes one command for the given caller role, leaving the
	// room untouched on rejection.
	Apply(room *entity.Room, role entity.Role, cmd entity.Command, now time.Time) error

	// RoundOver reports whether the active round reached its result phase.
	RoundOver(room *entity.Room) bool
}

type Registry map[entity.GameKind]Engine

func NewRegistry(engines ...Engine) Registry {
	registry := make(Registry, len(engines))
	for _, engine := range engines {
		registry[engine.Kind()] = engine
	}
	return registry
}

func (that Registry) ForKind(kind entity.GameKind) (Engine, error) {
	engine, ok := that[kind]
	if !ok {
		return nil, apperror.ErrUnknownGame
	}
	return engine, nil
}
