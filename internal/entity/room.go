package entity

import (
	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
)

const (
	PhaseWaiting  = "waiting"
	PhaseReady    = "ready"
	PhasePlaying  = "playing"
	PhaseFinished = "finished"
)

type Role string

const (
	RoleP1 Role = "p1"
	RoleP2 Role = "p2"

	// RoleSystem marks commands issued by the turn authority rather than
	// by a seated player.
	RoleSystem Role = "system"
)

type GameKind string

const (
	GameHangman GameKind = "hangman"
	GameMemory  GameKind = "memory"
)

// Seats holds the two fixed player slots of a room.
type Seats struct {
	P1 *Player `json:"p1,omitempty"`
	P2 *Player `json:"p2,omitempty"`
}

// GameData is the canonical per-game state container. Exactly the member
// matching Room.Game is non-nil while a game is selected.
type GameData struct {
	Hangman *HangmanState `json:"hangman,omitempty"`
	Memory  *MemoryState  `json:"memory,omitempty"`
}

// Room is the shared document for one paired session and the wire contract
// with the store. Version strictly increases on every committed mutation.
type Room struct {
	ID       string   `json:"id"`
	Phase    string   `json:"phase"`
	Game     GameKind `json:"game,omitempty"`
	Turn     Role     `json:"turn"`
	Players  Seats    `json:"players"`
	GameData GameData `json:"game_data"`
	Version  int64    `json:"version"`
}

func NewRoom(id string, creator *Player) *Room {
	return &Room{
		ID:      id,
		Phase:   PhaseWaiting,
		Turn:    RoleP1,
		Players: Seats{P1: creator},
		Version: 1,
	}
}

// Seat places the player into the first free slot and returns its role.
// Seating is idempotent for a player that already holds a slot.
func (that *Room) Seat(player *Player) (Role, error) {
	if role, ok := that.RoleOf(player.ID); ok {
		return role, nil
	}

	switch {
	case that.Players.P1 == nil:
		that.Players.P1 = player
		return RoleP1, nil
	case that.Players.P2 == nil:
		that.Players.P2 = player
		if that.Phase == PhaseWaiting {
			that.Phase = PhaseReady
		}
		return RoleP2, nil
	default:
		return "", apperror.ErrRoomFull
	}
}

// RoleOf maps a player id to the slot it occupies.
func (that *Room) RoleOf(playerID string) (Role, bool) {
	if that.Players.P1 != nil && that.Players.P1.ID == playerID {
		return RoleP1, true
	}
	if that.Players.P2 != nil && that.Players.P2.ID == playerID {
		return RoleP2, true
	}
	return "", false
}

func (that *Room) PlayerByRole(role Role) *Player {
	switch role {
	case RoleP1:
		return that.Players.P1
	case RoleP2:
		return that.Players.P2
	default:
		return nil
	}
}

func OtherRole(role Role) Role {
	if role == RoleP1 {
		return RoleP2
	}
	return RoleP1
}

func (that *Room) IsWaiting() bool {
	return that.Phase == PhaseWaiting
}

func (that *Room) IsReady() bool {
	return that.Phase == PhaseReady
}

func (that *Room) IsPlaying() bool {
	return that.Phase == PhasePlaying
}

func (that *Room) IsFinished() bool {
	return that.Phase == PhaseFinished
}
