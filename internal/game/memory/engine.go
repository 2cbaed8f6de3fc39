package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

const maxFlipped = 2

type Engine struct {
	pairCount   int
	turnTTL     time.Duration
	revealDelay time.Duration
}

func New(pairCount int, turnTTL, revealDelay time.Duration) *Engine {
	return &Engine{
		pairCount:   pairCount,
		turnTTL:     turnTTL,
		revealDelay: revealDelay,
	}
}

func (that *Engine) Kind() entity.GameKind {
	return entity.GameMemory
}

// NewRound returns the board to the setup phase with p1 to start.
func (that *Engine) NewRound(room *entity.Room) error {
	room.GameData = entity.GameData{Memory: entity.NewMemoryState()}
	room.Turn = entity.RoleP1

	return nil
}

func (that *Engine) RoundOver(room *entity.Room) bool {
	state := room.GameData.Memory
	return state != nil && state.Phase == entity.MemoryPhaseResult
}

func (that *Engine) Apply(room *entity.Room, role entity.Role, cmd entity.Command, now time.Time) error {
	state := room.GameData.Memory
	if state == nil {
		return apperror.ErrWrongPhase
	}

	switch cmd.Type {
	case entity.CommandStartMatch:
		return that.startMatch(room, state, role, cmd)
	case entity.CommandFlipCard:
		return that.flipCard(room, state, role, cmd, now)
	case entity.CommandResolvePair:
		return that.resolvePair(room, state, role, now)
	case entity.CommandTurnTimeout:
		return that.turnTimeout(room, state, role, now)
	default:
		return fmt.Errorf("%w: %s", apperror.ErrValidation, cmd.Type)
	}
}

func (that *Engine) startMatch(room *entity.Room, state *entity.MemoryState, role entity.Role, cmd entity.Command) error {
	if state.Phase != entity.MemoryPhaseSetup {
		return apperror.ErrWrongPhase
	}
	if role != entity.RoleP1 {
		return apperror.ErrNotYourTurn
	}

	state.Cards = entity.BuildBoard(that.pairCount)
	state.Flipped = []int{}
	state.CurrentPlayer = entity.RoleP1
	state.Scores = entity.Scores{}
	state.Challenge = strings.TrimSpace(cmd.Challenge)
	state.DeadlineAt = nil
	state.Phase = entity.MemoryPhasePlaying

	room.Turn = entity.RoleP1

	return nil
}

func (that *Engine) flipCard(room *entity.Room, state *entity.MemoryState, role entity.Role, cmd entity.Command, now time.Time) error {
	if state.Phase != entity.MemoryPhasePlaying {
		return apperror.ErrWrongPhase
	}
	if role != state.CurrentPlayer {
		return apperror.ErrNotYourTurn
	}
	if len(state.Flipped) >= maxFlipped {
		return apperror.ErrWrongPhase
	}

	index := cmd.CardIndex
	if index < 0 || index >= len(state.Cards) {
		return fmt.Errorf("%w: card index %d", apperror.ErrValidation, index)
	}
	if state.Cards[index].Matched || state.IsFlipped(index) {
		return fmt.Errorf("%w: card %d is already revealed", apperror.ErrValidation, index)
	}

	state.Flipped = append(state.Flipped, index)

	// First flip arms the turn countdown; the second replaces it with the
	// reveal delay so both players see both faces before resolution.
	deadline := now.Add(that.turnTTL)
	if len(state.Flipped) == maxFlipped {
		deadline = now.Add(that.revealDelay)
	}
	state.DeadlineAt = unixMilli(deadline)

	return nil
}

// resolvePair applies the pending pair. The countdown resolves it when the
// reveal delay elapses; only the acting player may resolve early, so the
// opponent cannot cut short the reveal window.
func (that *Engine) resolvePair(room *entity.Room, state *entity.MemoryState, role entity.Role, now time.Time) error {
	if state.Phase != entity.MemoryPhasePlaying || len(state.Flipped) != maxFlipped {
		return apperror.ErrWrongPhase
	}
	if role != entity.RoleSystem && role != state.CurrentPlayer {
		return apperror.ErrNotYourTurn
	}

	first, second := state.Flipped[0], state.Flipped[1]
	state.Flipped = []int{}

	if state.Cards[first].Symbol != state.Cards[second].Symbol {
		state.CurrentPlayer = entity.OtherRole(state.CurrentPlayer)
		state.DeadlineAt = unixMilli(now.Add(that.turnTTL))
		room.Turn = state.CurrentPlayer
		return nil
	}

	state.Cards[first].Matched = true
	state.Cards[second].Matched = true
	state.AddScore(state.CurrentPlayer)
	state.DeadlineAt = nil

	if state.AllMatched() {
		state.Phase = entity.MemoryPhaseResult
		state.Winner = winnerOf(state.Scores)
		room.Phase = entity.PhaseFinished
	}

	return nil
}

// turnTimeout behaves exactly like a mismatch resolution without awarding
// points. A firing whose deadline has since moved is stale and rejected.
func (that *Engine) turnTimeout(room *entity.Room, state *entity.MemoryState, role entity.Role, now time.Time) error {
	if role != entity.RoleSystem {
		return apperror.ErrNotYourTurn
	}
	if state.Phase != entity.MemoryPhasePlaying || len(state.Flipped) >= maxFlipped {
		return apperror.ErrWrongPhase
	}
	if state.DeadlineAt == nil || now.UnixMilli() < *state.DeadlineAt {
		return apperror.ErrWrongPhase
	}

	state.Flipped = []int{}
	state.CurrentPlayer = entity.OtherRole(state.CurrentPlayer)
	state.DeadlineAt = unixMilli(now.Add(that.turnTTL))
	room.Turn = state.CurrentPlayer

	return nil
}

// winnerOf awards equal scores to p2.
func winnerOf(scores entity.Scores) entity.Role {
	if scores.P1 > scores.P2 {
		return entity.RoleP1
	}
	return entity.RoleP2
}

func unixMilli(moment time.Time) *int64 {
	at := moment.UnixMilli()
	return &at
}
