package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

const (
	testTurnTTL     = 15 * time.Second
	testRevealDelay = time.Second
)

func newEngine() *Engine {
	return New(4, testTurnTTL, testRevealDelay)
}

func newPlayingRoom(t *testing.T) *entity.Room {
	t.Helper()

	room := entity.NewRoom("ABCDE", &entity.Player{ID: "alice"})
	_, err := room.Seat(&entity.Player{ID: "bob"})
	require.NoError(t, err)

	require.NoError(t, newEngine().NewRound(room))
	room.Game = entity.GameMemory
	room.Phase = entity.PhasePlaying

	return room
}

// riggedBoard replaces the shuffled cards with a known layout so tests can
// flip deterministically: pairs sit side by side.
func riggedBoard(state *entity.MemoryState) {
	state.Cards = []entity.Card{
		{Symbol: "🌟"}, {Symbol: "🌟"},
		{Symbol: "💖"}, {Symbol: "💖"},
		{Symbol: "🎮"}, {Symbol: "🎮"},
		{Symbol: "🍕"}, {Symbol: "🍕"},
	}
}

func startMatch(t *testing.T, room *entity.Room) *entity.MemoryState {
	t.Helper()

	err := newEngine().Apply(room, entity.RoleP1, entity.Command{Type: entity.CommandStartMatch}, time.Now())
	require.NoError(t, err)

	state := room.GameData.Memory
	riggedBoard(state)

	return state
}

func flip(t *testing.T, room *entity.Room, role entity.Role, index int, now time.Time) error {
	t.Helper()
	return newEngine().Apply(room, role, entity.Command{Type: entity.CommandFlipCard, CardIndex: index}, now)
}

func resolve(t *testing.T, room *entity.Room, now time.Time) error {
	t.Helper()
	return newEngine().Apply(room, entity.RoleSystem, entity.Command{Type: entity.CommandResolvePair}, now)
}

func TestEngine_StartMatch(t *testing.T) {
	t.Run("Builds a shuffled board of symbol pairs", func(t *testing.T) {
		// Given: a room in the setup phase
		room := newPlayingRoom(t)

		// When: p1 starts the match
		err := newEngine().Apply(room, entity.RoleP1, entity.Command{
			Type:      entity.CommandStartMatch,
			Challenge: "cook dinner",
		}, time.Now())

		// Then: the board holds every symbol exactly twice
		require.NoError(t, err)
		state := room.GameData.Memory
		assert.Equal(t, entity.MemoryPhasePlaying, state.Phase)
		assert.Equal(t, "cook dinner", state.Challenge)
		assert.Equal(t, entity.RoleP1, state.CurrentPlayer)
		assert.Empty(t, state.Flipped)
		assert.Nil(t, state.DeadlineAt)
		require.Len(t, state.Cards, 8)

		counts := make(map[string]int)
		for _, card := range state.Cards {
			counts[card.Symbol]++
		}
		for symbol, count := range counts {
			assert.Equalf(t, 2, count, "symbol %s", symbol)
		}
	})

	t.Run("Only p1 starts the match", func(t *testing.T) {
		room := newPlayingRoom(t)

		err := newEngine().Apply(room, entity.RoleP2, entity.Command{Type: entity.CommandStartMatch}, time.Now())

		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})
}

func TestEngine_FlipCard(t *testing.T) {
	now := time.Now()

	t.Run("First flip arms the turn deadline", func(t *testing.T) {
		// Given: a fresh board
		room := newPlayingRoom(t)
		state := startMatch(t, room)

		// When: the current player flips a card
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))

		// Then: the flip is recorded and the deadline set
		assert.Equal(t, []int{0}, state.Flipped)
		require.NotNil(t, state.DeadlineAt)
		assert.Equal(t, now.Add(testTurnTTL).UnixMilli(), *state.DeadlineAt)
	})

	t.Run("Second flip replaces the deadline with the reveal delay", func(t *testing.T) {
		room := newPlayingRoom(t)
		state := startMatch(t, room)

		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))
		require.NoError(t, flip(t, room, entity.RoleP1, 2, now))

		assert.Equal(t, []int{0, 2}, state.Flipped)
		require.NotNil(t, state.DeadlineAt)
		assert.Equal(t, now.Add(testRevealDelay).UnixMilli(), *state.DeadlineAt)
	})

	t.Run("Flipping out of turn is rejected", func(t *testing.T) {
		room := newPlayingRoom(t)
		startMatch(t, room)

		err := flip(t, room, entity.RoleP2, 0, now)

		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Flipping the same card twice is rejected", func(t *testing.T) {
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))

		err := flip(t, room, entity.RoleP1, 0, now)

		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.Equal(t, []int{0}, state.Flipped)
	})

	t.Run("Third flip while a pair is pending is rejected", func(t *testing.T) {
		// Given: two cards already flipped
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))
		require.NoError(t, flip(t, room, entity.RoleP1, 2, now))

		// When: a third flip arrives before resolution
		err := flip(t, room, entity.RoleP1, 4, now)

		// Then: it is rejected and never more than two cards are up
		assert.ErrorIs(t, err, apperror.ErrWrongPhase)
		assert.Len(t, state.Flipped, 2)
	})

	t.Run("Out-of-range index is rejected", func(t *testing.T) {
		room := newPlayingRoom(t)
		startMatch(t, room)

		for _, index := range []int{-1, 8, 100} {
			err := flip(t, room, entity.RoleP1, index, now)
			assert.ErrorIs(t, err, apperror.ErrValidation, index)
		}
	})
}

func TestEngine_ResolvePair(t *testing.T) {
	now := time.Now()

	t.Run("Mismatch clears the pair and toggles the player", func(t *testing.T) {
		// Given: two differing cards flipped
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))
		require.NoError(t, flip(t, room, entity.RoleP1, 2, now))

		// When: the pair resolves
		require.NoError(t, resolve(t, room, now))

		// Then: no score, turn toggled, deadline restarted
		assert.Empty(t, state.Flipped)
		assert.Equal(t, entity.RoleP2, state.CurrentPlayer)
		assert.Equal(t, entity.RoleP2, room.Turn)
		assert.Equal(t, entity.Scores{}, state.Scores)
		require.NotNil(t, state.DeadlineAt)
		assert.Equal(t, now.Add(testTurnTTL).UnixMilli(), *state.DeadlineAt)
	})

	t.Run("Match marks the pair and scores the acting player", func(t *testing.T) {
		// Given: two matching cards flipped
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 2, now))
		require.NoError(t, flip(t, room, entity.RoleP1, 3, now))

		// When: the pair resolves
		require.NoError(t, resolve(t, room, now))

		// Then: the cards stay matched, the player keeps the turn
		assert.True(t, state.Cards[2].Matched)
		assert.True(t, state.Cards[3].Matched)
		assert.Equal(t, 1, state.Scores.P1)
		assert.Empty(t, state.Flipped)
		assert.Equal(t, entity.RoleP1, state.CurrentPlayer)
		assert.Nil(t, state.DeadlineAt)
	})

	t.Run("Matched card count stays even and scores bounded", func(t *testing.T) {
		// Given: a full game played out pair by pair
		room := newPlayingRoom(t)
		state := startMatch(t, room)

		for first := 0; first < len(state.Cards); first += 2 {
			require.NoError(t, flip(t, room, state.CurrentPlayer, first, now))
			require.NoError(t, flip(t, room, state.CurrentPlayer, first+1, now))
			require.NoError(t, resolve(t, room, now))

			matched := 0
			for _, card := range state.Cards {
				if card.Matched {
					matched++
				}
			}
			assert.Zero(t, matched%2)
			assert.LessOrEqual(t, state.Scores.P1+state.Scores.P2, len(state.Cards)/2)
		}

		// Then: the finished board reaches the result phase
		assert.Equal(t, entity.MemoryPhaseResult, state.Phase)
		assert.Equal(t, entity.PhaseFinished, room.Phase)
	})

	t.Run("Clearing the board awards the higher score", func(t *testing.T) {
		// Given: p1 collected every pair
		room := newPlayingRoom(t)
		state := startMatch(t, room)

		for first := 0; first < len(state.Cards); first += 2 {
			require.NoError(t, flip(t, room, entity.RoleP1, first, now))
			require.NoError(t, flip(t, room, entity.RoleP1, first+1, now))
			require.NoError(t, resolve(t, room, now))
		}

		// Then: p1 wins the round
		assert.Equal(t, entity.RoleP1, state.Winner)
		assert.Equal(t, 4, state.Scores.P1)
	})

	t.Run("Equal scores award the round to p2", func(t *testing.T) {
		// Given: one pair left, p2 a point behind
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		state.Scores = entity.Scores{P1: 2, P2: 1}
		for i := 0; i < 6; i++ {
			state.Cards[i].Matched = true
		}
		state.CurrentPlayer = entity.RoleP2
		room.Turn = entity.RoleP2

		// When: p2 equalizes with the final pair
		require.NoError(t, flip(t, room, entity.RoleP2, 6, now))
		require.NoError(t, flip(t, room, entity.RoleP2, 7, now))
		require.NoError(t, resolve(t, room, now))

		// Then: the tie resolves to p2
		assert.Equal(t, entity.Scores{P1: 2, P2: 2}, state.Scores)
		assert.Equal(t, entity.RoleP2, state.Winner)
	})

	t.Run("The opponent cannot resolve the pair early", func(t *testing.T) {
		// Given: p1's pending pair waiting out the reveal delay
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))
		require.NoError(t, flip(t, room, entity.RoleP1, 2, now))

		// When: p2 tries to resolve before the delay elapses
		err := newEngine().Apply(room, entity.RoleP2, entity.Command{Type: entity.CommandResolvePair}, now)

		// Then: the pair stays up for the full reveal window
		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, []int{0, 2}, state.Flipped)
	})

	t.Run("The acting player may resolve early", func(t *testing.T) {
		// Given: p1's pending mismatched pair
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))
		require.NoError(t, flip(t, room, entity.RoleP1, 2, now))

		// When: p1 resolves without waiting
		err := newEngine().Apply(room, entity.RoleP1, entity.Command{Type: entity.CommandResolvePair}, now)

		// Then: the mismatch is applied as usual
		require.NoError(t, err)
		assert.Empty(t, state.Flipped)
		assert.Equal(t, entity.RoleP2, state.CurrentPlayer)
	})

	t.Run("Resolving without a pending pair is rejected", func(t *testing.T) {
		room := newPlayingRoom(t)
		startMatch(t, room)

		err := resolve(t, room, now)

		assert.ErrorIs(t, err, apperror.ErrWrongPhase)
	})
}

func TestEngine_TurnTimeout(t *testing.T) {
	now := time.Now()

	t.Run("Expired deadline acts exactly like a mismatch", func(t *testing.T) {
		// Given: a single flipped card whose deadline elapsed
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))

		// When: the timeout fires after the deadline
		after := now.Add(testTurnTTL + time.Second)
		err := newEngine().Apply(room, entity.RoleSystem, entity.Command{Type: entity.CommandTurnTimeout}, after)

		// Then: flipped cleared, player toggled, no score change
		require.NoError(t, err)
		assert.Empty(t, state.Flipped)
		assert.Equal(t, entity.RoleP2, state.CurrentPlayer)
		assert.Equal(t, entity.Scores{}, state.Scores)
	})

	t.Run("Stale timeout is rejected after the deadline moved", func(t *testing.T) {
		// Given: a flip that re-armed the deadline
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))

		// When: a timeout scheduled for an older deadline fires early
		err := newEngine().Apply(room, entity.RoleSystem, entity.Command{Type: entity.CommandTurnTimeout}, now)

		// Then: it is dropped without mutation
		assert.ErrorIs(t, err, apperror.ErrWrongPhase)
		assert.Equal(t, []int{0}, state.Flipped)
		assert.Equal(t, entity.RoleP1, state.CurrentPlayer)
	})

	t.Run("Players may not issue timeouts", func(t *testing.T) {
		room := newPlayingRoom(t)
		startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))

		after := now.Add(testTurnTTL + time.Second)
		err := newEngine().Apply(room, entity.RoleP2, entity.Command{Type: entity.CommandTurnTimeout}, after)

		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Timeout never fires while a pair is pending", func(t *testing.T) {
		room := newPlayingRoom(t)
		state := startMatch(t, room)
		require.NoError(t, flip(t, room, entity.RoleP1, 0, now))
		require.NoError(t, flip(t, room, entity.RoleP1, 2, now))

		after := now.Add(time.Minute)
		err := newEngine().Apply(room, entity.RoleSystem, entity.Command{Type: entity.CommandTurnTimeout}, after)

		assert.ErrorIs(t, err, apperror.ErrWrongPhase)
		assert.Len(t, state.Flipped, 2)
	})
}

func TestEngine_NewRound(t *testing.T) {
	// Given: a finished round
	room := newPlayingRoom(t)
	state := startMatch(t, room)
	state.Phase = entity.MemoryPhaseResult
	state.Winner = entity.RoleP2

	// When: the next round starts
	require.NoError(t, newEngine().NewRound(room))

	// Then: the board returns to setup with p1 to start
	fresh := room.GameData.Memory
	assert.Equal(t, entity.MemoryPhaseSetup, fresh.Phase)
	assert.Equal(t, entity.RoleP1, fresh.CurrentPlayer)
	assert.Empty(t, fresh.Cards)
	assert.Equal(t, entity.Scores{}, fresh.Scores)
	assert.Empty(t, fresh.Winner)
}
