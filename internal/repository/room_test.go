package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
	"github.com/jonxycate/juegos-parejas-backend/testing/suite"
)

func newTestRoom(id string) *entity.Room {
	return entity.NewRoom(id, &entity.Player{ID: "alice", DisplayName: "Alice"})
}

func TestRoomRepository_Create(t *testing.T) {
	t.Run("Create_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// Given: a fresh room
		room := newTestRoom("AAAAA")

		// When: Create is called
		err := roomRepo.Create(ctx, room)

		// Then: no error should be returned, and the room is stored
		require.NoError(t, err)

		stored, err := roomRepo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, room.ID, stored.ID)
		assert.Equal(t, entity.PhaseWaiting, stored.Phase)
		assert.Equal(t, int64(1), stored.Version)
	})

	t.Run("Create_AlreadyExists", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		room := newTestRoom("BBBBB")
		require.NoError(t, roomRepo.Create(ctx, room))

		// When: Create is called again with the same code
		err := roomRepo.Create(ctx, newTestRoom("BBBBB"))

		// Then: an ErrRoomExists error should be returned
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrRoomExists)
	})
}

func TestRoomRepository_GetByID(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// When: GetByID is called with a non-existent code
		room, err := roomRepo.GetByID(ctx, "ZZZZZ")

		// Then: an ErrRoomNotFound error should be returned
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.Nil(t, room)
	})

	t.Run("GetByID_RoundTripsGameData", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// Given: a stored room carrying word-game state
		room := newTestRoom("CCCCC")
		_, err := room.Seat(&entity.Player{ID: "bob", DisplayName: "Bob"})
		require.NoError(t, err)
		room.Game = entity.GameHangman
		room.Phase = entity.PhasePlaying
		room.GameData.Hangman = entity.NewHangmanState(entity.RoleP1, entity.RoleP2)
		require.NoError(t, roomRepo.Create(ctx, room))

		// When: the room is read back
		stored, err := roomRepo.GetByID(ctx, room.ID)

		// Then: the nested state survives intact
		require.NoError(t, err)
		require.NotNil(t, stored.GameData.Hangman)
		assert.Equal(t, entity.HangmanPhaseSetWord, stored.GameData.Hangman.Phase)
		assert.Equal(t, entity.RoleP1, stored.GameData.Hangman.Setter)
		require.NotNil(t, stored.Players.P2)
		assert.Equal(t, "bob", stored.Players.P2.ID)
	})
}

func TestRoomRepository_CommitIfVersion(t *testing.T) {
	t.Run("Commit_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		room := newTestRoom("DDDDD")
		require.NoError(t, roomRepo.Create(ctx, room))

		// When: the room is committed at its stored version
		room.Phase = entity.PhaseReady
		committed, err := roomRepo.CommitIfVersion(ctx, room)

		// Then: the version advances and the change is persisted
		require.NoError(t, err)
		assert.Equal(t, int64(2), committed.Version)

		stored, err := roomRepo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.PhaseReady, stored.Phase)
		assert.Equal(t, int64(2), stored.Version)
	})

	t.Run("Commit_StaleVersion", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		room := newTestRoom("EEEEE")
		require.NoError(t, roomRepo.Create(ctx, room))

		// Given: another writer already advanced the room
		fresh, err := roomRepo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		_, err = roomRepo.CommitIfVersion(ctx, fresh)
		require.NoError(t, err)

		// When: a commit arrives carrying the old version
		room.Phase = entity.PhaseReady
		committed, err := roomRepo.CommitIfVersion(ctx, room)

		// Then: an ErrVersionConflict error should be returned
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrVersionConflict)
		assert.Nil(t, committed)
	})

	t.Run("Commit_RoomDeleted", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		room := newTestRoom("FFFFF")
		require.NoError(t, roomRepo.Create(ctx, room))
		require.NoError(t, roomRepo.DeleteByID(ctx, room.ID))

		// When: a commit targets the deleted room
		_, err := roomRepo.CommitIfVersion(ctx, room)

		// Then: an ErrRoomNotFound error should be returned
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Commit_ConcurrentWritersOneWins", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		room := newTestRoom("GGGGG")
		require.NoError(t, roomRepo.Create(ctx, room))

		// Given: two writers holding the same snapshot
		first, err := roomRepo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		second, err := roomRepo.GetByID(ctx, room.ID)
		require.NoError(t, err)

		first.Phase = entity.PhaseReady
		second.Phase = entity.PhaseFinished

		// When: both commit concurrently
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, candidate := range []*entity.Room{first, second} {
			wg.Add(1)
			go func(i int, candidate *entity.Room) {
				defer wg.Done()
				_, errs[i] = roomRepo.CommitIfVersion(ctx, candidate)
			}(i, candidate)
		}
		wg.Wait()

		// Then: exactly one commit wins
		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, apperror.ErrVersionConflict)
			}
		}
		assert.Equal(t, 1, winners)

		stored, err := roomRepo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
	})
}

func TestRoomRepository_DeleteByID(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage)

	room := newTestRoom("HHHHH")
	require.NoError(t, roomRepo.Create(ctx, room))

	// When: DeleteByID is called with existing code
	err := roomRepo.DeleteByID(ctx, room.ID)

	// Then: no error should be returned, and the room is gone
	require.NoError(t, err)

	_, err = roomRepo.GetByID(ctx, room.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
}

func TestRoomRepository_Subscribe(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage)

	room := newTestRoom("JJJJJ")
	require.NoError(t, roomRepo.Create(ctx, room))

	// Given: an open subscription on the room
	sub, err := roomRepo.Subscribe(ctx, room.ID)
	require.NoError(t, err)
	defer sub.Close()

	// When: a commit lands
	room.Phase = entity.PhaseReady
	_, err = roomRepo.CommitIfVersion(ctx, room)
	require.NoError(t, err)

	// Then: the committed snapshot is delivered
	select {
	case snapshot := <-sub.C:
		require.NotNil(t, snapshot)
		assert.Equal(t, room.ID, snapshot.ID)
		assert.Equal(t, entity.PhaseReady, snapshot.Phase)
		assert.Equal(t, int64(2), snapshot.Version)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for room snapshot")
	}
}
