package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	CommitIfVersion(ctx context.Context, room *entity.Room) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (*RoomSubscription, error)
}

// RoomSubscription delivers every committed snapshot of one room until
// closed.
type RoomSubscription struct {
	C <-chan *entity.Room

	pubsub *redis.PubSub
}

func (that *RoomSubscription) Close() error {
	if err := that.pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close room subscription: %w", err)
	}

	return nil
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	created, err := that.client.SetNX(ctx, roomKey(room.ID), roomJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: %s", apperror.ErrRoomExists, room.ID)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

// CommitIfVersion writes the room atomically only if the stored version
// still equals room.Version, bumping it by one and publishing the committed
// snapshot to subscribers. A concurrent writer surfaces as
// apperror.ErrVersionConflict.
func (that *dbRoom) CommitIfVersion(ctx context.Context, room *entity.Room) (*entity.Room, error) {
	next := *room
	next.Version = room.Version + 1

	nextJSON, err := json.Marshal(&next)
	if err != nil {
		return nil, fmt.Errorf("could not marshal room: %w", err)
	}

	key := roomKey(room.ID)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read room inside watch: %w", err)
		}

		var stored entity.Room
		if err = json.Unmarshal([]byte(current), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}

		if stored.Version != room.Version {
			return apperror.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nextJSON, 0)
			pipe.Publish(ctx, roomChannel(room.ID), nextJSON)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to commit room: %w", err)
		}

		return nil
	}

	err = that.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// the watched key changed between read and write
		return nil, apperror.ErrVersionConflict
	}
	if err != nil {
		return nil, err
	}

	return &next, nil
}

func (that *dbRoom) DeleteByID(ctx context.Context, id string) error {
	err := that.client.Del(ctx, roomKey(id)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete room by id: %w", err)
	}

	return nil
}

func (that *dbRoom) Subscribe(ctx context.Context, id string) (*RoomSubscription, error) {
	pubsub := that.client.Subscribe(ctx, roomChannel(id))

	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	snapshots := make(chan *entity.Room)
	go func() {
		defer close(snapshots)

		for message := range pubsub.Channel() {
			var room entity.Room
			if err := json.Unmarshal([]byte(message.Payload), &room); err != nil {
				continue
			}

			select {
			case snapshots <- &room:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &RoomSubscription{C: snapshots, pubsub: pubsub}, nil
}

func roomKey(id string) string {
	return "room:" + id
}

func roomChannel(id string) string {
	return "room-updates:" + id
}
