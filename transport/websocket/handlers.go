package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

func (that *Server) handleConnect(ctx context.Context, client *Client, _ *Message) error {
	player, err := that.identity.EnsurePlayer(ctx, client.playerID)
	if err != nil {
		return fmt.Errorf("failed to resolve player: %w", err)
	}

	client.push(newMessage("connect", ResponsePayload{Player: player}))

	// a returning player lands straight back in its room
	if player.RoomID != "" {
		room, err := that.coordinator.GetRoom(ctx, player.RoomID)
		if err == nil {
			if err = client.watchRoom(ctx, room.ID); err != nil {
				return err
			}
			if _, err = that.coordinator.SetConnected(ctx, room.ID, client.playerID, true); err != nil {
				that.logger.Debug("failed to mark player connected", "error", err)
			}
			client.push(newMessage("room:update", ResponsePayload{Room: room, Role: client.role(room)}))
		}
	}

	return nil
}

func (that *Server) handleCreateRoom(ctx context.Context, client *Client, _ *Message) error {
	room, err := that.coordinator.CreateRoom(ctx, client.playerID)
	if err != nil {
		return err
	}

	if err = client.watchRoom(ctx, room.ID); err != nil {
		return err
	}

	client.push(newMessage("room:create", ResponsePayload{Room: room, Role: entity.RoleP1}))

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, client *Client, message *Message) error {
	var payload RoomPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("%w: malformed payload", apperror.ErrValidation)
	}

	room, role, err := that.coordinator.JoinRoom(ctx, payload.RoomID, client.playerID)
	if err != nil {
		return err
	}

	if err = client.watchRoom(ctx, room.ID); err != nil {
		return err
	}

	client.push(newMessage("room:join", ResponsePayload{Room: room, Role: role}))

	return nil
}

func (that *Server) handleSelectGame(ctx context.Context, client *Client, message *Message) error {
	var payload SelectGamePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("%w: malformed payload", apperror.ErrValidation)
	}

	_, err := that.coordinator.SelectGame(ctx, client.currentRoom(), client.playerID, payload.Game)
	return err
}

func (that *Server) handleGameCommand(ctx context.Context, client *Client, message *Message) error {
	var cmd entity.Command
	if err := json.Unmarshal(message.Payload, &cmd); err != nil {
		return fmt.Errorf("%w: malformed payload", apperror.ErrValidation)
	}

	if cmd.Type == entity.CommandNextRound {
		_, err := that.coordinator.NextRound(ctx, client.currentRoom(), client.playerID)
		return err
	}

	_, err := that.coordinator.Dispatch(ctx, client.currentRoom(), client.playerID, cmd)
	return err
}

func (that *Server) handleNextRound(ctx context.Context, client *Client, _ *Message) error {
	_, err := that.coordinator.NextRound(ctx, client.currentRoom(), client.playerID)
	return err
}

// errorCode maps the error taxonomy to stable strings the presentation
// layer can act on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, apperror.ErrRoomFull):
		return "room_full"
	case errors.Is(err, apperror.ErrWrongPhase), errors.Is(err, apperror.ErrNotYourTurn):
		return "not_allowed"
	case errors.Is(err, apperror.ErrAlreadyGuessed):
		return "already_guessed"
	case errors.Is(err, apperror.ErrValidation):
		return err.Error()
	case errors.Is(err, apperror.ErrConcurrencyConflict):
		return "conflict_try_again"
	case errors.Is(err, apperror.ErrUnknownGame):
		return "unknown_game"
	default:
		return "internal_error"
	}
}
