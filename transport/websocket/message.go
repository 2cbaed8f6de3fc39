package websocket

import (
	"encoding/json"

	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

// Message is the envelope of every websocket exchange: an action type and
// an action-specific payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RoomPayload struct {
	RoomID string `json:"room_id"`
}

type SelectGamePayload struct {
	Game entity.GameKind `json:"game"`
}

type ResponsePayload struct {
	Player *entity.Player `json:"player,omitempty"`
	Room   *entity.Room   `json:"room,omitempty"`
	Role   entity.Role    `json:"role,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func newMessage(action string, payload ResponsePayload) Message {
	return Message{
		Action:  action,
		Payload: json.RawMessage(mustMarshal(payload)),
	}
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
