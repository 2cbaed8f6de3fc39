package pkg

import (
	"math/rand"

	"github.com/google/uuid"
)

const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 5
)

// GenerateRoomCode returns a short code players can read out loud to pair
// up. The alphabet skips easily confused characters.
func GenerateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))] //nolint: gosec // it's ok
	}
	return string(code)
}

// GenerateNewSessionID returns a stable opaque identifier for a connected
// participant.
func GenerateNewSessionID() string {
	return uuid.NewString()
}
