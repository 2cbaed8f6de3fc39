package entity

type CommandType string

const (
	CommandSetWord     CommandType = "set_word"
	CommandGuessLetter CommandType = "guess_letter"
	CommandStartMatch  CommandType = "start_match"
	CommandFlipCard    CommandType = "flip_card"
	CommandResolvePair CommandType = "resolve_pair"
	CommandTurnTimeout CommandType = "turn_timeout"
	CommandNextRound   CommandType = "next_round"
)

// Command is a typed request to mutate room state. It is always validated
// against the current phase and the caller's role before application.
type Command struct {
	Type      CommandType `json:"type"`
	Word      string      `json:"word,omitempty"`
	Challenge string      `json:"challenge,omitempty"`
	Letter    string      `json:"letter,omitempty"`
	CardIndex int         `json:"card_index"`
}
