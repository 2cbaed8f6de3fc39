package entity

const (
	HangmanPhaseSetWord  = "set_word"
	HangmanPhaseGuessing = "guessing"
	HangmanPhaseResult   = "result"

	DefaultMaxMistakes = 6

	MaskPlaceholder = '_'
)

// HangmanState is the letter-guessing game document. Mask always has one
// rune per rune of the secret word, each being either the placeholder or
// the true letter at that position.
type HangmanState struct {
	Phase          string   `json:"phase"`
	Setter         Role     `json:"setter"`
	Guesser        Role     `json:"guesser"`
	SecretWord     string   `json:"secret_word,omitempty"`
	Challenge      string   `json:"challenge,omitempty"`
	Mask           string   `json:"mask"`
	GuessedLetters []string `json:"guessed_letters"`
	Mistakes       int      `json:"mistakes"`
	MaxMistakes    int      `json:"max_mistakes"`
	Winner         Role     `json:"winner,omitempty"`
}

func NewHangmanState(setter, guesser Role) *HangmanState {
	return &HangmanState{
		Phase:          HangmanPhaseSetWord,
		Setter:         setter,
		Guesser:        guesser,
		GuessedLetters: []string{},
		MaxMistakes:    DefaultMaxMistakes,
	}
}

func (that *HangmanState) HasGuessed(letter string) bool {
	for _, guessed := range that.GuessedLetters {
		if guessed == letter {
			return true
		}
	}
	return false
}
