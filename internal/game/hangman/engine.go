package hangman

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jonxycate/juegos-parejas-backend/internal/apperror"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
)

const minWordLength = 3

type Engine struct{}

func New() *Engine {
	return &Engine{}
}

func (that *Engine) Kind() entity.GameKind {
	return entity.GameHangman
}

// NewRound resets the game to the set-word phase. When a previous round
// exists the setter and guesser roles are strictly swapped.
func (that *Engine) NewRound(room *entity.Room) error {
	setter, guesser := entity.RoleP1, entity.RoleP2
	if previous := room.GameData.Hangman; previous != nil {
		setter, guesser = previous.Guesser, previous.Setter
	}

	room.GameData = entity.GameData{Hangman: entity.NewHangmanState(setter, guesser)}
	room.Turn = setter

	return nil
}

func (that *Engine) RoundOver(room *entity.Room) bool {
	state := room.GameData.Hangman
	return state != nil && state.Phase == entity.HangmanPhaseResult
}

func (that *Engine) Apply(room *entity.Room, role entity.Role, cmd entity.Command, _ time.Time) error {
	state := room.GameData.Hangman
	if state == nil {
		return apperror.ErrWrongPhase
	}

	switch cmd.Type {
	case entity.CommandSetWord:
		return that.setWord(room, state, role, cmd)
	case entity.CommandGuessLetter:
		return that.guessLetter(room, state, role, cmd)
	default:
		return fmt.Errorf("%w: %s", apperror.ErrValidation, cmd.Type)
	}
}

func (that *Engine) setWord(room *entity.Room, state *entity.HangmanState, role entity.Role, cmd entity.Command) error {
	if state.Phase != entity.HangmanPhaseSetWord {
		return apperror.ErrWrongPhase
	}
	if role != state.Setter {
		return apperror.ErrNotYourTurn
	}

	word, err := normalizeWord(cmd.Word)
	if err != nil {
		return err
	}

	state.SecretWord = word
	state.Challenge = strings.TrimSpace(cmd.Challenge)
	state.Mask = strings.Repeat(string(entity.MaskPlaceholder), utf8.RuneCountInString(word))
	state.GuessedLetters = []string{}
	state.Mistakes = 0
	state.Phase = entity.HangmanPhaseGuessing

	room.Turn = state.Guesser

	return nil
}

func (that *Engine) guessLetter(room *entity.Room, state *entity.HangmanState, role entity.Role, cmd entity.Command) error {
	if state.Phase != entity.HangmanPhaseGuessing {
		return apperror.ErrWrongPhase
	}
	if role != state.Guesser {
		return apperror.ErrNotYourTurn
	}

	letter, err := normalizeLetter(cmd.Letter)
	if err != nil {
		return err
	}

	if state.HasGuessed(letter) {
		return apperror.ErrAlreadyGuessed
	}

	if !reveal(state, letter) {
		state.Mistakes++
	}
	state.GuessedLetters = append(state.GuessedLetters, letter)

	switch {
	case state.Mask == state.SecretWord:
		state.Phase = entity.HangmanPhaseResult
		state.Winner = state.Guesser
		room.Phase = entity.PhaseFinished
	case state.Mistakes >= state.MaxMistakes:
		state.Phase = entity.HangmanPhaseResult
		state.Winner = state.Setter
		room.Phase = entity.PhaseFinished
	}

	return nil
}

// reveal uncovers every position of the letter in the mask and reports
// whether the secret word contains it at all.
func reveal(state *entity.HangmanState, letter string) bool {
	target, _ := utf8.DecodeRuneInString(letter)

	mask := []rune(state.Mask)
	found := false
	for i, current := range []rune(state.SecretWord) {
		if current == target {
			mask[i] = current
			found = true
		}
	}
	state.Mask = string(mask)

	return found
}

func normalizeWord(raw string) (string, error) {
	word := strings.ToLower(strings.TrimSpace(raw))

	if utf8.RuneCountInString(word) < minWordLength {
		return "", fmt.Errorf("%w: word must have at least %d letters", apperror.ErrValidation, minWordLength)
	}

	for _, current := range word {
		if !unicode.IsLetter(current) {
			return "", fmt.Errorf("%w: word must contain letters only", apperror.ErrValidation)
		}
	}

	return word, nil
}

func normalizeLetter(raw string) (string, error) {
	letter := strings.ToLower(strings.TrimSpace(raw))

	if utf8.RuneCountInString(letter) != 1 {
		return "", fmt.Errorf("%w: guess exactly one letter", apperror.ErrValidation)
	}

	current, _ := utf8.DecodeRuneInString(letter)
	if !unicode.IsLetter(current) {
		return "", fmt.Errorf("%w: guess must be a letter", apperror.ErrValidation)
	}

	return letter, nil
}
