package entity

import "math/rand"

const (
	MemoryPhaseSetup   = "setup"
	MemoryPhasePlaying = "playing"
	MemoryPhaseResult  = "result"
)

// CardSymbols is the deck the board is drawn from.
var CardSymbols = []string{"🌟", "💖", "🎮", "🍕", "🐱", "🌹", "⚡", "🍰", "💕", "🎵", "🌈", "🔥"}

type Card struct {
	Symbol  string `json:"symbol"`
	Matched bool   `json:"matched"`
}

type Scores struct {
	P1 int `json:"p1"`
	P2 int `json:"p2"`
}

// MemoryState is the card-matching game document. DeadlineAt is the single
// authoritative countdown: the turn deadline while fewer than two cards are
// flipped, the pending-resolution reveal deadline while two are.
type MemoryState struct {
	Phase         string `json:"phase"`
	Cards         []Card `json:"cards,omitempty"`
	Flipped       []int  `json:"flipped"`
	CurrentPlayer Role   `json:"current_player"`
	Scores        Scores `json:"scores"`
	DeadlineAt    *int64 `json:"deadline_at,omitempty"`
	Challenge     string `json:"challenge,omitempty"`
	Winner        Role   `json:"winner,omitempty"`
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		Phase:         MemoryPhaseSetup,
		Flipped:       []int{},
		CurrentPlayer: RoleP1,
	}
}

// BuildBoard duplicates pairCount distinct symbols and shuffles them
// uniformly (Fisher-Yates).
func BuildBoard(pairCount int) []Card {
	if pairCount > len(CardSymbols) {
		pairCount = len(CardSymbols)
	}

	symbols := make([]string, 0, pairCount*2)
	for _, symbol := range CardSymbols[:pairCount] {
		symbols = append(symbols, symbol, symbol)
	}

	rand.Shuffle(len(symbols), func(i, j int) { //nolint: gosec // it's ok
		symbols[i], symbols[j] = symbols[j], symbols[i]
	})

	cards := make([]Card, len(symbols))
	for i, symbol := range symbols {
		cards[i] = Card{Symbol: symbol}
	}

	return cards
}

func (that *MemoryState) IsFlipped(index int) bool {
	for _, flipped := range that.Flipped {
		if flipped == index {
			return true
		}
	}
	return false
}

func (that *MemoryState) AllMatched() bool {
	for _, card := range that.Cards {
		if !card.Matched {
			return false
		}
	}
	return len(that.Cards) > 0
}

func (that *MemoryState) ScoreOf(role Role) int {
	if role == RoleP1 {
		return that.Scores.P1
	}
	return that.Scores.P2
}

func (that *MemoryState) AddScore(role Role) {
	if role == RoleP1 {
		that.Scores.P1++
		return
	}
	that.Scores.P2++
}
