package engine

// Symbols is the ordered catalogue of card faces. A deck draws its pairs
// from the front of this list.
var Symbols = [...]string{
	"🦊", "🐼", "🦁", "🐸", "🦋", "🌸", "🍄", "🌺",
	"🎮", "🎲", "⭐", "🌙", "🔥", "💎", "🎯", "🎪",
}

// Card is one position on the board. ID and Symbol are fixed once the deck
// is built; IsFlipped and IsMatched are owned by the Board.
type Card struct {
	ID        int    `json:"id"`
	Symbol    string `json:"emoji"`
	IsFlipped bool   `json:"isFlipped"`
	IsMatched bool   `json:"isMatched"`
}

// Hidden reports whether the card can still be turned over.
func (c Card) Hidden() bool { return !c.IsFlipped && !c.IsMatched }
