package engine

const (
	// PairCount is the number of distinct symbols on a standard board.
	PairCount = 8
	// DeckSize is the number of cards on a standard board.
	DeckSize = PairCount * 2
	// MaxSeats is the number of players a board is played by.
	MaxSeats = 2
)
