// Package engine implements the memory-match board rules.
//
// The package is pure: it holds no locks, timers or connections. The
// authoritative room in internal/game owns a Board and decides who may act
// on it; the Board only knows which flips are legal and how a pair resolves.
package engine

// Board holds the cards of one round and the flips awaiting resolution.
type Board struct {
	Cards   []Card
	Pending []int
}

// NewBoard wraps a deck. The deck is owned by the board afterwards.
func NewBoard(deck []Card) *Board {
	return &Board{Cards: deck, Pending: make([]int, 0, 2)}
}

// NewStandardBoard builds a board from a fresh 16-card deck.
func NewStandardBoard() *Board {
	return NewBoard(BuildDeck(PairCount))
}

func (b *Board) card(id int) *Card {
	if id >= 0 && id < len(b.Cards) && b.Cards[id].ID == id {
		return &b.Cards[id]
	}
	for i := range b.Cards {
		if b.Cards[i].ID == id {
			return &b.Cards[i]
		}
	}
	return nil
}

// CanFlip reports whether card id may be revealed now.
func (b *Board) CanFlip(id int) bool {
	if len(b.Pending) >= 2 {
		return false
	}
	c := b.card(id)
	return c != nil && c.Hidden()
}

// Flip reveals card id. ok is false when the flip is illegal, in which case
// the board is untouched. complete is true when the flip fills the pair.
func (b *Board) Flip(id int) (ok, complete bool) {
	if !b.CanFlip(id) {
		return false, false
	}
	b.card(id).IsFlipped = true
	b.Pending = append(b.Pending, id)
	return true, len(b.Pending) == 2
}

// PendingIs reports whether the pending flips are exactly first then second.
func (b *Board) PendingIs(first, second int) bool {
	return len(b.Pending) == 2 && b.Pending[0] == first && b.Pending[1] == second
}

// Resolve judges the pair (first, second). A match locks both cards face up;
// a mismatch turns both back down. Pending flips are cleared either way.
func (b *Board) Resolve(first, second int) (matched bool) {
	c1, c2 := b.card(first), b.card(second)
	b.Pending = b.Pending[:0]
	if c1 == nil || c2 == nil || first == second {
		return false
	}
	if c1.Symbol == c2.Symbol {
		c1.IsMatched, c2.IsMatched = true, true
		return true
	}
	c1.IsFlipped, c2.IsFlipped = false, false
	return false
}

// Abandon turns any unresolved flips face down and clears them.
func (b *Board) Abandon() {
	for _, id := range b.Pending {
		if c := b.card(id); c != nil && !c.IsMatched {
			c.IsFlipped = false
		}
	}
	b.Pending = b.Pending[:0]
}

// AllMatched reports whether every card has been paired.
func (b *Board) AllMatched() bool {
	for _, c := range b.Cards {
		if !c.IsMatched {
			return false
		}
	}
	return len(b.Cards) > 0
}

// MatchedPairs counts the pairs found so far.
func (b *Board) MatchedPairs() int {
	n := 0
	for _, c := range b.Cards {
		if c.IsMatched {
			n++
		}
	}
	return n / 2
}

// CardsCopy returns a copy of the cards safe to hand to another goroutine.
func (b *Board) CardsCopy() []Card {
	out := make([]Card, len(b.Cards))
	copy(out, b.Cards)
	return out
}

// PendingCopy returns a copy of the pending flip ids.
func (b *Board) PendingCopy() []int {
	out := make([]int, len(b.Pending))
	copy(out, b.Pending)
	return out
}
