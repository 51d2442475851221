package engine

import "math/rand/v2"

// BuildDeck returns a freshly shuffled deck holding symbolCount pairs,
// drawing from the process-wide random source.
func BuildDeck(symbolCount int) []Card {
	return shuffleDeck(symbolCount, rand.IntN)
}

// BuildDeckRand is BuildDeck with an explicit random source.
func BuildDeckRand(r *rand.Rand, symbolCount int) []Card {
	return shuffleDeck(symbolCount, r.IntN)
}

func shuffleDeck(symbolCount int, intN func(int) int) []Card {
	if symbolCount < 1 {
		symbolCount = 1
	}
	if symbolCount > len(Symbols) {
		symbolCount = len(Symbols)
	}

	faces := make([]string, 0, symbolCount*2)
	faces = append(faces, Symbols[:symbolCount]...)
	faces = append(faces, Symbols[:symbolCount]...)

	// Fisher-Yates.
	for i := len(faces) - 1; i > 0; i-- {
		j := intN(i + 1)
		faces[i], faces[j] = faces[j], faces[i]
	}

	deck := make([]Card, len(faces))
	for i, s := range faces {
		deck[i] = Card{ID: i, Symbol: s}
	}
	return deck
}
