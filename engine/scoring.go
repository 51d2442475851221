package engine

// Winner returns the index of the seat with the strictly greatest score,
// or -1 when the top score is shared. Only the documented two-seat board is
// supported; an empty slice is a tie.
func Winner(scores []int) int {
	if len(scores) != MaxSeats {
		return -1
	}
	switch {
	case scores[0] > scores[1]:
		return 0
	case scores[1] > scores[0]:
		return 1
	}
	return -1
}
