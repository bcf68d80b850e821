package service

// NextTodayPosition appends after the current maximum. Gaps are never reused.
func NextTodayPosition(max *int) int {
	if max == nil {
		return 1
	}
	return *max + 1
}

// Positions maps each id to its 1-based index in ids. A duplicate id keeps its first index,
// so len(result) < len(ids) signals duplicates.
func Positions(ids []string) map[string]int {
	positions := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := positions[id]; !ok {
			positions[id] = i + 1
		}
	}
	return positions
}
