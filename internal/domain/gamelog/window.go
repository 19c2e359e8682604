package gamelog

import "sort"

// SeasonWindowSize caps the "season" window. The game log feed keeps a
// rolling tail, so 20 games is the season proxy everywhere downstream.
const SeasonWindowSize = 20

const (
	WindowLast5  = 5
	WindowLast10 = 10
)

// Window returns the most recent games of a player's log, newest first.
// The input is re-sorted by date descending before slicing; sorted input is
// never assumed. Fewer games than requested is a normal condition, the
// caller surfaces it through the window's length.
func Window(games []Record, size int) []Record {
	if size <= 0 {
		return nil
	}
	if size > SeasonWindowSize {
		size = SeasonWindowSize
	}

	sorted := make([]Record, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	if size > len(sorted) {
		size = len(sorted)
	}
	return sorted[:size]
}

// SeasonWindow is shorthand for the uncapped-but-bounded season view.
func SeasonWindow(games []Record) []Record {
	return Window(games, SeasonWindowSize)
}
