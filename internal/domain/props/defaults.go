package props

// Centralized fallback policies. The aggregation path degrades instead of
// erroring, and every fallback value lives here so the behavior is
// documented and testable in one place.

const unknownTeamName = "Unknown"

// DefaultTeamName stands in when neither the store nor the fixture's home
// and away names can place a player on a team.
func DefaultTeamName() string {
	return unknownTeamName
}

// DefaultAverage is the average reported for an empty window.
func DefaultAverage() float64 {
	return 0
}

// DefaultHitRate is the hit rate reported for an empty window.
func DefaultHitRate() float64 {
	return 0
}
