package gamelog

import "time"

// StatType identifies one tracked box-score stat.
type StatType string

const (
	StatPoints   StatType = "Points"
	StatRebounds StatType = "Rebounds"
	StatAssists  StatType = "Assists"
)

// Record is one completed game for one player. Immutable once fetched;
// canonical presentation order is date descending.
type Record struct {
	PlayerCanonicalID string
	FixtureID         string
	Date              time.Time
	StatValues        map[StatType]float64
	IsAway            bool
	Opponent          string
}

// Value returns the stat value for the given type, zero when untracked.
func (r Record) Value(statType StatType) float64 {
	return r.StatValues[statType]
}
