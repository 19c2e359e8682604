package props

import (
	"time"

	"github.com/trendybets/propcore/internal/domain/gamelog"
)

const (
	RecommendationOver  = "OVER"
	RecommendationUnder = "UNDER"
)

// Line is one active betting line for a (player, stat, fixture) combination.
// Later provider updates replace it in place, they never duplicate.
type Line struct {
	PlayerCanonicalID string
	StatType          gamelog.StatType
	Line              float64
	FixtureID         string
}

// AggregatedStat is the derived view of one recency window against a line.
// HitRate counts games strictly above the line: a push (value == line) is a
// miss, the over never cashes on an exact land.
type AggregatedStat struct {
	Average    float64
	HitRate    float64
	SampleSize int
}

// Available reports whether the window held any games at all.
func (s AggregatedStat) Available() bool {
	return s.SampleSize > 0
}

// WindowStats groups the three standard recency windows.
type WindowStats struct {
	Last5  AggregatedStat
	Last10 AggregatedStat
	Season AggregatedStat
}

// Projection is recomputed per request, never persisted as source of truth.
type Projection struct {
	ProjectedValue  float64
	EdgePercent     string
	Recommendation  string
	ConfidenceScore int
}

// CustomProjection is a manually curated projection that overrides the
// computed value and confidence for a (player, statType) pair. Its stored
// recommendation is never trusted: the call site recomputes it against the
// current line.
type CustomProjection struct {
	PlayerCanonicalID string
	StatType          gamelog.StatType
	ProjectedValue    float64
	ConfidenceScore   int
	Note              string
	UpdatedBy         string
	UpdatedAt         time.Time
}
