package props

import (
	"math"

	"github.com/trendybets/propcore/internal/domain/gamelog"
)

// Aggregate computes the per-window derived stats for one stat type against
// a line. An empty window yields the documented zero defaults rather than an
// error: limited data is a display condition, not a failure.
func Aggregate(window []gamelog.Record, statType gamelog.StatType, line float64) AggregatedStat {
	if len(window) == 0 {
		return AggregatedStat{}
	}

	var sum float64
	hits := 0
	for _, game := range window {
		value := game.Value(statType)
		sum += value
		if value > line {
			hits++
		}
	}

	count := len(window)
	return AggregatedStat{
		Average:    sum / float64(count),
		HitRate:    float64(hits) / float64(count),
		SampleSize: count,
	}
}

// Streak walks the window from the most recent game and counts consecutive
// games on the same side of the line. Positive means an over-streak,
// negative an under-streak. A value exactly on the line sits on the under
// side, consistent with the hit-rate boundary.
func Streak(window []gamelog.Record, statType gamelog.StatType, line float64) int {
	if len(window) == 0 {
		return 0
	}

	over := window[0].Value(statType) > line
	length := 1
	for _, game := range window[1:] {
		if (game.Value(statType) > line) != over {
			break
		}
		length++
	}

	if over {
		return length
	}
	return -length
}

// TrendStrength measures how far the last-5 average sits from the line,
// relative to the line, rounded to 3 decimals. Zero line or no games yields 0.
func TrendStrength(last5 AggregatedStat, line float64) float64 {
	if line == 0 || !last5.Available() {
		return 0
	}
	return math.Round(math.Abs((last5.Average-line)/line)*1000) / 1000
}

// StdDev is the population standard deviation of a window's stat values.
func StdDev(window []gamelog.Record, statType gamelog.StatType) float64 {
	if len(window) == 0 {
		return 0
	}

	var sum float64
	for _, game := range window {
		sum += game.Value(statType)
	}
	mean := sum / float64(len(window))

	var sq float64
	for _, game := range window {
		d := game.Value(statType) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(window)))
}

const (
	VarianceLow    = "low"
	VarianceMedium = "medium"
	VarianceHigh   = "high"
)

// VarianceThresholds are presentation-tier constants: they band a window's
// std dev for display, nothing downstream branches on them.
type VarianceThresholds struct {
	Low    float64
	Medium float64
}

func DefaultVarianceThresholds() VarianceThresholds {
	return VarianceThresholds{Low: 2, Medium: 4}
}

func (t VarianceThresholds) Classify(stdDev float64) string {
	switch {
	case stdDev < t.Low:
		return VarianceLow
	case stdDev < t.Medium:
		return VarianceMedium
	default:
		return VarianceHigh
	}
}
