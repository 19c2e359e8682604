package props

import (
	"fmt"
	"math"
)

// Window weights for the projection. Missing windows are dropped and the
// remaining weights renormalized, so sparse history never dilutes the
// projection toward zero.
const (
	weightLast5  = 0.5
	weightLast10 = 0.3
	weightSeason = 0.2
)

const (
	confidenceBase  = 50.0
	confidenceFloor = 30
	confidenceCap   = 95
)

// Project turns aggregated window stats, the current streak and a betting
// line into a projection. Every branch has a zero/default fallback; this
// function never fails on missing data. Availability beats strictness for a
// display-analytics feature.
func Project(stats WindowStats, streak int, line float64) Projection {
	projected := weightedAverage(stats)
	edge := math.Abs(projected - line)

	recommendation := RecommendationOver
	if projected < line {
		recommendation = RecommendationUnder
	}

	return Projection{
		ProjectedValue:  projected,
		EdgePercent:     formatEdgePercent(edge, line),
		Recommendation:  recommendation,
		ConfidenceScore: confidenceScore(stats, streak, edge, recommendation),
	}
}

// ApplyCustomOverride replaces the computed value and confidence with a
// curated projection. The recommendation is recomputed against the current
// line; the curated record's own recommendation may be stale and is ignored.
func ApplyCustomOverride(custom CustomProjection, line float64) Projection {
	recommendation := RecommendationOver
	if custom.ProjectedValue < line {
		recommendation = RecommendationUnder
	}

	edge := math.Abs(custom.ProjectedValue - line)
	return Projection{
		ProjectedValue:  custom.ProjectedValue,
		EdgePercent:     formatEdgePercent(edge, line),
		Recommendation:  recommendation,
		ConfidenceScore: clampConfidence(custom.ConfidenceScore),
	}
}

func weightedAverage(stats WindowStats) float64 {
	var weighted, used float64
	if stats.Last5.Available() {
		weighted += stats.Last5.Average * weightLast5
		used += weightLast5
	}
	if stats.Last10.Available() {
		weighted += stats.Last10.Average * weightLast10
		used += weightLast10
	}
	if stats.Season.Available() {
		weighted += stats.Season.Average * weightSeason
		used += weightSeason
	}
	if used == 0 {
		return 0
	}
	return math.Round(weighted/used*10) / 10
}

func confidenceScore(stats WindowStats, streak int, edge float64, recommendation string) int {
	score := confidenceBase
	if stats.Last5.Available() {
		score += (stats.Last5.HitRate - 0.5) * 20
	}
	if stats.Last10.Available() {
		score += (stats.Last10.HitRate - 0.5) * 15
	}
	if stats.Season.Available() {
		score += (stats.Season.HitRate - 0.5) * 10
	}

	streakFactor := float64(streak)
	if recommendation == RecommendationUnder {
		streakFactor = -streakFactor
	}
	score += streakFactor * 2

	score += math.Min(edge*5, 15)

	return clampConfidence(int(math.Round(score)))
}

func clampConfidence(score int) int {
	if score < confidenceFloor {
		return confidenceFloor
	}
	if score > confidenceCap {
		return confidenceCap
	}
	return score
}

func formatEdgePercent(edge, line float64) string {
	if line == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", edge/line*100)
}

// BuildReason renders the short plain-language justification shown next to
// a recommended bet.
func BuildReason(stats WindowStats, streak int, recommendation string) string {
	if !stats.Last5.Available() && !stats.Season.Available() {
		return "Limited data available"
	}

	side := "over"
	if recommendation == RecommendationUnder {
		side = "under"
	}

	reason := fmt.Sprintf("Hitting the %s in %.0f%% of last %d games", side, sideRate(stats.Last5.HitRate, recommendation)*100, stats.Last5.SampleSize)
	if streak >= 2 {
		reason += fmt.Sprintf(", on a %d-game over streak", streak)
	} else if streak <= -2 {
		reason += fmt.Sprintf(", on a %d-game under streak", -streak)
	}
	return reason
}

func sideRate(hitRate float64, recommendation string) float64 {
	if recommendation == RecommendationUnder {
		return 1 - hitRate
	}
	return hitRate
}
