package memory

import (
	"time"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/player"
)

// Seed data covers a couple of well-known players with enough history to
// light up every recency window during local development.
func SeedPlayers() []player.Detail {
	return []player.Detail{
		{ID: "nba-lbj", CanonicalID: "lebron james", DisplayName: "LeBron James", Team: "Los Angeles Lakers", Position: "F"},
		{ID: "nba-jok", CanonicalID: "nikola jokic", DisplayName: "Nikola Jokić", Team: "Denver Nuggets", Position: "C"},
		{ID: "nba-sga", CanonicalID: "shai gilgeous-alexander", DisplayName: "Shai Gilgeous-Alexander", Team: "Oklahoma City Thunder", Position: "G"},
	}
}

func SeedGameLogs() []gamelog.Record {
	day := func(offset int) time.Time {
		return time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
	}

	lebron := [][3]float64{
		{31, 8, 9}, {24, 7, 11}, {28, 6, 8}, {19, 9, 7}, {33, 8, 10},
		{27, 7, 6}, {22, 5, 9}, {30, 8, 8}, {26, 6, 7}, {21, 7, 12},
	}
	jokic := [][3]float64{
		{26, 13, 10}, {30, 15, 8}, {22, 11, 12}, {28, 12, 9}, {24, 14, 11},
		{31, 10, 7}, {27, 13, 13}, {25, 12, 10},
	}
	sga := [][3]float64{
		{34, 5, 6}, {29, 6, 7}, {38, 4, 5}, {31, 5, 8}, {27, 6, 6},
		{33, 5, 7},
	}

	out := make([]gamelog.Record, 0, len(lebron)+len(jokic)+len(sga))
	appendGames := func(canonicalID string, lines [][3]float64, opponent string) {
		for i, line := range lines {
			out = append(out, gamelog.Record{
				PlayerCanonicalID: canonicalID,
				FixtureID:         canonicalID + "-seed-" + string(rune('a'+i)),
				Date:              day(i * 2),
				StatValues: map[gamelog.StatType]float64{
					gamelog.StatPoints:   line[0],
					gamelog.StatRebounds: line[1],
					gamelog.StatAssists:  line[2],
				},
				IsAway:   i%2 == 1,
				Opponent: opponent,
			})
		}
	}

	appendGames("lebron james", lebron, "Golden State Warriors")
	appendGames("nikola jokic", jokic, "Minnesota Timberwolves")
	appendGames("shai gilgeous-alexander", sga, "Dallas Mavericks")
	return out
}
