package gamelog

import (
	"testing"
	"time"
)

func gameOn(day int, points float64) Record {
	return Record{
		PlayerCanonicalID: "p1",
		FixtureID:         "f",
		Date:              time.Date(2026, 1, day, 19, 0, 0, 0, time.UTC),
		StatValues:        map[StatType]float64{StatPoints: points},
	}
}

func TestWindow_SortsDescendingBeforeSlicing(t *testing.T) {
	games := []Record{gameOn(3, 10), gameOn(9, 30), gameOn(6, 20)}

	got := Window(games, 2)
	if len(got) != 2 {
		t.Fatalf("unexpected window size: got=%d want=2", len(got))
	}
	if got[0].Value(StatPoints) != 30 || got[1].Value(StatPoints) != 20 {
		t.Fatalf("expected newest-first window, got=[%v, %v]", got[0].Value(StatPoints), got[1].Value(StatPoints))
	}
}

func TestWindow_ShortHistoryIsNotAnError(t *testing.T) {
	games := []Record{gameOn(1, 10), gameOn(2, 12)}

	got := Window(games, 10)
	if len(got) != 2 {
		t.Fatalf("expected all available games, got=%d", len(got))
	}
}

func TestWindow_SeasonCapsAtTwenty(t *testing.T) {
	games := make([]Record, 0, 25)
	for day := 1; day <= 25; day++ {
		games = append(games, gameOn(day, float64(day)))
	}

	got := SeasonWindow(games)
	if len(got) != SeasonWindowSize {
		t.Fatalf("unexpected season window size: got=%d want=%d", len(got), SeasonWindowSize)
	}
	if got[0].Value(StatPoints) != 25 {
		t.Fatalf("expected newest game first, got=%v", got[0].Value(StatPoints))
	}
}

func TestWindow_DoesNotMutateInput(t *testing.T) {
	games := []Record{gameOn(3, 10), gameOn(9, 30), gameOn(6, 20)}

	_ = Window(games, 3)
	if !games[0].Date.Equal(time.Date(2026, 1, 3, 19, 0, 0, 0, time.UTC)) {
		t.Fatalf("input slice order changed: first date=%v", games[0].Date)
	}
}
