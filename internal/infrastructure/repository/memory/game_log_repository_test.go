package memory

import (
	"context"
	"testing"
	"time"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/props"
)

func TestGameLogRepository_ListByCanonicalIDs(t *testing.T) {
	repo := NewGameLogRepository(SeedGameLogs())

	records, err := repo.ListByCanonicalIDs(context.Background(), []string{"LeBron_James"}, 5)
	if err != nil {
		t.Fatalf("ListByCanonicalIDs: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("len(records) = %d, want capped 5", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].Date.After(records[i-1].Date) {
			t.Fatalf("records not date-descending at %d", i)
		}
	}
}

func TestGameLogRepository_UpsertReplacesSameFixture(t *testing.T) {
	repo := NewGameLogRepository(nil)
	record := gamelog.Record{
		PlayerCanonicalID: "lebron james",
		FixtureID:         "fx-1",
		Date:              time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC),
		StatValues:        map[gamelog.StatType]float64{gamelog.StatPoints: 20},
	}
	if err := repo.UpsertGames(context.Background(), []gamelog.Record{record}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	record.StatValues = map[gamelog.StatType]float64{gamelog.StatPoints: 25}
	if err := repo.UpsertGames(context.Background(), []gamelog.Record{record}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	records, err := repo.ListByCanonicalIDs(context.Background(), []string{"lebron james"}, 0)
	if err != nil {
		t.Fatalf("ListByCanonicalIDs: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1 after replace", len(records))
	}
	if got := records[0].Value(gamelog.StatPoints); got != 25 {
		t.Fatalf("points = %v, want replaced 25", got)
	}
}

func TestCustomProjectionRepository_RoundTrip(t *testing.T) {
	repo := NewCustomProjectionRepository()
	ctx := context.Background()

	item := props.CustomProjection{
		PlayerCanonicalID: "LeBron_James",
		StatType:          gamelog.StatPoints,
		ProjectedValue:    27.5,
		ConfidenceScore:   80,
	}
	if err := repo.Upsert(ctx, item); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	item.ProjectedValue = 29
	if err := repo.Upsert(ctx, item); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	items, err := repo.ListByPlayers(ctx, []string{"lebron james"})
	if err != nil {
		t.Fatalf("ListByPlayers: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].ProjectedValue != 29 {
		t.Fatalf("ProjectedValue = %v, want replaced 29", items[0].ProjectedValue)
	}

	if err := repo.Delete(ctx, "lebron james", gamelog.StatPoints); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	items, err = repo.ListByPlayers(ctx, []string{"lebron james"})
	if err != nil {
		t.Fatalf("ListByPlayers after delete: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("len(items) = %d, want 0 after delete", len(items))
	}
}
