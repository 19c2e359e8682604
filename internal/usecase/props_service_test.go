package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/trendybets/propcore/external/oddsapi"
	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/player"
	"github.com/trendybets/propcore/internal/domain/props"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOddsSource struct {
	mu            sync.Mutex
	fixtures      []oddsapi.Fixture
	fixturesErr   error
	fixtureCalls  int
	oddsByFixture map[string][]oddsapi.OddsRecord
	oddsErr       map[string]error
	oddsCalls     int
}

func (f *fakeOddsSource) FetchFixtures(_ context.Context, _ oddsapi.FixtureFilters) ([]oddsapi.Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixtureCalls++
	if f.fixturesErr != nil {
		return nil, f.fixturesErr
	}
	return f.fixtures, nil
}

func (f *fakeOddsSource) FetchOdds(_ context.Context, fixtureID string, _ oddsapi.OddsFilters) ([]oddsapi.OddsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oddsCalls++
	if err, ok := f.oddsErr[fixtureID]; ok {
		return nil, err
	}
	return f.oddsByFixture[fixtureID], nil
}

type fakePlayerRepo struct {
	mu       sync.Mutex
	details  []player.Detail
	listErr  error
	upserted [][]player.Detail
}

func (f *fakePlayerRepo) ListByCanonicalIDs(_ context.Context, ids []string) ([]player.Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]player.Detail, 0, len(f.details))
	for _, detail := range f.details {
		if _, ok := want[detail.CanonicalID]; ok {
			out = append(out, detail)
		}
	}
	return out, nil
}

func (f *fakePlayerRepo) UpsertPlayers(_ context.Context, items []player.Detail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, items)
	return nil
}

type fakeGameRepo struct {
	mu       sync.Mutex
	byPlayer map[string][]gamelog.Record
	listErr  error
	upserted [][]gamelog.Record
}

func (f *fakeGameRepo) ListByCanonicalIDs(_ context.Context, ids []string, _ int) ([]gamelog.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]gamelog.Record, 0)
	for _, id := range ids {
		out = append(out, f.byPlayer[id]...)
	}
	return out, nil
}

func (f *fakeGameRepo) UpsertGames(_ context.Context, items []gamelog.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, items)
	return nil
}

type fakeCustomRepo struct {
	items   []props.CustomProjection
	listErr error
	saved   []props.CustomProjection
	deleted []string
}

func (f *fakeCustomRepo) ListByPlayers(_ context.Context, _ []string) ([]props.CustomProjection, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeCustomRepo) Upsert(_ context.Context, item props.CustomProjection) error {
	f.saved = append(f.saved, item)
	return nil
}

func (f *fakeCustomRepo) Delete(_ context.Context, playerCanonicalID string, _ gamelog.StatType) error {
	f.deleted = append(f.deleted, playerCanonicalID)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]any
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]any)}
}

func (f *fakeCache) Get(_ context.Context, key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[key]
	return value, ok
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
}

func lakersNuggetsFixture() oddsapi.Fixture {
	return oddsapi.Fixture{
		ID:       "fx-1",
		League:   "nba",
		StartsAt: time.Date(2026, 1, 15, 19, 30, 0, 0, time.UTC),
		HomeTeam: oddsapi.TeamRef{ID: "t-lal", DisplayName: "Los Angeles Lakers"},
		AwayTeam: oddsapi.TeamRef{ID: "t-den", DisplayName: "Denver Nuggets"},
		Status:   "unplayed",
	}
}

func pointsHistory(canonicalID string, values ...float64) []gamelog.Record {
	out := make([]gamelog.Record, 0, len(values))
	for i, value := range values {
		out = append(out, gamelog.Record{
			PlayerCanonicalID: canonicalID,
			FixtureID:         "past",
			Date:              time.Date(2026, 1, 10-i, 0, 0, 0, 0, time.UTC),
			StatValues:        map[gamelog.StatType]float64{gamelog.StatPoints: value},
			Opponent:          "Denver Nuggets",
		})
	}
	return out
}

func TestPropsService_GetPlayerProps_FullPipeline(t *testing.T) {
	fixtureOK := lakersNuggetsFixture()
	fixtureBroken := oddsapi.Fixture{ID: "fx-2", League: "nba"}

	source := &fakeOddsSource{
		fixtures: []oddsapi.Fixture{fixtureOK, fixtureBroken},
		oddsByFixture: map[string][]oddsapi.OddsRecord{
			"fx-1": {
				{FixtureID: "fx-1", MarketID: "player_points", PlayerID: "LeBron_James", Selection: "LeBron James", Line: 25.5, Price: 1.90, Bookmaker: "draftkings"},
				{FixtureID: "fx-1", MarketID: "player_points", PlayerID: "LeBron_James", Selection: "LeBron James", Line: 25.5, Price: 1.95, Bookmaker: "fanduel"},
				{FixtureID: "fx-1", MarketID: "player_blocks", PlayerID: "", Selection: "Nikola Jokić", Line: 1.5, Price: 2.0, Bookmaker: "draftkings"},
			},
		},
		oddsErr: map[string]error{"fx-2": errors.New("provider exploded")},
	}
	players := &fakePlayerRepo{details: []player.Detail{
		{ID: "p-lbj", CanonicalID: "lebron james", DisplayName: "LeBron James", Team: "Los Angeles Lakers", Position: "F"},
	}}
	games := &fakeGameRepo{byPlayer: map[string][]gamelog.Record{
		"lebron james": pointsHistory("lebron james", 30, 28, 20, 26, 31),
	}}

	svc := NewPropsService(source, players, games, &fakeCustomRepo{}, newFakeCache(), PropsConfig{}, discardLogger())

	asOf := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	result, err := svc.GetPlayerProps(context.Background(), PropsQuery{League: "nba", Date: "2026-01-15", AsOf: asOf})
	if err != nil {
		t.Fatalf("GetPlayerProps: %v", err)
	}

	if got, want := result.Meta.FixtureCount, 2; got != want {
		t.Errorf("FixtureCount = %d, want %d", got, want)
	}
	if got, want := result.Meta.DegradedFixtures, 1; got != want {
		t.Errorf("DegradedFixtures = %d, want %d", got, want)
	}
	if got, want := result.Meta.UnknownMarkets, 1; got != want {
		t.Errorf("UnknownMarkets = %d, want %d", got, want)
	}
	if got, want := result.Meta.PropCount, 2; got != want {
		t.Fatalf("PropCount = %d, want %d", got, want)
	}
	if !result.Meta.GeneratedAt.Equal(asOf) {
		t.Errorf("GeneratedAt = %v, want %v", result.Meta.GeneratedAt, asOf)
	}

	lebron := result.Items[0]
	if got, want := lebron.Player.DisplayName, "LeBron James"; got != want {
		t.Errorf("DisplayName = %q, want %q", got, want)
	}
	if got, want := lebron.Price, 1.95; got != want {
		t.Errorf("duplicate line: Price = %v, want last-seen %v", got, want)
	}
	if got, want := lebron.Averages.Last5, 27.0; got != want {
		t.Errorf("Averages.Last5 = %v, want %v", got, want)
	}
	if got, want := lebron.HitRates.Last5, 0.8; got != want {
		t.Errorf("HitRates.Last5 = %v, want %v", got, want)
	}
	if got, want := lebron.CurrentStreak, 2; got != want {
		t.Errorf("CurrentStreak = %d, want %d", got, want)
	}
	if got, want := lebron.Projection.ProjectedValue, 27.0; got != want {
		t.Errorf("ProjectedValue = %v, want %v", got, want)
	}
	if got, want := lebron.Projection.Recommendation, props.RecommendationOver; got != want {
		t.Errorf("Recommendation = %q, want %q", got, want)
	}
	if got, want := lebron.Projection.EdgePercent, "5.9%"; got != want {
		t.Errorf("EdgePercent = %q, want %q", got, want)
	}
	if got, want := lebron.Projection.ConfidenceScore, 75; got != want {
		t.Errorf("ConfidenceScore = %d, want %d", got, want)
	}
	if got, want := lebron.Variance, props.VarianceMedium; got != want {
		t.Errorf("Variance = %q, want %q", got, want)
	}
	if got, want := lebron.TrendStrength, 0.059; got != want {
		t.Errorf("TrendStrength = %v, want %v", got, want)
	}
	if lebron.NextGame.IsAway {
		t.Error("IsAway = true, want false for the home side")
	}
	if got, want := lebron.NextGame.Opponent, "Denver Nuggets"; got != want {
		t.Errorf("Opponent = %q, want %q", got, want)
	}

	jokic := result.Items[1]
	if got, want := jokic.StatType, gamelog.StatPoints; got != want {
		t.Errorf("unknown market StatType = %q, want default %q", got, want)
	}
	if got, want := jokic.Player.Team, props.DefaultTeamName(); got != want {
		t.Errorf("Team = %q, want fallback %q", got, want)
	}
	if got, want := jokic.Projection.Recommendation, props.RecommendationUnder; got != want {
		t.Errorf("no-history Recommendation = %q, want %q", got, want)
	}
	if got, want := jokic.Reason, "Limited data available"; got != want {
		t.Errorf("Reason = %q, want %q", got, want)
	}
}

func TestPropsService_GetPlayerProps_CustomOverride(t *testing.T) {
	source := &fakeOddsSource{
		fixtures: []oddsapi.Fixture{lakersNuggetsFixture()},
		oddsByFixture: map[string][]oddsapi.OddsRecord{
			"fx-1": {
				{FixtureID: "fx-1", MarketID: "player_points", PlayerID: "LeBron_James", Selection: "LeBron James", Line: 25.5, Price: 1.9, Bookmaker: "draftkings"},
			},
		},
	}
	games := &fakeGameRepo{byPlayer: map[string][]gamelog.Record{
		"lebron james": pointsHistory("lebron james", 30, 28, 20, 26, 31),
	}}
	customs := &fakeCustomRepo{items: []props.CustomProjection{
		{PlayerCanonicalID: "lebron james", StatType: gamelog.StatPoints, ProjectedValue: 24.0, ConfidenceScore: 88},
	}}

	svc := NewPropsService(source, &fakePlayerRepo{}, games, customs, newFakeCache(), PropsConfig{}, discardLogger())

	result, err := svc.GetPlayerProps(context.Background(), PropsQuery{League: "nba"})
	if err != nil {
		t.Fatalf("GetPlayerProps: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(result.Items))
	}

	item := result.Items[0]
	if !item.IsCustom {
		t.Fatal("IsCustom = false, want true")
	}
	if got, want := item.Projection.ProjectedValue, 24.0; got != want {
		t.Errorf("ProjectedValue = %v, want curated %v", got, want)
	}
	if got, want := item.Projection.ConfidenceScore, 88; got != want {
		t.Errorf("ConfidenceScore = %d, want curated %d", got, want)
	}
	// 24 sits under the current 25.5 line, so the recommendation flips even
	// though the raw windows lean over.
	if got, want := item.Projection.Recommendation, props.RecommendationUnder; got != want {
		t.Errorf("Recommendation = %q, want %q", got, want)
	}
}

func TestPropsService_GetPlayerProps_FixtureFetchFailureIsFatal(t *testing.T) {
	source := &fakeOddsSource{fixturesErr: errors.New("provider down")}
	svc := NewPropsService(source, &fakePlayerRepo{}, &fakeGameRepo{}, &fakeCustomRepo{}, newFakeCache(), PropsConfig{}, discardLogger())

	_, err := svc.GetPlayerProps(context.Background(), PropsQuery{League: "nba"})
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("err = %v, want ErrUpstreamFailure", err)
	}
}

func TestPropsService_GetPlayerProps_RequiresLeague(t *testing.T) {
	svc := NewPropsService(&fakeOddsSource{}, &fakePlayerRepo{}, &fakeGameRepo{}, &fakeCustomRepo{}, newFakeCache(), PropsConfig{}, discardLogger())

	_, err := svc.GetPlayerProps(context.Background(), PropsQuery{League: "   "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestPropsService_GetPlayerProps_ServesCachedFixtures(t *testing.T) {
	cache := newFakeCache()
	cache.entries["fixtures:nba:2026-01-15"] = []oddsapi.Fixture{lakersNuggetsFixture()}
	cache.entries["odds:fx-1"] = []oddsapi.OddsRecord{
		{FixtureID: "fx-1", MarketID: "player_points", PlayerID: "LeBron_James", Selection: "LeBron James", Line: 25.5, Price: 1.9, Bookmaker: "draftkings"},
	}

	source := &fakeOddsSource{fixturesErr: errors.New("should not be called")}
	svc := NewPropsService(source, &fakePlayerRepo{}, &fakeGameRepo{}, &fakeCustomRepo{}, cache, PropsConfig{}, discardLogger())

	result, err := svc.GetPlayerProps(context.Background(), PropsQuery{League: "nba", Date: "2026-01-15"})
	if err != nil {
		t.Fatalf("GetPlayerProps: %v", err)
	}
	if source.fixtureCalls != 0 || source.oddsCalls != 0 {
		t.Errorf("provider calls = %d/%d, want 0/0 on warm cache", source.fixtureCalls, source.oddsCalls)
	}
	if len(result.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(result.Items))
	}
}

func TestPropsService_GetPlayerProps_StatTypeFilter(t *testing.T) {
	source := &fakeOddsSource{
		fixtures: []oddsapi.Fixture{lakersNuggetsFixture()},
		oddsByFixture: map[string][]oddsapi.OddsRecord{
			"fx-1": {
				{FixtureID: "fx-1", MarketID: "player_points", PlayerID: "LeBron_James", Selection: "LeBron James", Line: 25.5, Price: 1.9},
				{FixtureID: "fx-1", MarketID: "player_rebounds", PlayerID: "LeBron_James", Selection: "LeBron James", Line: 7.5, Price: 1.85},
			},
		},
	}
	svc := NewPropsService(source, &fakePlayerRepo{}, &fakeGameRepo{}, &fakeCustomRepo{}, newFakeCache(), PropsConfig{}, discardLogger())

	result, err := svc.GetPlayerProps(context.Background(), PropsQuery{
		League:    "nba",
		StatTypes: []gamelog.StatType{gamelog.StatRebounds},
	})
	if err != nil {
		t.Fatalf("GetPlayerProps: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(result.Items))
	}
	if got, want := result.Items[0].StatType, gamelog.StatRebounds; got != want {
		t.Errorf("StatType = %q, want %q", got, want)
	}
}

func TestPropsService_GetPlayerProps_Idempotent(t *testing.T) {
	source := &fakeOddsSource{
		fixtures: []oddsapi.Fixture{lakersNuggetsFixture()},
		oddsByFixture: map[string][]oddsapi.OddsRecord{
			"fx-1": {
				{FixtureID: "fx-1", MarketID: "player_points", PlayerID: "LeBron_James", Selection: "LeBron James", Line: 25.5, Price: 1.9},
			},
		},
	}
	games := &fakeGameRepo{byPlayer: map[string][]gamelog.Record{
		"lebron james": pointsHistory("lebron james", 30, 28, 20, 26, 31),
	}}
	svc := NewPropsService(source, &fakePlayerRepo{}, games, &fakeCustomRepo{}, newFakeCache(), PropsConfig{}, discardLogger())

	query := PropsQuery{League: "nba", AsOf: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
	first, err := svc.GetPlayerProps(context.Background(), query)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetPlayerProps(context.Background(), query)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if first.Meta != second.Meta {
		t.Errorf("Meta diverged: %+v vs %+v", first.Meta, second.Meta)
	}
	if len(first.Items) != len(second.Items) {
		t.Fatalf("item counts diverged: %d vs %d", len(first.Items), len(second.Items))
	}
	for i := range first.Items {
		if first.Items[i].Projection != second.Items[i].Projection {
			t.Errorf("item %d projection diverged: %+v vs %+v", i, first.Items[i].Projection, second.Items[i].Projection)
		}
	}
}
