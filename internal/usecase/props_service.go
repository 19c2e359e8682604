package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/trendybets/propcore/external/oddsapi"
	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/player"
	"github.com/trendybets/propcore/internal/domain/props"
	"github.com/trendybets/propcore/internal/platform/batch"
	"github.com/trendybets/propcore/internal/platform/identity"
)

// OddsSource is the narrow view of the odds provider the aggregation needs.
type OddsSource interface {
	FetchFixtures(ctx context.Context, filters oddsapi.FixtureFilters) ([]oddsapi.Fixture, error)
	FetchOdds(ctx context.Context, fixtureID string, filters oddsapi.OddsFilters) ([]oddsapi.OddsRecord, error)
}

// Cache is the short-TTL fetch-boundary cache. Injected so tests can
// substitute a deterministic fake.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
}

type PropsConfig struct {
	// MaxInFlightFetches bounds the per-fixture odds fan-out. The provider
	// throttles unbounded bursts, so this stays small.
	MaxInFlightFetches int
	HistoryBatchSize   int
	CacheTTL           time.Duration
	Markets            []string
	Bookmakers         []string
	Variance           props.VarianceThresholds
}

func (c PropsConfig) withDefaults() PropsConfig {
	if c.MaxInFlightFetches <= 0 {
		c.MaxInFlightFetches = 8
	}
	if c.HistoryBatchSize <= 0 {
		c.HistoryBatchSize = batch.DefaultChunkSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if len(c.Markets) == 0 {
		c.Markets = []string{props.MarketPlayerPoints, props.MarketPlayerRebounds, props.MarketPlayerAssists}
	}
	if c.Variance == (props.VarianceThresholds{}) {
		c.Variance = props.DefaultVarianceThresholds()
	}
	return c
}

// PropsService runs the aggregation pipeline: fixtures, odds, player
// details and history in, per-prop analytics out. Request scoped: every
// call builds its own lookup maps, nothing is shared between requests.
type PropsService struct {
	odds    OddsSource
	players player.Repository
	history gamelog.Repository
	customs props.CustomProjectionRepository
	cache   Cache
	cfg     PropsConfig
	logger  *slog.Logger
}

func NewPropsService(
	odds OddsSource,
	players player.Repository,
	history gamelog.Repository,
	customs props.CustomProjectionRepository,
	cache Cache,
	cfg PropsConfig,
	logger *slog.Logger,
) *PropsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropsService{
		odds:    odds,
		players: players,
		history: history,
		customs: customs,
		cache:   cache,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// PropsQuery selects which fixtures and stat types to aggregate. AsOf is
// the explicit "as of" timestamp stamped on the result; identical inputs
// with the same AsOf produce identical output.
type PropsQuery struct {
	League    string
	Date      string
	StatTypes []gamelog.StatType
	AsOf      time.Time
}

// WindowNumbers carries one value per standard recency window.
type WindowNumbers struct {
	Last5  float64
	Last10 float64
	Season float64
}

type NextGameInfo struct {
	FixtureID string
	HomeTeam  string
	AwayTeam  string
	StartsAt  time.Time
	IsAway    bool
	Opponent  string
}

// PlayerProp is the unified per-prop record the presentation layer renders.
type PlayerProp struct {
	Player        player.Identity
	StatType      gamelog.StatType
	MarketID      string
	Line          float64
	Price         float64
	Bookmaker     string
	Games         []gamelog.Record
	Averages      WindowNumbers
	HitRates      WindowNumbers
	SampleSizes   [3]int
	CurrentStreak int
	Projection    props.Projection
	Reason        string
	IsCustom      bool
	Variance      string
	TrendStrength float64
	NextGame      NextGameInfo
}

// PropsMeta is the degradation bookkeeping surfaced alongside results.
type PropsMeta struct {
	FixtureCount     int
	PropCount        int
	DegradedFixtures int
	DegradedBatches  int
	UnknownMarkets   int
	GeneratedAt      time.Time
}

type PropsResult struct {
	Items []PlayerProp
	Meta  PropsMeta
}

// GetPlayerProps runs the full pipeline for one league/date slice. Only a
// total fixture-fetch failure is fatal; every narrower failure degrades to
// fewer rows and a bumped counter in Meta.
func (s *PropsService) GetPlayerProps(ctx context.Context, query PropsQuery) (PropsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PropsService.GetPlayerProps")
	defer span.End()

	league := strings.TrimSpace(query.League)
	if league == "" {
		return PropsResult{}, fmt.Errorf("%w: league is required", ErrInvalidInput)
	}

	generatedAt := query.AsOf
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	fixtures, err := s.fetchFixtures(ctx, league, query.Date)
	if err != nil {
		return PropsResult{}, fmt.Errorf("%w: fetch fixtures league=%s: %v", ErrUpstreamFailure, league, err)
	}

	meta := PropsMeta{FixtureCount: len(fixtures), GeneratedAt: generatedAt}
	if len(fixtures) == 0 {
		return PropsResult{Items: []PlayerProp{}, Meta: meta}, nil
	}

	oddsByFixture, degradedFixtures := s.fanOutOdds(ctx, fixtures)
	meta.DegradedFixtures = degradedFixtures

	fixtureByID := make(map[string]oddsapi.Fixture, len(fixtures))
	for _, fx := range fixtures {
		fixtureByID[fx.ID] = fx
	}

	uniqueProps, unknownMarkets := dedupeOdds(fixtures, oddsByFixture, query.StatTypes)
	meta.UnknownMarkets = unknownMarkets
	if unknownMarkets > 0 {
		s.logger.WarnContext(ctx, "unrecognized prop markets defaulted to Points",
			"league", league,
			"count", unknownMarkets,
		)
	}

	canonicalIDs := collectCanonicalIDs(uniqueProps)

	detailByID, degraded := s.loadPlayerDetails(ctx, canonicalIDs)
	meta.DegradedBatches += degraded

	historyByID, degraded := s.loadPlayerHistory(ctx, canonicalIDs)
	meta.DegradedBatches += degraded

	customByKey := s.loadCustomProjections(ctx, canonicalIDs)

	items := make([]PlayerProp, 0, len(uniqueProps))
	for _, record := range uniqueProps {
		items = append(items, s.buildPlayerProp(record, fixtureByID, detailByID, historyByID, customByKey))
	}

	meta.PropCount = len(items)
	return PropsResult{Items: items, Meta: meta}, nil
}

func (s *PropsService) fetchFixtures(ctx context.Context, league, date string) ([]oddsapi.Fixture, error) {
	cacheKey := "fixtures:" + league + ":" + date
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			if fixtures, ok := cached.([]oddsapi.Fixture); ok {
				return fixtures, nil
			}
		}
	}

	fixtures, err := s.odds.FetchFixtures(ctx, oddsapi.FixtureFilters{League: league, Date: date})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, fixtures, s.cfg.CacheTTL)
	}
	return fixtures, nil
}

// fanOutOdds fetches odds for every fixture through a bounded worker pool.
// A failing fixture degrades to zero rows for that fixture.
func (s *PropsService) fanOutOdds(ctx context.Context, fixtures []oddsapi.Fixture) (map[string][]oddsapi.OddsRecord, int) {
	filters := oddsapi.OddsFilters{Markets: s.cfg.Markets, Bookmakers: s.cfg.Bookmakers}

	var mu sync.Mutex
	oddsByFixture := make(map[string][]oddsapi.OddsRecord, len(fixtures))
	var degraded atomic.Int32

	workers := pool.New().WithMaxGoroutines(s.cfg.MaxInFlightFetches)
	for _, fx := range fixtures {
		fx := fx
		workers.Go(func() {
			records, err := s.fetchOddsCached(ctx, fx.ID, filters)
			if err != nil {
				degraded.Add(1)
				s.logger.WarnContext(ctx, "odds fetch failed for fixture, continuing without it",
					"fixture_id", fx.ID,
					"error", err,
				)
				return
			}
			mu.Lock()
			oddsByFixture[fx.ID] = records
			mu.Unlock()
		})
	}
	workers.Wait()

	return oddsByFixture, int(degraded.Load())
}

func (s *PropsService) fetchOddsCached(ctx context.Context, fixtureID string, filters oddsapi.OddsFilters) ([]oddsapi.OddsRecord, error) {
	cacheKey := "odds:" + fixtureID
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			if records, ok := cached.([]oddsapi.OddsRecord); ok {
				return records, nil
			}
		}
	}

	records, err := s.odds.FetchOdds(ctx, fixtureID, filters)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, records, s.cfg.CacheTTL)
	}
	return records, nil
}

// propRecord is one deduped prop line joined to its source odds row.
type propRecord struct {
	canonicalID string
	statType    gamelog.StatType
	marketKnown bool
	odds        oddsapi.OddsRecord
}

// dedupeOdds flattens per-fixture odds into unique props keyed by
// player:market:line. The last-seen record for a duplicate key wins; output
// keeps the insertion order of the first-seen key. Iteration walks fixtures
// in their fetched order so the result is deterministic.
func dedupeOdds(fixtures []oddsapi.Fixture, oddsByFixture map[string][]oddsapi.OddsRecord, statTypes []gamelog.StatType) ([]propRecord, int) {
	wantStat := make(map[gamelog.StatType]bool, len(statTypes))
	for _, st := range statTypes {
		wantStat[st] = true
	}

	indexByKey := make(map[string]int)
	out := make([]propRecord, 0, 64)
	unknownMarkets := 0

	for _, fx := range fixtures {
		for _, record := range oddsByFixture[fx.ID] {
			statType, known := props.StatTypeForMarket(record.MarketID)
			if !known {
				unknownMarkets++
			}
			if len(wantStat) > 0 && !wantStat[statType] {
				continue
			}

			canonicalID := identity.Normalize(record.PlayerID)
			if canonicalID == "" {
				canonicalID = identity.Normalize(record.Selection)
			}
			if canonicalID == "" {
				continue
			}

			key := fmt.Sprintf("%s:%s:%v", canonicalID, record.MarketID, record.Line)
			item := propRecord{
				canonicalID: canonicalID,
				statType:    statType,
				marketKnown: known,
				odds:        record,
			}
			if idx, ok := indexByKey[key]; ok {
				out[idx] = item
				continue
			}
			indexByKey[key] = len(out)
			out = append(out, item)
		}
	}

	return out, unknownMarkets
}

func collectCanonicalIDs(records []propRecord) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.canonicalID]; ok {
			continue
		}
		seen[r.canonicalID] = struct{}{}
		out = append(out, r.canonicalID)
	}
	return out
}

// loadPlayerDetails batch-reads the store sequentially; a failed chunk
// degrades to missing details, which the merge step tolerates.
func (s *PropsService) loadPlayerDetails(ctx context.Context, canonicalIDs []string) (map[string]player.Detail, int) {
	result := batch.Fetch(ctx, canonicalIDs, s.cfg.HistoryBatchSize, s.logger, func(ctx context.Context, chunk []string) ([]player.Detail, error) {
		return s.players.ListByCanonicalIDs(ctx, chunk)
	})

	byID := make(map[string]player.Detail, len(result.Items))
	for _, detail := range result.Items {
		byID[identity.Normalize(detail.CanonicalID)] = detail
	}
	return byID, result.DegradedChunks
}

func (s *PropsService) loadPlayerHistory(ctx context.Context, canonicalIDs []string) (map[string][]gamelog.Record, int) {
	result := batch.Fetch(ctx, canonicalIDs, s.cfg.HistoryBatchSize, s.logger, func(ctx context.Context, chunk []string) ([]gamelog.Record, error) {
		return s.history.ListByCanonicalIDs(ctx, chunk, gamelog.SeasonWindowSize)
	})

	byID := make(map[string][]gamelog.Record, len(canonicalIDs))
	for _, record := range result.Items {
		key := identity.Normalize(record.PlayerCanonicalID)
		byID[key] = append(byID[key], record)
	}
	return byID, result.DegradedChunks
}

type customKey struct {
	canonicalID string
	statType    gamelog.StatType
}

func (s *PropsService) loadCustomProjections(ctx context.Context, canonicalIDs []string) map[customKey]props.CustomProjection {
	if s.customs == nil {
		return nil
	}

	items, err := s.customs.ListByPlayers(ctx, canonicalIDs)
	if err != nil {
		// Curated overrides are an enhancement; losing them is not worth
		// failing the request.
		s.logger.WarnContext(ctx, "custom projection lookup failed, serving computed projections", "error", err)
		return nil
	}

	byKey := make(map[customKey]props.CustomProjection, len(items))
	for _, item := range items {
		byKey[customKey{canonicalID: identity.Normalize(item.PlayerCanonicalID), statType: item.StatType}] = item
	}
	return byKey
}

func (s *PropsService) buildPlayerProp(
	record propRecord,
	fixtureByID map[string]oddsapi.Fixture,
	detailByID map[string]player.Detail,
	historyByID map[string][]gamelog.Record,
	customByKey map[customKey]props.CustomProjection,
) PlayerProp {
	fixture := fixtureByID[record.odds.FixtureID]
	ident := resolveIdentity(record, detailByID, fixture)

	games := gamelog.SeasonWindow(historyByID[record.canonicalID])
	last5 := gamelog.Window(games, gamelog.WindowLast5)
	last10 := gamelog.Window(games, gamelog.WindowLast10)

	line := record.odds.Line
	stats := props.WindowStats{
		Last5:  props.Aggregate(last5, record.statType, line),
		Last10: props.Aggregate(last10, record.statType, line),
		Season: props.Aggregate(games, record.statType, line),
	}
	streak := props.Streak(games, record.statType, line)

	projection := props.Project(stats, streak, line)
	isCustom := false
	if custom, ok := customByKey[customKey{canonicalID: record.canonicalID, statType: record.statType}]; ok {
		projection = props.ApplyCustomOverride(custom, line)
		isCustom = true
	}

	isAway := identity.SameIdentity(ident.Team, fixture.AwayTeam.DisplayName)
	opponent := fixture.AwayTeam.DisplayName
	if isAway {
		opponent = fixture.HomeTeam.DisplayName
	}

	return PlayerProp{
		Player:        ident,
		StatType:      record.statType,
		MarketID:      record.odds.MarketID,
		Line:          line,
		Price:         record.odds.Price,
		Bookmaker:     record.odds.Bookmaker,
		Games:         games,
		Averages:      WindowNumbers{Last5: stats.Last5.Average, Last10: stats.Last10.Average, Season: stats.Season.Average},
		HitRates:      WindowNumbers{Last5: stats.Last5.HitRate, Last10: stats.Last10.HitRate, Season: stats.Season.HitRate},
		SampleSizes:   [3]int{stats.Last5.SampleSize, stats.Last10.SampleSize, stats.Season.SampleSize},
		CurrentStreak: streak,
		Projection:    projection,
		Reason:        props.BuildReason(stats, streak, projection.Recommendation),
		IsCustom:      isCustom,
		Variance:      s.cfg.Variance.Classify(props.StdDev(games, record.statType)),
		TrendStrength: props.TrendStrength(stats.Last5, line),
		NextGame: NextGameInfo{
			FixtureID: fixture.ID,
			HomeTeam:  fixture.HomeTeam.DisplayName,
			AwayTeam:  fixture.AwayTeam.DisplayName,
			StartsAt:  fixture.StartsAt,
			IsAway:    isAway,
			Opponent:  opponent,
		},
	}
}

// resolveIdentity prefers the store's player detail; without one the odds
// record's inline selection name carries the row. Team then comes from
// matching the selection against the fixture's team names, and failing
// that the documented Unknown default.
func resolveIdentity(record propRecord, detailByID map[string]player.Detail, fixture oddsapi.Fixture) player.Identity {
	if detail, ok := detailByID[record.canonicalID]; ok {
		return player.Identity{
			ID:          detail.ID,
			CanonicalID: record.canonicalID,
			DisplayName: detail.DisplayName,
			Team:        detail.Team,
			Position:    detail.Position,
		}
	}

	displayName := record.odds.Selection
	if strings.TrimSpace(displayName) == "" {
		displayName = record.odds.PlayerID
	}

	team := props.DefaultTeamName()
	switch {
	case identity.SameIdentity(displayName, fixture.HomeTeam.DisplayName):
		team = fixture.HomeTeam.DisplayName
	case identity.SameIdentity(displayName, fixture.AwayTeam.DisplayName):
		team = fixture.AwayTeam.DisplayName
	}

	return player.Identity{
		ID:          record.odds.PlayerID,
		CanonicalID: record.canonicalID,
		DisplayName: displayName,
		Team:        team,
	}
}
