package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/trendybets/propcore/external/jobqueue"
	"github.com/trendybets/propcore/external/oddsapi"
	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/player"
	"github.com/trendybets/propcore/internal/platform/id"
	"github.com/trendybets/propcore/internal/platform/identity"
)

// RefreshPublisher hands a refresh job to the out-of-process queue.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, job jobqueue.RefreshJob) error
}

// RefreshService re-warms the provider caches and keeps the player store
// in step with whatever the odds feed currently lists. Triggering is
// decoupled from execution: Trigger enqueues, Run does the work when the
// queue calls back.
type RefreshService struct {
	odds      OddsSource
	players   player.Repository
	history   gamelog.Repository
	publisher RefreshPublisher
	cache     Cache
	cfg       PropsConfig
	ids       id.Generator
	logger    *slog.Logger
}

func NewRefreshService(
	odds OddsSource,
	players player.Repository,
	history gamelog.Repository,
	publisher RefreshPublisher,
	cache Cache,
	cfg PropsConfig,
	logger *slog.Logger,
) *RefreshService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshService{
		odds:      odds,
		players:   players,
		history:   history,
		publisher: publisher,
		cache:     cache,
		cfg:       cfg.withDefaults(),
		ids:       id.NewRandomGenerator(),
		logger:    logger,
	}
}

// Trigger enqueues a refresh for one league.
func (s *RefreshService) Trigger(ctx context.Context, league, triggeredBy string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Trigger")
	defer span.End()

	league = strings.TrimSpace(league)
	if league == "" {
		return fmt.Errorf("%w: league is required", ErrInvalidInput)
	}
	if s.publisher == nil {
		return fmt.Errorf("%w: refresh queue is not configured", ErrDependencyUnavailable)
	}

	jobID, err := s.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate refresh job id: %w", err)
	}

	job := jobqueue.RefreshJob{
		JobID:       jobID,
		League:      league,
		TriggeredBy: strings.TrimSpace(triggeredBy),
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishRefresh(ctx, job); err != nil {
		return fmt.Errorf("publish refresh job league=%s: %w", league, err)
	}

	s.logger.InfoContext(ctx, "refresh job enqueued", "job_id", jobID, "league", league, "triggered_by", job.TriggeredBy)
	return nil
}

type RefreshInput struct {
	Leagues    []string
	Date       string
	MaxWorkers int
}

type RefreshResult struct {
	LeagueCount  int                 `json:"league_count"`
	TaskCount    int                 `json:"task_count"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	SkippedCount int                 `json:"skipped_count"`
	WorkerCount  int                 `json:"worker_count"`
	Tasks        []RefreshTaskResult `json:"tasks"`
}

type RefreshTaskResult struct {
	League     string `json:"league"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Records    int    `json:"records"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

const (
	refreshStatusSuccess = "success"
	refreshStatusFailed  = "failed"
	refreshStatusSkipped = "skipped"

	refreshKindFixtures = "fixtures"
	refreshKindOdds     = "odds"
)

type refreshTask struct {
	league string
	kind   string
}

// Run executes refresh tasks for the requested leagues through a shared
// worker pool. Each league gets a fixtures task and an odds task; the odds
// task waits on its league's fixtures via a per-league once.
func (s *RefreshService) Run(ctx context.Context, input RefreshInput) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Run")
	defer span.End()

	leagues := dedupeLeagues(input.Leagues)
	if len(leagues) == 0 {
		return RefreshResult{}, fmt.Errorf("%w: at least one league is required", ErrInvalidInput)
	}

	tasks := make([]refreshTask, 0, len(leagues)*2)
	for _, league := range leagues {
		tasks = append(tasks,
			refreshTask{league: league, kind: refreshKindFixtures},
			refreshTask{league: league, kind: refreshKindOdds},
		)
	}

	workerCount := normalizeRefreshWorkerCount(input.MaxWorkers, len(tasks))
	result := RefreshResult{
		LeagueCount: len(leagues),
		TaskCount:   len(tasks),
		WorkerCount: workerCount,
		Tasks:       make([]RefreshTaskResult, 0, len(tasks)),
	}

	states := make(map[string]*refreshLeagueState, len(leagues))
	for _, league := range leagues {
		states[league] = &refreshLeagueState{league: league, date: input.Date, service: s}
	}

	results := make(chan RefreshTaskResult, len(tasks))

	var successCount atomic.Int32
	var failedCount atomic.Int32
	var skippedCount atomic.Int32

	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer workerPool.Release()

	var workers sync.WaitGroup
	for _, task := range tasks {
		task := task
		workers.Add(1)
		if err := workerPool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := RefreshTaskResult{League: task.league, Kind: task.kind}

			records, status, message := s.runRefreshTask(ctx, states[task.league], task.kind)
			row.Records = records
			row.Status = status
			row.Message = message
			row.DurationMs = time.Since(start).Milliseconds()

			switch status {
			case refreshStatusSuccess:
				successCount.Add(1)
			case refreshStatusSkipped:
				skippedCount.Add(1)
			default:
				failedCount.Add(1)
			}

			results <- row
		}); err != nil {
			workers.Done()
			return RefreshResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Tasks = append(result.Tasks, row)
	}

	sort.SliceStable(result.Tasks, func(i, j int) bool {
		if result.Tasks[i].League != result.Tasks[j].League {
			return result.Tasks[i].League < result.Tasks[j].League
		}
		return result.Tasks[i].Kind < result.Tasks[j].Kind
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.SkippedCount = int(skippedCount.Load())
	return result, nil
}

type refreshLeagueState struct {
	league  string
	date    string
	service *RefreshService

	fixturesOnce sync.Once
	fixturesErr  error
	fixtures     []oddsapi.Fixture
}

func (st *refreshLeagueState) loadFixtures(ctx context.Context) ([]oddsapi.Fixture, error) {
	st.fixturesOnce.Do(func() {
		st.fixtures, st.fixturesErr = st.service.odds.FetchFixtures(ctx, oddsapi.FixtureFilters{
			League: st.league,
			Date:   st.date,
		})
		if st.fixturesErr == nil && st.service.cache != nil {
			st.service.cache.Set(ctx, "fixtures:"+st.league+":"+st.date, st.fixtures, st.service.cfg.CacheTTL)
		}
	})
	return st.fixtures, st.fixturesErr
}

func (s *RefreshService) runRefreshTask(ctx context.Context, state *refreshLeagueState, kind string) (int, string, string) {
	if state == nil {
		return 0, refreshStatusFailed, "invalid league state"
	}

	switch kind {
	case refreshKindFixtures:
		fixtures, err := state.loadFixtures(ctx)
		if err != nil {
			return 0, refreshStatusFailed, err.Error()
		}
		if len(fixtures) == 0 {
			return 0, refreshStatusSkipped, "no fixtures scheduled"
		}
		return len(fixtures), refreshStatusSuccess, ""
	case refreshKindOdds:
		count, err := s.refreshOdds(ctx, state)
		if err != nil {
			return 0, refreshStatusFailed, err.Error()
		}
		if count == 0 {
			return 0, refreshStatusSkipped, "no prop odds posted"
		}
		return count, refreshStatusSuccess, ""
	default:
		return 0, refreshStatusFailed, fmt.Sprintf("unknown refresh kind %q", kind)
	}
}

// refreshOdds re-fetches every fixture's odds, re-warms the cache and
// upserts the player identities the feed currently lists.
func (s *RefreshService) refreshOdds(ctx context.Context, state *refreshLeagueState) (int, error) {
	fixtures, err := state.loadFixtures(ctx)
	if err != nil {
		return 0, fmt.Errorf("load fixtures: %w", err)
	}

	filters := oddsapi.OddsFilters{Markets: s.cfg.Markets, Bookmakers: s.cfg.Bookmakers}
	seen := make(map[string]player.Detail)
	total := 0

	for _, fx := range fixtures {
		records, err := s.odds.FetchOdds(ctx, fx.ID, filters)
		if err != nil {
			s.logger.WarnContext(ctx, "odds refresh failed for fixture",
				"league", state.league,
				"fixture_id", fx.ID,
				"error", err,
			)
			continue
		}
		if s.cache != nil {
			s.cache.Set(ctx, "odds:"+fx.ID, records, s.cfg.CacheTTL)
		}
		total += len(records)

		for _, record := range records {
			canonicalID := identity.Normalize(record.PlayerID)
			if canonicalID == "" {
				canonicalID = identity.Normalize(record.Selection)
			}
			if canonicalID == "" {
				continue
			}
			if _, ok := seen[canonicalID]; ok {
				continue
			}
			seen[canonicalID] = player.Detail{
				ID:          firstNonEmptyString(record.PlayerID, canonicalID),
				CanonicalID: canonicalID,
				DisplayName: firstNonEmptyString(record.Selection, record.PlayerID),
			}
		}
	}

	if len(seen) > 0 {
		details := make([]player.Detail, 0, len(seen))
		for _, detail := range seen {
			details = append(details, detail)
		}
		sort.Slice(details, func(i, j int) bool { return details[i].CanonicalID < details[j].CanonicalID })
		if err := s.players.UpsertPlayers(ctx, details); err != nil {
			return 0, fmt.Errorf("upsert players league=%s: %w", state.league, err)
		}
	}

	return total, nil
}

// IngestGames accepts a pushed batch of completed game lines and stores
// them under canonical player ids. This is how history arrives; the odds
// provider only carries forward-looking lines.
func (s *RefreshService) IngestGames(ctx context.Context, records []gamelog.Record) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.IngestGames")
	defer span.End()

	cleaned := make([]gamelog.Record, 0, len(records))
	for _, record := range records {
		canonicalID := identity.Normalize(record.PlayerCanonicalID)
		if canonicalID == "" {
			return 0, fmt.Errorf("%w: game record is missing a player id", ErrInvalidInput)
		}
		if record.Date.IsZero() {
			return 0, fmt.Errorf("%w: game record for %s is missing a date", ErrInvalidInput, canonicalID)
		}
		record.PlayerCanonicalID = canonicalID
		cleaned = append(cleaned, record)
	}
	if len(cleaned) == 0 {
		return 0, nil
	}

	if err := s.history.UpsertGames(ctx, cleaned); err != nil {
		return 0, fmt.Errorf("upsert games: %w", err)
	}

	s.logger.InfoContext(ctx, "game lines ingested", "count", len(cleaned))
	return len(cleaned), nil
}

func dedupeLeagues(leagues []string) []string {
	seen := make(map[string]struct{}, len(leagues))
	out := make([]string, 0, len(leagues))
	for _, league := range leagues {
		league = strings.TrimSpace(league)
		if league == "" {
			continue
		}
		key := strings.ToLower(league)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, league)
	}
	return out
}

func normalizeRefreshWorkerCount(requested, taskCount int) int {
	if requested <= 0 {
		requested = 4
	}
	if requested > taskCount {
		requested = taskCount
	}
	if requested < 1 {
		requested = 1
	}
	return requested
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
