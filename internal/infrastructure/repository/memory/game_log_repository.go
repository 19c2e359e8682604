package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/platform/identity"
)

type GameLogRepository struct {
	mu       sync.RWMutex
	byPlayer map[string][]gamelog.Record
}

func NewGameLogRepository(records []gamelog.Record) *GameLogRepository {
	r := &GameLogRepository{byPlayer: make(map[string][]gamelog.Record)}
	for _, record := range records {
		r.store(record)
	}
	return r
}

func (r *GameLogRepository) ListByCanonicalIDs(_ context.Context, canonicalIDs []string, perPlayerLimit int) ([]gamelog.Record, error) {
	if perPlayerLimit <= 0 {
		perPlayerLimit = gamelog.SeasonWindowSize
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]gamelog.Record, 0)
	for _, id := range canonicalIDs {
		games := r.byPlayer[identity.Normalize(id)]
		sorted := make([]gamelog.Record, len(games))
		copy(sorted, games)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Date.After(sorted[j].Date)
		})
		if len(sorted) > perPlayerLimit {
			sorted = sorted[:perPlayerLimit]
		}
		out = append(out, sorted...)
	}
	return out, nil
}

func (r *GameLogRepository) UpsertGames(_ context.Context, items []gamelog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		r.store(item)
	}
	return nil
}

// store replaces an existing (player, fixture) row in place so repeated
// ingests stay idempotent.
func (r *GameLogRepository) store(record gamelog.Record) {
	key := identity.Normalize(record.PlayerCanonicalID)
	if key == "" {
		return
	}
	record.PlayerCanonicalID = key

	games := r.byPlayer[key]
	for i, existing := range games {
		if existing.FixtureID == record.FixtureID {
			games[i] = record
			return
		}
	}
	r.byPlayer[key] = append(games, record)
}
