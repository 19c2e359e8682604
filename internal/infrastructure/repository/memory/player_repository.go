package memory

import (
	"context"
	"sync"

	"github.com/trendybets/propcore/internal/domain/player"
	"github.com/trendybets/propcore/internal/platform/identity"
)

type PlayerRepository struct {
	mu    sync.RWMutex
	items map[string]player.Detail
	order []string
}

func NewPlayerRepository(players []player.Detail) *PlayerRepository {
	r := &PlayerRepository{items: make(map[string]player.Detail, len(players))}
	for _, item := range players {
		r.store(item)
	}
	return r
}

func (r *PlayerRepository) ListByCanonicalIDs(_ context.Context, canonicalIDs []string) ([]player.Detail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Detail, 0, len(canonicalIDs))
	for _, id := range canonicalIDs {
		if item, ok := r.items[identity.Normalize(id)]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *PlayerRepository) UpsertPlayers(_ context.Context, items []player.Detail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		r.store(item)
	}
	return nil
}

func (r *PlayerRepository) store(item player.Detail) {
	key := identity.Normalize(item.CanonicalID)
	if key == "" {
		return
	}
	item.CanonicalID = key
	if _, ok := r.items[key]; !ok {
		r.order = append(r.order, key)
	}
	r.items[key] = item
}
