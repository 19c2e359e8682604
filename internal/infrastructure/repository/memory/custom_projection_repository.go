package memory

import (
	"context"
	"sync"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/props"
	"github.com/trendybets/propcore/internal/platform/identity"
)

type projectionKey struct {
	playerCanonicalID string
	statType          gamelog.StatType
}

type CustomProjectionRepository struct {
	mu    sync.RWMutex
	items map[projectionKey]props.CustomProjection
	order []projectionKey
}

func NewCustomProjectionRepository() *CustomProjectionRepository {
	return &CustomProjectionRepository{items: make(map[projectionKey]props.CustomProjection)}
}

func (r *CustomProjectionRepository) ListByPlayers(_ context.Context, canonicalIDs []string) ([]props.CustomProjection, error) {
	want := make(map[string]struct{}, len(canonicalIDs))
	for _, id := range canonicalIDs {
		want[identity.Normalize(id)] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]props.CustomProjection, 0)
	for _, key := range r.order {
		if _, ok := want[key.playerCanonicalID]; !ok {
			continue
		}
		out = append(out, r.items[key])
	}
	return out, nil
}

func (r *CustomProjectionRepository) Upsert(_ context.Context, item props.CustomProjection) error {
	canonicalID := identity.Normalize(item.PlayerCanonicalID)
	item.PlayerCanonicalID = canonicalID
	key := projectionKey{playerCanonicalID: canonicalID, statType: item.StatType}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[key]; !ok {
		r.order = append(r.order, key)
	}
	r.items[key] = item
	return nil
}

func (r *CustomProjectionRepository) Delete(_ context.Context, playerCanonicalID string, statType gamelog.StatType) error {
	key := projectionKey{playerCanonicalID: identity.Normalize(playerCanonicalID), statType: statType}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[key]; !ok {
		return nil
	}
	delete(r.items, key)
	for i, existing := range r.order {
		if existing == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
