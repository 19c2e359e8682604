// Package cache wraps the store repositories with read-through caching.
// Writes invalidate by key prefix so readers never serve rows older than
// the last upsert.
package cache

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/player"
	"github.com/trendybets/propcore/internal/domain/props"
	basecache "github.com/trendybets/propcore/internal/platform/cache"
)

type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
	ttl   time.Duration
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store, ttl time.Duration) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache, ttl: ttl}
}

func (r *PlayerRepository) ListByCanonicalIDs(ctx context.Context, canonicalIDs []string) ([]player.Detail, error) {
	key := "player:ids:" + joinSorted(canonicalIDs)
	v, err := r.cache.GetOrLoad(ctx, key, r.ttl, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByCanonicalIDs(ctx, canonicalIDs)
		if err != nil {
			return nil, err
		}
		return append([]player.Detail(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]player.Detail)
	return append([]player.Detail(nil), items...), nil
}

func (r *PlayerRepository) UpsertPlayers(ctx context.Context, items []player.Detail) error {
	if err := r.next.UpsertPlayers(ctx, items); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "player:")
	return nil
}

type GameLogRepository struct {
	next  gamelog.Repository
	cache *basecache.Store
	ttl   time.Duration
}

func NewGameLogRepository(next gamelog.Repository, cache *basecache.Store, ttl time.Duration) *GameLogRepository {
	return &GameLogRepository{next: next, cache: cache, ttl: ttl}
}

func (r *GameLogRepository) ListByCanonicalIDs(ctx context.Context, canonicalIDs []string, perPlayerLimit int) ([]gamelog.Record, error) {
	key := "gamelog:ids:" + joinSorted(canonicalIDs) + ":" + strconv.Itoa(perPlayerLimit)
	v, err := r.cache.GetOrLoad(ctx, key, r.ttl, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByCanonicalIDs(ctx, canonicalIDs, perPlayerLimit)
		if err != nil {
			return nil, err
		}
		return append([]gamelog.Record(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]gamelog.Record)
	return append([]gamelog.Record(nil), items...), nil
}

func (r *GameLogRepository) UpsertGames(ctx context.Context, items []gamelog.Record) error {
	if err := r.next.UpsertGames(ctx, items); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "gamelog:")
	return nil
}

type CustomProjectionRepository struct {
	next  props.CustomProjectionRepository
	cache *basecache.Store
	ttl   time.Duration
}

func NewCustomProjectionRepository(next props.CustomProjectionRepository, cache *basecache.Store, ttl time.Duration) *CustomProjectionRepository {
	return &CustomProjectionRepository{next: next, cache: cache, ttl: ttl}
}

func (r *CustomProjectionRepository) ListByPlayers(ctx context.Context, canonicalIDs []string) ([]props.CustomProjection, error) {
	key := "projection:ids:" + joinSorted(canonicalIDs)
	v, err := r.cache.GetOrLoad(ctx, key, r.ttl, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByPlayers(ctx, canonicalIDs)
		if err != nil {
			return nil, err
		}
		return append([]props.CustomProjection(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]props.CustomProjection)
	return append([]props.CustomProjection(nil), items...), nil
}

func (r *CustomProjectionRepository) Upsert(ctx context.Context, item props.CustomProjection) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "projection:")
	return nil
}

func (r *CustomProjectionRepository) Delete(ctx context.Context, playerCanonicalID string, statType gamelog.StatType) error {
	if err := r.next.Delete(ctx, playerCanonicalID, statType); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "projection:")
	return nil
}

func joinSorted(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
