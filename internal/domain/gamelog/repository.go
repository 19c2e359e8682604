package gamelog

import "context"

type Repository interface {
	// ListByCanonicalIDs returns completed games for the given players,
	// newest first, at most perPlayerLimit games per player.
	ListByCanonicalIDs(ctx context.Context, canonicalIDs []string, perPlayerLimit int) ([]Record, error)
	UpsertGames(ctx context.Context, items []Record) error
}
