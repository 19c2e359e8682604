package player

import "context"

type Repository interface {
	// ListByCanonicalIDs returns every player whose canonical id matches one
	// of the given ids. Missing ids are simply absent from the result.
	ListByCanonicalIDs(ctx context.Context, canonicalIDs []string) ([]Detail, error)
	UpsertPlayers(ctx context.Context, items []Detail) error
}
