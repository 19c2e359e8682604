package props

import (
	"context"

	"github.com/trendybets/propcore/internal/domain/gamelog"
)

type CustomProjectionRepository interface {
	ListByPlayers(ctx context.Context, canonicalIDs []string) ([]CustomProjection, error)
	Upsert(ctx context.Context, item CustomProjection) error
	Delete(ctx context.Context, canonicalID string, statType gamelog.StatType) error
}
