package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/platform/identity"
	qb "github.com/trendybets/propcore/internal/platform/querybuilder"
)

type GameLogRepository struct {
	db *sqlx.DB
}

var gameLogSelectColumns = []string{
	"id",
	"player_canonical_id",
	"fixture_id",
	"game_date",
	"stat_values",
	"is_away",
	"opponent",
	"created_at",
	"updated_at",
	"deleted_at",
}

func NewGameLogRepository(db *sqlx.DB) *GameLogRepository {
	return &GameLogRepository{db: db}
}

// ListByCanonicalIDs returns up to perPlayerLimit most recent games per
// player. The query pulls date-ordered rows for the whole id set and the
// per-player cap is applied while mapping, which keeps the SQL inside what
// the builder can express.
func (r *GameLogRepository) ListByCanonicalIDs(ctx context.Context, canonicalIDs []string, perPlayerLimit int) ([]gamelog.Record, error) {
	if len(canonicalIDs) == 0 {
		return []gamelog.Record{}, nil
	}
	if perPlayerLimit <= 0 {
		perPlayerLimit = gamelog.SeasonWindowSize
	}

	builder := qb.Select(gameLogSelectColumns...).From("player_games").
		Where(
			qb.In("player_canonical_id", stringSliceToAny(expandIDVariants(canonicalIDs))),
			qb.IsNull("deleted_at"),
		).
		OrderBy("game_date DESC", "id DESC")
	if limit := len(canonicalIDs) * perPlayerLimit * 4; limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select player games query: %w", err)
	}

	var rows []gameLogTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select player games: %w", err)
	}

	perPlayer := make(map[string]int, len(canonicalIDs))
	out := make([]gamelog.Record, 0, len(rows))
	for _, row := range rows {
		key := identity.Normalize(row.PlayerCanonicalID)
		if perPlayer[key] >= perPlayerLimit {
			continue
		}
		perPlayer[key]++
		out = append(out, gamelog.Record{
			PlayerCanonicalID: key,
			FixtureID:         row.FixtureID,
			Date:              row.GameDate,
			StatValues:        decodeStatValues(row.StatValues),
			IsAway:            row.IsAway,
			Opponent:          row.Opponent.String,
		})
	}

	return out, nil
}

func (r *GameLogRepository) UpsertGames(ctx context.Context, items []gamelog.Record) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert player games: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		canonicalID := identity.Normalize(item.PlayerCanonicalID)
		if canonicalID == "" {
			return fmt.Errorf("upsert player games: empty canonical id fixture_id=%s", item.FixtureID)
		}
		insertModel := gameLogInsertModel{
			PlayerCanonicalID: canonicalID,
			FixtureID:         strings.TrimSpace(item.FixtureID),
			GameDate:          item.Date.UTC(),
			StatValues:        encodeStatValues(item.StatValues),
			IsAway:            item.IsAway,
			Opponent:          strings.TrimSpace(item.Opponent),
		}

		query, args, err := qb.InsertModel("player_games", insertModel, `ON CONFLICT (player_canonical_id, fixture_id) WHERE deleted_at IS NULL
DO UPDATE SET
    game_date = EXCLUDED.game_date,
    stat_values = EXCLUDED.stat_values,
    is_away = EXCLUDED.is_away,
    opponent = EXCLUDED.opponent,
    updated_at = NOW(),
    deleted_at = NULL`)
		if err != nil {
			return fmt.Errorf("build upsert player game query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player game canonical_id=%s fixture_id=%s: %w", canonicalID, item.FixtureID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert player games tx: %w", err)
	}
	return nil
}
