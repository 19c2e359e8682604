package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/trendybets/propcore/internal/domain/player"
	"github.com/trendybets/propcore/internal/platform/identity"
	qb "github.com/trendybets/propcore/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

var playerSelectColumns = []string{
	"id",
	"canonical_id",
	"provider_id",
	"display_name",
	"team",
	"position",
	"image_url",
	"created_at",
	"updated_at",
	"deleted_at",
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// ListByCanonicalIDs looks players up by canonical id. Rows written by
// older ingest paths may carry provider-cased ids, so the IN list is
// widened with each id's variants before querying.
func (r *PlayerRepository) ListByCanonicalIDs(ctx context.Context, canonicalIDs []string) ([]player.Detail, error) {
	if len(canonicalIDs) == 0 {
		return []player.Detail{}, nil
	}

	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(
			qb.In("canonical_id", stringSliceToAny(expandIDVariants(canonicalIDs))),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by canonical ids query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
			return r.listByCanonicalIDsLiteral(ctx, canonicalIDs)
		}
		return nil, fmt.Errorf("select players by canonical ids: %w", err)
	}

	return dedupePlayerRows(rows), nil
}

// listByCanonicalIDsLiteral retries without bind parameters for pooled
// connections that lost the prepared statement.
func (r *PlayerRepository) listByCanonicalIDsLiteral(ctx context.Context, canonicalIDs []string) ([]player.Detail, error) {
	variants := expandIDVariants(canonicalIDs)
	literals := make([]string, 0, len(variants))
	for _, variant := range variants {
		literals = append(literals, "'"+strings.ReplaceAll(variant, "'", "''")+"'")
	}

	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(
			qb.Expr("canonical_id IN ("+strings.Join(literals, ", ")+")"),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players fallback query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players fallback: %w", err)
	}

	return dedupePlayerRows(rows), nil
}

func (r *PlayerRepository) UpsertPlayers(ctx context.Context, items []player.Detail) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert players: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		canonicalID := identity.Normalize(item.CanonicalID)
		if canonicalID == "" {
			return fmt.Errorf("upsert players: empty canonical id for %q", item.DisplayName)
		}
		insertModel := playerInsertModel{
			CanonicalID: canonicalID,
			ProviderID:  strings.TrimSpace(item.ID),
			DisplayName: strings.TrimSpace(item.DisplayName),
			Team:        strings.TrimSpace(item.Team),
			Position:    strings.TrimSpace(item.Position),
			ImageURL:    strings.TrimSpace(item.ImageURL),
		}

		query, args, err := qb.InsertModel("players", insertModel, `ON CONFLICT (canonical_id) WHERE deleted_at IS NULL
DO UPDATE SET
    provider_id = EXCLUDED.provider_id,
    display_name = EXCLUDED.display_name,
    team = EXCLUDED.team,
    position = EXCLUDED.position,
    image_url = EXCLUDED.image_url,
    updated_at = NOW(),
    deleted_at = NULL`)
		if err != nil {
			return fmt.Errorf("build upsert player query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player canonical_id=%s: %w", canonicalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert players tx: %w", err)
	}
	return nil
}

// dedupePlayerRows collapses variant-cased duplicates onto one detail per
// canonical identity, keeping the first row in id order.
func dedupePlayerRows(rows []playerTableModel) []player.Detail {
	seen := make(map[string]struct{}, len(rows))
	out := make([]player.Detail, 0, len(rows))
	for _, row := range rows {
		key := identity.Normalize(row.CanonicalID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, player.Detail{
			ID:          row.ProviderID.String,
			CanonicalID: key,
			DisplayName: row.DisplayName,
			Team:        row.Team.String,
			Position:    row.Position.String,
			ImageURL:    row.ImageURL.String,
		})
	}
	return out
}

func expandIDVariants(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids)*4)
	for _, id := range ids {
		for _, variant := range identity.Variants(id) {
			if _, ok := seen[variant]; ok {
				continue
			}
			seen[variant] = struct{}{}
			out = append(out, variant)
		}
	}
	return out
}
