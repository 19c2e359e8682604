package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/props"
	"github.com/trendybets/propcore/internal/platform/identity"
	qb "github.com/trendybets/propcore/internal/platform/querybuilder"
)

type CustomProjectionRepository struct {
	db *sqlx.DB
}

var customProjectionSelectColumns = []string{
	"id",
	"player_canonical_id",
	"stat_type",
	"projected_value",
	"confidence_score",
	"note",
	"updated_by",
	"created_at",
	"updated_at",
	"deleted_at",
}

func NewCustomProjectionRepository(db *sqlx.DB) *CustomProjectionRepository {
	return &CustomProjectionRepository{db: db}
}

func (r *CustomProjectionRepository) ListByPlayers(ctx context.Context, canonicalIDs []string) ([]props.CustomProjection, error) {
	if len(canonicalIDs) == 0 {
		return []props.CustomProjection{}, nil
	}

	query, args, err := qb.Select(customProjectionSelectColumns...).From("custom_projections").
		Where(
			qb.In("player_canonical_id", stringSliceToAny(expandIDVariants(canonicalIDs))),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select custom projections query: %w", err)
	}

	var rows []customProjectionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select custom projections: %w", err)
	}

	out := make([]props.CustomProjection, 0, len(rows))
	for _, row := range rows {
		out = append(out, props.CustomProjection{
			PlayerCanonicalID: identity.Normalize(row.PlayerCanonicalID),
			StatType:          gamelog.StatType(row.StatType),
			ProjectedValue:    row.ProjectedValue,
			ConfidenceScore:   row.ConfidenceScore,
			Note:              row.Note.String,
			UpdatedBy:         row.UpdatedBy.String,
			UpdatedAt:         updatedOrCreated(row.UpdatedAt.Time, row.CreatedAt),
		})
	}

	return out, nil
}

func (r *CustomProjectionRepository) Upsert(ctx context.Context, item props.CustomProjection) error {
	canonicalID := identity.Normalize(item.PlayerCanonicalID)
	if canonicalID == "" {
		return fmt.Errorf("upsert custom projection: empty canonical id")
	}

	insertModel := customProjectionInsertModel{
		PlayerCanonicalID: canonicalID,
		StatType:          string(item.StatType),
		ProjectedValue:    item.ProjectedValue,
		ConfidenceScore:   item.ConfidenceScore,
		Note:              strings.TrimSpace(item.Note),
		UpdatedBy:         strings.TrimSpace(item.UpdatedBy),
	}

	query, args, err := qb.InsertModel("custom_projections", insertModel, `ON CONFLICT (player_canonical_id, stat_type) WHERE deleted_at IS NULL
DO UPDATE SET
    projected_value = EXCLUDED.projected_value,
    confidence_score = EXCLUDED.confidence_score,
    note = EXCLUDED.note,
    updated_by = EXCLUDED.updated_by,
    updated_at = NOW(),
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build upsert custom projection query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert custom projection canonical_id=%s stat_type=%s: %w", canonicalID, item.StatType, err)
	}
	return nil
}

func (r *CustomProjectionRepository) Delete(ctx context.Context, playerCanonicalID string, statType gamelog.StatType) error {
	canonicalID := identity.Normalize(playerCanonicalID)
	if canonicalID == "" {
		return fmt.Errorf("delete custom projection: empty canonical id")
	}

	query, args, err := qb.Update("custom_projections").
		Set("deleted_at", time.Now().UTC()).
		Where(
			qb.Eq("player_canonical_id", canonicalID),
			qb.Eq("stat_type", string(statType)),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete custom projection query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete custom projection canonical_id=%s stat_type=%s: %w", canonicalID, statType, err)
	}
	return nil
}

func updatedOrCreated(updated, created time.Time) time.Time {
	if updated.IsZero() {
		return created
	}
	return updated
}
