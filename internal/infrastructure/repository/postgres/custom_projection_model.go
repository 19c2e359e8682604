package postgres

import (
	"database/sql"
	"time"
)

type customProjectionTableModel struct {
	ID                int64          `db:"id"`
	PlayerCanonicalID string         `db:"player_canonical_id"`
	StatType          string         `db:"stat_type"`
	ProjectedValue    float64        `db:"projected_value"`
	ConfidenceScore   int            `db:"confidence_score"`
	Note              sql.NullString `db:"note"`
	UpdatedBy         sql.NullString `db:"updated_by"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         sql.NullTime   `db:"updated_at"`
	DeletedAt         sql.NullTime   `db:"deleted_at"`
}

type customProjectionInsertModel struct {
	PlayerCanonicalID string  `db:"player_canonical_id"`
	StatType          string  `db:"stat_type"`
	ProjectedValue    float64 `db:"projected_value"`
	ConfidenceScore   int     `db:"confidence_score"`
	Note              string  `db:"note"`
	UpdatedBy         string  `db:"updated_by"`
}
