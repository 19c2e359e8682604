package postgres

import (
	"database/sql"
	"time"
)

type playerTableModel struct {
	ID          int64          `db:"id"`
	CanonicalID string         `db:"canonical_id"`
	ProviderID  sql.NullString `db:"provider_id"`
	DisplayName string         `db:"display_name"`
	Team        sql.NullString `db:"team"`
	Position    sql.NullString `db:"position"`
	ImageURL    sql.NullString `db:"image_url"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
	DeletedAt   sql.NullTime   `db:"deleted_at"`
}

type playerInsertModel struct {
	CanonicalID string `db:"canonical_id"`
	ProviderID  string `db:"provider_id"`
	DisplayName string `db:"display_name"`
	Team        string `db:"team"`
	Position    string `db:"position"`
	ImageURL    string `db:"image_url"`
}
