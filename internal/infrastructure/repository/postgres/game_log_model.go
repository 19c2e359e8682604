package postgres

import (
	"database/sql"
	"time"
)

type gameLogTableModel struct {
	ID                int64          `db:"id"`
	PlayerCanonicalID string         `db:"player_canonical_id"`
	FixtureID         string         `db:"fixture_id"`
	GameDate          time.Time      `db:"game_date"`
	StatValues        string         `db:"stat_values"`
	IsAway            bool           `db:"is_away"`
	Opponent          sql.NullString `db:"opponent"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         sql.NullTime   `db:"updated_at"`
	DeletedAt         sql.NullTime   `db:"deleted_at"`
}

type gameLogInsertModel struct {
	PlayerCanonicalID string    `db:"player_canonical_id"`
	FixtureID         string    `db:"fixture_id"`
	GameDate          time.Time `db:"game_date"`
	StatValues        string    `db:"stat_values"`
	IsAway            bool      `db:"is_away"`
	Opponent          string    `db:"opponent"`
}
