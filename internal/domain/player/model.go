package player

// Identity is the canonical view of a player after id normalization.
// Multiple raw ids (case variants, diacritics) may map to one CanonicalID.
// Immutable once built.
type Identity struct {
	ID          string
	CanonicalID string
	DisplayName string
	Team        string
	Position    string
}

// Detail is the player record as the relational store returns it.
type Detail struct {
	ID          string
	CanonicalID string
	DisplayName string
	Team        string
	Position    string
	ImageURL    string
}
