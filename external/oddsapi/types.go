package oddsapi

import (
	"strings"
	"time"
)

// Fixture is one scheduled or live game as the provider reports it.
type Fixture struct {
	ID       string
	League   string
	StartsAt time.Time
	HomeTeam TeamRef
	AwayTeam TeamRef
	Status   string
}

type TeamRef struct {
	ID          string
	DisplayName string
}

// OddsRecord is one flattened prop price for one fixture.
type OddsRecord struct {
	FixtureID string
	MarketID  string
	PlayerID  string
	Selection string
	Line      float64
	Price     float64
	Bookmaker string
}

type fixturesEnvelope struct {
	Data []fixtureItem `json:"data"`
}

type fixtureItem struct {
	ID        string          `json:"id"`
	League    leagueRef       `json:"league"`
	StartDate string          `json:"start_date"`
	HomeTeam  participantItem `json:"home_team_display,omitempty"`
	AwayTeam  participantItem `json:"away_team_display,omitempty"`
	Status    string          `json:"status"`
}

type leagueRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type participantItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type oddsEnvelope struct {
	Data []oddsFixtureItem `json:"data"`
}

type oddsFixtureItem struct {
	ID   string     `json:"id"`
	Odds []oddsItem `json:"odds"`
}

type oddsItem struct {
	MarketID   string  `json:"market_id"`
	PlayerID   string  `json:"player_id"`
	Selection  string  `json:"selection"`
	Points     float64 `json:"points"`
	Price      float64 `json:"price"`
	Sportsbook string  `json:"sportsbook"`
}

func mapFixture(item fixtureItem) Fixture {
	return Fixture{
		ID:       item.ID,
		League:   firstNonEmpty(item.League.ID, item.League.Name),
		StartsAt: parseProviderTime(item.StartDate),
		HomeTeam: TeamRef{ID: item.HomeTeam.ID, DisplayName: item.HomeTeam.Name},
		AwayTeam: TeamRef{ID: item.AwayTeam.ID, DisplayName: item.AwayTeam.Name},
		Status:   strings.ToLower(strings.TrimSpace(item.Status)),
	}
}

func mapOddsRecord(fixtureID string, item oddsItem) (OddsRecord, bool) {
	selection := strings.TrimSpace(item.Selection)
	playerID := strings.TrimSpace(item.PlayerID)
	if selection == "" && playerID == "" {
		return OddsRecord{}, false
	}

	return OddsRecord{
		FixtureID: fixtureID,
		MarketID:  strings.TrimSpace(item.MarketID),
		PlayerID:  playerID,
		Selection: selection,
		Line:      item.Points,
		Price:     item.Price,
		Bookmaker: strings.TrimSpace(item.Sportsbook),
	}, true
}

func parseProviderTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
