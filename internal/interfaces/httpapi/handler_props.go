package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/usecase"
)

func (h *Handler) ListPlayerProps(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayerProps")
	defer span.End()

	league := strings.TrimSpace(r.PathValue("leagueID"))
	query := usecase.PropsQuery{
		League: league,
		Date:   strings.TrimSpace(r.URL.Query().Get("date")),
	}

	statTypes, err := parseStatTypes(r.URL.Query().Get("stat_types"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	query.StatTypes = statTypes

	if raw := strings.TrimSpace(r.URL.Query().Get("as_of")); raw != "" {
		asOf, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: as_of must be RFC3339: %v", usecase.ErrInvalidInput, err))
			return
		}
		query.AsOf = asOf.UTC()
	}

	result, err := h.propsService.GetPlayerProps(ctx, query)
	if err != nil {
		h.logger.WarnContext(ctx, "list player props failed", "league", league, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, propsResponseDTO{
		Items: propsToDTOs(ctx, result.Items),
		Meta:  propsMetaToDTO(ctx, result.Meta),
	})
}

func parseStatTypes(raw string) ([]gamelog.StatType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	out := make([]gamelog.StatType, 0, 3)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch strings.ToLower(part) {
		case "points":
			out = append(out, gamelog.StatPoints)
		case "rebounds":
			out = append(out, gamelog.StatRebounds)
		case "assists":
			out = append(out, gamelog.StatAssists)
		default:
			return nil, fmt.Errorf("%w: unknown stat type %q", usecase.ErrInvalidInput, part)
		}
	}
	return out, nil
}

type propsResponseDTO struct {
	Items []playerPropDTO `json:"items"`
	Meta  propsMetaDTO    `json:"meta"`
}

type propsMetaDTO struct {
	FixtureCount     int    `json:"fixture_count"`
	PropCount        int    `json:"prop_count"`
	DegradedFixtures int    `json:"degraded_fixtures"`
	DegradedBatches  int    `json:"degraded_batches"`
	UnknownMarkets   int    `json:"unknown_markets"`
	GeneratedAt      string `json:"generated_at"`
}

type playerPropDTO struct {
	Player         playerRefDTO      `json:"player"`
	StatType       string            `json:"stat_type"`
	MarketID       string            `json:"market_id"`
	Line           float64           `json:"line"`
	Price          float64           `json:"price"`
	Bookmaker      string            `json:"bookmaker,omitempty"`
	Games          []gameEntryDTO    `json:"games"`
	Averages       windowValuesDTO   `json:"averages"`
	HitRates       windowValuesDTO   `json:"hit_rates"`
	SampleSizes    windowSamplesDTO  `json:"sample_sizes"`
	CurrentStreak  int               `json:"current_streak"`
	ProjectedValue float64           `json:"projected_value"`
	EdgePercent    string            `json:"edge_percent"`
	IsCustom       bool              `json:"is_custom"`
	Variance       string            `json:"variance"`
	RecommendedBet recommendedBetDTO `json:"recommended_bet"`
	NextGame       nextGameDTO       `json:"next_game"`
	TrendStrength  float64           `json:"trend_strength"`
}

type playerRefDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	Position string `json:"position,omitempty"`
}

type gameEntryDTO struct {
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
	Opponent string  `json:"opponent,omitempty"`
	IsAway   bool    `json:"is_away"`
}

type windowValuesDTO struct {
	Last5  float64 `json:"last5"`
	Last10 float64 `json:"last10"`
	Season float64 `json:"season"`
}

type windowSamplesDTO struct {
	Last5  int `json:"last5"`
	Last10 int `json:"last10"`
	Season int `json:"season"`
}

type recommendedBetDTO struct {
	Type       string `json:"type"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

type nextGameDTO struct {
	FixtureID string `json:"fixture_id"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	StartsAt  string `json:"starts_at"`
	IsAway    bool   `json:"is_away"`
	Opponent  string `json:"opponent"`
}

func propsToDTOs(ctx context.Context, items []usecase.PlayerProp) []playerPropDTO {
	ctx, span := startSpan(ctx, "httpapi.propsToDTOs")
	defer span.End()

	out := make([]playerPropDTO, 0, len(items))
	for _, item := range items {
		out = append(out, playerPropToDTO(ctx, item))
	}
	return out
}

func playerPropToDTO(_ context.Context, item usecase.PlayerProp) playerPropDTO {
	games := make([]gameEntryDTO, 0, len(item.Games))
	for _, game := range item.Games {
		games = append(games, gameEntryDTO{
			Date:     game.Date.UTC().Format("2006-01-02"),
			Value:    game.Value(item.StatType),
			Opponent: game.Opponent,
			IsAway:   game.IsAway,
		})
	}

	return playerPropDTO{
		Player: playerRefDTO{
			ID:       item.Player.CanonicalID,
			Name:     item.Player.DisplayName,
			Team:     item.Player.Team,
			Position: item.Player.Position,
		},
		StatType:       string(item.StatType),
		MarketID:       item.MarketID,
		Line:           item.Line,
		Price:          item.Price,
		Bookmaker:      item.Bookmaker,
		Games:          games,
		Averages:       windowValuesDTO{Last5: item.Averages.Last5, Last10: item.Averages.Last10, Season: item.Averages.Season},
		HitRates:       windowValuesDTO{Last5: item.HitRates.Last5, Last10: item.HitRates.Last10, Season: item.HitRates.Season},
		SampleSizes:    windowSamplesDTO{Last5: item.SampleSizes[0], Last10: item.SampleSizes[1], Season: item.SampleSizes[2]},
		CurrentStreak:  item.CurrentStreak,
		ProjectedValue: item.Projection.ProjectedValue,
		EdgePercent:    item.Projection.EdgePercent,
		IsCustom:       item.IsCustom,
		Variance:       item.Variance,
		RecommendedBet: recommendedBetDTO{
			Type:       item.Projection.Recommendation,
			Confidence: item.Projection.ConfidenceScore,
			Reason:     item.Reason,
		},
		NextGame: nextGameDTO{
			FixtureID: item.NextGame.FixtureID,
			HomeTeam:  item.NextGame.HomeTeam,
			AwayTeam:  item.NextGame.AwayTeam,
			StartsAt:  formatStartsAt(item.NextGame.StartsAt),
			IsAway:    item.NextGame.IsAway,
			Opponent:  item.NextGame.Opponent,
		},
		TrendStrength: item.TrendStrength,
	}
}

func propsMetaToDTO(_ context.Context, meta usecase.PropsMeta) propsMetaDTO {
	return propsMetaDTO{
		FixtureCount:     meta.FixtureCount,
		PropCount:        meta.PropCount,
		DegradedFixtures: meta.DegradedFixtures,
		DegradedBatches:  meta.DegradedBatches,
		UnknownMarkets:   meta.UnknownMarkets,
		GeneratedAt:      meta.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

func formatStartsAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
