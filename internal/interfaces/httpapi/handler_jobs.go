package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/usecase"
)

type triggerRefreshRequest struct {
	TriggeredBy string `json:"triggered_by" validate:"max=120"`
}

// TriggerRefresh enqueues a refresh job for one league. The heavy lifting
// happens later in RunRefreshJob when the queue calls back.
func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TriggerRefresh")
	defer span.End()

	league := r.PathValue("leagueID")

	var req triggerRefreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		decoder := sonic.ConfigDefault.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
			return
		}
	}

	if err := h.refreshService.Trigger(ctx, league, req.TriggeredBy); err != nil {
		h.logger.WarnContext(ctx, "trigger refresh failed", "league", league, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, map[string]any{"queued": true, "league": league})
}

type runRefreshRequest struct {
	Leagues    []string `json:"leagues" validate:"required,min=1,dive,min=1"`
	Date       string   `json:"date" validate:"max=10"`
	MaxWorkers int      `json:"max_workers" validate:"gte=0,lte=32"`
}

// RunRefreshJob is the queue-facing worker endpoint. It is guarded by the
// internal job token middleware, never exposed on the public surface.
func (h *Handler) RunRefreshJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefreshJob")
	defer span.End()

	var req runRefreshRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.refreshService.Run(ctx, usecase.RefreshInput{
		Leagues:    req.Leagues,
		Date:       req.Date,
		MaxWorkers: req.MaxWorkers,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "refresh job failed", "leagues", req.Leagues, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

type ingestGameRequest struct {
	PlayerID  string  `json:"player_id" validate:"required"`
	FixtureID string  `json:"fixture_id" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	Points    float64 `json:"points" validate:"gte=0"`
	Rebounds  float64 `json:"rebounds" validate:"gte=0"`
	Assists   float64 `json:"assists" validate:"gte=0"`
	IsAway    bool    `json:"is_away"`
	Opponent  string  `json:"opponent" validate:"max=120"`
}

type ingestGamesRequest struct {
	Games []ingestGameRequest `json:"games" validate:"required,min=1,dive"`
}

// IngestGames accepts completed box scores pushed by the stats feed and
// upserts them into the game log store.
func (h *Handler) IngestGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestGames")
	defer span.End()

	var req ingestGamesRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	records := make([]gamelog.Record, 0, len(req.Games))
	for _, game := range req.Games {
		date, err := time.Parse("2006-01-02", game.Date)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: game date must be YYYY-MM-DD: %v", usecase.ErrInvalidInput, err))
			return
		}
		records = append(records, gamelog.Record{
			PlayerCanonicalID: game.PlayerID,
			FixtureID:         game.FixtureID,
			Date:              date.UTC(),
			StatValues: map[gamelog.StatType]float64{
				gamelog.StatPoints:   game.Points,
				gamelog.StatRebounds: game.Rebounds,
				gamelog.StatAssists:  game.Assists,
			},
			IsAway:   game.IsAway,
			Opponent: game.Opponent,
		})
	}

	count, err := h.refreshService.IngestGames(ctx, records)
	if err != nil {
		h.logger.WarnContext(ctx, "ingest games failed", "count", len(records), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{"ingested": count})
}
