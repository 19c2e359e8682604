package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/props"
	"github.com/trendybets/propcore/internal/usecase"
)

type saveProjectionRequest struct {
	PlayerID        string  `json:"player_id" validate:"required"`
	StatType        string  `json:"stat_type" validate:"required"`
	ProjectedValue  float64 `json:"projected_value" validate:"gte=0"`
	ConfidenceScore int     `json:"confidence_score" validate:"gte=0,lte=100"`
	Note            string  `json:"note" validate:"max=500"`
	UpdatedBy       string  `json:"updated_by" validate:"max=120"`
}

type customProjectionDTO struct {
	PlayerID        string  `json:"player_id"`
	StatType        string  `json:"stat_type"`
	ProjectedValue  float64 `json:"projected_value"`
	ConfidenceScore int     `json:"confidence_score"`
	Note            string  `json:"note,omitempty"`
	UpdatedBy       string  `json:"updated_by,omitempty"`
	UpdatedAt       string  `json:"updated_at"`
}

func (h *Handler) SaveCustomProjection(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveCustomProjection")
	defer span.End()

	var req saveProjectionRequest
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

	saved, err := h.projectionService.Save(ctx, usecase.SaveProjectionInput{
		PlayerID:        req.PlayerID,
		StatType:        gamelog.StatType(req.StatType),
		ProjectedValue:  req.ProjectedValue,
		ConfidenceScore: req.ConfidenceScore,
		Note:            req.Note,
		UpdatedBy:       req.UpdatedBy,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "save custom projection failed", "player_id", req.PlayerID, "stat_type", req.StatType, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, customProjectionToDTO(saved))
}

func (h *Handler) ListCustomProjections(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCustomProjections")
	defer span.End()

	var playerIDs []string
	if raw := strings.TrimSpace(r.URL.Query().Get("player_ids")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				playerIDs = append(playerIDs, part)
			}
		}
	}

	items, err := h.projectionService.List(ctx, playerIDs)
	if err != nil {
		h.logger.WarnContext(ctx, "list custom projections failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]customProjectionDTO, 0, len(items))
	for _, item := range items {
		out = append(out, customProjectionToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) DeleteCustomProjection(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteCustomProjection")
	defer span.End()

	playerID := r.PathValue("playerID")
	statType := gamelog.StatType(strings.TrimSpace(r.URL.Query().Get("stat_type")))

	if err := h.projectionService.Delete(ctx, playerID, statType); err != nil {
		h.logger.WarnContext(ctx, "delete custom projection failed", "player_id", playerID, "stat_type", statType, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{"deleted": true})
}

func customProjectionToDTO(item props.CustomProjection) customProjectionDTO {
	return customProjectionDTO{
		PlayerID:        item.PlayerCanonicalID,
		StatType:        string(item.StatType),
		ProjectedValue:  item.ProjectedValue,
		ConfidenceScore: item.ConfidenceScore,
		Note:            item.Note,
		UpdatedBy:       item.UpdatedBy,
		UpdatedAt:       item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
