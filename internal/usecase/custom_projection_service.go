package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/props"
	"github.com/trendybets/propcore/internal/platform/identity"
)

// CustomProjectionService maintains hand-curated projection overrides.
// Overrides are keyed by canonical player id and stat type, so a second
// save for the same pair replaces the first.
type CustomProjectionService struct {
	repo   props.CustomProjectionRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewCustomProjectionService(repo props.CustomProjectionRepository, logger *slog.Logger) *CustomProjectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomProjectionService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SaveProjectionInput is a write request for one override.
type SaveProjectionInput struct {
	PlayerID        string
	StatType        gamelog.StatType
	ProjectedValue  float64
	ConfidenceScore int
	Note            string
	UpdatedBy       string
}

func (s *CustomProjectionService) Save(ctx context.Context, input SaveProjectionInput) (props.CustomProjection, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CustomProjectionService.Save")
	defer span.End()

	canonicalID := identity.Normalize(input.PlayerID)
	if canonicalID == "" {
		return props.CustomProjection{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	if !validStatType(input.StatType) {
		return props.CustomProjection{}, fmt.Errorf("%w: unknown stat type %q", ErrInvalidInput, input.StatType)
	}
	if input.ProjectedValue < 0 {
		return props.CustomProjection{}, fmt.Errorf("%w: projected value must not be negative", ErrInvalidInput)
	}

	projection := props.CustomProjection{
		PlayerCanonicalID: canonicalID,
		StatType:          input.StatType,
		ProjectedValue:    input.ProjectedValue,
		ConfidenceScore:   input.ConfidenceScore,
		Note:              strings.TrimSpace(input.Note),
		UpdatedBy:         strings.TrimSpace(input.UpdatedBy),
		UpdatedAt:         s.now(),
	}

	if err := s.repo.Upsert(ctx, projection); err != nil {
		return props.CustomProjection{}, fmt.Errorf("save custom projection player=%s stat=%s: %w", canonicalID, input.StatType, err)
	}

	s.logger.InfoContext(ctx, "custom projection saved",
		"player", canonicalID,
		"stat_type", string(input.StatType),
		"projected_value", input.ProjectedValue,
	)
	return projection, nil
}

func (s *CustomProjectionService) List(ctx context.Context, playerIDs []string) ([]props.CustomProjection, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CustomProjectionService.List")
	defer span.End()

	canonical := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		if normalized := identity.Normalize(id); normalized != "" {
			canonical = append(canonical, normalized)
		}
	}

	items, err := s.repo.ListByPlayers(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("list custom projections: %w", err)
	}
	return items, nil
}

func (s *CustomProjectionService) Delete(ctx context.Context, playerID string, statType gamelog.StatType) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.CustomProjectionService.Delete")
	defer span.End()

	canonicalID := identity.Normalize(playerID)
	if canonicalID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	if !validStatType(statType) {
		return fmt.Errorf("%w: unknown stat type %q", ErrInvalidInput, statType)
	}

	if err := s.repo.Delete(ctx, canonicalID, statType); err != nil {
		return fmt.Errorf("delete custom projection player=%s stat=%s: %w", canonicalID, statType, err)
	}
	return nil
}

func validStatType(statType gamelog.StatType) bool {
	switch statType {
	case gamelog.StatPoints, gamelog.StatRebounds, gamelog.StatAssists:
		return true
	}
	return false
}
