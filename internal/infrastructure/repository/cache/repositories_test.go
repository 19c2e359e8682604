package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/player"
	"github.com/trendybets/propcore/internal/domain/props"
	basecache "github.com/trendybets/propcore/internal/platform/cache"
)

type mockPlayerRepo struct {
	mock.Mock
}

func (m *mockPlayerRepo) ListByCanonicalIDs(ctx context.Context, canonicalIDs []string) ([]player.Detail, error) {
	args := m.Called(ctx, canonicalIDs)
	items, _ := args.Get(0).([]player.Detail)
	return items, args.Error(1)
}

func (m *mockPlayerRepo) UpsertPlayers(ctx context.Context, items []player.Detail) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

type mockGameLogRepo struct {
	mock.Mock
}

func (m *mockGameLogRepo) ListByCanonicalIDs(ctx context.Context, canonicalIDs []string, perPlayerLimit int) ([]gamelog.Record, error) {
	args := m.Called(ctx, canonicalIDs, perPlayerLimit)
	items, _ := args.Get(0).([]gamelog.Record)
	return items, args.Error(1)
}

func (m *mockGameLogRepo) UpsertGames(ctx context.Context, items []gamelog.Record) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

type mockProjectionRepo struct {
	mock.Mock
}

func (m *mockProjectionRepo) ListByPlayers(ctx context.Context, canonicalIDs []string) ([]props.CustomProjection, error) {
	args := m.Called(ctx, canonicalIDs)
	items, _ := args.Get(0).([]props.CustomProjection)
	return items, args.Error(1)
}

func (m *mockProjectionRepo) Upsert(ctx context.Context, item props.CustomProjection) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockProjectionRepo) Delete(ctx context.Context, canonicalID string, statType gamelog.StatType) error {
	args := m.Called(ctx, canonicalID, statType)
	return args.Error(0)
}

func TestPlayerRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	next := &mockPlayerRepo{}
	next.On("ListByCanonicalIDs", mock.Anything, []string{"lebron james"}).
		Return([]player.Detail{{CanonicalID: "lebron james", DisplayName: "LeBron James"}}, nil).
		Once()

	repo := NewPlayerRepository(next, basecache.NewStore(time.Minute), time.Minute)

	for i := 0; i < 2; i++ {
		items, err := repo.ListByCanonicalIDs(ctx, []string{"lebron james"})
		if err != nil {
			t.Fatalf("ListByCanonicalIDs: %v", err)
		}
		if len(items) != 1 || items[0].CanonicalID != "lebron james" {
			t.Fatalf("items = %+v, want one lebron james", items)
		}
	}

	next.AssertExpectations(t)
}

func TestPlayerRepository_UpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	next := &mockPlayerRepo{}
	next.On("ListByCanonicalIDs", mock.Anything, []string{"lebron james"}).
		Return([]player.Detail{{CanonicalID: "lebron james"}}, nil).
		Twice()
	next.On("UpsertPlayers", mock.Anything, mock.Anything).Return(nil).Once()

	repo := NewPlayerRepository(next, basecache.NewStore(time.Minute), time.Minute)

	if _, err := repo.ListByCanonicalIDs(ctx, []string{"lebron james"}); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if err := repo.UpsertPlayers(ctx, []player.Detail{{CanonicalID: "lebron james", Team: "LAL"}}); err != nil {
		t.Fatalf("UpsertPlayers: %v", err)
	}
	if _, err := repo.ListByCanonicalIDs(ctx, []string{"lebron james"}); err != nil {
		t.Fatalf("second read: %v", err)
	}

	next.AssertExpectations(t)
}

func TestGameLogRepository_KeyIncludesLimit(t *testing.T) {
	ctx := context.Background()
	next := &mockGameLogRepo{}
	next.On("ListByCanonicalIDs", mock.Anything, []string{"lebron james"}, 5).
		Return([]gamelog.Record{{PlayerCanonicalID: "lebron james", FixtureID: "fx-1"}}, nil).
		Once()
	next.On("ListByCanonicalIDs", mock.Anything, []string{"lebron james"}, 20).
		Return([]gamelog.Record{{PlayerCanonicalID: "lebron james", FixtureID: "fx-1"}}, nil).
		Once()

	repo := NewGameLogRepository(next, basecache.NewStore(time.Minute), time.Minute)

	if _, err := repo.ListByCanonicalIDs(ctx, []string{"lebron james"}, 5); err != nil {
		t.Fatalf("limit 5: %v", err)
	}
	if _, err := repo.ListByCanonicalIDs(ctx, []string{"lebron james"}, 20); err != nil {
		t.Fatalf("limit 20: %v", err)
	}
	// same limit again hits the cache
	if _, err := repo.ListByCanonicalIDs(ctx, []string{"lebron james"}, 5); err != nil {
		t.Fatalf("limit 5 repeat: %v", err)
	}

	next.AssertExpectations(t)
}

func TestCustomProjectionRepository_DeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	next := &mockProjectionRepo{}
	next.On("ListByPlayers", mock.Anything, []string{"lebron james"}).
		Return([]props.CustomProjection{{PlayerCanonicalID: "lebron james", StatType: gamelog.StatPoints}}, nil).
		Twice()
	next.On("Delete", mock.Anything, "lebron james", gamelog.StatPoints).Return(nil).Once()

	repo := NewCustomProjectionRepository(next, basecache.NewStore(time.Minute), time.Minute)

	if _, err := repo.ListByPlayers(ctx, []string{"lebron james"}); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if err := repo.Delete(ctx, "lebron james", gamelog.StatPoints); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.ListByPlayers(ctx, []string{"lebron james"}); err != nil {
		t.Fatalf("second read: %v", err)
	}

	next.AssertExpectations(t)
}
