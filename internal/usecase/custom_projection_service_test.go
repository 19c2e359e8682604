package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/trendybets/propcore/internal/domain/gamelog"
)

func TestCustomProjectionService_Save(t *testing.T) {
	repo := &fakeCustomRepo{}
	svc := NewCustomProjectionService(repo, discardLogger())

	saved, err := svc.Save(context.Background(), SaveProjectionInput{
		PlayerID:        "LeBron_James",
		StatType:        gamelog.StatPoints,
		ProjectedValue:  27.5,
		ConfidenceScore: 80,
		Note:            "  minutes restriction lifted  ",
		UpdatedBy:       "analyst-1",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got, want := saved.PlayerCanonicalID, "lebron james"; got != want {
		t.Errorf("PlayerCanonicalID = %q, want %q", got, want)
	}
	if got, want := saved.Note, "minutes restriction lifted"; got != want {
		t.Errorf("Note = %q, want trimmed %q", got, want)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero, want stamped")
	}
	if len(repo.saved) != 1 {
		t.Fatalf("repo saves = %d, want 1", len(repo.saved))
	}
}

func TestCustomProjectionService_Save_Validation(t *testing.T) {
	svc := NewCustomProjectionService(&fakeCustomRepo{}, discardLogger())

	cases := []struct {
		name  string
		input SaveProjectionInput
	}{
		{"missing player", SaveProjectionInput{StatType: gamelog.StatPoints, ProjectedValue: 10}},
		{"unknown stat type", SaveProjectionInput{PlayerID: "lebron james", StatType: "Steals", ProjectedValue: 10}},
		{"negative value", SaveProjectionInput{PlayerID: "lebron james", StatType: gamelog.StatPoints, ProjectedValue: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Save(context.Background(), tc.input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestCustomProjectionService_List_NormalizesIDs(t *testing.T) {
	repo := &fakeCustomRepo{}
	svc := NewCustomProjectionService(repo, discardLogger())

	if _, err := svc.List(context.Background(), []string{"LeBron_James", "  ", "Nikola Jokić"}); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestCustomProjectionService_Delete(t *testing.T) {
	repo := &fakeCustomRepo{}
	svc := NewCustomProjectionService(repo, discardLogger())

	if err := svc.Delete(context.Background(), "LeBron_James", gamelog.StatRebounds); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "lebron james" {
		t.Fatalf("deleted = %v, want [lebron james]", repo.deleted)
	}

	if err := svc.Delete(context.Background(), "", gamelog.StatRebounds); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
