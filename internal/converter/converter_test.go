package converter

import (
	"testing"
	"time"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

func TestUserToResponse_AvailabilityOnlyForDoctors(t *testing.T) {
	doctor := &entity.AppUser{ID: uuid.New(), Role: entity.RoleDoctor, FullName: "dr. Rina"}
	got := UserToResponse(doctor)
	if got.AvailabilityStatus == nil || *got.AvailabilityStatus != string(entity.AvailabilityOnBreak) {
		t.Fatalf("expected ON_BREAK default for doctor, got %v", got.AvailabilityStatus)
	}

	assistant := &entity.AppUser{ID: uuid.New(), Role: entity.RoleAssistant, FullName: "Dewi"}
	if UserToResponse(assistant).AvailabilityStatus != nil {
		t.Fatal("assistant should not carry an availability status")
	}

	if UserToResponse(nil) != nil {
		t.Fatal("expected nil for nil user")
	}
}

func TestIdentityToResponse(t *testing.T) {
	if got := IdentityToResponse(entity.Unauthenticated()); got.User != nil || got.State != "UNAUTHENTICATED" {
		t.Fatalf("unexpected response %#v", got)
	}

	result := entity.IdentityResult{
		State: entity.HydrationAuthenticated,
		Identity: &entity.Identity{
			User:   entity.AppUser{ID: uuid.New(), Role: entity.RoleAssistant},
			Clinic: &entity.Clinic{ID: uuid.New(), Name: "Klinik Sehat"},
		},
	}
	got := IdentityToResponse(result)
	if got.User == nil || got.Clinic == nil || got.Clinic.Name != "Klinik Sehat" {
		t.Fatalf("unexpected response %#v", got)
	}
}

func TestVisitsToResponses(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	visits := []entity.PatientVisit{
		{ID: uuid.New(), PatientName: "Andi", VisitDate: now.Add(-3 * time.Hour)},
		{ID: uuid.New(), PatientName: "Andi", VisitDate: now.Add(-72 * time.Hour)},
	}

	got := VisitsToResponses(visits, now)
	if len(got) != 2 || got[0].VisitedAgo != "3h ago" || got[1].VisitedAgo != "3d ago" {
		t.Fatalf("unexpected responses %#v", got)
	}
}
