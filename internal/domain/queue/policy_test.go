package queue

import (
	"testing"

	"clinicflow/internal/domain/entity"
)

func TestNextAssignment_FiresOnlyWhenAllConditionsHold(t *testing.T) {
	for _, ready := range []bool{false, true} {
		for _, vacant := range []bool{false, true} {
			for _, waiting := range []bool{false, true} {
				status := entity.AvailabilityOnBreak
				if ready {
					status = entity.AvailabilityReady
				}

				var in []entity.QueueEntry
				if !vacant {
					in = append(in, entry("busy", entity.PatientStatusInTreatment, 0))
				}
				if waiting {
					in = append(in, entry("next", entity.PatientStatusInQueue, 1))
					in = append(in, entry("later", entity.PatientStatusInQueue, 2))
				}

				id, fired := NextAssignment(status, in)
				want := ready && vacant && waiting
				if fired != want {
					t.Fatalf("ready=%v vacant=%v waiting=%v: expected fire=%v, got %v", ready, vacant, waiting, want, fired)
				}
				if fired && id != in[0].ID {
					t.Fatalf("expected head of waiting list %s, got %s", in[0].ID, id)
				}
			}
		}
	}
}

func TestNextAssignment_SinglePatientScenario(t *testing.T) {
	p := entry("one", entity.PatientStatusInQueue, 0)
	id, ok := NextAssignment(entity.AvailabilityReady, []entity.QueueEntry{p})
	if !ok || id != p.ID {
		t.Fatalf("expected %s promoted, got %s (fired=%v)", p.ID, id, ok)
	}
}

func TestNextAssignment_PicksOldestWaiting(t *testing.T) {
	in := Sort([]entity.QueueEntry{
		entry("first", entity.PatientStatusInQueue, 0),
		entry("second", entity.PatientStatusInQueue, 5),
	})
	id, ok := NextAssignment(entity.AvailabilityReady, in)
	if !ok || id != in[0].ID {
		t.Fatalf("expected oldest entry, got %s", id)
	}
}

func TestAdmissionStatus(t *testing.T) {
	busy := []entity.QueueEntry{entry("busy", entity.PatientStatusInTreatment, 0)}
	waitingOnly := []entity.QueueEntry{entry("w", entity.PatientStatusInQueue, 0)}

	tests := []struct {
		name   string
		status entity.AvailabilityStatus
		queue  []entity.QueueEntry
		want   entity.PatientStatus
	}{
		{"ready and vacant", entity.AvailabilityReady, nil, entity.PatientStatusInTreatment},
		{"ready with waiting only", entity.AvailabilityReady, waitingOnly, entity.PatientStatusInTreatment},
		{"ready but occupied", entity.AvailabilityReady, busy, entity.PatientStatusInQueue},
		{"on break and vacant", entity.AvailabilityOnBreak, nil, entity.PatientStatusInQueue},
		{"on break and occupied", entity.AvailabilityOnBreak, busy, entity.PatientStatusInQueue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdmissionStatus(tt.status, tt.queue); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
