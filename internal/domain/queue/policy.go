package queue

import (
	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

// NextAssignment decides whether the head of the waiting list should be
// moved into treatment. It fires only when the doctor is READY, nobody is
// in treatment and somebody is waiting.
func NextAssignment(doctorStatus entity.AvailabilityStatus, entries []entity.QueueEntry) (uuid.UUID, bool) {
	if doctorStatus != entity.AvailabilityReady {
		return uuid.Nil, false
	}
	if _, occupied := Occupant(entries); occupied {
		return uuid.Nil, false
	}
	if waiting := Waiting(entries); len(waiting) > 0 {
		return waiting[0].ID, true
	}
	return uuid.Nil, false
}

// AdmissionStatus is the status a new arrival is inserted with: straight
// into treatment when the doctor is READY and the chair is free.
func AdmissionStatus(doctorStatus entity.AvailabilityStatus, entries []entity.QueueEntry) entity.PatientStatus {
	if doctorStatus != entity.AvailabilityReady {
		return entity.PatientStatusInQueue
	}
	if _, occupied := Occupant(entries); occupied {
		return entity.PatientStatusInQueue
	}
	return entity.PatientStatusInTreatment
}
