// Package workspace runs one live session per open clinic screen. A session
// owns an immutable State value and replaces it only through Reduce.
package workspace

import (
	"time"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/queue"

	"github.com/google/uuid"
)

// State is what a screen renders. Values are never modified in place, so a
// State handed to a reader stays valid after the session moves on.
type State struct {
	ClinicID     uuid.UUID                  `json:"clinic_id"`
	DoctorID     *uuid.UUID                 `json:"doctor_id,omitempty"`
	DoctorStatus *entity.AvailabilityStatus `json:"doctor_status,omitempty"`
	Queue        []entity.QueueEntry        `json:"queue"`
	Appointments []entity.Appointment       `json:"appointments"`
	Lookup       *entity.PhoneLookup        `json:"lookup,omitempty"`
	RefreshedAt  time.Time                  `json:"refreshed_at"`
	Version      uint64                     `json:"version"`

	Assignment Assignment `json:"-"`
}

// Assignment tracks the one auto-assignment write a session may have open.
// After it settles, the patient stays blocked until a refresh started later
// than the settle lands.
type Assignment struct {
	PatientID    uuid.UUID
	Settled      bool
	SettledAfter uint64
}

func (a Assignment) Active() bool {
	return a.PatientID != uuid.Nil
}

func NewState(clinicID uuid.UUID, doctorID *uuid.UUID) State {
	return State{
		ClinicID:     clinicID,
		DoctorID:     doctorID,
		Queue:        []entity.QueueEntry{},
		Appointments: []entity.Appointment{},
	}
}

// Event is anything Reduce knows how to apply
type Event interface {
	isEvent()
}

// RefreshCompleted carries a snapshot from the refresh numbered Seq
type RefreshCompleted struct {
	Seq      uint64
	Snapshot entity.WorkspaceSnapshot
}

type DoctorStatusPatched struct {
	DoctorID uuid.UUID
	Status   entity.AvailabilityStatus
}

type AssignmentIssued struct {
	PatientID uuid.UUID
}

// AssignmentSettled reports the write result. LastRefresh is the number of
// the newest refresh started when the write returned.
type AssignmentSettled struct {
	PatientID   uuid.UUID
	Promoted    bool
	LastRefresh uint64
}

type LookupCompleted struct {
	Result *entity.PhoneLookup
}

func (RefreshCompleted) isEvent()    {}
func (DoctorStatusPatched) isEvent() {}
func (AssignmentIssued) isEvent()    {}
func (AssignmentSettled) isEvent()   {}
func (LookupCompleted) isEvent()     {}

// Reduce returns the state after ev and whether ev changed anything.
// Version goes up by one for every applied event.
func Reduce(s State, ev Event) (State, bool) {
	next := s

	switch e := ev.(type) {
	case RefreshCompleted:
		next.Queue = e.Snapshot.Queue
		next.Appointments = e.Snapshot.Appointments
		if e.Snapshot.DoctorStatus != nil {
			status := *e.Snapshot.DoctorStatus
			next.DoctorStatus = &status
		}
		next.RefreshedAt = e.Snapshot.FetchedAt
		if s.Assignment.Settled && e.Seq > s.Assignment.SettledAfter {
			next.Assignment = Assignment{}
		}

	case DoctorStatusPatched:
		if s.DoctorID != nil && *s.DoctorID != e.DoctorID {
			return s, false
		}
		status := e.Status
		next.DoctorStatus = &status

	case AssignmentIssued:
		if s.Assignment.Active() {
			return s, false
		}
		next.Assignment = Assignment{PatientID: e.PatientID}

	case AssignmentSettled:
		if s.Assignment.PatientID != e.PatientID || s.Assignment.Settled {
			return s, false
		}
		next.Assignment = Assignment{PatientID: e.PatientID, Settled: true, SettledAfter: e.LastRefresh}

	case LookupCompleted:
		next.Lookup = e.Result

	default:
		return s, false
	}

	next.Version = s.Version + 1
	return next, true
}

// NextAssignment is the auto-assignment decision for s. Nothing fires while
// an earlier write is still being observed.
func (s State) NextAssignment() (uuid.UUID, bool) {
	if s.Assignment.Active() {
		return uuid.Nil, false
	}
	status := entity.AvailabilityOnBreak
	if s.DoctorStatus != nil {
		status = *s.DoctorStatus
	}
	return queue.NextAssignment(status, s.Queue)
}
