// Package changefeed turns PostgreSQL row-change notifications into typed,
// clinic-scoped events and fans them out to workspace sessions.
package changefeed

import (
	"encoding/json"
	"errors"
	"fmt"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

// Channel is the NOTIFY channel the row triggers in the init migration
// publish on
const Channel = "clinic_changes"

var ErrIrrelevant = errors.New("notification is not a clinic change")

// Event is one decoded change. The concrete types are PatientChanged,
// AppointmentChanged, AvailabilityChanged and FeedResumed.
type Event interface {
	Clinic() uuid.UUID
	isEvent()
}

type PatientChanged struct {
	ClinicID  uuid.UUID
	PatientID uuid.UUID
	Op        string
}

type AppointmentChanged struct {
	ClinicID      uuid.UUID
	AppointmentID uuid.UUID
	Op            string
}

// AvailabilityChanged is emitted for any profile update in the clinic.
// Status is nil when the row carries no availability value.
type AvailabilityChanged struct {
	ClinicID uuid.UUID
	UserID   uuid.UUID
	Role     entity.Role
	Status   *entity.AvailabilityStatus
}

// FeedResumed is published to every subscription after the listener
// reconnects, since notifications sent while it was down are lost.
type FeedResumed struct{}

func (e PatientChanged) Clinic() uuid.UUID      { return e.ClinicID }
func (e AppointmentChanged) Clinic() uuid.UUID  { return e.ClinicID }
func (e AvailabilityChanged) Clinic() uuid.UUID { return e.ClinicID }
func (FeedResumed) Clinic() uuid.UUID           { return uuid.Nil }

func (PatientChanged) isEvent()      {}
func (AppointmentChanged) isEvent()  {}
func (AvailabilityChanged) isEvent() {}
func (FeedResumed) isEvent()         {}

type payload struct {
	Table              string     `json:"table"`
	Op                 string     `json:"op"`
	ID                 uuid.UUID  `json:"id"`
	ClinicID           *uuid.UUID `json:"clinic_id"`
	Role               string     `json:"role"`
	AvailabilityStatus *string    `json:"availability_status"`
}

// Decode parses a notify_clinic_change payload. Payloads for other tables or
// without a clinic return ErrIrrelevant.
func Decode(raw string) (Event, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode change payload: %w", err)
	}
	if p.ClinicID == nil || *p.ClinicID == uuid.Nil {
		return nil, ErrIrrelevant
	}

	switch p.Table {
	case "patients":
		return PatientChanged{ClinicID: *p.ClinicID, PatientID: p.ID, Op: p.Op}, nil
	case "appointments":
		return AppointmentChanged{ClinicID: *p.ClinicID, AppointmentID: p.ID, Op: p.Op}, nil
	case "app_users":
		ev := AvailabilityChanged{ClinicID: *p.ClinicID, UserID: p.ID, Role: entity.Role(p.Role)}
		if p.AvailabilityStatus != nil {
			status := entity.AvailabilityStatus(*p.AvailabilityStatus)
			if status.IsValid() {
				ev.Status = &status
			}
		}
		return ev, nil
	}
	return nil, ErrIrrelevant
}
