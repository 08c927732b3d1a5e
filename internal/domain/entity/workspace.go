package entity

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceSnapshot is one read of the clinic's live state.
// DoctorStatus is nil when it could not be determined.
type WorkspaceSnapshot struct {
	ClinicID     uuid.UUID           `json:"clinic_id"`
	Queue        []QueueEntry        `json:"queue"`
	Appointments []Appointment       `json:"appointments"`
	DoctorStatus *AvailabilityStatus `json:"doctor_status,omitempty"`
	FetchedAt    time.Time           `json:"fetched_at"`
}

// PhoneSuggestion is a distinct phone number already seen at the clinic
type PhoneSuggestion struct {
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// PhoneLookup is the autocomplete result for a typed phone prefix.
// Match is set for exactly one hit; Suggestions for two or more.
type PhoneLookup struct {
	Phone          string            `json:"phone"`
	Match          *PhoneSuggestion  `json:"match,omitempty"`
	Suggestions    []PhoneSuggestion `json:"suggestions"`
	IsReturning    bool              `json:"is_returning"`
	ReturningInfo  string            `json:"returning_info,omitempty"`
	ClearReturning bool              `json:"clear_returning"`
}
