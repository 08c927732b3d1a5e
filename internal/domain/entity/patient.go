package entity

import (
	"time"

	"github.com/google/uuid"
)

// PatientStatus represents where a queue entry is in its lifecycle
type PatientStatus string

const (
	PatientStatusInTreatment PatientStatus = "IN_TREATMENT"
	PatientStatusInQueue     PatientStatus = "IN_QUEUE"
	PatientStatusCompleted   PatientStatus = "COMPLETED"
	PatientStatusCancelled   PatientStatus = "CANCELLED"
)

// ActivePatientStatuses are the statuses that make up a live queue
var ActivePatientStatuses = []PatientStatus{PatientStatusInTreatment, PatientStatusInQueue}

// IsTerminal reports whether no further transition is possible
func (s PatientStatus) IsTerminal() bool {
	return s == PatientStatusCompleted || s == PatientStatusCancelled
}

// CanTransitionTo enforces IN_QUEUE -> IN_TREATMENT -> COMPLETED and IN_QUEUE -> CANCELLED
func (s PatientStatus) CanTransitionTo(next PatientStatus) bool {
	switch s {
	case PatientStatusInQueue:
		return next == PatientStatusInTreatment || next == PatientStatusCancelled
	case PatientStatusInTreatment:
		return next == PatientStatusCompleted
	}
	return false
}

// Patient is a single visit's queue entry
type Patient struct {
	ID                 uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ClinicID           uuid.UUID     `gorm:"type:uuid;not null;index" json:"clinic_id"`
	Name               string        `gorm:"type:varchar(255);not null" json:"name"`
	Phone              *string       `gorm:"type:varchar(20);index" json:"phone,omitempty"`
	Treatment          *string       `gorm:"type:text" json:"treatment,omitempty"`
	Status             PatientStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TreatmentStartedAt *time.Time    `json:"treatment_started_at,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	CreatedAt          time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

// IsInTreatment checks if the patient is with the doctor
func (p *Patient) IsInTreatment() bool {
	return p.Status == PatientStatusInTreatment
}

// IsWaiting checks if the patient is waiting in the queue
func (p *Patient) IsWaiting() bool {
	return p.Status == PatientStatusInQueue
}

// HasPhone checks if the patient can be joined to visit history
func (p *Patient) HasPhone() bool {
	return p.Phone != nil && *p.Phone != ""
}

// QueueEntry is a queue row enriched with visit history for its phone number
type QueueEntry struct {
	Patient
	VisitCount         int        `json:"visit_count"`
	LastVisitAt        *time.Time `json:"last_visit_at"`
	LastVisitTreatment *string    `json:"last_visit_treatment"`
	IsReturning        bool       `json:"is_returning"`
}

// NewQueueEntry builds a zero-visit, non-returning entry
func NewQueueEntry(p Patient) QueueEntry {
	return QueueEntry{Patient: p}
}
