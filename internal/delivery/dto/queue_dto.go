package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type RegisterWalkInRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=255"`
	Phone     string  `json:"phone" validate:"required,phone"`
	Treatment *string `json:"treatment" validate:"omitempty,max=255"`
}

type CompleteTreatmentRequest struct {
	Treatment *string `json:"treatment" validate:"omitempty,max=255"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

type SetAvailabilityRequest struct {
	Status string `json:"status" validate:"required,oneof=READY ON_BREAK"`
}

// Response DTOs

type PatientResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ClinicID           uuid.UUID  `json:"clinic_id"`
	Name               string     `json:"name"`
	Phone              *string    `json:"phone,omitempty"`
	Treatment          *string    `json:"treatment,omitempty"`
	Status             string     `json:"status"`
	TreatmentStartedAt *time.Time `json:"treatment_started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type VisitResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientName string    `json:"patient_name"`
	Treatment   *string   `json:"treatment,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	VisitDate   time.Time `json:"visit_date"`
	VisitedAgo  string    `json:"visited_ago"`
}

type VisitHistoryResponse struct {
	Phone  string          `json:"phone"`
	Visits []VisitResponse `json:"visits"`
	Total  int             `json:"total"`
}

type MetricsResponse struct {
	CompletedToday int64               `json:"completed_today"`
	WaitingCount   int64               `json:"waiting_count"`
	AvgWaitMins    decimal.NullDecimal `json:"avg_wait_mins"`
}
