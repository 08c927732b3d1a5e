package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PatientVisit is an append-only history record keyed by phone number, so
// several Patient rows over time aggregate under one phone
type PatientVisit struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ClinicID     uuid.UUID `gorm:"type:uuid;not null;index:idx_visits_clinic_phone" json:"clinic_id"`
	PatientName  string    `gorm:"type:varchar(255);not null" json:"patient_name"`
	PatientPhone *string   `gorm:"type:varchar(20);index:idx_visits_clinic_phone" json:"patient_phone"`
	Treatment    *string   `gorm:"type:text" json:"treatment"`
	Notes        *string   `gorm:"type:text" json:"notes,omitempty"`
	VisitDate    time.Time `gorm:"not null" json:"visit_date"`
}

func (PatientVisit) TableName() string {
	return "patient_visits"
}

// ClinicMetrics are the doctor's dashboard numbers for today
type ClinicMetrics struct {
	CompletedToday int64               `json:"completed_today"`
	WaitingCount   int64               `json:"waiting_count"`
	AvgWaitMins    decimal.NullDecimal `json:"avg_wait_mins"`
}
