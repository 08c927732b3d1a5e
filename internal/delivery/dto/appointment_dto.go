package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// ScheduleAppointmentRequest takes a clinic-local calendar date and a HH:MM slot
type ScheduleAppointmentRequest struct {
	PatientName  string  `json:"patient_name" validate:"required,min=1,max=255"`
	PatientPhone string  `json:"patient_phone" validate:"required,phone"`
	Treatment    *string `json:"treatment" validate:"omitempty,max=255"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string  `json:"time" validate:"required,datetime=15:04"`
}

// Response DTOs

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	PatientName     string    `json:"patient_name"`
	PatientPhone    string    `json:"patient_phone"`
	Treatment       *string   `json:"treatment,omitempty"`
	AppointmentTime time.Time `json:"appointment_time"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type SlotsResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type SlotResponse struct {
	Time     string `json:"time"`
	Disabled bool   `json:"disabled"`
}
