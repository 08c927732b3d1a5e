package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the status of a booked appointment
type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "BOOKED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// Appointment is a future visit booked by phone or at the desk
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ClinicID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"clinic_id"`
	PatientName     string            `gorm:"type:varchar(255);not null" json:"patient_name"`
	PatientPhone    string            `gorm:"type:varchar(20);not null" json:"patient_phone"`
	Treatment       *string           `gorm:"type:text" json:"treatment"`
	AppointmentTime time.Time         `gorm:"not null;index" json:"appointment_time"`
	Status          AppointmentStatus `gorm:"type:varchar(20);not null;default:'BOOKED';index" json:"status"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsBooked checks if the appointment is still waiting for the patient
func (a *Appointment) IsBooked() bool {
	return a.Status == AppointmentStatusBooked
}

// ToPatient builds the queue entry created when the appointment arrives
func (a *Appointment) ToPatient(status PatientStatus) *Patient {
	phone := a.PatientPhone
	p := &Patient{
		ClinicID:  a.ClinicID,
		Name:      a.PatientName,
		Treatment: a.Treatment,
		Status:    status,
	}
	if phone != "" {
		p.Phone = &phone
	}
	return p
}

// TimeSlot is a bookable half-hour on a clinic day
type TimeSlot struct {
	Time     string `json:"time"`
	Disabled bool   `json:"disabled"`
}
