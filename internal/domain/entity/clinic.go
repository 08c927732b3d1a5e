package entity

import (
	"time"

	"github.com/google/uuid"
)

// Clinic is the tenant boundary: staff, patients and appointments belong to exactly one clinic
type Clinic struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name            string     `gorm:"type:varchar(255);not null" json:"name"`
	Location        *string    `gorm:"type:text" json:"location,omitempty"`
	PrimaryDoctorID *uuid.UUID `gorm:"type:uuid" json:"primary_doctor_id,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Clinic) TableName() string {
	return "clinics"
}
