package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppUser is a staff profile: admin, doctor or assistant
type AppUser struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Role               Role                `gorm:"type:varchar(20);not null;index" json:"role"`
	FullName           string              `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone              string              `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Email              *string             `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	PasswordHash       string              `gorm:"type:text;not null" json:"-"`
	ClinicID           *uuid.UUID          `gorm:"type:uuid;index" json:"clinic_id"`
	AvailabilityStatus *AvailabilityStatus `gorm:"type:varchar(20)" json:"availability_status,omitempty"`
	CreatedAt          time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AppUser) TableName() string {
	return "app_users"
}

// HasClinic checks if the user has been assigned to a clinic
func (u *AppUser) HasClinic() bool {
	return u.ClinicID != nil && *u.ClinicID != uuid.Nil
}

// Availability returns the doctor's status, ON_BREAK when never set
func (u *AppUser) Availability() AvailabilityStatus {
	if u.AvailabilityStatus == nil || !u.AvailabilityStatus.IsValid() {
		return AvailabilityOnBreak
	}
	return *u.AvailabilityStatus
}
