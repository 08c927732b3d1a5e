package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateClinicRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=255"`
	Location *string `json:"location" validate:"omitempty,max=255"`
}

type CreateUserRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=255"`
	Phone    string  `json:"phone" validate:"required,phone"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role" validate:"required,oneof=DOCTOR ASSISTANT"`
}

type AssignClinicRequest struct {
	ClinicID uuid.UUID `json:"clinic_id" validate:"required"`
}

// Response DTOs

type ClinicResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Location          *string    `json:"location,omitempty"`
	PrimaryDoctorID   *uuid.UUID `json:"primary_doctor_id,omitempty"`
	PrimaryDoctorName *string    `json:"primary_doctor_name,omitempty"`
	StaffCount        int        `json:"staff_count"`
	CreatedAt         time.Time  `json:"created_at"`
}

type OverviewResponse struct {
	Users        []UserResponse   `json:"users"`
	Clinics      []ClinicResponse `json:"clinics"`
	RoleCounts   map[string]int   `json:"role_counts"`
	Unassigned   int              `json:"unassigned"`
	TotalUsers   int              `json:"total_users"`
	TotalClinics int              `json:"total_clinics"`
}
