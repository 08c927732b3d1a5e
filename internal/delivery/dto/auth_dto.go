package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// LoginRequest accepts either an email address or a phone number as identifier
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Response DTOs

type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	User         *UserResponse `json:"user,omitempty"`
}

type UserResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Role               string     `json:"role"`
	FullName           string     `json:"full_name"`
	Phone              string     `json:"phone"`
	Email              *string    `json:"email,omitempty"`
	ClinicID           *uuid.UUID `json:"clinic_id"`
	AvailabilityStatus *string    `json:"availability_status,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IdentityResponse is what a screen needs to pick its workspace
type IdentityResponse struct {
	State  string          `json:"state"`
	User   *UserResponse   `json:"user,omitempty"`
	Clinic *ClinicResponse `json:"clinic,omitempty"`
}
