package entity

// Role represents a staff role in the system
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleDoctor    Role = "DOCTOR"
	RoleAssistant Role = "ASSISTANT"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleAssistant:
		return true
	}
	return false
}

// IsClinicStaff reports whether the role works inside a clinic workspace
func (r Role) IsClinicStaff() bool {
	return r == RoleDoctor || r == RoleAssistant
}

// AvailabilityStatus is a doctor's readiness to receive the next patient
type AvailabilityStatus string

const (
	AvailabilityReady   AvailabilityStatus = "READY"
	AvailabilityOnBreak AvailabilityStatus = "ON_BREAK"
)

func (s AvailabilityStatus) IsValid() bool {
	return s == AvailabilityReady || s == AvailabilityOnBreak
}
