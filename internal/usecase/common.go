package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrClinicRequired = errors.New("user is not assigned to a clinic")
	ErrForbidden      = errors.New("you don't have permission to perform this action")
)

// SessionDeactivator closes live workspace sessions
type SessionDeactivator interface {
	DeactivateUser(userID uuid.UUID) int
	DeactivateToken(tokenID string) int
}

// startOfDay is midnight of t's calendar day in loc
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// clinicOf returns the clinic the identity works in
func clinicOf(identity entity.Identity) (uuid.UUID, error) {
	if !identity.User.HasClinic() {
		return uuid.Nil, ErrClinicRequired
	}
	return *identity.User.ClinicID, nil
}

func toQueueEntries(patients []entity.Patient) []entity.QueueEntry {
	entries := make([]entity.QueueEntry, len(patients))
	for i, p := range patients {
		entries[i] = entity.NewQueueEntry(p)
	}
	return entries
}

// resolveDoctorID picks the doctor whose availability gates the clinic queue:
// the doctor themself, else the clinic's primary doctor, else its first doctor.
func resolveDoctorID(ctx context.Context, userRepo repository.UserRepository, clinicRepo repository.ClinicRepository, identity entity.Identity) (*uuid.UUID, error) {
	user := identity.User
	switch {
	case user.Role == entity.RoleDoctor:
		id := user.ID
		return &id, nil
	case user.Role != entity.RoleAssistant || !user.HasClinic():
		return nil, nil
	}

	clinic := identity.Clinic
	if clinic == nil {
		found, err := clinicRepo.FindByID(ctx, *user.ClinicID)
		if err != nil {
			return nil, err
		}
		clinic = found
	}
	if clinic != nil && clinic.PrimaryDoctorID != nil {
		id := *clinic.PrimaryDoctorID
		return &id, nil
	}

	doctor, err := userRepo.FindFirstDoctorInClinic(ctx, *user.ClinicID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, nil
	}
	return &doctor.ID, nil
}

// doctorAvailability is ON_BREAK when there is no doctor or the profile is missing
func doctorAvailability(ctx context.Context, userRepo repository.UserRepository, doctorID *uuid.UUID) (entity.AvailabilityStatus, error) {
	if doctorID == nil {
		return entity.AvailabilityOnBreak, nil
	}
	doctor, err := userRepo.FindByID(ctx, *doctorID)
	if err != nil {
		return entity.AvailabilityOnBreak, err
	}
	if doctor == nil {
		return entity.AvailabilityOnBreak, nil
	}
	return doctor.Availability(), nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

// isForeignKeyError checks if the error is a PostgreSQL foreign key violation
// containing the specified constraint name
func isForeignKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23503 = foreign_key_violation
		if pgErr.Code == "23503" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}
