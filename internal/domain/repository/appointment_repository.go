package repository

import (
	"context"
	"time"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	// FindBookedSince returns BOOKED appointments at or after since, ascending by time
	FindBookedSince(ctx context.Context, clinicID uuid.UUID, since time.Time) ([]entity.Appointment, error)
	// FindBookedBetween returns BOOKED appointments in [from, to)
	FindBookedBetween(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]entity.Appointment, error)
	// Cancel moves a BOOKED appointment to CANCELLED. Returns affected rows.
	Cancel(ctx context.Context, clinicID, id uuid.UUID) (int64, error)
}
