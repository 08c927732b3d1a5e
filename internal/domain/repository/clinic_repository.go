package repository

import (
	"context"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

type ClinicRepository interface {
	Create(ctx context.Context, clinic *entity.Clinic) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Clinic, error)
	FindAll(ctx context.Context) ([]entity.Clinic, error)
	// SetPrimaryDoctorIfEmpty only writes when the clinic has no primary doctor yet
	SetPrimaryDoctorIfEmpty(ctx context.Context, id uuid.UUID, doctorID uuid.UUID) (int64, error)
	// ReplacePrimaryDoctor only writes while from is still the primary doctor.
	// A nil to clears it.
	ReplacePrimaryDoctor(ctx context.Context, id uuid.UUID, from uuid.UUID, to *uuid.UUID) (int64, error)
}
