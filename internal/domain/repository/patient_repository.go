package repository

import (
	"context"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

type PatientRepository interface {
	// FindQueue returns IN_TREATMENT and IN_QUEUE rows ordered by created_at ascending
	FindQueue(ctx context.Context, clinicID uuid.UUID) ([]entity.Patient, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error)
	// CreateWithAdmission inserts the patient. A requested IN_TREATMENT status
	// is downgraded to IN_QUEUE in the same statement when another row in the
	// clinic is already in treatment; patient.Status holds the stored value.
	CreateWithAdmission(ctx context.Context, patient *entity.Patient) error
	// PromoteIfVacant moves an IN_QUEUE row into treatment only while no other
	// row in the clinic is in treatment. Returns affected rows.
	PromoteIfVacant(ctx context.Context, clinicID, id uuid.UUID) (int64, error)
	// TransitionStatus updates the row only if it is currently in from.
	TransitionStatus(ctx context.Context, clinicID, id uuid.UUID, from, to entity.PatientStatus) (int64, error)
	// FindByPhonePrefix returns rows whose phone starts with prefix, newest first
	FindByPhonePrefix(ctx context.Context, clinicID uuid.UUID, prefix string, limit int) ([]entity.Patient, error)
	CountByStatus(ctx context.Context, clinicID uuid.UUID, status entity.PatientStatus) (int64, error)
}
