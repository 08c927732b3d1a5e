package repository

import (
	"context"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

type VisitRepository interface {
	Create(ctx context.Context, visit *entity.PatientVisit) error
	CountByPhone(ctx context.Context, clinicID uuid.UUID, phone string) (int64, error)
	// LatestByPhone returns nil, nil when the phone has no history
	LatestByPhone(ctx context.Context, clinicID uuid.UUID, phone string) (*entity.PatientVisit, error)
	ListByPhone(ctx context.Context, clinicID uuid.UUID, phone string) ([]entity.PatientVisit, error)
}
