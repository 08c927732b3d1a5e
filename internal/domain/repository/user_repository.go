package repository

import (
	"context"

	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.AppUser) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.AppUser, error)
	FindByEmail(ctx context.Context, email string) (*entity.AppUser, error)
	FindByPhone(ctx context.Context, phone string) (*entity.AppUser, error)
	FindAll(ctx context.Context) ([]entity.AppUser, error)
	FindFirstDoctorInClinic(ctx context.Context, clinicID uuid.UUID) (*entity.AppUser, error)
	CountByRole(ctx context.Context, role entity.Role) (int64, error)
	AssignClinic(ctx context.Context, id uuid.UUID, clinicID uuid.UUID) (int64, error)
	UpdateAvailability(ctx context.Context, id uuid.UUID, status entity.AvailabilityStatus) (int64, error)
}
