package bootstrap

import (
	"context"
	"fmt"

	"clinicflow/config"
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/infrastructure/database"
	"clinicflow/internal/repository"
	"clinicflow/internal/service"
	"clinicflow/internal/usecase"

	"github.com/google/uuid"
)

// CreateAdmin creates an ADMIN account using only the database. An empty
// password falls back to ADMIN_PASSWORD.
func CreateAdmin(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	log := setupLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if req.Password == "" {
		req.Password = cfg.Admin.Password
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters (use --password or ADMIN_PASSWORD)")
	}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	auditRepo := repository.NewAuditLogRepository(db)
	adminUsecase := usecase.NewAdminUsecase(
		log,
		repository.NewTransactor(db),
		repository.NewUserRepository(db),
		repository.NewClinicRepository(db),
		auditRepo,
		service.NewAuditService(log, auditRepo),
		noSessions{},
	)

	return adminUsecase.CreateAdmin(ctx, req)
}

// noSessions stands in for the registry when no server is running
type noSessions struct{}

func (noSessions) DeactivateUser(uuid.UUID) int { return 0 }
func (noSessions) DeactivateToken(string) int   { return 0 }
