package usecase

import (
	"context"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"
	"clinicflow/internal/service"
	"clinicflow/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IdentityUsecase turns a session into a full identity or nothing at all
type IdentityUsecase interface {
	ResolveSession(ctx context.Context, token string) entity.IdentityResult
	Resolve(ctx context.Context, userID uuid.UUID) entity.IdentityResult
}

type identityUsecase struct {
	log        *logrus.Logger
	userRepo   repository.UserRepository
	clinicRepo repository.ClinicRepository
	jwtService *jwt.JWTService
	sessions   service.SessionStore
}

func NewIdentityUsecase(
	log *logrus.Logger,
	userRepo repository.UserRepository,
	clinicRepo repository.ClinicRepository,
	jwtService *jwt.JWTService,
	sessions service.SessionStore,
) IdentityUsecase {
	return &identityUsecase{
		log:        log,
		userRepo:   userRepo,
		clinicRepo: clinicRepo,
		jwtService: jwtService,
		sessions:   sessions,
	}
}

func (u *identityUsecase) ResolveSession(ctx context.Context, token string) entity.IdentityResult {
	if token == "" {
		return entity.Unauthenticated()
	}

	// 1. Validate the session
	claims, err := u.jwtService.ValidateToken(token)
	if err != nil || claims.TokenType != jwt.AccessToken {
		return entity.Unauthenticated()
	}

	live, err := u.sessions.Exists(ctx, claims.UserID, jwt.AccessToken, claims.TokenID)
	if err != nil {
		u.log.Warnf("Failed to check session: %+v", err)
		return entity.Unauthenticated()
	}
	if !live {
		return entity.Unauthenticated()
	}

	// 2. Hydrate the profile
	result := u.Resolve(ctx, claims.UserID)
	if result.IsAuthenticated() {
		result.TokenID = claims.TokenID
	}
	return result
}

func (u *identityUsecase) Resolve(ctx context.Context, userID uuid.UUID) entity.IdentityResult {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return entity.Unauthenticated()
	}
	if user == nil {
		return entity.Unauthenticated()
	}

	identity := &entity.Identity{User: *user}

	// A missing clinic row is not fatal; a failed fetch is
	if user.Role != entity.RoleAdmin && user.HasClinic() {
		clinic, err := u.clinicRepo.FindByID(ctx, *user.ClinicID)
		if err != nil {
			u.log.Warnf("Failed to find clinic by ID: %+v", err)
			return entity.Unauthenticated()
		}
		identity.Clinic = clinic
	}

	return entity.IdentityResult{State: entity.HydrationAuthenticated, Identity: identity}
}
