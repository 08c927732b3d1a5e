package usecase

import (
	"context"
	"errors"
	"strings"

	"clinicflow/internal/converter"
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"
	"clinicflow/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPhoneAlreadyExists = errors.New("phone number already exists")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrClinicNotFound     = errors.New("clinic not found")
	ErrCannotAssignAdmin  = errors.New("admins cannot be assigned to a clinic")
	ErrAlreadyInClinic    = errors.New("doctor already belongs to a clinic")
)

type AdminUsecase interface {
	CreateClinic(ctx context.Context, actor entity.Identity, req *dto.CreateClinicRequest) (*dto.ClinicResponse, error)
	CreateUser(ctx context.Context, actorID uuid.UUID, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	CreateAdmin(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	AssignClinic(ctx context.Context, actorID, userID uuid.UUID, req *dto.AssignClinicRequest) (*dto.UserResponse, error)
	Overview(ctx context.Context) (*dto.OverviewResponse, error)
	ListAuditLogs(ctx context.Context, limit int) (*dto.AuditLogListResponse, error)
}

type adminUsecase struct {
	log          *logrus.Logger
	transactor   repository.Transactor
	userRepo     repository.UserRepository
	clinicRepo   repository.ClinicRepository
	auditRepo    repository.AuditLogRepository
	auditService service.AuditService
	deactivator  SessionDeactivator
}

func NewAdminUsecase(
	log *logrus.Logger,
	transactor repository.Transactor,
	userRepo repository.UserRepository,
	clinicRepo repository.ClinicRepository,
	auditRepo repository.AuditLogRepository,
	auditService service.AuditService,
	deactivator SessionDeactivator,
) AdminUsecase {
	return &adminUsecase{
		log:          log,
		transactor:   transactor,
		userRepo:     userRepo,
		clinicRepo:   clinicRepo,
		auditRepo:    auditRepo,
		auditService: auditService,
		deactivator:  deactivator,
	}
}

// CreateClinic is open to admins and to doctors without a clinic. A doctor
// becomes the new clinic's primary doctor and is assigned to it.
func (u *adminUsecase) CreateClinic(ctx context.Context, actor entity.Identity, req *dto.CreateClinicRequest) (*dto.ClinicResponse, error) {
	user := actor.User
	switch user.Role {
	case entity.RoleAdmin:
	case entity.RoleDoctor:
		if user.HasClinic() {
			return nil, ErrAlreadyInClinic
		}
	default:
		return nil, ErrForbidden
	}

	clinic := &entity.Clinic{
		Name:     strings.TrimSpace(req.Name),
		Location: req.Location,
	}

	err := u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if user.Role == entity.RoleDoctor {
			clinic.PrimaryDoctorID = &user.ID
		}

		if err := u.clinicRepo.Create(ctx, clinic); err != nil {
			u.log.Warnf("Failed to create clinic: %+v", err)
			return err
		}

		if user.Role == entity.RoleDoctor {
			if _, err := u.userRepo.AssignClinic(ctx, user.ID, clinic.ID); err != nil {
				u.log.Warnf("Failed to assign doctor to new clinic: %+v", err)
				return err
			}
		}

		return u.auditService.LogCreate(ctx, &user.ID, entity.AuditActionClinicCreate, "clinic", clinic.ID.String(), clinic)
	})
	if err != nil {
		return nil, err
	}

	return converter.ClinicToResponse(clinic), nil
}

func (u *adminUsecase) CreateUser(ctx context.Context, actorID uuid.UUID, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	role := entity.Role(req.Role)
	if role != entity.RoleDoctor && role != entity.RoleAssistant {
		return nil, ErrForbidden
	}
	return u.createUser(ctx, &actorID, req, role)
}

// CreateAdmin bootstraps an ADMIN account from the command line
func (u *adminUsecase) CreateAdmin(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	return u.createUser(ctx, nil, req, entity.RoleAdmin)
}

func (u *adminUsecase) createUser(ctx context.Context, actorID *uuid.UUID, req *dto.CreateUserRequest, role entity.Role) (*dto.UserResponse, error) {
	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	user := &entity.AppUser{
		Role:         role,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hashedPassword),
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		user.Email = &email
	}
	if role == entity.RoleDoctor {
		status := entity.AvailabilityOnBreak
		user.AvailabilityStatus = &status
	}

	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := u.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, actorID, entity.AuditActionUserCreate, "app_user", user.ID.String(),
			map[string]any{"full_name": user.FullName, "role": user.Role})
	})
	if err != nil {
		switch {
		case isDuplicateKeyError(err, "phone"):
			return nil, ErrPhoneAlreadyExists
		case isDuplicateKeyError(err, "email"):
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create user: %+v", err)
		return nil, err
	}

	return converter.UserToResponse(user), nil
}

// AssignClinic moves a staff member into a clinic. The first doctor of a
// clinic becomes its primary doctor. Live workspaces of the user are closed
// so they reopen against the new clinic.
func (u *adminUsecase) AssignClinic(ctx context.Context, actorID, userID uuid.UUID, req *dto.AssignClinicRequest) (*dto.UserResponse, error) {
	var user *entity.AppUser

	err := u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Load both sides
		found, err := u.userRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrUserNotFound
		}
		if found.Role == entity.RoleAdmin {
			return ErrCannotAssignAdmin
		}

		clinic, err := u.clinicRepo.FindByID(ctx, req.ClinicID)
		if err != nil {
			return err
		}
		if clinic == nil {
			return ErrClinicNotFound
		}

		// 2. Assign
		oldClinicID := found.ClinicID
		if _, err := u.userRepo.AssignClinic(ctx, found.ID, clinic.ID); err != nil {
			return err
		}
		found.ClinicID = &clinic.ID

		// 3. First doctor becomes primary, and the clinic left behind hands
		// the role to its next doctor
		if found.Role == entity.RoleDoctor {
			if _, err := u.clinicRepo.SetPrimaryDoctorIfEmpty(ctx, clinic.ID, found.ID); err != nil {
				return err
			}
			if oldClinicID != nil && *oldClinicID != clinic.ID {
				if err := u.handOverPrimaryDoctor(ctx, *oldClinicID, found.ID); err != nil {
					return err
				}
			}
		}

		user = found
		return u.auditService.LogUpdate(ctx, &actorID, entity.AuditActionClinicAssign, "app_user", found.ID.String(),
			map[string]any{"clinic_id": oldClinicID}, map[string]any{"clinic_id": clinic.ID})
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrCannotAssignAdmin), errors.Is(err, ErrClinicNotFound):
			return nil, err
		case isForeignKeyError(err, "clinic"):
			return nil, ErrClinicNotFound
		}
		u.log.Warnf("Failed to assign clinic: %+v", err)
		return nil, err
	}

	if closed := u.deactivator.DeactivateUser(user.ID); closed > 0 {
		u.log.Infof("Closed %d workspace session(s) after clinic reassignment of %s", closed, user.ID)
	}

	return converter.UserToResponse(user), nil
}

// handOverPrimaryDoctor runs after the doctor has left the clinic, so the
// first doctor found is a remaining one
func (u *adminUsecase) handOverPrimaryDoctor(ctx context.Context, clinicID, doctorID uuid.UUID) error {
	var next *uuid.UUID
	successor, err := u.userRepo.FindFirstDoctorInClinic(ctx, clinicID)
	if err != nil {
		return err
	}
	if successor != nil {
		next = &successor.ID
	}
	_, err = u.clinicRepo.ReplacePrimaryDoctor(ctx, clinicID, doctorID, next)
	return err
}

func (u *adminUsecase) Overview(ctx context.Context) (*dto.OverviewResponse, error) {
	var (
		users   []entity.AppUser
		clinics []entity.Clinic
	)

	// Users and clinics are independent reads
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = u.userRepo.FindAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		clinics, err = u.clinicRepo.FindAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		u.log.Warnf("Failed to load overview: %+v", err)
		return nil, err
	}

	names := make(map[uuid.UUID]string, len(users))
	staff := make(map[uuid.UUID]int)
	roleCounts := map[string]int{
		string(entity.RoleAdmin):     0,
		string(entity.RoleDoctor):    0,
		string(entity.RoleAssistant): 0,
	}
	unassigned := 0
	for _, user := range users {
		names[user.ID] = user.FullName
		roleCounts[string(user.Role)]++
		if user.HasClinic() {
			staff[*user.ClinicID]++
		} else if user.Role.IsClinicStaff() {
			unassigned++
		}
	}

	clinicResponses := make([]dto.ClinicResponse, len(clinics))
	for i := range clinics {
		response := converter.ClinicToResponse(&clinics[i])
		response.StaffCount = staff[clinics[i].ID]
		if id := clinics[i].PrimaryDoctorID; id != nil {
			if name, ok := names[*id]; ok {
				response.PrimaryDoctorName = &name
			}
		}
		clinicResponses[i] = *response
	}

	return &dto.OverviewResponse{
		Users:        converter.UsersToResponses(users),
		Clinics:      clinicResponses,
		RoleCounts:   roleCounts,
		Unassigned:   unassigned,
		TotalUsers:   len(users),
		TotalClinics: len(clinics),
	}, nil
}

func (u *adminUsecase) ListAuditLogs(ctx context.Context, limit int) (*dto.AuditLogListResponse, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	logs, err := u.auditRepo.FindRecent(ctx, limit)
	if err != nil {
		u.log.Warnf("Failed to list audit logs: %+v", err)
		return nil, err
	}

	responses := converter.AuditLogsToResponses(logs)
	return &dto.AuditLogListResponse{Logs: responses, Total: len(responses)}, nil
}
