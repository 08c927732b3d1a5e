package usecase

import (
	"context"
	"errors"
	"testing"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type adminFixture struct {
	s           *memStore
	deactivator *fakeDeactivator
	uc          AdminUsecase
	admin       *entity.AppUser
}

func newAdminFixture() *adminFixture {
	s := newMemStore()
	d := &fakeDeactivator{}
	uc := NewAdminUsecase(quietLogger(), fakeTransactor{}, fakeUserRepo{s}, fakeClinicRepo{s}, fakeAuditRepo{s}, testAudit(s), d)
	return &adminFixture{s: s, deactivator: d, uc: uc, admin: s.addUser(entity.RoleAdmin, nil)}
}

func TestCreateClinic_Permissions(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	req := &dto.CreateClinicRequest{Name: " Sehat "}

	resp, err := f.uc.CreateClinic(ctx, identityOf(f.admin, nil), req)
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if resp.Name != "Sehat" || resp.PrimaryDoctorID != nil {
		t.Fatalf("unexpected clinic %+v", resp)
	}

	doctor := f.s.addUser(entity.RoleDoctor, nil)
	resp, err = f.uc.CreateClinic(ctx, identityOf(doctor, nil), req)
	if err != nil {
		t.Fatalf("doctor create: %v", err)
	}
	if resp.PrimaryDoctorID == nil || *resp.PrimaryDoctorID != doctor.ID {
		t.Fatalf("expected doctor as primary, got %v", resp.PrimaryDoctorID)
	}
	if doctor.ClinicID == nil || *doctor.ClinicID != resp.ID {
		t.Fatalf("expected doctor assigned to new clinic, got %v", doctor.ClinicID)
	}

	if _, err := f.uc.CreateClinic(ctx, identityOf(doctor, nil), req); !errors.Is(err, ErrAlreadyInClinic) {
		t.Fatalf("expected ErrAlreadyInClinic, got %v", err)
	}
	assistant := f.s.addUser(entity.RoleAssistant, nil)
	if _, err := f.uc.CreateClinic(ctx, identityOf(assistant, nil), req); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	email := " Nurse@Clinic.test "

	resp, err := f.uc.CreateUser(ctx, f.admin.ID, &dto.CreateUserRequest{
		FullName: "Nurse Joy", Phone: "0811", Email: &email, Password: "secret1", Role: "ASSISTANT",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Email == nil || *resp.Email != "nurse@clinic.test" {
		t.Fatalf("expected normalized email, got %v", resp.Email)
	}

	if _, err := f.uc.CreateUser(ctx, f.admin.ID, &dto.CreateUserRequest{FullName: "X", Phone: "0822", Password: "secret1", Role: "ADMIN"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for admin role, got %v", err)
	}

	f.s.errs["user.create"] = &pgconn.PgError{Code: "23505", ConstraintName: "idx_app_users_phone"}
	if _, err := f.uc.CreateUser(ctx, f.admin.ID, &dto.CreateUserRequest{FullName: "Y", Phone: "0811", Password: "secret1", Role: "DOCTOR"}); !errors.Is(err, ErrPhoneAlreadyExists) {
		t.Fatalf("expected ErrPhoneAlreadyExists, got %v", err)
	}
}

func TestCreateUser_DoctorStartsOnBreak(t *testing.T) {
	f := newAdminFixture()

	resp, err := f.uc.CreateUser(context.Background(), f.admin.ID, &dto.CreateUserRequest{FullName: "Dr. Bima", Phone: "0833", Password: "secret1", Role: "DOCTOR"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.AvailabilityStatus == nil || *resp.AvailabilityStatus != string(entity.AvailabilityOnBreak) {
		t.Fatalf("expected ON_BREAK, got %v", resp.AvailabilityStatus)
	}
}

func TestAssignClinic(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	clinic := f.s.addClinic("Sehat")
	first := f.s.addUser(entity.RoleDoctor, nil)
	second := f.s.addUser(entity.RoleDoctor, nil)

	if _, err := f.uc.AssignClinic(ctx, f.admin.ID, first.ID, &dto.AssignClinicRequest{ClinicID: clinic.ID}); err != nil {
		t.Fatalf("assign first: %v", err)
	}
	if _, err := f.uc.AssignClinic(ctx, f.admin.ID, second.ID, &dto.AssignClinicRequest{ClinicID: clinic.ID}); err != nil {
		t.Fatalf("assign second: %v", err)
	}

	if clinic.PrimaryDoctorID == nil || *clinic.PrimaryDoctorID != first.ID {
		t.Fatalf("expected first doctor as primary, got %v", clinic.PrimaryDoctorID)
	}
	if len(f.deactivator.users) != 2 || f.deactivator.users[0] != first.ID {
		t.Fatalf("expected sessions closed for both doctors, got %v", f.deactivator.users)
	}

	tests := []struct {
		name   string
		userID uuid.UUID
		clinic uuid.UUID
		want   error
	}{
		{"admin", f.admin.ID, clinic.ID, ErrCannotAssignAdmin},
		{"unknown user", uuid.New(), clinic.ID, ErrUserNotFound},
		{"unknown clinic", second.ID, uuid.New(), ErrClinicNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.uc.AssignClinic(ctx, f.admin.ID, tt.userID, &dto.AssignClinicRequest{ClinicID: tt.clinic}); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAssignClinic_MovingPrimaryDoctorHandsOver(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	from := f.s.addClinic("Sehat")
	to := f.s.addClinic("Prima")
	moved := f.s.addUser(entity.RoleDoctor, nil)
	remaining := f.s.addUser(entity.RoleDoctor, nil)
	assistant := f.s.addUser(entity.RoleAssistant, &from.ID)

	for _, doctor := range []*entity.AppUser{moved, remaining} {
		if _, err := f.uc.AssignClinic(ctx, f.admin.ID, doctor.ID, &dto.AssignClinicRequest{ClinicID: from.ID}); err != nil {
			t.Fatalf("assign: %v", err)
		}
	}
	if _, err := f.uc.AssignClinic(ctx, f.admin.ID, moved.ID, &dto.AssignClinicRequest{ClinicID: to.ID}); err != nil {
		t.Fatalf("move: %v", err)
	}

	if from.PrimaryDoctorID == nil || *from.PrimaryDoctorID != remaining.ID {
		t.Fatalf("expected remaining doctor as primary of the old clinic, got %v", from.PrimaryDoctorID)
	}
	if to.PrimaryDoctorID == nil || *to.PrimaryDoctorID != moved.ID {
		t.Fatalf("expected moved doctor as primary of the new clinic, got %v", to.PrimaryDoctorID)
	}

	got, err := resolveDoctorID(ctx, fakeUserRepo{f.s}, fakeClinicRepo{f.s}, identityOf(assistant, nil))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got == nil || *got != remaining.ID {
		t.Fatalf("expected assistant to resolve the remaining doctor, got %v", got)
	}

	if _, err := f.uc.AssignClinic(ctx, f.admin.ID, remaining.ID, &dto.AssignClinicRequest{ClinicID: to.ID}); err != nil {
		t.Fatalf("move last doctor: %v", err)
	}
	if from.PrimaryDoctorID != nil {
		t.Fatalf("expected empty clinic to lose its primary doctor, got %v", from.PrimaryDoctorID)
	}
	if to.PrimaryDoctorID == nil || *to.PrimaryDoctorID != moved.ID {
		t.Fatalf("expected new clinic primary unchanged, got %v", to.PrimaryDoctorID)
	}
}

func TestOverview(t *testing.T) {
	f := newAdminFixture()
	clinic := f.s.addClinic("Sehat")
	doctor := f.s.addUser(entity.RoleDoctor, &clinic.ID)
	clinic.PrimaryDoctorID = &doctor.ID
	f.s.addUser(entity.RoleAssistant, &clinic.ID)
	f.s.addUser(entity.RoleAssistant, nil)

	resp, err := f.uc.Overview(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if resp.TotalUsers != 4 || resp.TotalClinics != 1 {
		t.Fatalf("unexpected totals %+v", resp)
	}
	if resp.Unassigned != 1 {
		t.Fatalf("expected 1 unassigned staff member, got %d", resp.Unassigned)
	}
	if resp.RoleCounts["ASSISTANT"] != 2 || resp.RoleCounts["ADMIN"] != 1 {
		t.Fatalf("unexpected role counts %v", resp.RoleCounts)
	}
	got := resp.Clinics[0]
	if got.StaffCount != 2 || got.PrimaryDoctorName == nil || *got.PrimaryDoctorName != doctor.FullName {
		t.Fatalf("unexpected clinic summary %+v", got)
	}
}
