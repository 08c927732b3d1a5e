package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/queue"
	"clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// errAlreadyPromoted rolls back a promotion another session won
var errAlreadyPromoted = errors.New("appointment already promoted")

const enrichConcurrency = 8

// WorkspaceUsecase is the read side of a clinic workspace plus the two
// writes a session issues on its own: appointment promotion and auto-assignment.
type WorkspaceUsecase interface {
	ResolveDoctorID(ctx context.Context, identity entity.Identity) *uuid.UUID
	PromoteTodayAppointments(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID) (int, error)
	Refresh(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID) entity.WorkspaceSnapshot
	AutoAssign(ctx context.Context, clinicID, patientID uuid.UUID) (bool, error)
}

type workspaceUsecase struct {
	log             *logrus.Logger
	transactor      repository.Transactor
	userRepo        repository.UserRepository
	clinicRepo      repository.ClinicRepository
	patientRepo     repository.PatientRepository
	appointmentRepo repository.AppointmentRepository
	visitRepo       repository.VisitRepository
	loc             *time.Location
	now             func() time.Time
}

func NewWorkspaceUsecase(
	log *logrus.Logger,
	transactor repository.Transactor,
	userRepo repository.UserRepository,
	clinicRepo repository.ClinicRepository,
	patientRepo repository.PatientRepository,
	appointmentRepo repository.AppointmentRepository,
	visitRepo repository.VisitRepository,
	loc *time.Location,
) WorkspaceUsecase {
	return &workspaceUsecase{
		log:             log,
		transactor:      transactor,
		userRepo:        userRepo,
		clinicRepo:      clinicRepo,
		patientRepo:     patientRepo,
		appointmentRepo: appointmentRepo,
		visitRepo:       visitRepo,
		loc:             loc,
		now:             time.Now,
	}
}

func (u *workspaceUsecase) ResolveDoctorID(ctx context.Context, identity entity.Identity) *uuid.UUID {
	doctorID, err := resolveDoctorID(ctx, u.userRepo, u.clinicRepo, identity)
	if err != nil {
		u.log.Warnf("Failed to resolve doctor for workspace: %+v", err)
		return nil
	}
	return doctorID
}

// PromoteTodayAppointments moves every BOOKED appointment from the start of
// today onward into the live queue. Each appointment is inserted and
// cancelled in one transaction, so running it twice promotes nothing new.
func (u *workspaceUsecase) PromoteTodayAppointments(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID) (int, error) {
	// 1. Start of today is computed once
	since := startOfDay(u.now(), u.loc)

	appointments, err := u.appointmentRepo.FindBookedSince(ctx, clinicID, since)
	if err != nil {
		return 0, fmt.Errorf("find booked appointments: %w", err)
	}
	if len(appointments) == 0 {
		return 0, nil
	}

	// 2. Initial status follows doctor readiness, same as a walk-in
	status, err := u.admissionStatus(ctx, clinicID, doctorID)
	if err != nil {
		return 0, err
	}

	// 3. Promote one by one
	promoted := 0
	for _, appointment := range appointments {
		err := u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := u.patientRepo.CreateWithAdmission(ctx, appointment.ToPatient(status)); err != nil {
				return err
			}
			rows, err := u.appointmentRepo.Cancel(ctx, clinicID, appointment.ID)
			if err != nil {
				return err
			}
			if rows == 0 {
				return errAlreadyPromoted
			}
			return nil
		})
		if errors.Is(err, errAlreadyPromoted) {
			continue
		}
		if err != nil {
			return promoted, fmt.Errorf("promote appointment %s: %w", appointment.ID, err)
		}
		promoted++
	}

	return promoted, nil
}

func (u *workspaceUsecase) admissionStatus(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID) (entity.PatientStatus, error) {
	availability, err := doctorAvailability(ctx, u.userRepo, doctorID)
	if err != nil {
		return "", fmt.Errorf("find doctor availability: %w", err)
	}
	patients, err := u.patientRepo.FindQueue(ctx, clinicID)
	if err != nil {
		return "", fmt.Errorf("find queue: %w", err)
	}
	return queue.AdmissionStatus(availability, toQueueEntries(patients)), nil
}

// Refresh reads the whole workspace. It never fails: unreadable parts come
// back empty, and DoctorStatus is nil when it could not be read.
func (u *workspaceUsecase) Refresh(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID) entity.WorkspaceSnapshot {
	snapshot := entity.WorkspaceSnapshot{
		ClinicID:     clinicID,
		Queue:        []entity.QueueEntry{},
		Appointments: []entity.Appointment{},
	}
	since := startOfDay(u.now(), u.loc)

	var g errgroup.Group

	g.Go(func() error {
		snapshot.Queue = u.fetchQueue(ctx, clinicID)
		return nil
	})

	g.Go(func() error {
		appointments, err := u.appointmentRepo.FindBookedSince(ctx, clinicID, since)
		if err != nil {
			u.log.Warnf("Failed to fetch appointments: %+v", err)
			return nil
		}
		if appointments != nil {
			snapshot.Appointments = appointments
		}
		return nil
	})

	if doctorID != nil {
		g.Go(func() error {
			status, err := doctorAvailability(ctx, u.userRepo, doctorID)
			if err != nil {
				u.log.Warnf("Failed to fetch doctor status: %+v", err)
				return nil
			}
			snapshot.DoctorStatus = &status
			return nil
		})
	}

	g.Wait()
	snapshot.FetchedAt = u.now()
	return snapshot
}

func (u *workspaceUsecase) fetchQueue(ctx context.Context, clinicID uuid.UUID) []entity.QueueEntry {
	patients, err := u.patientRepo.FindQueue(ctx, clinicID)
	if err != nil {
		u.log.Warnf("Failed to fetch queue: %+v", err)
		return []entity.QueueEntry{}
	}

	entries := toQueueEntries(patients)

	var g errgroup.Group
	g.SetLimit(enrichConcurrency)
	for i := range entries {
		if !entries[i].HasPhone() {
			continue
		}
		entry := &entries[i]
		g.Go(func() error {
			u.enrich(ctx, clinicID, entry)
			return nil
		})
	}
	g.Wait()

	return queue.Sort(entries)
}

// enrich joins visit history by phone. Both lookups must succeed or the
// entry keeps its zero-visit default.
func (u *workspaceUsecase) enrich(ctx context.Context, clinicID uuid.UUID, entry *entity.QueueEntry) {
	var (
		count  int64
		latest *entity.PatientVisit
	)
	phone := *entry.Phone

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = u.visitRepo.CountByPhone(gctx, clinicID, phone)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = u.visitRepo.LatestByPhone(gctx, clinicID, phone)
		return err
	})
	if err := g.Wait(); err != nil {
		u.log.Debugf("Visit history unavailable for patient %s: %+v", entry.ID, err)
		return
	}

	entry.VisitCount = int(count)
	entry.IsReturning = count > 0
	if latest != nil {
		visitDate := latest.VisitDate
		entry.LastVisitAt = &visitDate
		entry.LastVisitTreatment = latest.Treatment
	}
}

// AutoAssign moves patientID into treatment only if it is still waiting and
// the chair is still free. A false result means another writer got there first.
func (u *workspaceUsecase) AutoAssign(ctx context.Context, clinicID, patientID uuid.UUID) (bool, error) {
	rows, err := u.patientRepo.PromoteIfVacant(ctx, clinicID, patientID)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
