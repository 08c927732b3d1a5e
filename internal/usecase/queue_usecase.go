package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinicflow/internal/converter"
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/queue"
	"clinicflow/internal/domain/repository"
	"clinicflow/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAppointmentNotBooked = errors.New("appointment is no longer booked")
	ErrInvalidTransition    = errors.New("patient status does not allow this action")
	ErrInvalidSlot          = errors.New("appointments start every 30 minutes between 09:00 and 16:30")
	ErrSlotInPast           = errors.New("appointment time has already passed")
	ErrSlotTaken            = errors.New("this time slot is already booked")
	ErrInvalidDate          = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidStatus        = errors.New("status must be READY or ON_BREAK")
	ErrNotDoctor            = errors.New("only doctors can change availability")
)

const (
	firstSlotHour = 9
	lastSlotHour  = 16
	slotLength    = 30 * time.Minute
)

type QueueUsecase interface {
	RegisterWalkIn(ctx context.Context, actor entity.Identity, req *dto.RegisterWalkInRequest) (*dto.PatientResponse, error)
	ScheduleAppointment(ctx context.Context, actor entity.Identity, req *dto.ScheduleAppointmentRequest) (*dto.AppointmentResponse, error)
	AvailableSlots(ctx context.Context, actor entity.Identity, date string) (*dto.SlotsResponse, error)
	MarkArrived(ctx context.Context, actor entity.Identity, appointmentID uuid.UUID) (*dto.PatientResponse, error)
	CancelAppointment(ctx context.Context, actor entity.Identity, appointmentID uuid.UUID) error
	CancelPatient(ctx context.Context, actor entity.Identity, patientID uuid.UUID) error
	CompleteTreatment(ctx context.Context, actor entity.Identity, patientID uuid.UUID, req *dto.CompleteTreatmentRequest) error
	SetAvailability(ctx context.Context, actor entity.Identity, req *dto.SetAvailabilityRequest) error
	VisitHistory(ctx context.Context, actor entity.Identity, phone string) (*dto.VisitHistoryResponse, error)
	Metrics(ctx context.Context, actor entity.Identity) (*dto.MetricsResponse, error)
}

type queueUsecase struct {
	log             *logrus.Logger
	transactor      repository.Transactor
	userRepo        repository.UserRepository
	clinicRepo      repository.ClinicRepository
	patientRepo     repository.PatientRepository
	appointmentRepo repository.AppointmentRepository
	visitRepo       repository.VisitRepository
	metricsRepo     repository.MetricsRepository
	auditService    service.AuditService
	loc             *time.Location
	now             func() time.Time
}

func NewQueueUsecase(
	log *logrus.Logger,
	transactor repository.Transactor,
	userRepo repository.UserRepository,
	clinicRepo repository.ClinicRepository,
	patientRepo repository.PatientRepository,
	appointmentRepo repository.AppointmentRepository,
	visitRepo repository.VisitRepository,
	metricsRepo repository.MetricsRepository,
	auditService service.AuditService,
	loc *time.Location,
) QueueUsecase {
	return &queueUsecase{
		log:             log,
		transactor:      transactor,
		userRepo:        userRepo,
		clinicRepo:      clinicRepo,
		patientRepo:     patientRepo,
		appointmentRepo: appointmentRepo,
		visitRepo:       visitRepo,
		metricsRepo:     metricsRepo,
		auditService:    auditService,
		loc:             loc,
		now:             time.Now,
	}
}

// RegisterWalkIn admits a patient straight into treatment when the doctor is
// READY and the chair is free, otherwise into the queue.
func (u *queueUsecase) RegisterWalkIn(ctx context.Context, actor entity.Identity, req *dto.RegisterWalkInRequest) (*dto.PatientResponse, error) {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return nil, err
	}

	status, err := u.admissionStatus(ctx, actor, clinicID)
	if err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(req.Phone)
	patient := &entity.Patient{
		ClinicID:  clinicID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     &phone,
		Treatment: trimmedOrNil(req.Treatment),
		Status:    status,
	}

	if err := u.patientRepo.CreateWithAdmission(ctx, patient); err != nil {
		u.log.Warnf("Failed to register walk-in: %+v", err)
		return nil, err
	}

	u.auditService.LogCreate(ctx, &actor.User.ID, entity.AuditActionPatientRegister, "patient", patient.ID.String(),
		map[string]any{"status": patient.Status})

	return converter.PatientToResponse(patient), nil
}

func (u *queueUsecase) admissionStatus(ctx context.Context, actor entity.Identity, clinicID uuid.UUID) (entity.PatientStatus, error) {
	doctorID, err := resolveDoctorID(ctx, u.userRepo, u.clinicRepo, actor)
	if err != nil {
		u.log.Warnf("Failed to resolve doctor: %+v", err)
		return "", err
	}
	availability, err := doctorAvailability(ctx, u.userRepo, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor availability: %+v", err)
		return "", err
	}
	patients, err := u.patientRepo.FindQueue(ctx, clinicID)
	if err != nil {
		u.log.Warnf("Failed to find queue: %+v", err)
		return "", err
	}
	return queue.AdmissionStatus(availability, toQueueEntries(patients)), nil
}

func (u *queueUsecase) ScheduleAppointment(ctx context.Context, actor entity.Identity, req *dto.ScheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return nil, err
	}

	// 1. Parse the slot in clinic time
	slot, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, u.loc)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	if !isSlotStart(slot) {
		return nil, ErrInvalidSlot
	}
	if slot.Before(u.now()) {
		return nil, ErrSlotInPast
	}

	// 2. Reject a taken slot
	booked, err := u.appointmentRepo.FindBookedBetween(ctx, clinicID, slot, slot.Add(slotLength))
	if err != nil {
		u.log.Warnf("Failed to check slot: %+v", err)
		return nil, err
	}
	if len(booked) > 0 {
		return nil, ErrSlotTaken
	}

	// 3. Book
	appointment := &entity.Appointment{
		ClinicID:        clinicID,
		PatientName:     strings.TrimSpace(req.PatientName),
		PatientPhone:    strings.TrimSpace(req.PatientPhone),
		Treatment:       trimmedOrNil(req.Treatment),
		AppointmentTime: slot,
		Status:          entity.AppointmentStatusBooked,
	}
	if err := u.appointmentRepo.Create(ctx, appointment); err != nil {
		if isDuplicateKeyError(err, "slot") {
			return nil, ErrSlotTaken
		}
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.auditService.LogCreate(ctx, &actor.User.ID, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(),
		map[string]any{"appointment_time": appointment.AppointmentTime})

	return converter.AppointmentToResponse(appointment), nil
}

// AvailableSlots lists the day's half-hour slots, disabling booked ones
func (u *queueUsecase) AvailableSlots(ctx context.Context, actor entity.Identity, date string) (*dto.SlotsResponse, error) {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation("2006-01-02", date, u.loc)
	if err != nil {
		return nil, ErrInvalidDate
	}

	booked, err := u.appointmentRepo.FindBookedBetween(ctx, clinicID, day, day.AddDate(0, 0, 1))
	if err != nil {
		u.log.Warnf("Failed to find booked appointments: %+v", err)
		return nil, err
	}

	return converter.SlotsToResponse(date, buildSlots(booked, u.loc)), nil
}

func buildSlots(booked []entity.Appointment, loc *time.Location) []entity.TimeSlot {
	taken := make(map[string]bool, len(booked))
	for _, appointment := range booked {
		taken[appointment.AppointmentTime.In(loc).Format("15:04")] = true
	}

	var slots []entity.TimeSlot
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		for _, m := range []int{0, 30} {
			label := fmt.Sprintf("%02d:%02d", h, m)
			slots = append(slots, entity.TimeSlot{Time: label, Disabled: taken[label]})
		}
	}
	return slots
}

func isSlotStart(t time.Time) bool {
	return t.Hour() >= firstSlotHour && t.Hour() <= lastSlotHour &&
		(t.Minute() == 0 || t.Minute() == 30) && t.Second() == 0
}

// MarkArrived converts a booked appointment into a queue entry. Insert and
// cancel commit together; losing the race to another session rolls back.
func (u *queueUsecase) MarkArrived(ctx context.Context, actor entity.Identity, appointmentID uuid.UUID) (*dto.PatientResponse, error) {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return nil, err
	}

	appointment, err := u.findAppointment(ctx, clinicID, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appointment.IsBooked() {
		return nil, ErrAppointmentNotBooked
	}

	status, err := u.admissionStatus(ctx, actor, clinicID)
	if err != nil {
		return nil, err
	}

	patient := appointment.ToPatient(status)
	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := u.patientRepo.CreateWithAdmission(ctx, patient); err != nil {
			return err
		}
		rows, err := u.appointmentRepo.Cancel(ctx, clinicID, appointment.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAppointmentNotBooked
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrAppointmentNotBooked) {
			u.log.Warnf("Failed to mark appointment arrived: %+v", err)
		}
		return nil, err
	}

	u.auditService.LogUpdate(ctx, &actor.User.ID, entity.AuditActionAppointmentArrive, "appointment", appointment.ID.String(),
		map[string]any{"status": entity.AppointmentStatusBooked},
		map[string]any{"status": entity.AppointmentStatusCancelled, "patient_id": patient.ID})

	return converter.PatientToResponse(patient), nil
}

func (u *queueUsecase) CancelAppointment(ctx context.Context, actor entity.Identity, appointmentID uuid.UUID) error {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return err
	}

	if _, err := u.findAppointment(ctx, clinicID, appointmentID); err != nil {
		return err
	}

	rows, err := u.appointmentRepo.Cancel(ctx, clinicID, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to cancel appointment: %+v", err)
		return err
	}
	if rows == 0 {
		return ErrAppointmentNotBooked
	}

	u.auditService.LogUpdate(ctx, &actor.User.ID, entity.AuditActionAppointmentCancel, "appointment", appointmentID.String(),
		map[string]any{"status": entity.AppointmentStatusBooked}, map[string]any{"status": entity.AppointmentStatusCancelled})

	return nil
}

// CancelPatient only removes patients still waiting
func (u *queueUsecase) CancelPatient(ctx context.Context, actor entity.Identity, patientID uuid.UUID) error {
	return u.transition(ctx, actor, patientID, entity.PatientStatusInQueue, entity.PatientStatusCancelled, entity.AuditActionPatientCancel)
}

// CompleteTreatment closes the visit and appends its history row, keyed by phone
func (u *queueUsecase) CompleteTreatment(ctx context.Context, actor entity.Identity, patientID uuid.UUID, req *dto.CompleteTreatmentRequest) error {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return err
	}

	patient, err := u.findPatient(ctx, clinicID, patientID)
	if err != nil {
		return err
	}
	if !patient.Status.CanTransitionTo(entity.PatientStatusCompleted) {
		return ErrInvalidTransition
	}

	treatment := patient.Treatment
	if t := trimmedOrNil(req.Treatment); t != nil {
		treatment = t
	}

	err = u.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		rows, err := u.patientRepo.TransitionStatus(ctx, clinicID, patient.ID, entity.PatientStatusInTreatment, entity.PatientStatusCompleted)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidTransition
		}

		return u.visitRepo.Create(ctx, &entity.PatientVisit{
			ClinicID:     clinicID,
			PatientName:  patient.Name,
			PatientPhone: patient.Phone,
			Treatment:    treatment,
			Notes:        trimmedOrNil(req.Notes),
			VisitDate:    u.now(),
		})
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) {
			u.log.Warnf("Failed to complete treatment: %+v", err)
		}
		return err
	}

	u.auditService.LogUpdate(ctx, &actor.User.ID, entity.AuditActionPatientComplete, "patient", patient.ID.String(),
		map[string]any{"status": entity.PatientStatusInTreatment}, map[string]any{"status": entity.PatientStatusCompleted})

	return nil
}

func (u *queueUsecase) transition(ctx context.Context, actor entity.Identity, patientID uuid.UUID, from, to entity.PatientStatus, action string) error {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return err
	}

	patient, err := u.findPatient(ctx, clinicID, patientID)
	if err != nil {
		return err
	}
	if patient.Status != from || !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}

	rows, err := u.patientRepo.TransitionStatus(ctx, clinicID, patientID, from, to)
	if err != nil {
		u.log.Warnf("Failed to update patient status: %+v", err)
		return err
	}
	if rows == 0 {
		return ErrInvalidTransition
	}

	u.auditService.LogUpdate(ctx, &actor.User.ID, action, "patient", patientID.String(),
		map[string]any{"status": from}, map[string]any{"status": to})

	return nil
}

// SetAvailability is only ever applied to the calling doctor's own profile
func (u *queueUsecase) SetAvailability(ctx context.Context, actor entity.Identity, req *dto.SetAvailabilityRequest) error {
	if actor.User.Role != entity.RoleDoctor {
		return ErrNotDoctor
	}

	status := entity.AvailabilityStatus(req.Status)
	if !status.IsValid() {
		return ErrInvalidStatus
	}

	rows, err := u.userRepo.UpdateAvailability(ctx, actor.User.ID, status)
	if err != nil {
		u.log.Warnf("Failed to update availability: %+v", err)
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	u.auditService.LogUpdate(ctx, &actor.User.ID, entity.AuditActionAvailabilityUpdate, "app_user", actor.User.ID.String(),
		map[string]any{"availability_status": actor.User.Availability()}, map[string]any{"availability_status": status})

	return nil
}

func (u *queueUsecase) VisitHistory(ctx context.Context, actor entity.Identity, phone string) (*dto.VisitHistoryResponse, error) {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return nil, err
	}

	phone = strings.TrimSpace(phone)
	visits, err := u.visitRepo.ListByPhone(ctx, clinicID, phone)
	if err != nil {
		u.log.Warnf("Failed to list visit history: %+v", err)
		return nil, err
	}

	responses := converter.VisitsToResponses(visits, u.now())
	return &dto.VisitHistoryResponse{Phone: phone, Visits: responses, Total: len(responses)}, nil
}

func (u *queueUsecase) Metrics(ctx context.Context, actor entity.Identity) (*dto.MetricsResponse, error) {
	clinicID, err := clinicOf(actor)
	if err != nil {
		return nil, err
	}

	var metrics entity.ClinicMetrics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metrics.CompletedToday, err = u.metricsRepo.CompletedToday(gctx, clinicID)
		return err
	})
	g.Go(func() error {
		var err error
		metrics.WaitingCount, err = u.patientRepo.CountByStatus(gctx, clinicID, entity.PatientStatusInQueue)
		return err
	})
	g.Go(func() error {
		var err error
		metrics.AvgWaitMins, err = u.metricsRepo.AvgWaitMinutesToday(gctx, clinicID)
		return err
	})
	if err := g.Wait(); err != nil {
		u.log.Warnf("Failed to load clinic metrics: %+v", err)
		return nil, err
	}

	if metrics.AvgWaitMins.Valid {
		metrics.AvgWaitMins.Decimal = metrics.AvgWaitMins.Decimal.Round(0)
	}

	return converter.MetricsToResponse(&metrics), nil
}

func (u *queueUsecase) findPatient(ctx context.Context, clinicID, patientID uuid.UUID) (*entity.Patient, error) {
	patient, err := u.patientRepo.FindByID(ctx, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return nil, err
	}
	if patient == nil || patient.ClinicID != clinicID {
		return nil, ErrPatientNotFound
	}
	return patient, nil
}

func (u *queueUsecase) findAppointment(ctx context.Context, clinicID, appointmentID uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil || appointment.ClinicID != clinicID {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
