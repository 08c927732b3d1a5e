package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"clinicflow/config"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/service"
	"clinicflow/pkg/jwt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// memStore backs every fake repository so tests can inspect the rows a
// usecase wrote. Setting a field in errs makes the named call fail.
type memStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*entity.AppUser
	clinics      map[uuid.UUID]*entity.Clinic
	patients     []*entity.Patient
	appointments []*entity.Appointment
	visits       []entity.PatientVisit
	audits       []entity.AuditLog
	clock        time.Time
	errs         map[string]error
	completed    int64
	avgWait      decimal.NullDecimal
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[uuid.UUID]*entity.AppUser),
		clinics: make(map[uuid.UUID]*entity.Clinic),
		clock:   time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		errs:    make(map[string]error),
	}
}

func (s *memStore) fail(call string) error {
	return s.errs[call]
}

// tick hands out strictly increasing creation times
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *memStore) addClinic(name string) *entity.Clinic {
	c := &entity.Clinic{ID: uuid.New(), Name: name}
	s.clinics[c.ID] = c
	return c
}

func (s *memStore) addUser(role entity.Role, clinicID *uuid.UUID) *entity.AppUser {
	u := &entity.AppUser{ID: uuid.New(), Role: role, FullName: string(role) + " user", Phone: uuid.NewString()[:12], ClinicID: clinicID, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return u
}

func (s *memStore) setAvailability(userID uuid.UUID, status entity.AvailabilityStatus) {
	s.users[userID].AvailabilityStatus = &status
}

func (s *memStore) addPatient(clinicID uuid.UUID, name, phone string, status entity.PatientStatus) *entity.Patient {
	p := &entity.Patient{ID: uuid.New(), ClinicID: clinicID, Name: name, Status: status, CreatedAt: s.tick()}
	if phone != "" {
		p.Phone = &phone
	}
	s.patients = append(s.patients, p)
	return p
}

func (s *memStore) addAppointment(clinicID uuid.UUID, name string, at time.Time) *entity.Appointment {
	a := &entity.Appointment{ID: uuid.New(), ClinicID: clinicID, PatientName: name, PatientPhone: "0811" + name, AppointmentTime: at, Status: entity.AppointmentStatusBooked, CreatedAt: s.tick()}
	s.appointments = append(s.appointments, a)
	return a
}

func (s *memStore) patientsIn(clinicID uuid.UUID) []entity.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Patient
	for _, p := range s.patients {
		if p.ClinicID == clinicID {
			out = append(out, *p)
		}
	}
	return out
}

// Transactor

type fakeTransactor struct{}

func (fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Users

type fakeUserRepo struct{ s *memStore }

func (r fakeUserRepo) Create(_ context.Context, user *entity.AppUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("user.create"); err != nil {
		return err
	}
	user.ID = uuid.New()
	user.CreatedAt = r.s.tick()
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.AppUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("user.find"); err != nil {
		return nil, err
	}
	if u, ok := r.s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r fakeUserRepo) findBy(match func(*entity.AppUser) bool) (*entity.AppUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.AppUser, error) {
	return r.findBy(func(u *entity.AppUser) bool { return u.Email != nil && strings.EqualFold(*u.Email, email) })
}

func (r fakeUserRepo) FindByPhone(_ context.Context, phone string) (*entity.AppUser, error) {
	return r.findBy(func(u *entity.AppUser) bool { return u.Phone == phone })
}

func (r fakeUserRepo) FindAll(context.Context) ([]entity.AppUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.AppUser
	for _, u := range r.s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r fakeUserRepo) FindFirstDoctorInClinic(_ context.Context, clinicID uuid.UUID) (*entity.AppUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var first *entity.AppUser
	for _, u := range r.s.users {
		if u.Role == entity.RoleDoctor && u.ClinicID != nil && *u.ClinicID == clinicID {
			if first == nil || u.CreatedAt.Before(first.CreatedAt) {
				first = u
			}
		}
	}
	if first == nil {
		return nil, nil
	}
	copied := *first
	return &copied, nil
}

func (r fakeUserRepo) CountByRole(_ context.Context, role entity.Role) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r fakeUserRepo) AssignClinic(_ context.Context, id uuid.UUID, clinicID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.Role == entity.RoleAdmin {
		return 0, nil
	}
	u.ClinicID = &clinicID
	return 1, nil
}

func (r fakeUserRepo) UpdateAvailability(_ context.Context, id uuid.UUID, status entity.AvailabilityStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.Role != entity.RoleDoctor {
		return 0, nil
	}
	u.AvailabilityStatus = &status
	return 1, nil
}

// Clinics

type fakeClinicRepo struct{ s *memStore }

func (r fakeClinicRepo) Create(_ context.Context, clinic *entity.Clinic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clinic.ID = uuid.New()
	clinic.CreatedAt = r.s.tick()
	copied := *clinic
	r.s.clinics[clinic.ID] = &copied
	return nil
}

func (r fakeClinicRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Clinic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("clinic.find"); err != nil {
		return nil, err
	}
	if c, ok := r.s.clinics[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (r fakeClinicRepo) FindAll(context.Context) ([]entity.Clinic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Clinic
	for _, c := range r.s.clinics {
		out = append(out, *c)
	}
	return out, nil
}

func (r fakeClinicRepo) SetPrimaryDoctorIfEmpty(_ context.Context, id uuid.UUID, doctorID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clinics[id]
	if !ok || c.PrimaryDoctorID != nil {
		return 0, nil
	}
	c.PrimaryDoctorID = &doctorID
	return 1, nil
}

func (r fakeClinicRepo) ReplacePrimaryDoctor(_ context.Context, id uuid.UUID, from uuid.UUID, to *uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clinics[id]
	if !ok || c.PrimaryDoctorID == nil || *c.PrimaryDoctorID != from {
		return 0, nil
	}
	c.PrimaryDoctorID = to
	return 1, nil
}

// Patients

type fakePatientRepo struct{ s *memStore }

func (r fakePatientRepo) FindQueue(_ context.Context, clinicID uuid.UUID) ([]entity.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("patient.queue"); err != nil {
		return nil, err
	}
	var out []entity.Patient
	for _, p := range r.s.patients {
		if p.ClinicID == clinicID && (p.Status == entity.PatientStatusInQueue || p.Status == entity.PatientStatusInTreatment) {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r fakePatientRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.patients {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r fakePatientRepo) occupied(clinicID uuid.UUID, except uuid.UUID) bool {
	for _, p := range r.s.patients {
		if p.ClinicID == clinicID && p.ID != except && p.Status == entity.PatientStatusInTreatment {
			return true
		}
	}
	return false
}

func (r fakePatientRepo) CreateWithAdmission(_ context.Context, patient *entity.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("patient.create"); err != nil {
		return err
	}
	if patient.Status == entity.PatientStatusInTreatment && r.occupied(patient.ClinicID, uuid.Nil) {
		patient.Status = entity.PatientStatusInQueue
	}
	patient.ID = uuid.New()
	patient.CreatedAt = r.s.tick()
	copied := *patient
	r.s.patients = append(r.s.patients, &copied)
	return nil
}

func (r fakePatientRepo) PromoteIfVacant(_ context.Context, clinicID, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.occupied(clinicID, id) {
		return 0, nil
	}
	for _, p := range r.s.patients {
		if p.ID == id && p.ClinicID == clinicID && p.Status == entity.PatientStatusInQueue {
			p.Status = entity.PatientStatusInTreatment
			return 1, nil
		}
	}
	return 0, nil
}

func (r fakePatientRepo) TransitionStatus(_ context.Context, clinicID, id uuid.UUID, from, to entity.PatientStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.patients {
		if p.ID == id && p.ClinicID == clinicID && p.Status == from {
			p.Status = to
			return 1, nil
		}
	}
	return 0, nil
}

func (r fakePatientRepo) FindByPhonePrefix(_ context.Context, clinicID uuid.UUID, prefix string, limit int) ([]entity.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("patient.prefix"); err != nil {
		return nil, err
	}
	var out []entity.Patient
	for _, p := range r.s.patients {
		if p.ClinicID == clinicID && p.Phone != nil && strings.HasPrefix(*p.Phone, prefix) {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakePatientRepo) CountByStatus(_ context.Context, clinicID uuid.UUID, status entity.PatientStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.patients {
		if p.ClinicID == clinicID && p.Status == status {
			n++
		}
	}
	return n, nil
}

// Appointments

type fakeAppointmentRepo struct{ s *memStore }

func (r fakeAppointmentRepo) Create(_ context.Context, appointment *entity.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appointment.ID = uuid.New()
	appointment.CreatedAt = r.s.tick()
	copied := *appointment
	r.s.appointments = append(r.s.appointments, &copied)
	return nil
}

func (r fakeAppointmentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.appointments {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r fakeAppointmentRepo) booked(clinicID uuid.UUID, keep func(time.Time) bool) []entity.Appointment {
	var out []entity.Appointment
	for _, a := range r.s.appointments {
		if a.ClinicID == clinicID && a.Status == entity.AppointmentStatusBooked && keep(a.AppointmentTime) {
			out = append(out, *a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppointmentTime.Before(out[j].AppointmentTime) })
	return out
}

func (r fakeAppointmentRepo) FindBookedSince(_ context.Context, clinicID uuid.UUID, since time.Time) ([]entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("appointment.since"); err != nil {
		return nil, err
	}
	return r.booked(clinicID, func(t time.Time) bool { return !t.Before(since) }), nil
}

func (r fakeAppointmentRepo) FindBookedBetween(_ context.Context, clinicID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.booked(clinicID, func(t time.Time) bool { return !t.Before(from) && t.Before(to) }), nil
}

func (r fakeAppointmentRepo) Cancel(_ context.Context, clinicID, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.appointments {
		if a.ID == id && a.ClinicID == clinicID && a.Status == entity.AppointmentStatusBooked {
			a.Status = entity.AppointmentStatusCancelled
			return 1, nil
		}
	}
	return 0, nil
}

// Visits

type fakeVisitRepo struct{ s *memStore }

func (r fakeVisitRepo) Create(_ context.Context, visit *entity.PatientVisit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	visit.ID = uuid.New()
	r.s.visits = append(r.s.visits, *visit)
	return nil
}

func (r fakeVisitRepo) byPhone(clinicID uuid.UUID, phone string) []entity.PatientVisit {
	var out []entity.PatientVisit
	for _, v := range r.s.visits {
		if v.ClinicID == clinicID && v.PatientPhone != nil && *v.PatientPhone == phone {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VisitDate.After(out[j].VisitDate) })
	return out
}

func (r fakeVisitRepo) CountByPhone(_ context.Context, clinicID uuid.UUID, phone string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("visit.count"); err != nil {
		return 0, err
	}
	return int64(len(r.byPhone(clinicID, phone))), nil
}

func (r fakeVisitRepo) LatestByPhone(_ context.Context, clinicID uuid.UUID, phone string) (*entity.PatientVisit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	visits := r.byPhone(clinicID, phone)
	if len(visits) == 0 {
		return nil, nil
	}
	return &visits[0], nil
}

func (r fakeVisitRepo) ListByPhone(_ context.Context, clinicID uuid.UUID, phone string) ([]entity.PatientVisit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.byPhone(clinicID, phone), nil
}

// Metrics and audit

type fakeMetricsRepo struct{ s *memStore }

func (r fakeMetricsRepo) CompletedToday(context.Context, uuid.UUID) (int64, error) {
	return r.s.completed, nil
}

func (r fakeMetricsRepo) AvgWaitMinutesToday(context.Context, uuid.UUID) (decimal.NullDecimal, error) {
	return r.s.avgWait, nil
}

type fakeAuditRepo struct{ s *memStore }

func (r fakeAuditRepo) Create(_ context.Context, log *entity.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

func (r fakeAuditRepo) FindRecent(_ context.Context, limit int) ([]entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.audits) > limit {
		return r.s.audits[:limit], nil
	}
	return r.s.audits, nil
}

// Sessions

type fakeSessionStore struct {
	mu   sync.Mutex
	live map[string]bool
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{live: make(map[string]bool)}
}

func sessionID(userID uuid.UUID, tokenType jwt.TokenType, tokenID string) string {
	return string(tokenType) + ":" + userID.String() + ":" + tokenID
}

func (f *fakeSessionStore) StorePair(_ context.Context, userID uuid.UUID, accessID, refreshID string, _, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[sessionID(userID, jwt.AccessToken, accessID)] = true
	f.live[sessionID(userID, jwt.RefreshToken, refreshID)] = true
	return nil
}

func (f *fakeSessionStore) Exists(_ context.Context, userID uuid.UUID, tokenType jwt.TokenType, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[sessionID(userID, tokenType, tokenID)], nil
}

func (f *fakeSessionStore) Revoke(_ context.Context, userID uuid.UUID, tokenType jwt.TokenType, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, sessionID(userID, tokenType, tokenID))
	return nil
}

func (f *fakeSessionStore) RevokeAll(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.live {
		if strings.Contains(key, userID.String()) {
			delete(f.live, key)
		}
	}
	return nil
}

type fakeDeactivator struct {
	users  []uuid.UUID
	tokens []string
}

func (f *fakeDeactivator) DeactivateUser(userID uuid.UUID) int {
	f.users = append(f.users, userID)
	return 1
}

func (f *fakeDeactivator) DeactivateToken(tokenID string) int {
	f.tokens = append(f.tokens, tokenID)
	return 1
}

// Wiring helpers

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testJWT() *jwt.JWTService {
	return jwt.NewJWTService(config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	})
}

func testAudit(s *memStore) service.AuditService {
	return service.NewAuditService(quietLogger(), fakeAuditRepo{s})
}

func identityOf(user *entity.AppUser, clinic *entity.Clinic) entity.Identity {
	return entity.Identity{User: *user, Clinic: clinic}
}

var errFailIfCalled = errors.New("unexpected call")
