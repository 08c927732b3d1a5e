package repository

import (
	"context"
	"sync"
	"testing"

	"clinicflow/config"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/infrastructure/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// setupDB connects to the database named by DB_* and applies migrations.
// Tests are skipped when no database is configured.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.DB.Name == "" || cfg.DB.User == "" {
		t.Skip("DB_NAME or DB_USER not set")
	}
	if err := database.MigrateUp(cfg.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := database.NewPostgresConnection(cfg.DB, "test")
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedClinic(t *testing.T, db *gorm.DB) *entity.Clinic {
	t.Helper()
	clinic := &entity.Clinic{Name: "Clinic " + uuid.NewString()[:8]}
	if err := NewClinicRepository(db).Create(context.Background(), clinic); err != nil {
		t.Fatalf("create clinic: %v", err)
	}
	t.Cleanup(func() { db.Delete(&entity.Clinic{}, "id = ?", clinic.ID) })
	return clinic
}

func admit(t *testing.T, db *gorm.DB, clinicID uuid.UUID, name string, phone *string, status entity.PatientStatus) *entity.Patient {
	t.Helper()
	patient := &entity.Patient{ClinicID: clinicID, Name: name, Phone: phone, Status: status}
	if err := NewPatientRepository(db).CreateWithAdmission(context.Background(), patient); err != nil {
		t.Fatalf("admit %s: %v", name, err)
	}
	return patient
}

func TestPatientRepository_CreateWithAdmissionDowngradesWhenChairTaken(t *testing.T) {
	db := setupDB(t)
	clinic := seedClinic(t, db)

	first := admit(t, db, clinic.ID, "Budi", nil, entity.PatientStatusInTreatment)
	if first.Status != entity.PatientStatusInTreatment || first.TreatmentStartedAt == nil {
		t.Fatalf("first admission = %s (started %v), want IN_TREATMENT", first.Status, first.TreatmentStartedAt)
	}

	second := admit(t, db, clinic.ID, "Sari", nil, entity.PatientStatusInTreatment)
	if second.Status != entity.PatientStatusInQueue || second.TreatmentStartedAt != nil {
		t.Fatalf("second admission = %s (started %v), want IN_QUEUE", second.Status, second.TreatmentStartedAt)
	}

	stored, err := NewPatientRepository(db).FindByID(context.Background(), second.ID)
	if err != nil || stored == nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Status != entity.PatientStatusInQueue {
		t.Errorf("stored status = %s, want IN_QUEUE", stored.Status)
	}
}

func TestPatientRepository_ConcurrentAdmissionsKeepOneInTreatment(t *testing.T) {
	db := setupDB(t)
	clinic := seedClinic(t, db)
	repo := NewPatientRepository(db)

	const n = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			patient := &entity.Patient{ClinicID: clinic.ID, Name: "Walk-in", Status: entity.PatientStatusInTreatment}
			if err := repo.CreateWithAdmission(context.Background(), patient); err != nil {
				t.Errorf("admit: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	count, err := repo.CountByStatus(context.Background(), clinic.ID, entity.PatientStatusInTreatment)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("in treatment = %d, want 1", count)
	}
}

func TestPatientRepository_ConcurrentPromotionsPromoteOne(t *testing.T) {
	db := setupDB(t)
	clinic := seedClinic(t, db)
	repo := NewPatientRepository(db)

	const n = 8
	waiting := make([]*entity.Patient, n)
	for i := range waiting {
		waiting[i] = admit(t, db, clinic.ID, "Waiting", nil, entity.PatientStatusInQueue)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		promoted int64
	)
	start := make(chan struct{})
	for _, patient := range waiting {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			<-start
			affected, err := repo.PromoteIfVacant(context.Background(), clinic.ID, id)
			if err != nil {
				t.Errorf("promote: %v", err)
				return
			}
			mu.Lock()
			promoted += affected
			mu.Unlock()
		}(patient.ID)
	}
	close(start)
	wg.Wait()

	if promoted != 1 {
		t.Errorf("promotions = %d, want 1", promoted)
	}
	count, err := repo.CountByStatus(context.Background(), clinic.ID, entity.PatientStatusInTreatment)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("in treatment = %d, want 1", count)
	}
}

func TestPatientRepository_PromoteIfVacantSkipsNonWaiting(t *testing.T) {
	db := setupDB(t)
	clinic := seedClinic(t, db)
	repo := NewPatientRepository(db)
	ctx := context.Background()

	cancelled := admit(t, db, clinic.ID, "Gone", nil, entity.PatientStatusInQueue)
	if _, err := repo.TransitionStatus(ctx, clinic.ID, cancelled.ID, entity.PatientStatusInQueue, entity.PatientStatusCancelled); err != nil {
		t.Fatal(err)
	}
	if affected, err := repo.PromoteIfVacant(ctx, clinic.ID, cancelled.ID); err != nil || affected != 0 {
		t.Errorf("cancelled promotion = (%d, %v), want (0, nil)", affected, err)
	}

	other := seedClinic(t, db)
	waiting := admit(t, db, clinic.ID, "Wrong clinic", nil, entity.PatientStatusInQueue)
	if affected, err := repo.PromoteIfVacant(ctx, other.ID, waiting.ID); err != nil || affected != 0 {
		t.Errorf("cross-clinic promotion = (%d, %v), want (0, nil)", affected, err)
	}
}

func TestPatientRepository_FindByPhonePrefixMatchesWildcardsLiterally(t *testing.T) {
	db := setupDB(t)
	clinic := seedClinic(t, db)
	repo := NewPatientRepository(db)

	phones := []string{"08%1", "0801", "08_1", "0821", `08\1`}
	for _, phone := range phones {
		admit(t, db, clinic.ID, "Patient "+phone, &phone, entity.PatientStatusInQueue)
	}

	tests := []struct {
		prefix string
		want   string
	}{
		{"08%", "08%1"},
		{"08_", "08_1"},
		{`08\`, `08\1`},
		{"080", "0801"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := repo.FindByPhonePrefix(context.Background(), clinic.ID, tt.prefix, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0].Phone == nil || *got[0].Phone != tt.want {
				var matched []string
				for _, p := range got {
					matched = append(matched, *p.Phone)
				}
				t.Errorf("prefix %q matched %v, want [%s]", tt.prefix, matched, tt.want)
			}
		})
	}
}

func TestClinicRepository_ReplacePrimaryDoctor(t *testing.T) {
	db := setupDB(t)
	clinic := seedClinic(t, db)
	users := NewUserRepository(db)
	clinics := NewClinicRepository(db)
	ctx := context.Background()

	newDoctor := func() *entity.AppUser {
		doctor := &entity.AppUser{
			Role:         entity.RoleDoctor,
			FullName:     "Doctor",
			Phone:        uuid.NewString()[:20],
			PasswordHash: "x",
			ClinicID:     &clinic.ID,
		}
		if err := users.Create(ctx, doctor); err != nil {
			t.Fatalf("create doctor: %v", err)
		}
		t.Cleanup(func() { db.Delete(&entity.AppUser{}, "id = ?", doctor.ID) })
		return doctor
	}
	first, second := newDoctor(), newDoctor()

	if _, err := clinics.SetPrimaryDoctorIfEmpty(ctx, clinic.ID, first.ID); err != nil {
		t.Fatal(err)
	}

	if affected, err := clinics.ReplacePrimaryDoctor(ctx, clinic.ID, second.ID, nil); err != nil || affected != 0 {
		t.Fatalf("replace from non-primary = (%d, %v), want (0, nil)", affected, err)
	}
	if affected, err := clinics.ReplacePrimaryDoctor(ctx, clinic.ID, first.ID, &second.ID); err != nil || affected != 1 {
		t.Fatalf("hand over = (%d, %v), want (1, nil)", affected, err)
	}
	if affected, err := clinics.ReplacePrimaryDoctor(ctx, clinic.ID, second.ID, nil); err != nil || affected != 1 {
		t.Fatalf("clear = (%d, %v), want (1, nil)", affected, err)
	}

	stored, err := clinics.FindByID(ctx, clinic.ID)
	if err != nil || stored == nil {
		t.Fatalf("find: %v", err)
	}
	if stored.PrimaryDoctorID != nil {
		t.Errorf("primary doctor = %v, want none", stored.PrimaryDoctorID)
	}
}
