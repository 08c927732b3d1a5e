package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/domain/repository"
	"clinicflow/pkg/timefmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	lookupFetchLimit     = 20
	lookupMaxSuggestions = 3
	// below this many digits an open returning-patient badge is cleared too
	lookupKeepReturningDigits = 3
)

// LookupUsecase is phone-number autocomplete for the registration form
type LookupUsecase interface {
	LookupPhone(ctx context.Context, clinicID uuid.UUID, prefix string) (*entity.PhoneLookup, error)
	ReturningSummary(ctx context.Context, clinicID uuid.UUID, phone string, registeredAt time.Time) string
}

type lookupUsecase struct {
	log         *logrus.Logger
	patientRepo repository.PatientRepository
	visitRepo   repository.VisitRepository
	minDigits   int
	now         func() time.Time
}

func NewLookupUsecase(log *logrus.Logger, patientRepo repository.PatientRepository, visitRepo repository.VisitRepository, minDigits int) LookupUsecase {
	return &lookupUsecase{
		log:         log,
		patientRepo: patientRepo,
		visitRepo:   visitRepo,
		minDigits:   minDigits,
		now:         time.Now,
	}
}

// LookupPhone matches prefix against phones already seen at the clinic.
// One distinct phone auto-fills; several become suggestions.
func (u *lookupUsecase) LookupPhone(ctx context.Context, clinicID uuid.UUID, prefix string) (*entity.PhoneLookup, error) {
	prefix = strings.TrimSpace(prefix)
	result := &entity.PhoneLookup{Phone: prefix, Suggestions: []entity.PhoneSuggestion{}}

	if len(prefix) < u.minDigits {
		result.ClearReturning = len(prefix) < lookupKeepReturningDigits
		return result, nil
	}

	patients, err := u.patientRepo.FindByPhonePrefix(ctx, clinicID, prefix, lookupFetchLimit)
	if err != nil {
		return nil, err
	}

	// Newest row per phone wins
	seen := make(map[string]bool)
	var distinct []entity.PhoneSuggestion
	for _, p := range patients {
		if !p.HasPhone() || seen[*p.Phone] {
			continue
		}
		seen[*p.Phone] = true
		distinct = append(distinct, entity.PhoneSuggestion{Name: p.Name, Phone: *p.Phone, LastSeenAt: p.CreatedAt})
		if len(distinct) == lookupMaxSuggestions {
			break
		}
	}

	switch len(distinct) {
	case 0:
		result.ClearReturning = true
	case 1:
		match := distinct[0]
		result.Match = &match
		result.IsReturning = true
		result.ReturningInfo = u.ReturningSummary(ctx, clinicID, match.Phone, match.LastSeenAt)
	default:
		result.Suggestions = distinct
		result.ClearReturning = true
	}

	return result, nil
}

// ReturningSummary describes the last completed visit for phone, falling
// back to when the phone was first registered.
func (u *lookupUsecase) ReturningSummary(ctx context.Context, clinicID uuid.UUID, phone string, registeredAt time.Time) string {
	now := u.now()

	visit, err := u.visitRepo.LatestByPhone(ctx, clinicID, phone)
	if err != nil {
		u.log.Debugf("Failed to load last visit for lookup: %+v", err)
	}
	if visit == nil {
		return "Registered " + timefmt.Relative(registeredAt, now)
	}

	treatment := "Checkup"
	if visit.Treatment != nil && *visit.Treatment != "" {
		treatment = *visit.Treatment
	}
	return fmt.Sprintf("Last visit: %s · %s", treatment, timefmt.Relative(visit.VisitDate, now))
}
