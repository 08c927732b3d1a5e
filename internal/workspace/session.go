package workspace

import (
	"context"
	"sync"

	"clinicflow/config"
	"clinicflow/internal/changefeed"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/usecase"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Subscriber hands out clinic-scoped change subscriptions
type Subscriber interface {
	Subscribe(clinicID uuid.UUID) *changefeed.Subscription
	SubscriberCount(clinicID uuid.UUID) int
}

type refreshResult struct {
	seq      uint64
	snapshot entity.WorkspaceSnapshot
}

type assignResult struct {
	patientID uuid.UUID
	promoted  bool
	err       error
}

// Session is one open screen's workspace. A single goroutine (Run) owns the
// state; everything slow runs in helpers that report back over channels.
type Session struct {
	ID       uuid.UUID
	identity entity.Identity
	tokenID  string
	clinicID uuid.UUID

	log       *logrus.Logger
	workspace usecase.WorkspaceUsecase
	lookup    usecase.LookupUsecase
	feed      Subscriber
	cfg       config.WorkspaceConfig
	onExit    func(*Session)

	updates  chan State
	lookups  chan string
	selects  chan string
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func newSession(
	log *logrus.Logger,
	workspace usecase.WorkspaceUsecase,
	lookup usecase.LookupUsecase,
	feed Subscriber,
	cfg config.WorkspaceConfig,
	identity entity.Identity,
	tokenID string,
) (*Session, error) {
	if !identity.User.HasClinic() {
		return nil, usecase.ErrClinicRequired
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:        uuid.New(),
		identity:  identity,
		tokenID:   tokenID,
		clinicID:  *identity.User.ClinicID,
		log:       log,
		workspace: workspace,
		lookup:    lookup,
		feed:      feed,
		cfg:       cfg,
		updates:   make(chan State, 1),
		lookups:   make(chan string, 1),
		selects:   make(chan string, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

func (s *Session) UserID() uuid.UUID {
	return s.identity.User.ID
}

func (s *Session) TokenID() string {
	return s.tokenID
}

func (s *Session) ClinicID() uuid.UUID {
	return s.clinicID
}

// Updates delivers the newest state; a slow reader only sees the latest.
// The channel is closed when the session ends.
func (s *Session) Updates() <-chan State {
	return s.updates
}

// Done is closed once Run has returned
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Lookup feeds a phone-field keystroke into the debounced autocomplete
func (s *Session) Lookup(prefix string) {
	select {
	case <-s.ctx.Done():
	default:
		offerLatest(s.lookups, prefix)
	}
}

// SelectSuggestion fills the form from one of the current suggestions
func (s *Session) SelectSuggestion(phone string) {
	select {
	case <-s.ctx.Done():
	default:
		offerLatest(s.selects, phone)
	}
}

// Close deactivates the session. Safe to call more than once.
func (s *Session) Close() {
	s.stopOnce.Do(s.cancel)
}

// Run activates the workspace and serves it until ctx ends or Close is
// called. Activation order: subscribe, resolve the doctor, promote today's
// appointments, refresh. Subscribing first means nothing that changes during
// activation is missed.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)
	if s.onExit != nil {
		defer s.onExit(s)
	}

	stop := context.AfterFunc(ctx, s.Close)
	defer stop()
	defer s.Close()
	ctx = s.ctx

	// 1. Subscribe
	sub := s.feed.Subscribe(s.clinicID)
	defer sub.Close()

	// 2. Resolve the doctor whose status gates the queue
	doctorID := s.workspace.ResolveDoctorID(ctx, s.identity)

	// 3. Promote; failures only cost a missed promotion until next activation
	promoted, err := s.workspace.PromoteTodayAppointments(ctx, s.clinicID, doctorID)
	if err != nil {
		s.log.Warnf("Failed to promote today's appointments for clinic %s: %+v", s.clinicID, err)
	} else if promoted > 0 {
		s.log.Infof("Promoted %d appointment(s) for clinic %s", promoted, s.clinicID)
	}

	debouncer := NewDebouncer(ctx, s.cfg.LookupDebounce, s.cfg.LookupMinDigits,
		func(ctx context.Context, prefix string) (*entity.PhoneLookup, error) {
			return s.lookup.LookupPhone(ctx, s.clinicID, prefix)
		})
	defer debouncer.Stop()

	var (
		state      = NewState(s.clinicID, doctorID)
		refreshes  = make(chan refreshResult, 1)
		settles    = make(chan assignResult, 1)
		started    uint64
		refreshing bool
		pending    bool
	)

	apply := func(ev Event) bool {
		next, changed := Reduce(state, ev)
		if changed {
			state = next
			offerLatest(s.updates, state)
		}
		return changed
	}

	requestRefresh := func() {
		if refreshing {
			pending = true
			return
		}
		refreshing = true
		started++
		seq := started
		go func() {
			snapshot := s.workspace.Refresh(ctx, s.clinicID, doctorID)
			select {
			case refreshes <- refreshResult{seq: seq, snapshot: snapshot}:
			case <-ctx.Done():
			}
		}()
	}

	evaluate := func() {
		patientID, ok := state.NextAssignment()
		if !ok || !apply(AssignmentIssued{PatientID: patientID}) {
			return
		}
		go func() {
			promoted, err := s.workspace.AutoAssign(ctx, s.clinicID, patientID)
			select {
			case settles <- assignResult{patientID: patientID, promoted: promoted, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	// 4. Initial refresh, then the event loop
	requestRefresh()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			s.handleFeedEvent(ev, requestRefresh, apply)
			evaluate()

		case res := <-refreshes:
			refreshing = false
			apply(RefreshCompleted{Seq: res.seq, Snapshot: res.snapshot})
			if pending {
				pending = false
				requestRefresh()
			}
			evaluate()

		case res := <-settles:
			if res.err != nil {
				s.log.Warnf("Auto-assignment of patient %s failed: %+v", res.patientID, res.err)
			}
			apply(AssignmentSettled{PatientID: res.patientID, Promoted: res.promoted, LastRefresh: started})
			// A lost race produces no feed event of its own. A failed write
			// waits for the next change instead of retrying in a loop.
			if !res.promoted && res.err == nil {
				requestRefresh()
			}

		case prefix := <-s.lookups:
			debouncer.Submit(prefix)

		case phone := <-s.selects:
			s.selectSuggestion(state, phone, debouncer)

		case result := <-debouncer.Results():
			apply(LookupCompleted{Result: result})
		}
	}
}

func (s *Session) handleFeedEvent(ev changefeed.Event, requestRefresh func(), apply func(Event) bool) {
	switch e := ev.(type) {
	case changefeed.PatientChanged, changefeed.AppointmentChanged, changefeed.FeedResumed:
		requestRefresh()
	case changefeed.AvailabilityChanged:
		if e.Status == nil {
			return
		}
		if e.Role != "" && e.Role != entity.RoleDoctor {
			return
		}
		apply(DoctorStatusPatched{DoctorID: e.UserID, Status: *e.Status})
	}
}

func (s *Session) selectSuggestion(state State, phone string, debouncer *Debouncer) {
	if state.Lookup == nil {
		return
	}
	for _, suggestion := range state.Lookup.Suggestions {
		if suggestion.Phone != phone {
			continue
		}
		match := suggestion
		debouncer.Do(func(ctx context.Context) (*entity.PhoneLookup, error) {
			return &entity.PhoneLookup{
				Phone:         match.Phone,
				Match:         &match,
				Suggestions:   []entity.PhoneSuggestion{},
				IsReturning:   true,
				ReturningInfo: s.lookup.ReturningSummary(ctx, s.clinicID, match.Phone, match.LastSeenAt),
			}, nil
		})
		return
	}
}
