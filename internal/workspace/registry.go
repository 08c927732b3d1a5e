package workspace

import (
	"sync"

	"clinicflow/config"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/usecase"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Registry creates sessions and tracks the live ones so logout and clinic
// reassignment can close them.
type Registry struct {
	log       *logrus.Logger
	workspace usecase.WorkspaceUsecase
	lookup    usecase.LookupUsecase
	feed      Subscriber
	cfg       config.WorkspaceConfig

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry(
	log *logrus.Logger,
	workspace usecase.WorkspaceUsecase,
	lookup usecase.LookupUsecase,
	feed Subscriber,
	cfg config.WorkspaceConfig,
) *Registry {
	return &Registry{
		log:       log,
		workspace: workspace,
		lookup:    lookup,
		feed:      feed,
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Open creates a tracked session. The caller runs it; it leaves the
// registry when Run returns.
func (r *Registry) Open(identity entity.Identity, tokenID string) (*Session, error) {
	session, err := newSession(r.log, r.workspace, r.lookup, r.feed, r.cfg, identity, tokenID)
	if err != nil {
		return nil, err
	}
	session.onExit = r.remove

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	r.log.Debugf("Workspace session %s opened for user %s", session.ID, identity.User.ID)
	return session, nil
}

func (r *Registry) remove(session *Session) {
	r.mu.Lock()
	delete(r.sessions, session.ID)
	r.mu.Unlock()

	r.log.Debugf("Workspace session %s closed, %d screen(s) still on clinic %s",
		session.ID, r.feed.SubscriberCount(session.ClinicID()), session.ClinicID())
}

// DeactivateUser closes every session of userID
func (r *Registry) DeactivateUser(userID uuid.UUID) int {
	return r.closeWhere(func(s *Session) bool { return s.UserID() == userID })
}

// DeactivateToken closes the sessions opened with tokenID
func (r *Registry) DeactivateToken(tokenID string) int {
	return r.closeWhere(func(s *Session) bool { return s.TokenID() == tokenID })
}

// CloseAll is used on shutdown
func (r *Registry) CloseAll() int {
	return r.closeWhere(func(*Session) bool { return true })
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) closeWhere(match func(*Session) bool) int {
	r.mu.Lock()
	var matched []*Session
	for _, session := range r.sessions {
		if match(session) {
			matched = append(matched, session)
		}
	}
	r.mu.Unlock()

	for _, session := range matched {
		session.Close()
	}
	return len(matched)
}
