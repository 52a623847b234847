package service

import (
	"context"
	"encoding/json"
	"sync"

	"geauxclean/internal/domain"
	"geauxclean/internal/events"
	"geauxclean/internal/models"

	"github.com/rs/zerolog"
)

// SessionService is the application-wide session context: one place that
// holds the current session and its derived role, and one dispatcher for
// session-change events. Consumers subscribe instead of re-deriving role.
type SessionService struct {
	auth     domain.AuthClient
	store    domain.Store
	eventBus domain.EventPublisher
	logger   *zerolog.Logger

	mu      sync.RWMutex
	session *models.Session
	role    string
}

func NewSessionService(auth domain.AuthClient, store domain.Store, eventBus domain.EventPublisher, logger *zerolog.Logger) *SessionService {
	return &SessionService{
		auth:     auth,
		store:    store,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Refresh re-fetches the session from the identity provider and, when a
// session appeared or changed user, re-fetches the role from the users
// table. The cached role is only ever updated here.
func (s *SessionService) Refresh(ctx context.Context) (*models.Session, error) {
	session, err := s.auth.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prevUser := ""
	if s.session != nil {
		prevUser = s.session.UserID
	}
	s.session = session
	if session == nil {
		s.role = ""
	}
	s.mu.Unlock()

	if session != nil && session.UserID != prevUser {
		s.fetchRole(ctx, session.UserID)
	}

	s.dispatch()
	return session, nil
}

func (s *SessionService) fetchRole(ctx context.Context, userID string) {
	var users []models.User
	err := s.store.Select(ctx, models.TableUsers, []domain.Filter{domain.Eq("id", userID)}, nil, &users)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to fetch user role")
		return
	}
	if len(users) == 0 {
		// Profile row may not be provisioned yet; role stays empty until
		// the next Refresh.
		return
	}

	s.mu.Lock()
	s.role = users[0].Role
	s.mu.Unlock()
}

// Session returns the cached session, nil when signed out.
func (s *SessionService) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	copy := *s.session
	return &copy
}

// Role returns the cached role, "" when unknown or signed out.
func (s *SessionService) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// IsAdmin reports whether the cached role grants the admin dashboard.
func (s *SessionService) IsAdmin() bool {
	return s.Role() == models.RoleAdmin
}

// SignOut clears the session and role and notifies listeners.
func (s *SessionService) SignOut(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.session = nil
	s.role = ""
	s.mu.Unlock()

	if s.eventBus != nil {
		_ = s.eventBus.PublishJSON(events.EventSignedOut, events.SessionEventPayload{})
	}
	s.dispatch()
	return nil
}

// OnSessionChange registers a listener on the central dispatcher. The
// listener receives the session snapshot (nil fields when signed out).
func (s *SessionService) OnSessionChange(bus *events.EventBus, fn func(payload events.SessionEventPayload)) {
	bus.Subscribe(events.EventSessionChanged, func(event *events.Event) error {
		var payload events.SessionEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		fn(payload)
		return nil
	})
}

func (s *SessionService) dispatch() {
	if s.eventBus == nil {
		return
	}

	s.mu.RLock()
	payload := events.SessionEventPayload{Role: s.role}
	if s.session != nil {
		payload.UserID = s.session.UserID
		payload.Email = s.session.Email
	}
	s.mu.RUnlock()

	_ = s.eventBus.PublishJSON(events.EventSessionChanged, payload)
}
