// Package identity resolves which account a request acts on, using
// bearer-token sessions held in memory.
package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aristath/stonks/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is one logged-in client. Its context is cancelled on logout.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled when the session is closed
func (s *Session) Context() context.Context {
	return s.ctx
}

// Done is closed when the session is closed
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Registry holds the open sessions
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	events   *events.Manager
	now      func() time.Time
	log      zerolog.Logger
}

// NewRegistry creates an empty session registry
func NewRegistry(eventManager *events.Manager, log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		events:   eventManager,
		now:      time.Now,
		log:      log.With().Str("service", "identity").Logger(),
	}
}

// Open issues a new session for userID. Callers check the account exists.
func (r *Registry) Open(userID string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: r.now().UTC(),
		ctx:       ctx,
		cancel:    cancel,
	}

	r.mu.Lock()
	r.sessions[session.Token] = session
	r.mu.Unlock()

	r.log.Info().Str("user_id", userID).Msg("Session opened")
	if r.events != nil {
		r.events.EmitTyped("identity", &events.SessionData{UserID: userID})
	}
	return session
}

// Resolve returns the open session for token
func (r *Registry) Resolve(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[token]
	return s, ok
}

// Close ends the session for token and cancels its context.
// Returns false if no such session was open.
func (r *Registry) Close(token string) bool {
	r.mu.Lock()
	session, ok := r.sessions[token]
	if ok {
		delete(r.sessions, token)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	session.cancel()
	r.log.Info().Str("user_id", session.UserID).Msg("Session closed")
	if r.events != nil {
		r.events.EmitTyped("identity", &events.SessionData{UserID: session.UserID, Closed: true})
	}
	return true
}

// CloseAll ends every session; used on shutdown
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
	if len(sessions) > 0 {
		r.log.Info().Int("count", len(sessions)).Msg("Closed all sessions")
	}
}

// ActiveUsers returns each user with at least one open session, sorted
func (r *Registry) ActiveUsers() []string {
	r.mu.RLock()
	seen := make(map[string]struct{}, len(r.sessions))
	for _, s := range r.sessions {
		seen[s.UserID] = struct{}{}
	}
	r.mu.RUnlock()

	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Count returns the number of open sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
