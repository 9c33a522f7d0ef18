package api

import (
	"context"
	"sync"
	"time"

	"loan-intake/internal/common/logger"
	"loan-intake/internal/common/metrics"
	"loan-intake/internal/intake/controller"
	"loan-intake/internal/models"

	"github.com/google/uuid"
)

// ControllerFactory builds the controller for a new session.
type ControllerFactory func() (*controller.Controller, error)

// Session is one open form: its raw input and the controller that submits it.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Controller *controller.Controller

	mu       sync.Mutex
	input    models.RawInput
	lastSeen time.Time
}

// Input returns a copy of the current raw input.
func (s *Session) Input() models.RawInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetField applies one input-change event.
func (s *Session) SetField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Set(field, value)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionStore keeps form sessions in memory. Sessions idle for longer than
// the TTL are dropped by Sweep unless a submission is in flight.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl     time.Duration
	factory ControllerFactory
	logger  logger.Logger
	now     func() time.Time
}

func NewSessionStore(ttl time.Duration, factory ControllerFactory, log logger.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
		logger:   log.WithFields(map[string]interface{}{"component": "session-store"}),
		now:      time.Now,
	}
}

// Create opens a session with a blank form.
func (st *SessionStore) Create() (*Session, error) {
	ctrl, err := st.factory()
	if err != nil {
		return nil, err
	}

	now := st.now()
	sess := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		Controller: ctrl,
		input:      models.NewRawInput(),
		lastSeen:   now,
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	count := len(st.sessions)
	st.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	st.logger.Debug("session created", map[string]interface{}{"sessionId": sess.ID})
	return sess, nil
}

// Get returns a session and marks it as recently used.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		sess.touch(st.now())
	}
	return sess, ok
}

func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	count := len(st.sessions)
	st.mu.Unlock()

	if ok {
		metrics.ActiveSessions.Set(float64(count))
	}
	return ok
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()

	st.mu.Lock()
	removed := 0
	for id, sess := range st.sessions {
		if sess.idleSince(now) <= st.ttl || !sess.Controller.CanSubmit() {
			continue
		}
		delete(st.sessions, id)
		removed++
	}
	count := len(st.sessions)
	st.mu.Unlock()

	if removed > 0 {
		metrics.ActiveSessions.Set(float64(count))
		st.logger.Info("expired sessions removed", map[string]interface{}{
			"removed":   removed,
			"remaining": count,
		})
	}
	return removed
}

// StartJanitor sweeps every interval until ctx is done.
func (st *SessionStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || st.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.Sweep()
			}
		}
	}()
}

// Wait blocks until every session's in-flight submission has finished.
func (st *SessionStore) Wait() {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mu.RUnlock()

	for _, sess := range sessions {
		sess.Controller.Wait()
	}
}
