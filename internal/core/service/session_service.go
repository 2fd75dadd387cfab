package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/port"
)

type Options struct {
	IdleTTL   time.Duration
	QueueSize int
}

type session struct {
	mu     sync.Mutex
	store  *domain.Store
	closed bool // guarded by mu
}

// SessionService owns one inventory store per session. Calls against the
// same session are serialized; different sessions share nothing.
type SessionService struct {
	cache  port.CacheRepository
	logger *zap.Logger
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*session

	events    chan domain.Event
	closeOnce sync.Once
}

func NewSessionService(cache port.CacheRepository, logger *zap.Logger, opts Options) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		cache:    cache,
		logger:   logger,
		ttl:      opts.IdleTTL,
		sessions: make(map[string]*session),
		events:   make(chan domain.Event, opts.QueueSize),
	}
}

// Open starts a new session, optionally pre-seeded with example records.
func (s *SessionService) Open(ctx context.Context, seed bool) (string, error) {
	id := uuid.NewString()

	if err := s.cache.TouchSession(ctx, id, s.ttl); err != nil {
		return "", fmt.Errorf("register session lease: %w", err)
	}

	store := domain.NewStore()
	if seed {
		store = domain.NewSeededStore()
	}

	s.mu.Lock()
	s.sessions[id] = &session{store: store}
	s.mu.Unlock()

	s.emit(domain.Event{Type: domain.EventSessionOpened, SessionID: id})
	return id, nil
}

// Close discards the session and its records. It waits for an operation
// already running against the session. The session is gone locally even
// when dropping its lease fails.
func (s *SessionService) Close(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.NewError("close session", domain.KindSessionNotFound)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return domain.NewError("close session", domain.KindSessionNotFound)
	}
	s.discard(sessionID, sess)
	s.emit(domain.Event{Type: domain.EventSessionClosed, SessionID: sessionID})

	if err := s.cache.DropSession(ctx, sessionID); err != nil {
		return fmt.Errorf("drop session lease: %w", err)
	}
	return nil
}

func (s *SessionService) AddRecord(ctx context.Context, sessionID, requestID, name, quantity, price string) (domain.Record, error) {
	var rec domain.Record
	err := s.withSession(ctx, "add record", sessionID, func(store *domain.Store) error {
		var err error
		rec, err = domain.NewRecord(name, quantity, price)
		if err != nil {
			return err
		}
		if err := store.CanAppend(rec); err != nil {
			return err
		}

		if requestID != "" {
			key := fmt.Sprintf("idempotency:%s:%s", sessionID, requestID)
			ok, err := s.cache.SetIdempotency(ctx, key)
			if err != nil {
				return fmt.Errorf("idempotency check failed: %w", err)
			}
			if !ok {
				return domain.NewError("add record", domain.KindDuplicateRequest)
			}
		}

		return store.Append(rec)
	})
	if err != nil {
		s.emitRejection(domain.EventAddRejected, sessionID, err)
		return domain.Record{}, err
	}

	s.emit(domain.Event{
		Type:       domain.EventRecordAdded,
		SessionID:  sessionID,
		RecordID:   rec.ID,
		RecordName: rec.Name,
		Quantity:   rec.Quantity,
	})
	return rec, nil
}

// RemoveRecord removes the record at the zero-based position.
func (s *SessionService) RemoveRecord(ctx context.Context, sessionID string, position int) (string, error) {
	return s.remove(ctx, sessionID, func(store *domain.Store) (string, error) {
		return store.Remove(position)
	})
}

func (s *SessionService) RemoveRecordByID(ctx context.Context, sessionID, recordID string) (string, error) {
	return s.remove(ctx, sessionID, func(store *domain.Store) (string, error) {
		return store.RemoveByID(recordID)
	})
}

func (s *SessionService) remove(ctx context.Context, sessionID string, fn func(*domain.Store) (string, error)) (string, error) {
	var name string
	err := s.withSession(ctx, "remove record", sessionID, func(store *domain.Store) error {
		var err error
		name, err = fn(store)
		return err
	})
	if err != nil {
		s.emitRejection(domain.EventRemoveRejected, sessionID, err)
		return "", err
	}

	s.emit(domain.Event{Type: domain.EventRecordRemoved, SessionID: sessionID, RecordName: name})
	return name, nil
}

func (s *SessionService) ListRecords(ctx context.Context, sessionID string) ([]domain.Line, error) {
	var lines []domain.Line
	err := s.withSession(ctx, "list records", sessionID, func(store *domain.Store) error {
		lines = store.List()
		return nil
	})
	return lines, err
}

func (s *SessionService) Aggregates(ctx context.Context, sessionID string) (domain.Aggregates, error) {
	var agg domain.Aggregates
	err := s.withSession(ctx, "compute aggregates", sessionID, func(store *domain.Store) error {
		agg = store.Aggregates()
		return nil
	})
	return agg, err
}

// Reap discards every local session whose lease has lapsed and returns how
// many were dropped.
func (s *SessionService) Reap(ctx context.Context) (int, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	reaped := 0
	for _, id := range ids {
		expired, err := s.reapOne(ctx, id)
		if err != nil {
			return reaped, err
		}
		if expired {
			reaped++
		}
	}
	return reaped, nil
}

func (s *SessionService) reapOne(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return false, nil
	}

	alive, err := s.cache.SessionAlive(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("check session lease: %w", err)
	}
	if alive {
		return false, nil
	}
	s.expire(sessionID, sess)
	return true, nil
}

// Len returns the number of open sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) Events() <-chan domain.Event {
	return s.events
}

// Shutdown closes the event queue. No operation may be called afterwards.
func (s *SessionService) Shutdown() {
	s.closeOnce.Do(func() { close(s.events) })
}

// withSession runs fn under the session lock after confirming and
// refreshing the session lease.
func (s *SessionService) withSession(ctx context.Context, op, sessionID string, fn func(*domain.Store) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.NewError(op, domain.KindSessionNotFound)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return domain.NewError(op, domain.KindSessionNotFound)
	}

	alive, err := s.cache.SessionAlive(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("check session lease: %w", err)
	}
	if !alive {
		s.expire(sessionID, sess)
		return domain.NewError(op, domain.KindSessionNotFound)
	}
	if err := s.cache.TouchSession(ctx, sessionID, s.ttl); err != nil {
		return fmt.Errorf("refresh session lease: %w", err)
	}

	return fn(sess.store)
}

// expire and discard require sess.mu to be held.
func (s *SessionService) expire(sessionID string, sess *session) {
	s.discard(sessionID, sess)
	s.emit(domain.Event{Type: domain.EventSessionExpired, SessionID: sessionID})
}

func (s *SessionService) discard(sessionID string, sess *session) {
	sess.closed = true
	s.mu.Lock()
	if s.sessions[sessionID] == sess {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
}

func (s *SessionService) emitRejection(typ domain.EventType, sessionID string, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		return
	}
	s.emit(domain.Event{Type: typ, SessionID: sessionID, Kind: kind})
}

func (s *SessionService) emit(ev domain.Event) {
	ev.At = time.Now().UTC()
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event queue full, dropping event",
			zap.String("type", string(ev.Type)),
			zap.String("session_id", ev.SessionID))
	}
}
