// Package session holds the authenticated identity of one chat and keeps it persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"myworld-planner/internal/model"
)

// ErrNoExpiry is returned by ExpiresAt for tokens without a readable exp claim.
var ErrNoExpiry = errors.New("token carries no expiry")

// Persister stores the session record of one chat.
type Persister interface {
	Load(ctx context.Context) (*model.SessionRecord, error)
	Save(ctx context.Context, rec model.SessionRecord) error
	Delete(ctx context.Context) error
}

type EventType int

const (
	SignedIn EventType = iota
	SignedOut
	Expired
	Refreshed
)

func (t EventType) String() string {
	switch t {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Expired:
		return "expired"
	case Refreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

type Event struct {
	Type EventType
	User model.User
}

// Store is the session provider handed to the gateway.
type Store struct {
	mu          sync.RWMutex
	user        model.User
	token       string
	persister   Persister
	logger      *zap.Logger
	subscribers []func(Event)
}

func NewStore(persister Persister, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{persister: persister, logger: logger}
}

// Restore rehydrates the persisted record. A missing record leaves the store signed out.
func (s *Store) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	rec, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec == nil || rec.AccessToken == "" {
		s.user, s.token = model.User{}, ""
		return nil
	}
	s.user, s.token = rec.User, rec.AccessToken
	return nil
}

// SignIn persists the identity and only then makes the token visible to requests.
func (s *Store) SignIn(ctx context.Context, user model.User, token string) error {
	if token == "" {
		return errors.New("sign in: empty access token")
	}
	if err := s.save(ctx, model.SessionRecord{User: user, AccessToken: token}); err != nil {
		return err
	}

	s.mu.Lock()
	s.user, s.token = user, token
	s.mu.Unlock()

	s.emit(Event{Type: SignedIn, User: user})
	return nil
}

// SignOut clears the identity after an explicit logout.
func (s *Store) SignOut(ctx context.Context) error {
	user := s.clear()
	if s.persister != nil {
		if err := s.persister.Delete(ctx); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	s.emit(Event{Type: SignedOut, User: user})
	return nil
}

// Invalidate drops the token after the API rejected it.
func (s *Store) Invalidate() {
	user := s.clear()
	if s.persister != nil {
		if err := s.persister.Delete(context.Background()); err != nil {
			s.logger.Error("failed to delete invalidated session", zap.Error(err))
		}
	}
	s.emit(Event{Type: Expired, User: user})
}

func (s *Store) UpdateToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("update token: empty access token")
	}
	s.mu.RLock()
	user, signedIn := s.user, s.token != ""
	s.mu.RUnlock()
	if !signedIn {
		return errors.New("update token: not signed in")
	}

	if err := s.save(ctx, model.SessionRecord{User: user, AccessToken: token}); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.emit(Event{Type: Refreshed, User: user})
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user model.User) error {
	token := s.AccessToken()
	if token == "" {
		return errors.New("update user: not signed in")
	}
	if err := s.save(ctx, model.SessionRecord{User: user, AccessToken: token}); err != nil {
		return err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// ExpiresAt reads the exp claim of the current token without verifying it.
func (s *Store) ExpiresAt() (time.Time, error) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, errors.New("not signed in")
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoExpiry, err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Subscribe registers fn for every subsequent event.
func (s *Store) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) clear() model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.user
	s.user, s.token = model.User{}, ""
	return user
}

func (s *Store) save(ctx context.Context, rec model.SessionRecord) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	subs := append([]func(Event){}, s.subscribers...)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
