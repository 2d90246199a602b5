package user

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/model"
)

var (
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidUsername = errors.New("username is required")
)

// Status tags the outcome of an authentication attempt.
type Status int

const (
	// Authenticated means the credentials matched a stored user.
	Authenticated Status = iota
	// Rejected means the credentials were wrong; Reason says what to tell
	// the caller.
	Rejected
	// Failed means the attempt could not be evaluated (storage fault).
	Failed
)

// Result is the tagged outcome of Authenticate, consumed synchronously by
// the HTTP boundary.
type Result struct {
	Status Status
	User   *model.User
	Reason string
	Err    error
}

// Publisher emits change events after a write has committed.
type Publisher interface {
	Publish(ctx context.Context, event model.ChangeEvent) error
}

// Service is the credential-based identity subsystem. It stores users by
// username and resolves login attempts; it never hands out password hashes.
type Service struct {
	store  store.Store
	events Publisher
}

func NewService(st store.Store, events Publisher) *Service {
	return &Service{store: st, events: events}
}

// SignUp registers a new user with a bcrypt-hashed password.
func (s *Service) SignUp(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" {
		return nil, ErrInvalidUsername
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Key:          uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.store.InsertUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.publish(ctx, u)
	return u, nil
}

// Authenticate resolves credentials to a tagged result. Unknown usernames
// and wrong passwords both come back Rejected with the same reason so the
// response does not reveal which one it was.
func (s *Service) Authenticate(ctx context.Context, username, password string) Result {
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Status: Rejected, Reason: "Error. Username o Password incorrectos"}
	}
	if err != nil {
		return Result{Status: Failed, Err: err}
	}

	if !auth.CheckPassword(password, u.PasswordHash) {
		return Result{Status: Rejected, Reason: "Error. Username o Password incorrectos"}
	}

	return Result{Status: Authenticated, User: u}
}

func (s *Service) publish(ctx context.Context, u *model.User) {
	if s.events == nil {
		return
	}
	data, _ := json.Marshal(u)
	event := model.ChangeEvent{
		ID:         uuid.New().String(),
		Entity:     model.EntityUser,
		Action:     model.ActionCreated,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("[User] Failed to publish signup event for %s: %v", u.Username, err)
	}
}
