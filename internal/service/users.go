package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
	"taskpulse/pkg/logger"
)

// UserStore is the identity persistence the service needs. Satisfied by
// repository.Users.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.UserSummary, error)
	Update(ctx context.Context, id string, name, email, credentialHash *string) (*models.User, error)
}

// Users handles registration, login, and profile updates.
type Users struct {
	store      UserStore
	bcryptCost int
}

// NewUsers wires the user service.
func NewUsers(store UserStore, bcryptCost int) *Users {
	return &Users{store: store, bcryptCost: bcryptCost}
}

// Register creates an account. Email must be unique.
func (s *Users) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Validation("email", "already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{Name: name, Email: email, CredentialHash: string(hash)}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.Info(ctx, "User registered", "user_id", u.ID)
	return u, nil
}

// Login verifies the credential. The failure message never says whether the
// email exists.
func (s *Users) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Forbidden("invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.CredentialHash), []byte(password)) != nil {
		return nil, apperr.Forbidden("invalid email or password")
	}
	return u, nil
}

// Get returns the user by id.
func (s *Users) Get(ctx context.Context, id string) (*models.User, error) {
	return s.store.FindByID(ctx, id)
}

// List returns all users' public projections, for the assignment picker.
func (s *Users) List(ctx context.Context) ([]models.UserSummary, error) {
	return s.store.List(ctx)
}

// UpdateProfile changes the owner's name, email, or password. Only the
// owning user reaches this path; the route is scoped to the caller.
func (s *Users) UpdateProfile(ctx context.Context, userID string, name, email, password *string) (*models.User, error) {
	var hash *string
	if password != nil {
		b, err := bcrypt.GenerateFromPassword([]byte(*password), s.bcryptCost)
		if err != nil {
			return nil, err
		}
		h := string(b)
		hash = &h
	}
	return s.store.Update(ctx, userID, name, email, hash)
}
