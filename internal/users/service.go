package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gogotex/secrets/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// credentials is validated before any store access. validator counts runes,
// so the bcrypt byte limit is checked separately in CreateAccount.
type credentials struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required"`
}

// maxPasswordBytes is the most input bcrypt accepts.
const maxPasswordBytes = 72

// ErrInvalidInput is returned by CreateAccount for empty or oversized fields.
var ErrInvalidInput = errors.New("username and password are required")

// Service encapsulates user-related business logic
type Service struct {
	repo     UserRepository
	validate *validator.Validate
	cost     int

	dummyOnce sync.Once
	dummy     []byte
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, validate: validator.New(), cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// CreateAccount registers a local account. The password is stored only as a
// bcrypt hash, which embeds its own random salt.
func (s *Service) CreateAccount(ctx context.Context, username, password string) (*models.User, error) {
	c := credentials{Username: strings.TrimSpace(username), Password: password}
	if err := s.validate.Struct(c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(c.Password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password exceeds %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	existing, err := s.repo.GetByUsername(ctx, c.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateAccount
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, &models.User{Username: c.Username, PasswordHash: string(hash)})
}

// Verify checks a username/password pair. Unknown users, accounts without a
// password and wrong passwords all yield ErrInvalidCredentials, and all of
// them pay for one bcrypt comparison.
func (s *Service) Verify(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !u.HasLocalCredentials() {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// dummyHash is compared against when no stored hash exists, at the same cost
// as real hashes.
func (s *Service) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("no-such-account"), s.cost)
		if err != nil {
			h = []byte("$2a$10$")
		}
		s.dummy = h
	})
	return s.dummy
}

// FindOrCreateByGoogleID resolves a Google subject to a local user.
func (s *Service) FindOrCreateByGoogleID(ctx context.Context, googleID string) (*models.User, bool, error) {
	if googleID == "" {
		return nil, false, errors.New("empty google id")
	}
	return s.repo.FindOrCreateByGoogleID(ctx, googleID)
}

// GetByID re-hydrates the user referenced by a session.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}
