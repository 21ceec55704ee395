package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable wraps any failure of the backing session repository.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
	ttl  time.Duration
}

func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{repo: r, ttl: ttl}
}

// TTL is the lifetime given to new sessions.
func (s *Service) TTL() time.Duration { return s.ttl }

// Establish stores a new session for userID and returns its token.
func (s *Service) Establish(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("establish session: empty user id")
	}
	token, err := newToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	sess := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return token, nil
}

// Validate returns the live session for token, or nil when it is absent or expired.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(time.Now().UTC()) {
		// cleanup expired session
		_ = s.repo.Delete(ctx, token)
		return nil, nil
	}
	return sess, nil
}

// Destroy removes the session; destroying an unknown token is not an error.
func (s *Service) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping reports whether the session store answers a lookup.
func (s *Service) Ping(ctx context.Context) error {
	if _, err := s.repo.Get(ctx, "ping"); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
