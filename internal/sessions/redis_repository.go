package sessions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Hash fields of a session record. The token is the key and is not repeated.
const (
	fieldUserID    = "userId"
	fieldCreatedAt = "createdAt"
	fieldExpiresAt = "expiresAt"
)

// RedisRepository implements Repository using Redis as the backing store.
// Each session is a hash under "<prefix><token>" that Redis expires at the
// session's expiresAt.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(token string) string {
	return r.prefix + token
}

// Create writes the record and its expiry in one transaction.
func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	if !s.ExpiresAt.After(time.Now()) {
		return nil
	}
	key := r.key(s.Token)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			fieldUserID, s.UserID,
			fieldCreatedAt, s.CreatedAt.UnixMilli(),
			fieldExpiresAt, s.ExpiresAt.UnixMilli(),
		)
		p.PExpireAt(ctx, key, s.ExpiresAt)
		return nil
	})
	return err
}

func (r *RedisRepository) Get(ctx context.Context, token string) (*Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(token)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	s, err := decodeSession(token, fields)
	if err != nil {
		return nil, err
	}
	if s.Expired(time.Now().UTC()) {
		_ = r.client.Del(ctx, r.key(token)).Err()
		return nil, nil
	}
	return s, nil
}

func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.key(token)).Err()
}

func decodeSession(token string, fields map[string]string) (*Session, error) {
	userID := fields[fieldUserID]
	if userID == "" {
		return nil, fmt.Errorf("session %s: missing %s", token, fieldUserID)
	}
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s: %s: %w", token, fieldCreatedAt, err)
	}
	expires, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s: %s: %w", token, fieldExpiresAt, err)
	}
	return &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.UnixMilli(created).UTC(),
		ExpiresAt: time.UnixMilli(expires).UTC(),
	}, nil
}
