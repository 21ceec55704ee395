package sessions

import (
	"context"
	"strconv"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_CreateGetDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:session:")

	ctx := context.Background()
	s := &Session{
		Token:     "r1",
		UserID:    "user-1",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(5 * time.Second),
	}

	require.NoError(t, repo.Create(ctx, s))
	require.True(t, m.Exists("test:session:r1"))
	require.Equal(t, "user-1", m.HGet("test:session:r1", "userId"))
	require.Equal(t, strconv.FormatInt(s.ExpiresAt.UnixMilli(), 10), m.HGet("test:session:r1", "expiresAt"))
	require.Empty(t, m.HGet("test:session:r1", "token"))
	require.True(t, m.TTL("test:session:r1") > 0)

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "r1", got.Token)
	require.Equal(t, s.UserID, got.UserID)
	require.Equal(t, s.ExpiresAt.UnixMilli(), got.ExpiresAt.UnixMilli())

	// test deletion
	require.NoError(t, repo.Delete(ctx, "r1"))
	got2, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "")

	ctx := context.Background()
	s := &Session{
		Token:     "r2",
		UserID:    "user-2",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(1 * time.Second),
	}

	require.NoError(t, repo.Create(ctx, s))
	require.True(t, m.Exists("session:r2"))

	// visible immediately
	got, err := repo.Get(ctx, "r2")
	require.NoError(t, err)
	require.NotNil(t, got)

	// advance miniredis clock past TTL
	m.FastForward(2 * time.Second)

	got2, err := repo.Get(ctx, "r2")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestRedisRepository_SkipsExpiredAndRejectsCorrupt(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "")
	ctx := context.Background()

	past := &Session{Token: "old", UserID: "u", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, repo.Create(ctx, past))
	require.False(t, m.Exists("session:old"))

	m.HSet("session:bad", "userId", "u")
	_, err = repo.Get(ctx, "bad")
	require.Error(t, err)
}

func TestRedisRepository_WithService(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	svc := NewService(NewRedisRepository(client, ""), time.Minute)
	ctx := context.Background()

	tok, err := svc.Establish(ctx, "user-3")
	require.NoError(t, err)
	sess, err := svc.Validate(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, "user-3", sess.UserID)

	require.NoError(t, svc.Destroy(ctx, tok))
	sess, err = svc.Validate(ctx, tok)
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestRedisRepository_Unavailable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	svc := NewService(NewRedisRepository(client, ""), time.Minute)
	_, err = svc.Establish(context.Background(), "u")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
