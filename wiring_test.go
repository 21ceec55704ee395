package main

import (
	"context"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gogotex/secrets/internal/config"
	"github.com/gogotex/secrets/internal/sessions"
	"github.com/gogotex/secrets/internal/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNewSessionRepository(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	withRedis := &backends{redis: redis.NewClient(&redis.Options{Addr: m.Addr()})}
	none := &backends{}
	ctx := context.Background()

	cases := map[string]struct {
		store string
		b     *backends
		want  string
		err   error
	}{
		"auto prefers redis":   {"auto", withRedis, "redis", nil},
		"auto falls back":      {"", none, "memory", nil},
		"explicit memory":      {"memory", withRedis, "memory", nil},
		"redis without client": {"redis", none, "redis", sessions.ErrStoreUnavailable},
		"mongo without client": {"mongo", none, "mongo", sessions.ErrStoreUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &config.Config{Session: config.SessionConfig{Store: tc.store}}
			repo, got, err := newSessionRepository(ctx, cfg, tc.b)
			require.Equal(t, tc.want, got)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, repo)
		})
	}

	_, _, err = newSessionRepository(ctx, &config.Config{Session: config.SessionConfig{Store: "etcd"}}, none)
	require.Error(t, err)
}

func TestNewUserRepository_WithoutMongo(t *testing.T) {
	ctx := context.Background()

	repo, err := newUserRepository(ctx, &config.Config{}, &backends{})
	require.NoError(t, err)
	require.IsType(t, &users.MemoryUserRepository{}, repo)

	prod := &config.Config{Server: config.ServerConfig{Environment: "production"}}
	_, err = newUserRepository(ctx, prod, &backends{})
	require.ErrorIs(t, err, users.ErrStorageUnavailable)
}

func TestNewGoogleBridge_Disabled(t *testing.T) {
	require.Nil(t, newGoogleBridge(context.Background(), &config.Config{}))
}

func TestReadinessChecks(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	require.Empty(t, (&backends{}).readinessChecks())

	b := &backends{redis: redis.NewClient(&redis.Options{Addr: m.Addr()})}
	checks := b.readinessChecks()
	require.Len(t, checks, 1)
	require.Equal(t, "redis", checks[0].Name)
	require.NoError(t, checks[0].Check(context.Background()))
}

func TestServiceChecks(t *testing.T) {
	ctx := context.Background()
	svc := sessions.NewService(sessions.NewMemoryRepository(), 0)

	checks := serviceChecks(&config.Config{}, svc, nil)
	require.Len(t, checks, 1)
	require.Equal(t, "sessions", checks[0].Name)
	require.NoError(t, checks[0].Check(ctx))

	google := &config.Config{Google: config.GoogleConfig{ClientID: "id", ClientSecret: "secret"}}
	checks = serviceChecks(google, svc, nil)
	require.Len(t, checks, 2)
	require.Equal(t, "oauth:google", checks[1].Name)
	require.Error(t, checks[1].Check(ctx))
}

func TestServiceChecks_SessionStoreDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()
	svc := sessions.NewService(sessions.NewRedisRepository(client, "session:"), 0)

	checks := serviceChecks(&config.Config{}, svc, nil)
	require.NoError(t, checks[0].Check(context.Background()))

	m.Close()
	require.ErrorIs(t, checks[0].Check(context.Background()), sessions.ErrStoreUnavailable)
}
