package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/secrets/handlers"
	"github.com/gogotex/secrets/internal/config"
	"github.com/gogotex/secrets/internal/database"
	"github.com/gogotex/secrets/internal/oauth"
	"github.com/gogotex/secrets/internal/sessions"
	"github.com/gogotex/secrets/internal/users"
	"github.com/gogotex/secrets/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	mongoConnectAttempts = 5
	memorySweepInterval  = time.Minute
)

// backends holds the connections the stores are built on. Either client may
// be nil when it is not configured or could not be reached.
type backends struct {
	mongo *mongo.Client
	redis *redis.Client
}

func (b *backends) close() {
	if b.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.mongo.Disconnect(ctx)
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func (b *backends) readinessChecks() []handlers.ReadinessCheck {
	checks := []handlers.ReadinessCheck{}
	if b.mongo != nil {
		checks = append(checks, handlers.ReadinessCheck{Name: "mongo", Check: func(ctx context.Context) error {
			return b.mongo.Ping(ctx, nil)
		}})
	}
	if b.redis != nil {
		checks = append(checks, handlers.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return b.redis.Ping(ctx).Err()
		}})
	}
	return checks
}

// serviceChecks adds readiness for the session store and for Google sign-in.
// A configured provider whose discovery failed reports not ready.
func serviceChecks(cfg *config.Config, sessionsSvc *sessions.Service, google *oauth.Bridge) []handlers.ReadinessCheck {
	checks := []handlers.ReadinessCheck{{Name: "sessions", Check: sessionsSvc.Ping}}
	if cfg.Google.Enabled() {
		checks = append(checks, handlers.ReadinessCheck{Name: "oauth:google", Check: func(ctx context.Context) error {
			if google == nil {
				return errors.New("provider discovery failed")
			}
			return nil
		}})
	}
	return checks
}

func connectBackends(ctx context.Context, cfg *config.Config) *backends {
	b := &backends{}
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = client.Close()
		} else {
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
			b.redis = client
		}
	}
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts)
		if err != nil {
			logger.Warnf("could not connect to MongoDB: %v", err)
		} else {
			logger.Infof("connected to MongoDB, database %s", cfg.MongoDB.Database)
			b.mongo = client
		}
	}
	return b
}

// newUserRepository prefers MongoDB. Outside production a memory repository
// stands in when MongoDB is unreachable.
func newUserRepository(ctx context.Context, cfg *config.Config, b *backends) (users.UserRepository, error) {
	if b.mongo != nil {
		col := b.mongo.Database(cfg.MongoDB.Database).Collection("users")
		return users.NewMongoUserRepository(ctx, col)
	}
	if cfg.Server.Environment == "production" {
		return nil, fmt.Errorf("identity store: %w", users.ErrStorageUnavailable)
	}
	logger.Warn("using in-memory user store; accounts are lost on restart")
	return users.NewMemoryUserRepository(), nil
}

// newSessionRepository picks the session store named by SESSION_STORE. auto
// prefers Redis, then MongoDB, then memory.
func newSessionRepository(ctx context.Context, cfg *config.Config, b *backends) (sessions.Repository, string, error) {
	store := cfg.Session.Store
	if store == "" || store == "auto" {
		switch {
		case b.redis != nil:
			store = "redis"
		case b.mongo != nil:
			store = "mongo"
		default:
			store = "memory"
		}
	}
	switch store {
	case "memory":
		repo := sessions.NewMemoryRepository()
		repo.StartSweeper(ctx, memorySweepInterval)
		return repo, store, nil
	case "redis":
		if b.redis == nil {
			return nil, store, fmt.Errorf("session store redis: %w", sessions.ErrStoreUnavailable)
		}
		return sessions.NewRedisRepository(b.redis, "session:"), store, nil
	case "mongo":
		if b.mongo == nil {
			return nil, store, fmt.Errorf("session store mongo: %w", sessions.ErrStoreUnavailable)
		}
		repo, err := sessions.NewMongoRepository(ctx, b.mongo.Database(cfg.MongoDB.Database).Collection("sessions"))
		return repo, store, err
	default:
		return nil, store, fmt.Errorf("unknown SESSION_STORE %q", store)
	}
}

// newGoogleBridge returns nil when Google sign-in is not configured or the
// provider cannot be discovered.
func newGoogleBridge(ctx context.Context, cfg *config.Config) *oauth.Bridge {
	if !cfg.Google.Enabled() {
		logger.Info("Google sign-in disabled: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
		return nil
	}
	bridge, err := oauth.NewBridge(ctx, "google", oauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.CallbackURL,
		IssuerURL:    cfg.Google.IssuerURL,
		Timeout:      cfg.Google.Timeout,
	})
	if err != nil {
		logger.Warnf("failed to initialize Google sign-in: %v", err)
		return nil
	}
	return bridge
}
