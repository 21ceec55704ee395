package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingSessionSecret is returned when SESSION_SECRET is not provided.
var ErrMissingSessionSecret = errors.New("SESSION_SECRET is required")

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Session   SessionConfig
	Google    GoogleConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PublicDir    string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// SessionConfig controls the session cookie and its backing store.
// Store is one of auto, memory, redis or mongo.
type SessionConfig struct {
	Secret       string
	CookieName   string
	TTL          time.Duration
	SecureCookie bool
	Store        string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	IssuerURL    string
	Timeout      time.Duration
}

// Enabled reports whether Google sign-in has credentials to work with.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "3000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_PUBLIC_DIR", "public")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "userDB")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SESSION_COOKIE_NAME", "secrets.sid")
	v.SetDefault("SESSION_TTL_MINUTES", 1440)
	v.SetDefault("SESSION_SECURE_COOKIE", false)
	v.SetDefault("SESSION_STORE", "auto")
	v.SetDefault("GOOGLE_CALLBACK_URL", "http://localhost:3000/auth/google/secrets")
	v.SetDefault("GOOGLE_ISSUER_URL", "https://accounts.google.com")
	v.SetDefault("OAUTH_TIMEOUT_SECONDS", 10)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			PublicDir:    v.GetString("SERVER_PUBLIC_DIR"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Session: SessionConfig{
			Secret:       os.Getenv("SESSION_SECRET"),
			CookieName:   v.GetString("SESSION_COOKIE_NAME"),
			TTL:          time.Duration(v.GetInt("SESSION_TTL_MINUTES")) * time.Minute,
			SecureCookie: v.GetBool("SESSION_SECURE_COOKIE"),
			Store:        strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
		},
		Google: GoogleConfig{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  v.GetString("GOOGLE_CALLBACK_URL"),
			IssuerURL:    v.GetString("GOOGLE_ISSUER_URL"),
			Timeout:      time.Duration(v.GetInt("OAUTH_TIMEOUT_SECONDS")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	if cfg.Session.Secret == "" {
		return nil, ErrMissingSessionSecret
	}
	return cfg, nil
}
