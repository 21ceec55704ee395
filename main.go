package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/secrets/handlers"
	"github.com/gogotex/secrets/internal/auth"
	"github.com/gogotex/secrets/internal/config"
	"github.com/gogotex/secrets/internal/sessions"
	"github.com/gogotex/secrets/internal/users"
	"github.com/gogotex/secrets/pkg/logger"
	"github.com/gogotex/secrets/pkg/metrics"
	"github.com/gogotex/secrets/pkg/middleware"
	"github.com/gogotex/secrets/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	production := cfg.Server.Environment == "production"
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := connectBackends(ctx, cfg)

	userRepo, err := newUserRepository(ctx, cfg, b)
	if err != nil {
		logger.Fatalf("failed to initialize user store: %v", err)
	}
	sessionRepo, store, err := newSessionRepository(ctx, cfg, b)
	if err != nil {
		logger.Fatalf("failed to initialize session store: %v", err)
	}
	logger.Infof("using %s session store", store)

	userSvc := users.NewService(userRepo)
	sessionsSvc := sessions.NewService(sessionRepo, cfg.Session.TTL)

	providers := []auth.Provider{}
	google := newGoogleBridge(ctx, cfg)
	if google != nil {
		providers = append(providers, google)
	}
	authn := auth.NewAuthenticator(userSvc, providers...)

	tmpl, err := web.ParseTemplates()
	if err != nil {
		logger.Fatalf("failed to parse templates: %v", err)
	}

	cookie := middleware.SessionCookie{
		Name:   cfg.Session.CookieName,
		Secret: cfg.Session.Secret,
		TTL:    sessionsSvc.TTL(),
		Secure: cfg.Session.SecureCookie || production,
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.SecureHeaders(production))
	if st, err := os.Stat(cfg.Server.PublicDir); err == nil && st.IsDir() {
		r.Static("/public", cfg.Server.PublicDir)
	} else {
		r.StaticFS("/public", http.FS(web.StaticFS()))
	}

	handlers.RegisterHealth(r, append(b.readinessChecks(), serviceChecks(cfg, sessionsSvc, google)...)...)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	app := r.Group("/")
	app.Use(middleware.LoadSession(cookie, sessionsSvc, userSvc))
	h := handlers.NewAuthHandler(userSvc, sessionsSvc, authn, cookie)
	if cfg.RateLimit.Enabled {
		// per-user when signed in, otherwise per-IP
		if cfg.RateLimit.UseRedis && b.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			h.WithRateLimit(middleware.RedisRateLimitMiddleware(b.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			h.WithRateLimit(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	h.Register(app)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("starting secrets on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	b.close()
	if err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}
