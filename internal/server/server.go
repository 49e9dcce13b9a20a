package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Olexandr88/indexreg/internal/auth"
	"github.com/Olexandr88/indexreg/internal/journal"
	"github.com/Olexandr88/indexreg/internal/observability"
	"github.com/Olexandr88/indexreg/internal/registry"
)

// ServiceConfig configures the registry HTTP endpoint.
type ServiceConfig struct {
	ListenAddr       string
	CoordinatorToken string
	CORSEnabled      bool
	ShutdownTimeout  time.Duration
}

// DefaultServiceConfig returns the runtime defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:      ":7400",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Service serves the registry over HTTP and journals applied mutations.
type Service struct {
	cfg      ServiceConfig
	registry *registry.Registry
	journal  *journal.Journal
	logger   zerolog.Logger
	router   *gin.Engine
	started  time.Time
}

// NewService wires the router, middleware, and update listener.
func NewService(cfg ServiceConfig, reg *registry.Registry, jnl *journal.Journal, logger zerolog.Logger) *Service {
	s := &Service{
		cfg:      cfg,
		registry: reg,
		journal:  jnl,
		logger:   logger,
		started:  time.Now(),
	}
	reg.SetUpdateListener(&updateListener{logger: logger})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(logger))
	router.Use(observability.RequestMetricsMiddleware())
	if cfg.CORSEnabled {
		router.Use(cors.Default())
	}
	s.router = router
	s.registerRoutes()
	return s
}

// Router exposes the handler for tests and embedding.
func (s *Service) Router() http.Handler {
	return s.router
}

// Run serves until the process receives SIGINT or SIGTERM, then drains.
func (s *Service) Run() error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("server_listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		s.logger.Info().Str("signal", sig.String()).Msg("server_shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Service) authMiddleware() gin.HandlerFunc {
	return auth.Middleware(auth.CoordinatorToken{Token: s.cfg.CoordinatorToken})
}
