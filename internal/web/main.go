// Package web serves the login system HTTP API.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	fiberlogger "github.com/GoLoginSystem/GoLoginSystem/internal/logger/adapter/fiber"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler/admin/history"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler/admin/user"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler/login"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler/logout"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler/me"
	authmiddleware "github.com/GoLoginSystem/GoLoginSystem/internal/web/middleware/auth"
)

const (
	// HealthPath answers 200 while serving and 503 while draining.
	HealthPath = "/healthz"

	// MetricsPath exposes the Prometheus metrics.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address and blocks until it is shut down.
func (s *Service) Start(addr string) error {
	if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err //nolint:wrapcheck
	}

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the service down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown drains and stops the http server. Unless fast shutdown is set the
// health check fails for the configured drain window first, so load balancers
// can take this instance out of rotation.
func (s *Service) Shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 for %d seconds to let LB remove this instance from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(s.cfg.Webserver.ShutDownDuration())
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether the service accepts traffic.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, deps *handler.Deps) (*Service, error) {
	if cfg == nil || deps == nil {
		return nil, handler.ErrNilDeps
	}

	appName := cfg.Title
	if appName == "" {
		appName = "GoLoginSystem"
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        appName,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			BodyLimit:      cfg.Webserver.BodyLimit,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: HealthPath,
		UserLocal:     authmiddleware.LocalUsername,
	}))

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	app.Get(HealthPath, func(c *fiber.Ctx) error {
		if !service.Alive() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	for _, h := range []handler.Service{
		&login.Handler,
		&me.Handler,
		&logout.Handler,
		&user.Handler,
		&history.Handler,
	} {
		if err := h.Init(app, cfg, deps); err != nil {
			return nil, err
		}
	}

	return service, nil
}
