// Package daemon wires the configuration into a running login service.
package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/loginhistory"
	userctl "github.com/GoLoginSystem/GoLoginSystem/internal/db/controller/user"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/dsn"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/models"
	"github.com/GoLoginSystem/GoLoginSystem/internal/identity"
	"github.com/GoLoginSystem/GoLoginSystem/internal/logger/adapter/stdlogger"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/handler"
	"github.com/GoLoginSystem/GoLoginSystem/internal/web/revocation"
)

const slowQueryThreshold = 200 * time.Millisecond

// Daemon represents the main application daemon.
type Daemon struct {
	cfg         *config.Config
	db          *gorm.DB
	revocations fiber.Storage
	webService  *web.Service
}

// Start serves the API until SIGINT or SIGTERM and releases the resources afterwards.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)
	log.Info().Str("addr", addr).Str("url", d.cfg.Webserver.URL).Msg("starting login service")

	err := d.webService.Start(addr)

	d.Close()

	return err
}

// Close releases the database and revocation storage.
func (d *Daemon) Close() {
	if d.revocations != nil {
		if err := d.revocations.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close revocation storage")
		}
	}

	if sqlDB, err := d.db.DB(); err == nil {
		if err = sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}

// New creates a new Daemon instance with the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, handler.ErrNilDeps
	}

	if err := cfg.EnsureSigningKey(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	if err = db.AutoMigrate(&models.User{}, &models.LoginHistory{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	passwords, err := newPasswordVerifier(cfg)
	if err != nil {
		return nil, err
	}

	normalizer := identity.NewNormalizer(&cfg.Auth.Claims)

	external, err := newTokenVerifier(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(&cfg.Auth.Token, external, normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	users, err := userctl.NewStore(db)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	history, err := loginhistory.NewLog(db)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	revocations, err := revocation.New(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	authenticator, err := auth.NewAuthenticator(auth.Options{
		Passwords:     passwords,
		Tokens:        tokens,
		Normalizer:    normalizer,
		Users:         users,
		Audit:         history,
		Revocations:   revocations,
		VerifyTimeout: cfg.Auth.VerifyTimeout,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	webService, err := web.New(cfg, &handler.Deps{Auth: authenticator, Users: users, History: history})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &Daemon{
		cfg:         cfg,
		db:          db,
		revocations: revocations,
		webService:  webService,
	}, nil
}

// dialector opens the gorm driver of the configured engine.
func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return gormmysql.Open(dsn.Create(cfg)), nil
	case config.EnginePostgres:
		return postgres.Open(dsn.Create(cfg)), nil
	case config.EngineSQLite:
		return sqlite.Open(dsn.Create(cfg)), nil
	default:
		return nil, config.ErrUnsupportedEngine
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	dialect, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialect, &gorm.Config{
		Logger: gormlogger.New(
			stdlogger.New(stdlogger.WithComponent("gorm"), stdlogger.WithPrintLevel(zerolog.WarnLevel)),
			gormlogger.Config{
				SlowThreshold:             slowQueryThreshold,
				LogLevel:                  sqlLogLevel(cfg.Log.SQLLevel),
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// sqlite allows a single writer, and every :memory: connection is a separate database.
	if cfg.DB.GormEngine == config.EngineSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func sqlLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// newPasswordVerifier builds the directory verifier. Without LDAP every
// password login reports the identity source as unavailable, which is what
// lets the dev fallback answer.
func newPasswordVerifier(cfg *config.Config) (auth.PasswordVerifier, error) {
	var primary auth.PasswordVerifier = auth.UnavailableDirectory{}

	if cfg.Auth.LDAP.Enabled {
		ldapVerifier, err := auth.NewLDAPVerifier(&cfg.Auth.LDAP)
		if err != nil {
			return nil, fmt.Errorf("failed to create ldap verifier: %w", err)
		}

		primary = ldapVerifier
	} else {
		log.Warn().Msg("ldap is disabled, password logins will fail unless the dev fallback is active")
	}

	if !cfg.Auth.Fallback.Enabled {
		return primary, nil
	}

	if !cfg.DevMode {
		log.Warn().Msg("fallback credentials are configured but ignored outside dev mode")

		return primary, nil
	}

	fallback, err := auth.NewFallbackDirectory(cfg.DevMode, primary, cfg.Auth.Fallback.Users)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return fallback, nil
}

// newTokenVerifier discovers the external identity provider. Nil disables token mode.
func newTokenVerifier(ctx context.Context, cfg *config.Config) (auth.TokenVerifier, error) {
	if !cfg.Auth.OIDC.Enabled {
		return nil, nil //nolint:nilnil
	}

	verifier, err := auth.NewOIDCVerifier(ctx, &cfg.Auth.OIDC)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	log.Info().Str("issuer", verifier.Issuer()).Msg("token mode login enabled")

	return verifier, nil
}
