// Package revocation provides the storage behind token logout.
//
// Revoked tokens are stored under their hash until they expire. The backend
// follows the database engine: the gofiber mysql and postgres storage drivers
// share the application database, sqlite deployments keep the list in memory.
package revocation

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
	"github.com/GoLoginSystem/GoLoginSystem/internal/db/dsn"
)

// Table is the database table of the revocation list.
const Table = "revoked_tokens"

// New creates the revocation storage for the configured database engine.
func New(cfg *config.Config) (fiber.Storage, error) {
	gc := time.Duration(cfg.Webserver.RevocationGC) * time.Second

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return mysql.New(mysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         Table,
			GCInterval:    gc,
		}), nil
	case config.EnginePostgres:
		return postgres.New(postgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         Table,
			GCInterval:    gc,
		}), nil
	case config.EngineSQLite:
		log.Warn().Msg("sqlite engine: token revocations are kept in memory and lost on restart")

		return NewMemory(gc), nil
	default:
		return nil, config.ErrUnsupportedEngine
	}
}

// NewMemory returns an in-memory storage with expiry. A non-positive gc
// selects the driver's default sweep interval.
func NewMemory(gc time.Duration) fiber.Storage {
	return memory.New(memory.Config{GCInterval: gc})
}
