// Package daemon boots the application: database, migrations, seed data,
// session store and the web service.
package daemon

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	sessionsqlite "github.com/gofiber/storage/sqlite3/v2"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GoUserPanel/GoUserPanel/internal/config"
	"github.com/GoUserPanel/GoUserPanel/internal/db/dsn"
	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
	"github.com/GoUserPanel/GoUserPanel/internal/logger/adapter/stdlogger"
	"github.com/GoUserPanel/GoUserPanel/internal/web"
	"github.com/GoUserPanel/GoUserPanel/internal/web/session"
)

const slowQueryThreshold = 200 * time.Millisecond

// Daemon represents the main application daemon.
type Daemon struct {
	webService web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start(addr string) error {
	return d.webService.Start(addr)
}

// WaitShutdown blocks until the web service has shut down.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := prepareDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare database")
		return nil
	}

	session.Init(openSessionStorage(cfg))

	return &Daemon{
		webService: *web.New(cfg, db),
	}
}

// SeedOnly opens the database, runs migrations and seeds the bootstrap role
// and account without starting the web service.
func SeedOnly(cfg *config.Config) error {
	_, err := prepareDB(cfg)

	return err
}

// prepareDB opens the configured database, migrates the schema and seeds
// bootstrap data when the tables are empty.
func prepareDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(openDialector(cfg), &gorm.Config{
		Logger: gormlogger.New(stdlogger.New(), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
	); err != nil {
		return nil, err
	}

	if err = seed(cfg, db); err != nil {
		return nil, err
	}

	return db, nil
}

// ListenAddr returns the listen address from the configuration.
func ListenAddr(cfg *config.Config) string {
	return fmt.Sprintf(":%d", cfg.Webserver.Port)
}

// openDialector selects the gorm driver matching the configured engine.
func openDialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.GormEngine {
	case dsn.EnginePostgres:
		return gormpostgres.Open(dsn.Create(cfg))
	case dsn.EngineSQLite:
		return sqlite.Open(dsn.Create(cfg))
	default:
		return gormmysql.Open(dsn.Create(cfg))
	}
}

// openSessionStorage selects the fiber session storage matching the
// configured engine, so sessions live next to the application data.
func openSessionStorage(cfg *config.Config) fiber.Storage {
	switch cfg.DB.GormEngine {
	case dsn.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: postgresURI(cfg),
			Table:         "sessions",
		})
	case dsn.EngineSQLite:
		name := cfg.DB.Name
		if name == "" {
			name = ":memory:"
		}

		return sessionsqlite.New(sessionsqlite.Config{
			Database: name,
			Table:    "sessions",
		})
	default:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}
}

// postgresURI builds the URI form the postgres session storage expects.
func postgresURI(cfg *config.Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Name,
	)
}
