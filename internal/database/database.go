package database

import (
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"edusocial/internal/config"
	"edusocial/internal/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

type MethodsDB interface {
	CloseDB() error
	RunMigrations() error
	HealthCheck() error
}

// DB is the local cache database.
type DB struct {
	*sqlx.DB
	driver string
	log    logger.Logger
}

var _ MethodsDB = (*DB)(nil)

func ConnectDB(cfg config.Cache, log logger.Logger) (*DB, error) {
	switch cfg.Driver {
	case "sqlite3", "postgres":
	default:
		return nil, errors.Errorf("unsupported cache driver %q", cfg.Driver)
	}

	log.Debug("connecting to cache db", cfg.Driver)

	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to cache db")
	}

	if cfg.Driver == "sqlite3" {
		// One writer at a time; also keeps in-memory databases on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	d := &DB{DB: db, driver: cfg.Driver, log: log}

	if err := d.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := d.HealthCheck(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (db *DB) CloseDB() error {
	return db.DB.Close()
}

func (db *DB) RunMigrations() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "opening embedded migrations")
	}

	var driver database.Driver
	switch db.driver {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(db.DB.DB, &sqlite3.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	}
	if err != nil {
		return errors.Wrap(err, "preparing migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, db.driver, driver)
	if err != nil {
		return errors.Wrap(err, "preparing migrations")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "applying migrations")
	}

	version, dirty, _ := m.Version()
	db.log.Debug("cache db migrated", version, dirty)
	return nil
}

func (db *DB) HealthCheck() error {
	if db == nil || db.DB == nil {
		return errors.New("cache db is not initialised")
	}
	return errors.Wrap(db.Ping(), "pinging cache db")
}
