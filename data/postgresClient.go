package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/KotFed0t/liberdade/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	connAttempts    = 10
	connRetryPeriod = time.Second
	pingTimeout     = 5 * time.Second
)

func postgresDSN(cfg config.Postgres) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     cfg.DbName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// NewPostgresClient connects with retries, applies pool limits and runs pending migrations.
func NewPostgresClient(cfg *config.Config) *sqlx.DB {
	var (
		db  *sqlx.DB
		err error
	)

	for attempt := 1; attempt <= connAttempts; attempt++ {
		db, err = sqlx.Connect("pgx", postgresDSN(cfg.Postgres))
		if err == nil {
			break
		}

		slog.Info("Postgres is trying to connect", slog.Int("attempt", attempt), slog.String("err", err.Error()))
		time.Sleep(connRetryPeriod)
	}

	if err != nil {
		slog.Error("Postgres connection attempts exhausted")
		panic(err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		slog.Error("Postgres ping failed")
		panic(err)
	}
	slog.Info("Postgres connected")

	version := migratePostgres(db, cfg.Postgres.MigrationDir)
	slog.Info("Postgres migrated", slog.Uint64("version", uint64(version)))

	return db
}

func migratePostgres(db *sqlx.DB, migrationDir string) uint {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		panic(fmt.Errorf("migration driver: %w", err))
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationDir, "postgres", driver)
	if err != nil {
		panic(fmt.Errorf("migration source: %w", err))
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		panic(fmt.Errorf("migration up: %w", err))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		panic(fmt.Errorf("migration version: %w", err))
	}
	if dirty {
		panic(fmt.Errorf("migration version %d is dirty", version))
	}

	return version
}
