package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gupio-parking-backend/config"
	"gupio-parking-backend/internal/model"
)

// Dialector picks the gorm driver for a DSN: PostgreSQL URLs and key/value
// DSNs go to postgres, everything else is treated as a SQLite file.
func Dialector(dsn string) gorm.Dialector {
	if IsPostgres(dsn) {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

func IsPostgres(dsn string) bool {
	d := strings.TrimSpace(dsn)
	return strings.HasPrefix(d, "postgres://") ||
		strings.HasPrefix(d, "postgresql://") ||
		strings.Contains(d, "host=")
}

// IsMemory reports whether a SQLite DSN names an in-memory database.
func IsMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// pinned holds one connection per in-memory database for the life of the
// process. SQLite drops an in-memory database when its last connection closes.
var (
	pinnedMu sync.Mutex
	pinned   []*sql.Conn
)

func keepMemoryAlive(sqlDB *sql.DB, maxOpen int) error {
	// The pinned connection must not take a slot from the pool.
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen + 1)
	}
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	conn, err := sqlDB.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to pin in-memory database: %w", err)
	}
	pinnedMu.Lock()
	pinned = append(pinned, conn)
	pinnedMu.Unlock()
	return nil
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogQueries {
		level = logger.Info
	}

	db, err := gorm.Open(Dialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if !IsPostgres(cfg.DSN) && IsMemory(cfg.DSN) {
		if err := keepMemoryAlive(sqlDB, cfg.MaxOpenConns); err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the journal and subscription tables.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.BookingHistory{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}
