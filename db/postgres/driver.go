package postgres

import (
	"errors"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kasuganosora/hearthquest/config"
)

// Open creates a GORM *DB backed by PostgreSQL (pgx) with a connection pool.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.PostgresDSN == "" {
		return nil, errors.New("postgres: postgres_dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(WithUTC(cfg.PostgresDSN)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetConnMaxLifetime(cfg.MaxLife)
	return db, nil
}

// WithUTC pins the session time zone. Both keyword/value and URL DSNs are
// accepted.
func WithUTC(dsn string) string {
	if strings.Contains(dsn, "TimeZone=") || strings.Contains(dsn, "timezone=") {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "timezone=UTC"
	}
	return strings.TrimSpace(dsn) + " TimeZone=UTC"
}
