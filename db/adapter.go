package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kasuganosora/hearthquest/config"
	dbmysql "github.com/kasuganosora/hearthquest/db/mysql"
	dbpostgres "github.com/kasuganosora/hearthquest/db/postgres"
	dbsqlite "github.com/kasuganosora/hearthquest/db/sqlite"
)

const (
	ModeSQLite   = "sqlite"
	ModeMySQL    = "mysql"
	ModePostgres = "postgres"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg)
	case ModePostgres:
		return dbpostgres.Open(cfg)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
