// Package db opens the relational connections, runs schema migrations and
// seeds reference data.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/diewo77/go-tutoring/internal/config"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "github.com/lib/pq"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// PostgresDSN picks DATABASE_URL when set, the assembled key=value list otherwise.
func PostgresDSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return NormalizeDSN(cfg.URL)
	}
	return cfg.DSN()
}

// Connect opens gorm on postgres or sqlite, retrying while the server starts.
func Connect(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite database")
	case "postgres":
		dsn := PostgresDSN(cfg)
		dialector = postgres.Open(dsn)
		log.Info().Str("dsn", MaskDSN(dsn)).Msg("using postgres database")
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var gdb *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		gdb, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("database connection failed, retrying")
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	applyPool(sqlDB, cfg)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return gdb, nil
}

// OpenSQL opens a database/sql pool on postgres through lib/pq.
func OpenSQL(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*sql.DB, error) {
	dsn := PostgresDSN(cfg)
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	applyPool(sqlDB, cfg)
	log.Info().Str("dsn", MaskDSN(dsn)).Msg("using postgres database (raw sql)")

	for i := 0; i < connectAttempts; i++ {
		if err = sqlDB.PingContext(ctx); err == nil {
			return sqlDB, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("database ping failed, retrying")
		select {
		case <-ctx.Done():
			_ = sqlDB.Close()
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	_ = sqlDB.Close()
	return nil, fmt.Errorf("ping database after %d attempts: %w", connectAttempts, err)
}

func applyPool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
}
