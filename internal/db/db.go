// internal/db/db.go
package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
)

// Open connects to Postgres and verifies the connection with a ping.
func Open(conf config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	logger.Info("connecting to database",
		zap.String("host", conf.Host),
		zap.String("name", conf.Name),
		zap.String("user", conf.User),
	)

	db, err := sqlx.Connect("postgres", conf.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if conf.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.MaxOpenConns)
	}
	if conf.MaxIdleConns > 0 {
		db.SetMaxIdleConns(conf.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("connected to database")
	return db, nil
}
