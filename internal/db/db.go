package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

type Config struct {
	Addr         string
	User         string
	Password     string
	DBName       string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  string
	// Attempts is how many times the first ping is tried before giving up.
	Attempts int
}

func New(cfg Config, logger *zap.SugaredLogger) (*sql.DB, error) {
	idleTime, err := time.ParseDuration(cfg.MaxIdleTime)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_TIME %q: %w", cfg.MaxIdleTime, err)
	}

	dbConfig := mysql.Config{
		User:                 cfg.User,
		Passwd:               cfg.Password,
		Addr:                 cfg.Addr,
		DBName:               cfg.DBName,
		Net:                  "tcp",
		AllowNativePasswords: true,
		ParseTime:            true,
		Loc:                  time.UTC,
		MultiStatements:      true,
	}

	db, err := sql.Open("mysql", dbConfig.FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(idleTime)

	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 10
	}

	for i := 1; i <= attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}

		logger.Warnw("database not ready, retrying", "attempt", i, "error", err)
		if i < attempts {
			time.Sleep(5 * time.Second)
		}
	}

	db.Close()
	return nil, fmt.Errorf("could not connect to the database after %d attempts: %w", attempts, err)
}
