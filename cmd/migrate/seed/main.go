package main

import (
	"fmt"

	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/db"
	"godsendjoseph.dev/mail-wizard/internal/env"
	"godsendjoseph.dev/mail-wizard/internal/store"
)

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	conn, err := db.New(db.Config{
		Addr:         fmt.Sprintf("%s:%s", env.GetString("DB_HOST", "127.0.0.1"), env.GetString("DB_PORT", "3306")),
		User:         env.GetString("DB_USER", "root"),
		Password:     env.GetString("DB_PASSWORD", "password"),
		DBName:       env.GetString("DB_NAME", "mail_wizard_db"),
		MaxOpenConns: env.GetInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns: env.GetInt("DB_MAX_IDLE_CONNS", 25),
		MaxIdleTime:  env.GetString("DB_MAX_IDLE_TIME", "15m"),
	}, logger)
	if err != nil {
		logger.Fatal(err)
	}
	defer conn.Close()

	store := store.NewStorage(conn)
	if err := db.Seed(store, conn, logger); err != nil {
		logger.Fatalw("seeding failed", "error", err)
	}
}
