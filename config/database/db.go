package database

import (
	"database/sql"
	"time"

	"markit/config"
	"markit/pkg/logger"

	_ "github.com/lib/pq"
)

func Connect(cfg *config.Config) *sql.DB {
	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		logger.Sugar.Fatalf("Failed to open database connection: %v", err)
	}

	var pingErr error
	for i := 0; i < 5; i++ {
		if pingErr = db.Ping(); pingErr == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return db
		}
		logger.Sugar.Infof("Database connection failed, retrying in 2s... (%v)", pingErr)
		time.Sleep(2 * time.Second)
	}
	logger.Sugar.Fatal("Could not connect to database after retries. Check your network or database status.")
	return nil
}
