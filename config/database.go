package config

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the database and returns the handle. PostgreSQL is used when
// DB_URL is set, otherwise a local SQLite file so the app runs without setup.
// The handle is passed into controllers and services explicitly; there is no
// package-level singleton.
func ConnectDB() (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}

	var (
		db  *gorm.DB
		err error
	)
	if dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	} else {
		log.Println("DB_URL not set, using local SQLite hydrapair.db")
		db, err = gorm.Open(sqlite.Open("hydrapair.db"), gormConfig)
	}
	if err != nil {
		return nil, err
	}

	return db, nil
}
