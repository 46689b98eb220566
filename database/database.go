package database

import (
	"log/slog"
	"os"

	"mypalette/internal/domain/opencalls"
	"mypalette/internal/domain/submissions"
	"mypalette/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(dsn string, appEnv string, log *slog.Logger) *gorm.DB {
	if dsn == "" {
		log.Error("DB_URL not set")
		os.Exit(1)
	}

	level := gormlogger.Warn
	if appEnv == "local" || appEnv == "dev" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := Migrate(db); err != nil {
		log.Error("auto-migrate failed", "error", err)
		os.Exit(1)
	}

	log.Info("connected and migrated")
	return db
}

// Migrate creates or updates the tables. Profiles go first: submissions
// reference them.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.Profile{},
		&opencalls.OpenCall{},
		&submissions.Submission{},
	)
}
