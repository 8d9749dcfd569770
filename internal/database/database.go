package database

import (
	"fmt"

	"github.com/autoprofit/core/internal/config"
	"github.com/autoprofit/core/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database and optionally runs auto-migration.
// The default backend is a local SQLite file; a configured database_url
// switches to Postgres (Supabase URLs get sslmode=require upstream).
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return db, nil
}

// EnsureSchema applies migration in a short-lived setup connection.
func EnsureSchema(cfg *config.AppConfig) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("resolve sql db: %w", err)
	}
	defer sqlDB.Close()

	if err := Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func openDB(cfg *config.AppConfig) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDev() {
		logLevel = logger.Silent
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var dial gorm.Dialector
	switch cfg.DatabaseProvider() {
	case "postgres":
		dial = postgres.Open(cfg.EffectiveDatabaseURL())
	default:
		dial = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dial, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

// Migrate runs GORM auto-migration for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.PostModel{},
		&models.RunModel{},
		&models.ClickModel{},
		&models.SubscriptionModel{},
	)
}
