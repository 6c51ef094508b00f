package db

import (
	"fmt"
	"log/slog"

	"opencat/pkg/config"
	"opencat/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitializeDatabase creates and returns a database connection. Driver is
// selected by OPENCAT__DATABASE__DRIVER; sqlite is intended for local
// development and tests, postgres for production deployments.
func InitializeDatabase(cfg config.Environment) (*gorm.DB, error) {
	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var (
		conn *gorm.DB
		err  error
	)

	switch cfg.DatabaseDriver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "opencat.db"
		}
		conn, err = gorm.Open(sqlite.Open(dsn), gormCfg)
	case "postgres":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			return nil, fmt.Errorf("OPENCAT__DATABASE__URL is required for the postgres driver")
		}
		conn, err = gorm.Open(postgres.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db = conn
	slog.Info("Database connection established", "driver", cfg.DatabaseDriver)
	return db, nil
}

// CloseDatabase closes the database connection
func CloseDatabase() {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			slog.Error("Failed to get underlying sql.DB", "error", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
		slog.Info("Database connection closed")
	}
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// RunMigrations auto-migrates every OpenCat model and adds the composite
// indexes GORM struct tags can't express alone.
func RunMigrations(db *gorm.DB) error {
	slog.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.App{},
		&models.Entitlement{},
		&models.Product{},
		&models.ProductEntitlement{},
		&models.Subscriber{},
		&models.Transaction{},
		&models.Event{},
		&models.WebhookEndpoint{},
		&models.WebhookDelivery{},
		&models.APIKey{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_app_bundle_platform ON apps(bundle_id, platform)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriber_app_user ON subscribers(app_id, app_user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entitlement_app_name ON entitlements(app_id, name)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_product_app_store_id ON products(app_id, store_product_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transaction_store_id ON transactions(store, store_transaction_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_subscriber ON transactions(subscriber_id)`,
		`CREATE INDEX IF NOT EXISTS idx_event_subscriber ON events(subscriber_id)`,
		`CREATE INDEX IF NOT EXISTS idx_event_created_at ON events(created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_endpoint_event ON webhook_deliveries(endpoint_id, event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_status_next_retry ON webhook_deliveries(status, next_retry_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_api_key_hash ON api_keys(key_hash)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_api_key_public_id ON api_keys(public_id)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index (%s): %w", stmt, err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
