package database

import (
	"pooltrack/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

// Migrate runs AutoMigrate for all models and creates the indexes GORM does
// not create on its own.
func (db *DB) Migrate() error {
	if err := db.MigrateModels(); err != nil {
		return err
	}
	return db.CreateIndexes()
}

// MigrateModels runs GORM AutoMigrate for all models
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")
	log.Info("Starting database migration")

	modelsToMigrate := []interface{}{
		&models.Technician{},
		&models.Client{},
		&models.Visit{},
		&models.Assignment{},
	}

	for _, model := range modelsToMigrate {
		if err := db.SQL.AutoMigrate(model); err != nil {
			log.Error("Failed to migrate model", "model", model, "error", err)
			return err
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates additional indexes that GORM doesn't create automatically
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	// The COALESCE form collapses NULL attendance days into a single slot per
	// client and week on both postgres and sqlite.
	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_natural_key ON assignments(week_start, client_id, COALESCE(attendance_day, ''))",
		"CREATE INDEX IF NOT EXISTS idx_assignments_week_completed ON assignments(week_start, completed)",
		"CREATE INDEX IF NOT EXISTS idx_visits_client_date ON visits(client_id, visit_date DESC)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
			// Continue with other indexes even if one fails
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
