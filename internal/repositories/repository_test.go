package repositories

import (
	"context"
	"testing"

	"pooltrack/internal/database"
	. "pooltrack/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema, including
// the expression indexes the migrator adds on top of AutoMigrate.
func newTestDB(t *testing.T) database.DB {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	db := database.DB{SQL: gormDB}
	require.NoError(t, db.Migrate())

	t.Cleanup(func() {
		sqlDB, err := gormDB.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func seedClient(t *testing.T, db database.DB, name string, days Weekdays) *Client {
	t.Helper()

	client := &Client{
		Name:           name,
		AttendanceDays: days,
		VisitPrice:     decimal.NewFromInt(45000),
		Active:         true,
	}
	client.Billing.DocumentType = DocumentBoleta
	require.NoError(
		t,
		NewClientRepository().Create(context.Background(), db.SQL, client),
	)
	return client
}

func seedTechnician(t *testing.T, db database.DB, name string) *Technician {
	t.Helper()

	repo := NewTechnicianRepository(db)
	technician, err := repo.GetOrCreateByName(context.Background(), db.SQL, name)
	require.NoError(t, err)
	return technician
}
