package database

import (
	"fmt"
	"testing"

	"campus-hub/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// setupDB installs a fresh in-memory SQLite database as DB.
func setupDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Connect(config.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	prev := DB
	DB = db
	t.Cleanup(func() {
		DB = prev
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
}
