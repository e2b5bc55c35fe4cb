package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instrupro-backend/config"
	"instrupro-backend/internal/model"
)

func TestInit_SQLite(t *testing.T) {
	db, err := Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file:dbinit?mode=memory&cache=shared", MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	assert.True(t, db.Migrator().HasTable(&model.Document{}))
	assert.True(t, db.Migrator().HasTable(&model.PushSubscription{}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
