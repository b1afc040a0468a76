package migration

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/autotraderhub/autotrader/internal/infrastructure/migration/scripts"
	"github.com/autotraderhub/autotrader/internal/infrastructure/persistence/models"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", StrategyGoose, false},
		{"goose", StrategyGoose, false},
		{"GOLANG_MIGRATE", StrategyGolangMigrate, false},
		{"auto", StrategyAuto, false},
		{"flyway", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStrategy(tt.name, logger.NewLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestEmbeddedScripts_GooseAndMigrateAgree(t *testing.T) {
	gooseFiles, err := fs.Glob(scripts.Goose, "goose/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, gooseFiles)

	for _, path := range gooseFiles {
		body, err := fs.ReadFile(scripts.Goose, path)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", path)
		assert.Contains(t, string(body), "-- +goose Down", path)

		base := strings.TrimSuffix(strings.TrimPrefix(path, "goose/"), ".sql")
		for _, dir := range []string{"up", "down"} {
			_, err := fs.Stat(scripts.Migrate, "migrate/"+base+"."+dir+".sql")
			assert.NoError(t, err, "missing golang-migrate %s script for %s", dir, base)
		}
	}
}

func TestEmbeddedScripts_MigrateSourceVersions(t *testing.T) {
	src, err := iofs.New(scripts.Migrate, "migrate")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)
}

func TestGormAutoMigrateStrategy(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	s := NewGormAutoMigrateStrategy(logger.NewLogger())
	require.NoError(t, s.Up(ctx, db))
	assert.True(t, db.Migrator().HasTable(&models.BrokerConnectionModel{}))
	assert.True(t, db.Migrator().HasIndex(&models.BrokerConnectionModel{}, "idx_broker_connection_webhook_id"))

	require.NoError(t, s.Down(ctx, db, 1))
	assert.False(t, db.Migrator().HasTable(&models.BrokerConnectionModel{}))
}
