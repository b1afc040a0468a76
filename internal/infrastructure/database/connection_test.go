package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotraderhub/autotrader/internal/shared/config"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

type recordingLogger struct {
	logger.Interface
	levels []string
}

func (r *recordingLogger) Debugw(msg string, kv ...interface{}) {
	r.levels = append(r.levels, "debug")
}

func (r *recordingLogger) Warnw(msg string, kv ...interface{}) {
	r.levels = append(r.levels, "warn")
}

func (r *recordingLogger) Errorw(msg string, kv ...interface{}) {
	r.levels = append(r.levels, "error")
}

func TestFilteredWriter(t *testing.T) {
	rec := &recordingLogger{Interface: logger.NewLogger()}
	w := &filteredWriter{log: rec}

	w.Printf("SELECT SCHEMA_NAME from Information_schema.SCHEMATA")
	w.Printf("SELECT VERSION()")
	assert.Empty(t, rec.levels)

	w.Printf("%s [error] duplicate entry", "repo.go:12")
	w.Printf("SLOW SQL >= 200ms")
	w.Printf("SELECT * FROM broker_connections")
	assert.Equal(t, []string{"error", "warn", "debug"}, rec.levels)
}

func TestInit_UnreachableServer(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		Username: "u",
		Password: "p",
		Database: "autotrader",
	}
	err := Init(cfg, logger.NewLogger())
	require.Error(t, err)
	assert.Nil(t, Get())
	assert.NoError(t, Close())
}
