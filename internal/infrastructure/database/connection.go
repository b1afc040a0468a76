// Package database owns the process-wide MySQL connection pool.
package database

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/autotraderhub/autotrader/internal/shared/config"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

var (
	db   *gorm.DB
	dbMu sync.RWMutex
)

// Init opens the pool described by cfg and verifies it with a ping.
func Init(cfg *config.DatabaseConfig, log logger.Interface) error {
	gormLog := gormlogger.New(
		&filteredWriter{log: log.Named("gorm")},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	database, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       cfg.GetDSN(),
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:      gormLog,
		PrepareStmt: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	dbMu.Lock()
	db = database
	dbMu.Unlock()

	log.Infow("database connection established", "database", cfg.Database, "host", cfg.Host)
	return nil
}

// Get returns the pool opened by Init, or nil.
func Get() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

// Close releases the pool. It is safe to call when Init never ran.
func Close() error {
	dbMu.Lock()
	current := db
	db = nil
	dbMu.Unlock()

	if current == nil {
		return nil
	}

	sqlDB, err := current.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// filteredWriter routes gorm's printf output to the structured logger and
// drops driver bootstrap noise.
type filteredWriter struct {
	log logger.Interface
}

func (w *filteredWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "information_schema.schemata") || strings.Contains(lower, "select version()") {
		return
	}

	switch {
	case strings.Contains(lower, "error"):
		w.log.Errorw("database error", "details", msg)
	case strings.Contains(lower, "slow sql"):
		w.log.Warnw("slow query", "details", msg)
	default:
		w.log.Debugw("database query", "details", msg)
	}
}
