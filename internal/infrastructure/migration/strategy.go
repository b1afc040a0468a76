// Package migration applies schema migrations with goose (default),
// golang-migrate, or gorm AutoMigrate.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/autotraderhub/autotrader/internal/infrastructure/migration/scripts"
	"github.com/autotraderhub/autotrader/internal/infrastructure/persistence/models"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

const (
	StrategyGoose         = "goose"
	StrategyGolangMigrate = "golang_migrate"
	StrategyAuto          = "auto"
)

// Strategy applies and reverts schema versions.
type Strategy interface {
	Up(ctx context.Context, db *gorm.DB) error
	Down(ctx context.Context, db *gorm.DB, steps int) error
	Version(ctx context.Context, db *gorm.DB) (int64, error)
	Name() string
}

// StatusEntry describes one migration source and whether it has been applied.
type StatusEntry struct {
	Version int64
	Path    string
	Applied bool
}

// Statuser is implemented by strategies that can list individual migrations.
type Statuser interface {
	Status(ctx context.Context, db *gorm.DB) ([]StatusEntry, error)
}

// NewStrategy returns the strategy registered under name.
func NewStrategy(name string, log logger.Interface) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", StrategyGoose:
		return NewGooseStrategy(log), nil
	case StrategyGolangMigrate:
		return NewGolangMigrateStrategy(log), nil
	case StrategyAuto:
		return NewGormAutoMigrateStrategy(log), nil
	default:
		return nil, fmt.Errorf("unknown migration strategy: %s", name)
	}
}

// GooseStrategy runs the embedded goose scripts through a goose Provider.
type GooseStrategy struct {
	fsys   fs.FS
	logger logger.Interface
}

func NewGooseStrategy(log logger.Interface) *GooseStrategy {
	sub, err := fs.Sub(scripts.Goose, "goose")
	if err != nil {
		panic(fmt.Sprintf("embedded goose scripts: %v", err))
	}
	return &GooseStrategy{
		fsys:   sub,
		logger: log.With("component", "migration.goose"),
	}
}

func (s *GooseStrategy) Name() string {
	return StrategyGoose
}

func (s *GooseStrategy) provider(db *gorm.DB) (*goose.Provider, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectMySQL, sqlDB, s.fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return p, nil
}

func (s *GooseStrategy) Up(ctx context.Context, db *gorm.DB) error {
	p, err := s.provider(db)
	if err != nil {
		return err
	}

	from, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	to, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}

	s.logger.Infow("migration completed successfully",
		"from_version", from,
		"to_version", to,
		"applied", len(results))
	return nil
}

func (s *GooseStrategy) Down(ctx context.Context, db *gorm.DB, steps int) error {
	p, err := s.provider(db)
	if err != nil {
		return err
	}

	for i := 0; i < steps; i++ {
		if _, err := p.Down(ctx); err != nil {
			if errors.Is(err, goose.ErrNoNextVersion) {
				break
			}
			s.logger.Errorw("down migration failed", "error", err)
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}

	s.logger.Infow("down migration completed successfully", "steps", steps)
	return nil
}

func (s *GooseStrategy) Version(ctx context.Context, db *gorm.DB) (int64, error) {
	p, err := s.provider(db)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}

func (s *GooseStrategy) Status(ctx context.Context, db *gorm.DB) ([]StatusEntry, error) {
	p, err := s.provider(db)
	if err != nil {
		return nil, err
	}

	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	entries := make([]StatusEntry, 0, len(statuses))
	for _, st := range statuses {
		entries = append(entries, StatusEntry{
			Version: st.Source.Version,
			Path:    st.Source.Path,
			Applied: st.State == goose.StateApplied,
		})
	}
	return entries, nil
}

// CreateMigration writes a new goose SQL file into dir.
func CreateMigration(dir, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("migration name is required")
	}
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}
	return nil
}

// GolangMigrateStrategy runs the embedded up/down pairs with golang-migrate.
// Closing the migrator also closes db, so the CLI uses it for one-shot commands.
type GolangMigrateStrategy struct {
	logger logger.Interface
}

func NewGolangMigrateStrategy(log logger.Interface) *GolangMigrateStrategy {
	return &GolangMigrateStrategy{
		logger: log.With("component", "migration.golang-migrate"),
	}
}

func (s *GolangMigrateStrategy) Name() string {
	return StrategyGolangMigrate
}

func (s *GolangMigrateStrategy) instance(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	source, err := iofs.New(scripts.Migrate, "migrate")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func (s *GolangMigrateStrategy) Up(_ context.Context, db *gorm.DB) error {
	m, err := s.instance(db)
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.logger.Infow("migration completed successfully", "from_version", version)
	return nil
}

func (s *GolangMigrateStrategy) Down(_ context.Context, db *gorm.DB, steps int) error {
	m, err := s.instance(db)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.logger.Errorw("down migration failed", "error", err)
		return fmt.Errorf("failed to run down migrations: %w", err)
	}
	return nil
}

func (s *GolangMigrateStrategy) Version(_ context.Context, db *gorm.DB) (int64, error) {
	m, err := s.instance(db)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(version), nil
}

// GormAutoMigrateStrategy derives the schema from the persistence models. It
// has no version history and backs local development and sqlite tests.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy(log logger.Interface) *GormAutoMigrateStrategy {
	return &GormAutoMigrateStrategy{
		logger: log.With("component", "migration.auto"),
	}
}

// Models lists every table owned by this service.
func Models() []interface{} {
	return []interface{}{
		&models.BrokerConnectionModel{},
	}
}

func (s *GormAutoMigrateStrategy) Name() string {
	return StrategyAuto
}

func (s *GormAutoMigrateStrategy) Up(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	s.logger.Infow("auto migration completed", "models", len(Models()))
	return nil
}

// Down drops every model table regardless of steps.
func (s *GormAutoMigrateStrategy) Down(ctx context.Context, db *gorm.DB, _ int) error {
	if err := db.WithContext(ctx).Migrator().DropTable(Models()...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return nil
}

func (s *GormAutoMigrateStrategy) Version(context.Context, *gorm.DB) (int64, error) {
	return 0, nil
}
