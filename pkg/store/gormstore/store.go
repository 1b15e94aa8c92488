package gormstore

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/uspace/uatrack/pkg/config"
	"github.com/uspace/uatrack/pkg/model"
)

// ExecutionPolicy decides how the run orchestrator treats the two situations
// the campaign state machine leaves open: starting a campaign that already
// has an open run, and finalizing or cancelling from a terminal state.
type ExecutionPolicy struct {
	AllowParallelRuns bool
	StrictTransitions bool
}

func DefaultExecutionPolicy() ExecutionPolicy {
	return ExecutionPolicy{StrictTransitions: true}
}

func PolicyFromConfig(cfg config.ExecutionConfig) ExecutionPolicy {
	return ExecutionPolicy{
		AllowParallelRuns: cfg.AllowParallelRuns,
		StrictTransitions: cfg.StrictTransitions,
	}
}

type Options struct {
	Logger   *zap.Logger
	Policy   ExecutionPolicy
	LogLevel logger.LogLevel
}

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	policy ExecutionPolicy
}

func NewStore(cfg *config.DatabaseConfig, opts Options) (*Store, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = parseLogLevel(cfg.LogLevel)
	}

	s, err := Open(dialector, opts)
	if err != nil {
		return nil, err
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY inside
		// a unit of work.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	return s, nil
}

// Dialector selects the GORM dialect for the configured driver. The postgres
// dialect runs on pgx by default; driver_name "postgres" switches it to lib/pq.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	case "postgres", "":
		pgCfg := postgres.Config{DSN: cfg.DSN()}
		if cfg.DriverName == "postgres" {
			pgCfg.DriverName = "postgres"
		}
		return postgres.New(pgCfg), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func Open(dialector gorm.Dialector, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db, logger: opts.Logger, policy: opts.Policy}, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate creates every table and join table of the model.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Environment{},
		&model.System{},
		&model.Section{},
		&model.Reason{},
		&model.File{},
		&model.Email{},
		&model.Operator{},
		&model.Drone{},
		&model.UhubOrg{},
		&model.UhubUser{},
		&model.UasZone{},
		&model.Uspace{},
		&model.Requirement{},
		&model.Case{},
		&model.Step{},
		&model.Block{},
		&model.Campaign{},
		&model.CampaignRun{},
		&model.CaseRun{},
		&model.StepRun{},
		&model.Bug{},
		&model.BugHistory{},
		&model.DomainEvent{},
	)
}

// Do runs fn inside one transaction. The transaction commits only when fn
// returns nil; an error or panic anywhere inside rolls back every write made
// through the unit of work.
func (s *Store) Do(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newUnitOfWork(tx, s.logger, s.policy))
	})
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
