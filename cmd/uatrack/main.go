package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uspace/uatrack/pkg/config"
	"github.com/uspace/uatrack/pkg/logging"
	"github.com/uspace/uatrack/pkg/store/gormstore"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "uatrack",
		Short: "U-space UAT tracker",
		Long: `uatrack manages the test campaigns, executions and bugs of a U-space
acceptance test program.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml or /etc/uatrack/config.yaml)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(relayCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs: configuration, a logger and the
// database.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *gormstore.Store
}

func bootstrap() (*env, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := gormstore.NewStore(&cfg.Database, gormstore.Options{
		Logger: logger,
		Policy: gormstore.PolicyFromConfig(cfg.Execution),
	})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, store: db}, nil
}

// loadConfig reads the configuration and builds the logger, for commands
// that do not touch the database.
func loadConfig() (*config.Config, *zap.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (e *env) close() {
	_ = e.store.Close()
	_ = e.logger.Sync()
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap()
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.store.AutoMigrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			e.logger.Info("schema migrated", zap.String("driver", e.cfg.Database.Driver))
			return nil
		},
	}
}
