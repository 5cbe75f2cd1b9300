package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tradeplanner/config"
	"tradeplanner/internal/adapters/logger"
	"tradeplanner/internal/adapters/sqlite"
	"tradeplanner/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "tradeplanner",
	Short: "Risk-bounded position sizing and trade lifecycle tracking",
	Long: `Tradeplanner sizes positions from a fixed risk budget and tracks the
resulting trades from plan to close.

It provides tools for:
  - Position sizing for spot, CFD and knockout instruments
  - Trade lifecycle tracking (planned, open, closed)
  - Partial exits with break-even stop ratchets
  - Portfolio metrics and R-multiple analytics
  - CSV and JSON export of the trade history`,
	SilenceUsage: true,
}

// Execute runs the command tree. Commands that need the planner service
// build it lazily via newService so plain help output stays dependency-free.
func Execute() error {
	return rootCmd.Execute()
}

// newService wires config, logger, repository and service together.
// The returned cleanup closes the repository.
func newService(ctx context.Context) (*app.PlannerService, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing trade database: %w", err)
	}
	cleanup := func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing trade database")
		}
	}

	svc, err := app.NewPlannerService(cfg, appLogger, repo)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := svc.LoadSession(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
