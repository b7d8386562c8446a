package main

import (
	"context"
	"flag"
	"os"

	"salespipeline/internal/app"
	"salespipeline/internal/config"
	"salespipeline/internal/repositories"
)

var (
	configPath      = flag.String("config", "config/config.yaml", "Path to the YAML config")
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Apply the database schema and exit")
)

// @title        Sales Pipeline API
// @version      1.0
// @description  Opportunity lifecycle: leads, stage transitions, locking and order acknowledgements.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		app.NewLogger(config.LogConfig{}).WithError(err).Fatal("load config")
	}
	logger := app.NewLogger(cfg.Log)
	ctx := context.Background()

	if *migrateOnlyFlag {
		if cfg.Database.Driver != config.StoragePostgres {
			logger.Fatal("migrate-only requires the postgres storage driver")
		}
		db, err := repositories.OpenPostgres(cfg.Database.DSN, 1)
		if err != nil {
			logger.WithError(err).Fatal("connect")
		}
		defer db.Close()
		if err := repositories.Migrate(ctx, db); err != nil {
			logger.WithError(err).Fatal("migrate")
		}
		logger.Info("migrations completed; exiting as requested")
		return
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.WithError(err).Error("server stopped")
		a.Close()
		os.Exit(1)
	}
	logger.Info("server gracefully stopped")
}
