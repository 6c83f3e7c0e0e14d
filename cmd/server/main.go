// Package main is the entry point for the pairlab research service.
// It serves the HTTP API, and runs the research pipeline and database
// maintenance on their cron schedules.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/pairlab/internal/archive"
	"github.com/aristath/pairlab/internal/config"
	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/modules/ledger"
	"github.com/aristath/pairlab/internal/modules/pairs"
	"github.com/aristath/pairlab/internal/modules/prices"
	"github.com/aristath/pairlab/internal/modules/research"
	"github.com/aristath/pairlab/internal/scheduler"
	"github.com/aristath/pairlab/internal/server"
	"github.com/aristath/pairlab/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("normalization", string(cfg.Backtest.Spread.Normalization)).
		Msg("Starting pairlab")

	historyDB, err := openDatabase(cfg.HistoryDBPath(), database.ProfileStandard, database.NameHistory)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	resultsDB, err := openDatabase(cfg.ResultsDBPath(), database.ProfileLedger, database.NameResults)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer resultsDB.Close()

	history := prices.NewHistoryDB(historyDB.Conn(), log)
	repo := ledger.NewRepository(resultsDB.Conn(), log)
	scanner := pairs.NewScanner(cfg.Scan.PairsConfig(), log)

	service, err := research.NewService(research.Config{
		Universe:      cfg.Universe,
		Significance:  cfg.Scan.Significance,
		MaxCandidates: cfg.Scan.MaxCandidates,
		Backtest:      cfg.Backtest,
	}, history, scanner, repo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create research service")
	}
	if cfg.Archive.Enabled() {
		archiver, err := archive.New(context.Background(), cfg.Archive, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure run archive")
		}
		service.SetArchiver(archiver)
	}

	sched := scheduler.New(log)
	if cfg.Schedule.Research != "" {
		if err := sched.AddJob(cfg.Schedule.Research, research.NewPipelineJob(service, 0)); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule research pipeline")
		}
	}
	if cfg.Schedule.Maintenance != "" {
		maintenance := scheduler.NewDatabaseMaintenanceJob(map[string]*database.DB{
			database.NameHistory: historyDB,
			database.NameResults: resultsDB,
		}, log)
		if err := sched.AddJob(cfg.Schedule.Maintenance, maintenance); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule database maintenance")
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		DataDir:   cfg.DataDir,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		HistoryDB: historyDB,
		ResultsDB: resultsDB,
		Research:  service,
		Scheduler: sched,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Running jobs finish before the databases close.
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func openDatabase(path string, profile database.DatabaseProfile, name string) (*database.DB, error) {
	db, err := database.New(database.Config{Path: path, Profile: profile, Name: name})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
