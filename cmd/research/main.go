// Package main runs the research pipeline once and exits.
//
//	research [-import prices.csv -symbol ABC] [-export run.xlsx]
//
// Configuration comes from the environment and STRATEGY_CONFIG, as for the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aristath/pairlab/internal/archive"
	"github.com/aristath/pairlab/internal/config"
	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/modules/ledger"
	"github.com/aristath/pairlab/internal/modules/pairs"
	"github.com/aristath/pairlab/internal/modules/prices"
	"github.com/aristath/pairlab/internal/modules/research"
	"github.com/aristath/pairlab/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	importPath := flag.String("import", "", "CSV file of daily bars to import before the run")
	symbol := flag.String("symbol", "", "symbol of the imported CSV (required with -import)")
	exportPath := flag.String("export", "", "write the run ledger to this .xlsx file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *importPath, *symbol, *exportPath); err != nil {
		log.Error().Err(err).Msg("Research run failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, importPath, symbol, exportPath string) error {
	historyDB, err := database.New(database.Config{Path: cfg.HistoryDBPath(), Profile: database.ProfileStandard, Name: database.NameHistory})
	if err != nil {
		return err
	}
	defer historyDB.Close()
	if err := historyDB.Migrate(); err != nil {
		return err
	}

	resultsDB, err := database.New(database.Config{Path: cfg.ResultsDBPath(), Profile: database.ProfileLedger, Name: database.NameResults})
	if err != nil {
		return err
	}
	defer resultsDB.Close()
	if err := resultsDB.Migrate(); err != nil {
		return err
	}

	history := prices.NewHistoryDB(historyDB.Conn(), log)
	repo := ledger.NewRepository(resultsDB.Conn(), log)

	if importPath != "" {
		if err := importCSV(ctx, history, importPath, symbol); err != nil {
			return err
		}
	}

	service, err := research.NewService(research.Config{
		Universe:      cfg.Universe,
		Significance:  cfg.Scan.Significance,
		MaxCandidates: cfg.Scan.MaxCandidates,
		Backtest:      cfg.Backtest,
	}, history, pairs.NewScanner(cfg.Scan.PairsConfig(), log), repo, log)
	if err != nil {
		return err
	}
	if cfg.Archive.Enabled() {
		archiver, err := archive.New(ctx, cfg.Archive, log)
		if err != nil {
			return err
		}
		service.SetArchiver(archiver)
	}

	report, err := service.Run(ctx)
	if err != nil {
		return err
	}
	logReport(log, report)

	if exportPath == "" {
		return nil
	}
	if report.RunID == "" {
		log.Warn().Str("outcome", string(report.Outcome)).Msg("Nothing to export")
		return nil
	}
	return exportRun(ctx, repo, report.RunID, exportPath)
}

func importCSV(ctx context.Context, history *prices.HistoryDB, path, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("-symbol is required with -import")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := prices.ParseCSV(f, symbol)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return history.SaveDailyPrices(ctx, symbol, bars)
}

func exportRun(ctx context.Context, repo *ledger.Repository, id, path string) error {
	run, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := ledger.ExportExcel(run, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func logReport(log zerolog.Logger, report *research.Report) {
	for _, w := range report.Warnings {
		log.Warn().Msg(w)
	}
	for i, c := range report.Candidates {
		log.Info().
			Int("rank", i+1).
			Str("a", c.SymbolA).
			Str("b", c.SymbolB).
			Float64("p_value", c.PValue).
			Float64("hedge_ratio", c.HedgeRatio).
			Bool("degenerate", c.Degenerate).
			Msg("Candidate")
	}
	if report.Summary == nil {
		log.Warn().Str("outcome", string(report.Outcome)).Msg("No backtest")
		return
	}

	s := report.Summary
	log.Info().
		Str("run_id", report.RunID).
		Str("archive_key", report.ArchiveKey).
		Int("trades", s.TotalTrades).
		Float64("win_rate", s.WinRate).
		Float64("final_capital", s.FinalCapital).
		Float64("return_pct", s.ReturnPct).
		Float64("max_drawdown_pct", s.MaxDrawdownPct).
		Msg("Backtest complete")
}
