package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/pairlab/internal/domain"
	"github.com/aristath/pairlab/internal/metrics"
	"github.com/aristath/pairlab/internal/modules/backtest"
	"github.com/aristath/pairlab/internal/modules/ledger"
	"github.com/aristath/pairlab/internal/modules/pairs"
	"github.com/aristath/pairlab/internal/modules/prices"
	"github.com/aristath/pairlab/internal/modules/spread"
	"github.com/aristath/pairlab/internal/utils"
	"github.com/rs/zerolog"
)

// Service runs the research pipeline. Runs are serialized.
type Service struct {
	cfg      Config
	source   SeriesSource
	scanner  *pairs.Scanner
	engine   *backtest.Engine
	store    RunStore
	archiver Archiver
	log      zerolog.Logger

	mu       sync.Mutex
	latestMu sync.RWMutex
	latest   *Report

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSub     int
}

// NewService wires the pipeline. store may be nil, in which case runs are not persisted.
func NewService(cfg Config, source SeriesSource, scanner *pairs.Scanner, store RunStore, log zerolog.Logger) (*Service, error) {
	engine, err := backtest.NewEngine(cfg.Backtest, log)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:     cfg,
		source:  source,
		scanner: scanner,
		engine:  engine,
		store:   store,
		log:     log.With().Str("service", "research").Logger(),
	}, nil
}

// SetArchiver enables archiving of persisted runs. Archive failures are
// reported as warnings and do not fail the run.
func (s *Service) SetArchiver(a Archiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archiver = a
}

// Run executes the pipeline once.
//
// "No usable data", "no candidates" and "degenerate spread" are reported through
// Report.Outcome with a nil error. The error is reserved for failures of the
// price source, the scan itself or persistence.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report, err := s.run(ctx)
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	report.StartedAt = start.UTC()
	report.FinishedAt = time.Now().UTC()
	metrics.PipelineRuns.WithLabelValues(string(report.Outcome)).Inc()
	s.latestMu.Lock()
	s.latest = report
	s.latestMu.Unlock()
	s.publish(report)

	event := s.log.Info()
	if report.Outcome != OutcomeCompleted {
		event = s.log.Warn().Err(report.Err())
	}
	event.
		Str("outcome", string(report.Outcome)).
		Int("instruments", report.Instruments).
		Int("candidates", len(report.Candidates)).
		Int("warnings", len(report.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("Research pipeline finished")

	return report, nil
}

// Latest returns the report of the most recent successful run, or nil
func (s *Service) Latest() *Report {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return s.latest
}

func (s *Service) run(ctx context.Context) (*Report, error) {
	report := &Report{
		Warnings:   make([]string, 0),
		Candidates: make([]pairs.Candidate, 0),
	}

	loaded := utils.StageTimer("load", s.log)
	universe, warnings, err := s.source.LoadUniverse(ctx, s.cfg.Universe)
	loaded()
	if err != nil {
		return nil, fmt.Errorf("failed to load price universe: %w", err)
	}
	report.Warnings = append(report.Warnings, warnings...)
	report.Instruments = len(universe)

	if len(universe) < 2 {
		report.Outcome = OutcomeNoData
		return report, nil
	}

	scanned := utils.StageTimer("scan", s.log)
	candidates, err := s.scanner.Scan(ctx, universe, s.cfg.Significance, s.cfg.MaxCandidates)
	scanned()
	if err != nil {
		return nil, fmt.Errorf("pair scan failed: %w", err)
	}
	report.Candidates = candidates
	if len(candidates) == 0 {
		report.Outcome = OutcomeNoCandidates
		return report, nil
	}

	// Degenerate pairs are skipped; the run backtests the best pair with a usable spread.
	var (
		best pairs.Candidate
		sp   *spread.Spread
	)
	for i, c := range candidates {
		aligned := prices.Align(universe[c.SymbolA], universe[c.SymbolB])
		pairSpread, err := spread.New(aligned, s.cfg.Backtest.Spread)
		if errors.Is(err, domain.ErrDegenerateSpread) {
			report.Warnings = append(report.Warnings, "pair skipped: "+err.Error())
			if i == 0 {
				first := c
				report.Best = &first
				report.Spread = pairSpread
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("spread of %s/%s: %w", c.SymbolA, c.SymbolB, err)
		}
		best, sp = c, pairSpread
		break
	}
	if sp == nil {
		report.Outcome = OutcomeDegenerateSpread
		return report, nil
	}
	report.Best = &best
	report.Spread = nil

	simulated := utils.StageTimer("backtest", s.log)
	result, err := s.engine.Simulate(sp)
	simulated()
	if err != nil {
		return nil, fmt.Errorf("backtest of %s/%s: %w", best.SymbolA, best.SymbolB, err)
	}
	report.Backtest = result

	summary := ledger.SummarizeResult(result)
	report.Summary = &summary
	report.Outcome = OutcomeCompleted
	metrics.LastReturnPct.Set(summary.ReturnPct)

	if result.Open != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%s position opened %s still open at end of series; unrealized profit %.2f excluded from ledger",
			result.Open.Direction, result.Open.EntryTime.Format("2006-01-02"), result.Open.UnrealizedProfit))
	}

	if s.store != nil {
		run := ledger.NewRun(best, result)
		if err := s.store.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
		report.RunID = run.ID

		if s.archiver != nil {
			key, err := s.archiver.ArchiveRun(ctx, run)
			if err != nil {
				s.log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to archive run")
				report.Warnings = append(report.Warnings, err.Error())
			} else {
				report.ArchiveKey = key
			}
		}
	}

	return report, nil
}
