package pairs

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"time"

	"github.com/aristath/pairlab/internal/domain"
	"github.com/aristath/pairlab/internal/metrics"
	"github.com/aristath/pairlab/internal/modules/prices"
	"github.com/aristath/pairlab/pkg/formulas"
	"github.com/aristath/pairlab/pkg/logger"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Scanner runs the Engle-Granger screen over every unordered pair of a universe
type Scanner struct {
	cfg Config
	log zerolog.Logger
}

// NewScanner creates a scanner. Zero config fields take their defaults.
func NewScanner(cfg Config, log zerolog.Logger) *Scanner {
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = DefaultMinObservations
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Scanner{
		cfg: cfg,
		log: logger.Component(log, "pair_scanner"),
	}
}

type pairTask struct {
	index int
	a, b  domain.PriceSeries
}

type pairResult struct {
	candidate Candidate
	outcome   string
}

// Scan tests all unordered pairs and returns those with p-value < significance,
// sorted by p-value ascending (ties by enumeration order).
//
// Pairs are enumerated over symbols sorted ascending, i < j, with the first symbol as the
// regressor. Enumeration stops once maxCandidates pairs were accepted; with
// maxCandidates <= 0 every pair is tested. Pairs are evaluated concurrently in batches
// of Workers, and acceptance is counted in enumeration order, so the result does not
// depend on scheduling.
//
// Fewer than two instruments is not an error: the result is empty.
func (s *Scanner) Scan(ctx context.Context, universe map[string]domain.PriceSeries, significance float64, maxCandidates int) ([]Candidate, error) {
	start := time.Now()
	defer func() { metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	symbols := make([]string, 0, len(universe))
	for symbol, series := range universe {
		if series.Len() == 0 {
			continue
		}
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	candidates := make([]Candidate, 0)
	if len(symbols) < 2 {
		s.log.Info().Int("instruments", len(symbols)).Msg("Not enough instruments to form a pair")
		return candidates, nil
	}

	var tasks []pairTask
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			tasks = append(tasks, pairTask{
				index: len(tasks),
				a:     universe[symbols[i]],
				b:     universe[symbols[j]],
			})
		}
	}

	s.log.Info().
		Int("instruments", len(symbols)).
		Int("pairs", len(tasks)).
		Float64("significance", significance).
		Int("max_candidates", maxCandidates).
		Msg("Starting pair scan")

	tested := 0
scan:
	for lo := 0; lo < len(tasks); lo += s.cfg.Workers {
		hi := lo + s.cfg.Workers
		if hi > len(tasks) {
			hi = len(tasks)
		}
		batch := tasks[lo:hi]
		results := make([]pairResult, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for k := range batch {
			k := k
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[k] = s.evaluate(batch[k], significance)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, r := range results {
			tested++
			metrics.PairsEvaluated.WithLabelValues(r.outcome).Inc()
			if r.outcome != metrics.OutcomeAccepted && r.outcome != metrics.OutcomeDegenerate {
				continue
			}
			candidates = append(candidates, r.candidate)
			if maxCandidates > 0 && len(candidates) >= maxCandidates {
				break scan
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PValue != candidates[j].PValue {
			return candidates[i].PValue < candidates[j].PValue
		}
		return candidates[i].Index < candidates[j].Index
	})

	s.log.Info().
		Int("tested", tested).
		Int("accepted", len(candidates)).
		Dur("elapsed", time.Since(start)).
		Msg("Pair scan complete")

	return candidates, nil
}

// evaluate aligns, regresses and ADF-tests a single pair
func (s *Scanner) evaluate(task pairTask, significance float64) pairResult {
	aligned := prices.Align(task.a, task.b)
	log := s.log.With().Str("a", aligned.SymbolA).Str("b", aligned.SymbolB).Logger()

	if aligned.Len() < s.cfg.MinObservations {
		log.Debug().
			Int("observations", aligned.Len()).
			Int("required", s.cfg.MinObservations).
			Err(domain.ErrInsufficientData).
			Msg("Pair skipped")
		return pairResult{outcome: metrics.OutcomeInsufficient}
	}

	alpha, beta := formulas.LinearRegression(aligned.X, aligned.Y)
	resid := formulas.Residuals(aligned.X, aligned.Y, alpha, beta)

	candidate := Candidate{
		SymbolA:      aligned.SymbolA,
		SymbolB:      aligned.SymbolB,
		HedgeRatio:   beta,
		Intercept:    alpha,
		Observations: aligned.Len(),
		Index:        task.index,
	}

	// A constant residual is trivially stationary
	degenerate := formulas.IsDegenerate(formulas.StdDev(resid), formulas.MeanAbs(aligned.Y))
	var adf formulas.ADFResult
	if !degenerate {
		var err error
		adf, err = formulas.ADFTest(resid)
		if errors.Is(err, formulas.ErrConstantSeries) {
			degenerate = true
		} else if err != nil {
			log.Debug().Err(err).Msg("ADF test failed, pair skipped")
			return pairResult{outcome: metrics.OutcomeFailed}
		}
	}

	if degenerate {
		log.Warn().Float64("hedge_ratio", beta).Msg("Exact linear relation, residual has no variance")
		candidate.Degenerate = true
		candidate.PValue = 0
		candidate.ADFStatistic = 0
		return pairResult{candidate: candidate, outcome: metrics.OutcomeDegenerate}
	}

	candidate.PValue = adf.PValue
	candidate.ADFStatistic = adf.Statistic
	candidate.UsedLag = adf.UsedLag

	if adf.PValue >= significance {
		log.Debug().Float64("p_value", adf.PValue).Msg("Pair not cointegrated")
		return pairResult{outcome: metrics.OutcomeRejected}
	}

	log.Debug().Float64("p_value", adf.PValue).Float64("hedge_ratio", beta).Msg("Pair accepted")
	return pairResult{candidate: candidate, outcome: metrics.OutcomeAccepted}
}
