// Package research runs the scan → spread → backtest → ledger pipeline.
package research

import (
	"context"
	"time"

	"github.com/aristath/pairlab/internal/domain"
	"github.com/aristath/pairlab/internal/modules/backtest"
	"github.com/aristath/pairlab/internal/modules/ledger"
	"github.com/aristath/pairlab/internal/modules/pairs"
	"github.com/aristath/pairlab/internal/modules/spread"
)

// Outcome is the terminal state of a pipeline run
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeNoData           Outcome = "no_data"
	OutcomeNoCandidates     Outcome = "no_candidates"
	OutcomeDegenerateSpread Outcome = "degenerate_spread"
)

// SeriesSource supplies canonical price series. Warnings name excluded instruments.
type SeriesSource interface {
	LoadUniverse(ctx context.Context, symbols []string) (map[string]domain.PriceSeries, []string, error)
}

// RunStore persists completed runs
type RunStore interface {
	Save(ctx context.Context, run *ledger.Run) error
}

// Archiver copies a persisted run to long-term storage and returns its location
type Archiver interface {
	ArchiveRun(ctx context.Context, run *ledger.Run) (string, error)
}

// Config holds pipeline parameters
type Config struct {
	Universe      []string
	Significance  float64
	MaxCandidates int
	Backtest      backtest.Config
}

// Report is the result of one pipeline run.
// Only a completed run carries a backtest and summary.
type Report struct {
	RunID       string            `json:"run_id,omitempty"`
	ArchiveKey  string            `json:"archive_key,omitempty"`
	Outcome     Outcome           `json:"outcome"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Instruments int               `json:"instruments"`
	Warnings    []string          `json:"warnings"`
	Candidates  []pairs.Candidate `json:"candidates"`
	Best        *pairs.Candidate  `json:"best,omitempty"`
	// Spread is set only when every candidate is degenerate; otherwise see Backtest.Spread.
	Spread   *spread.Spread   `json:"spread,omitempty"`
	Backtest *backtest.Result `json:"backtest,omitempty"`
	Summary  *ledger.Summary  `json:"summary,omitempty"`
}

// Err maps a non-completed outcome to its sentinel error
func (r *Report) Err() error {
	switch r.Outcome {
	case OutcomeNoData:
		return domain.ErrNoUsableData
	case OutcomeNoCandidates:
		return domain.ErrNoCandidates
	case OutcomeDegenerateSpread:
		return domain.ErrDegenerateSpread
	default:
		return nil
	}
}
