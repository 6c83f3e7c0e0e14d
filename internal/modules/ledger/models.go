package ledger

import (
	"errors"
	"time"

	"github.com/aristath/pairlab/internal/modules/backtest"
	"github.com/aristath/pairlab/internal/modules/pairs"
	"github.com/aristath/pairlab/pkg/formulas"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("backtest run not found")

// Run is a persisted backtest with its candidate statistics and trades.
type Run struct {
	ID             string           `json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	SymbolA        string           `json:"symbol_a"`
	SymbolB        string           `json:"symbol_b"`
	PValue         float64          `json:"p_value"`
	HedgeRatio     float64          `json:"hedge_ratio"`
	InitialCapital float64          `json:"initial_capital"`
	FinalCapital   float64          `json:"final_capital"`
	EntryThreshold float64          `json:"entry_threshold"`
	ExitThreshold  float64          `json:"exit_threshold"`
	RiskFraction   float64          `json:"risk_fraction"`
	Normalization  string           `json:"normalization"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        time.Time        `json:"end_date"`
	Observations   int              `json:"observations"`
	Trades         []backtest.Trade `json:"trades"`
	Summary        Summary          `json:"summary"`
	Series         *RunSeries       `json:"series,omitempty"`
}

// RunSeries holds the per-observation series of a run. Stored as a msgpack blob.
type RunSeries struct {
	Times   []int64         `json:"times" msgpack:"t"`
	Spread  formulas.Series `json:"spread" msgpack:"s"`
	ZScores formulas.Series `json:"z_scores" msgpack:"z"`
	Capital formulas.Series `json:"capital" msgpack:"c"`
}

// NewRun builds the record of a completed backtest on candidate.
func NewRun(candidate pairs.Candidate, result *backtest.Result) *Run {
	s := result.Spread
	run := &Run{
		SymbolA:        result.SymbolA,
		SymbolB:        result.SymbolB,
		PValue:         candidate.PValue,
		HedgeRatio:     result.HedgeRatio,
		InitialCapital: result.InitialCapital,
		FinalCapital:   result.FinalCapital,
		EntryThreshold: result.Config.EntryThreshold,
		ExitThreshold:  result.Config.ExitThreshold,
		RiskFraction:   result.Config.RiskFraction,
		Normalization:  string(s.Normalization),
		Observations:   s.Len(),
		Trades:         result.Trades,
		Summary:        SummarizeResult(result),
		Series: &RunSeries{
			Times:   make([]int64, len(s.Times)),
			Spread:  s.Values,
			ZScores: s.ZScores,
			Capital: result.Capital,
		},
	}
	for i, t := range s.Times {
		run.Series.Times[i] = t.Unix()
	}
	if n := len(s.Times); n > 0 {
		run.StartDate = s.Times[0]
		run.EndDate = s.Times[n-1]
	}
	return run
}
