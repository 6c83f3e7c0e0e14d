// Package backtest simulates a single-position threshold strategy on a z-scored spread.
package backtest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/pairlab/internal/domain"
	"github.com/aristath/pairlab/internal/modules/spread"
	"github.com/aristath/pairlab/pkg/formulas"
)

// PositionState is the state of the strategy's single position slot
type PositionState int

const (
	Flat PositionState = iota
	LongSpread
	ShortSpread
)

// String implements fmt.Stringer
func (s PositionState) String() string {
	switch s {
	case Flat:
		return "FLAT"
	case LongSpread:
		return "LONG_SPREAD"
	case ShortSpread:
		return "SHORT_SPREAD"
	default:
		return fmt.Sprintf("PositionState(%d)", int(s))
	}
}

// Direction labels a trade
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Position is the state value threaded through the simulation.
// Entry fields are only meaningful when State is not Flat.
type Position struct {
	State       PositionState
	EntryIndex  int
	EntryTime   time.Time
	EntrySpread float64
	EntryZ      float64
	EntryScale  float64
}

// Direction returns the trade direction of an open position.
func (p Position) Direction() Direction {
	if p.State == ShortSpread {
		return DirectionShort
	}
	return DirectionLong
}

// Trade is a closed round trip.
type Trade struct {
	EntryTime   time.Time `json:"entry_date"`
	ExitTime    time.Time `json:"exit_date"`
	Direction   Direction `json:"position"`
	EntrySpread float64   `json:"entry_spread"`
	ExitSpread  float64   `json:"exit_spread"`
	Profit      float64   `json:"profit"`
	EntryZ      float64   `json:"entry_z"`
	ExitZ       float64   `json:"exit_z"`
	ForcedClose bool      `json:"forced_close,omitempty"`
	EntryIndex  int       `json:"entry_index"`
	ExitIndex   int       `json:"exit_index"`
}

// MarshalJSON writes a non-finite z-score as null. A forced close during the
// rolling warm-up has no exit z-score.
func (t Trade) MarshalJSON() ([]byte, error) {
	type plain Trade
	return json.Marshal(struct {
		plain
		EntryZ *float64 `json:"entry_z"`
		ExitZ  *float64 `json:"exit_z"`
	}{
		plain:  plain(t),
		EntryZ: formulas.Nullable(t.EntryZ),
		ExitZ:  formulas.Nullable(t.ExitZ),
	})
}

// OpenPosition describes a position still open when the series ended.
// Its profit is unrealized and excluded from capital and the ledger.
type OpenPosition struct {
	Direction        Direction `json:"direction"`
	EntryTime        time.Time `json:"entry_date"`
	EntrySpread      float64   `json:"entry_spread"`
	EntryZ           float64   `json:"entry_z"`
	LastSpread       float64   `json:"last_spread"`
	UnrealizedProfit float64   `json:"unrealized_profit"`
}

// Config holds strategy parameters
type Config struct {
	InitialCapital float64 `json:"initial_capital" toml:"initial_capital"`
	EntryThreshold float64 `json:"entry_threshold" toml:"entry_threshold"`
	ExitThreshold  float64 `json:"exit_threshold" toml:"exit_threshold"`
	// RiskFraction of InitialCapital is allocated per trade
	RiskFraction float64 `json:"risk_fraction" toml:"risk_fraction"`
	// CloseOpenAtEnd force-closes a position still open at the last observation
	CloseOpenAtEnd bool           `json:"close_open_at_end" toml:"close_open_at_end"`
	Spread         spread.Options `json:"spread" toml:"spread"`
}

// Defaults
const (
	DefaultInitialCapital = 100000.0
	DefaultEntryThreshold = 1.0
	DefaultExitThreshold  = 0.2
	DefaultRiskFraction   = 0.10
)

// DefaultConfig returns the reference strategy parameters
func DefaultConfig() Config {
	return Config{
		InitialCapital: DefaultInitialCapital,
		EntryThreshold: DefaultEntryThreshold,
		ExitThreshold:  DefaultExitThreshold,
		RiskFraction:   DefaultRiskFraction,
		Spread:         spread.Options{Normalization: spread.NormalizationFullSample},
	}
}

// Validate checks parameter ranges
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %g: %w", c.InitialCapital, domain.ErrInvalidConfig)
	}
	if c.EntryThreshold <= 0 {
		return fmt.Errorf("entry threshold must be positive, got %g: %w", c.EntryThreshold, domain.ErrInvalidConfig)
	}
	if c.ExitThreshold < 0 {
		return fmt.Errorf("exit threshold must not be negative, got %g: %w", c.ExitThreshold, domain.ErrInvalidConfig)
	}
	if c.RiskFraction <= 0 || c.RiskFraction > 1 {
		return fmt.Errorf("risk fraction must be in (0, 1], got %g: %w", c.RiskFraction, domain.ErrInvalidConfig)
	}
	return c.Spread.Validate()
}

// Result is the outcome of one backtest.
// Capital has one value per observation: InitialCapital, then the capital after each step.
type Result struct {
	SymbolA        string          `json:"symbol_a"`
	SymbolB        string          `json:"symbol_b"`
	HedgeRatio     float64         `json:"hedge_ratio"`
	Spread         *spread.Spread  `json:"spread"`
	Capital        formulas.Series `json:"capital"`
	Trades         []Trade         `json:"trades"`
	Open           *OpenPosition   `json:"open,omitempty"`
	InitialCapital float64         `json:"initial_capital"`
	FinalCapital   float64         `json:"final_capital"`
	Config         Config          `json:"config"`
}
