package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/pairlab/internal/metrics"
	"github.com/aristath/pairlab/internal/modules/prices"
	"github.com/aristath/pairlab/internal/modules/spread"
	"github.com/aristath/pairlab/pkg/logger"
	"github.com/rs/zerolog"
)

// Engine runs the threshold strategy
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine validates cfg and creates an engine
func NewEngine(cfg Config, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg: cfg,
		log: logger.Component(log, "backtest_engine"),
	}, nil
}

// Run builds the spread of an aligned pair and simulates the strategy on it.
// A degenerate spread is returned as an error and nothing is simulated.
func (e *Engine) Run(aligned prices.Aligned) (*Result, error) {
	s, err := spread.New(aligned, e.cfg.Spread)
	if err != nil {
		return nil, err
	}
	return e.Simulate(s)
}

// Simulate walks the z-scores from the second observation on.
//
// Capital changes only when a position closes. A NaN z-score (rolling warm-up)
// leaves the position unchanged.
func (e *Engine) Simulate(s *spread.Spread) (*Result, error) {
	n := s.Len()
	if n == 0 || len(s.ZScores) != n {
		return nil, fmt.Errorf("spread %s/%s has no z-scores", s.SymbolA, s.SymbolB)
	}

	size := e.cfg.InitialCapital * e.cfg.RiskFraction
	capital := e.cfg.InitialCapital

	result := &Result{
		SymbolA:        s.SymbolA,
		SymbolB:        s.SymbolB,
		HedgeRatio:     s.HedgeRatio,
		Spread:         s,
		Capital:        make([]float64, 0, n),
		Trades:         make([]Trade, 0),
		InitialCapital: e.cfg.InitialCapital,
		Config:         e.cfg,
	}
	result.Capital = append(result.Capital, capital)

	pos := Position{State: Flat}
	for t := 1; t < n; t++ {
		var closed *Trade
		pos, closed = e.step(pos, s, t, size)
		if closed != nil {
			capital += closed.Profit
			result.Trades = append(result.Trades, *closed)
			metrics.TradesClosed.WithLabelValues(string(closed.Direction)).Inc()
		}
		result.Capital = append(result.Capital, capital)
	}

	if pos.State != Flat {
		last := n - 1
		// A position opened on the last step is reported open, never closed at zero length.
		if e.cfg.CloseOpenAtEnd && pos.EntryIndex < last {
			trade := closeTrade(pos, s, last, size)
			trade.ForcedClose = true
			capital += trade.Profit
			result.Trades = append(result.Trades, trade)
			result.Capital[last] = capital
			metrics.TradesClosed.WithLabelValues(string(trade.Direction)).Inc()
		} else {
			result.Open = &OpenPosition{
				Direction:        pos.Direction(),
				EntryTime:        pos.EntryTime,
				EntrySpread:      pos.EntrySpread,
				EntryZ:           pos.EntryZ,
				LastSpread:       s.Values[last],
				UnrealizedProfit: profit(pos, s.Values[last], size),
			}
		}
	}

	result.FinalCapital = capital

	e.log.Info().
		Str("a", s.SymbolA).
		Str("b", s.SymbolB).
		Int("trades", len(result.Trades)).
		Bool("open_at_end", result.Open != nil).
		Float64("final_capital", capital).
		Msg("Backtest complete")

	return result, nil
}

// step applies the transition rules for observation t and returns the new position
// and the trade closed at t, if any. Entry and exit never happen on the same step.
func (e *Engine) step(pos Position, s *spread.Spread, t int, size float64) (Position, *Trade) {
	z := s.ZScores[t]
	if math.IsNaN(z) {
		return pos, nil
	}

	switch pos.State {
	case Flat:
		switch {
		case z > e.cfg.EntryThreshold:
			return openPosition(ShortSpread, s, t), nil
		case z < -e.cfg.EntryThreshold:
			return openPosition(LongSpread, s, t), nil
		}
	case LongSpread:
		if z > -e.cfg.ExitThreshold {
			trade := closeTrade(pos, s, t, size)
			return Position{State: Flat}, &trade
		}
	case ShortSpread:
		if z < e.cfg.ExitThreshold {
			trade := closeTrade(pos, s, t, size)
			return Position{State: Flat}, &trade
		}
	}
	return pos, nil
}

func openPosition(state PositionState, s *spread.Spread, t int) Position {
	return Position{
		State:       state,
		EntryIndex:  t,
		EntryTime:   s.Times[t],
		EntrySpread: s.Values[t],
		EntryZ:      s.ZScores[t],
		EntryScale:  s.Scales[t],
	}
}

func closeTrade(pos Position, s *spread.Spread, t int, size float64) Trade {
	return Trade{
		EntryTime:   pos.EntryTime,
		ExitTime:    s.Times[t],
		Direction:   pos.Direction(),
		EntrySpread: pos.EntrySpread,
		ExitSpread:  s.Values[t],
		Profit:      profit(pos, s.Values[t], size),
		EntryZ:      pos.EntryZ,
		ExitZ:       s.ZScores[t],
		EntryIndex:  pos.EntryIndex,
		ExitIndex:   t,
	}
}

// profit is the spread move times size/std, std being the scale at entry.
// TODO: add dollar-neutral leg sizing as an alternative to the size/std quantity.
func profit(pos Position, exitSpread, size float64) float64 {
	qty := size / pos.EntryScale
	if pos.State == ShortSpread {
		return (pos.EntrySpread - exitSpread) * qty
	}
	return (exitSpread - pos.EntrySpread) * qty
}

// Run backtests y against x with the reference parameters and a daily index
// starting at the Unix epoch. It is the one-call form of NewEngine + Engine.Run.
func Run(x, y []float64, initialCapital, entryThreshold, exitThreshold float64) (*Result, error) {
	cfg := DefaultConfig()
	cfg.InitialCapital = initialCapital
	cfg.EntryThreshold = entryThreshold
	cfg.ExitThreshold = exitThreshold

	engine, err := NewEngine(cfg, zerolog.Nop())
	if err != nil {
		return nil, err
	}

	aligned := prices.Aligned{SymbolA: "x", SymbolB: "y", X: x, Y: y, Times: make([]time.Time, len(x))}
	epoch := time.Unix(0, 0).UTC()
	for i := range aligned.Times {
		aligned.Times[i] = epoch.AddDate(0, 0, i)
	}
	return engine.Run(aligned)
}
