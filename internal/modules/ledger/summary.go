// Package ledger derives statistics from closed trades and persists backtest runs.
package ledger

import (
	"github.com/aristath/pairlab/internal/modules/backtest"
)

// Summary is the derived view of a trade list.
// Empty distinguishes a strategy that never traded from a failed run.
type Summary struct {
	Empty          bool    `json:"empty"`
	TotalTrades    int     `json:"total_trades"`
	LongTrades     int     `json:"long_trades"`
	ShortTrades    int     `json:"short_trades"`
	ForcedCloses   int     `json:"forced_closes"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"` // percent
	AvgWin         float64 `json:"avg_win"`
	LargestWin     float64 `json:"largest_win"`
	AvgLoss        float64 `json:"avg_loss"`
	LargestLoss    float64 `json:"largest_loss"` // most negative profit
	ProfitFactor   float64 `json:"profit_factor"`
	TotalProfit    float64 `json:"total_profit"`
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	ReturnPct      float64 `json:"return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// Summarize computes ledger statistics. A profit > 0 is a win, anything else a loss.
func Summarize(trades []backtest.Trade, initialCapital, finalCapital float64) Summary {
	s := Summary{
		Empty:          len(trades) == 0,
		TotalTrades:    len(trades),
		InitialCapital: initialCapital,
		FinalCapital:   finalCapital,
	}
	if initialCapital != 0 {
		s.ReturnPct = (finalCapital/initialCapital - 1) * 100
	}
	if s.Empty {
		return s
	}

	var grossWin, grossLoss float64
	first := true
	for _, t := range trades {
		switch t.Direction {
		case backtest.DirectionLong:
			s.LongTrades++
		case backtest.DirectionShort:
			s.ShortTrades++
		}
		if t.ForcedClose {
			s.ForcedCloses++
		}
		s.TotalProfit += t.Profit

		if t.Profit > 0 {
			s.Wins++
			grossWin += t.Profit
			if t.Profit > s.LargestWin {
				s.LargestWin = t.Profit
			}
			continue
		}

		s.Losses++
		grossLoss += t.Profit
		if first || t.Profit < s.LargestLoss {
			s.LargestLoss = t.Profit
			first = false
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	if s.Wins > 0 {
		s.AvgWin = grossWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss / float64(s.Losses)
	}
	if grossLoss < 0 {
		s.ProfitFactor = grossWin / -grossLoss
	}

	return s
}

// MaxDrawdownPct returns the largest peak-to-trough fall of a capital trajectory, in percent.
func MaxDrawdownPct(capital []float64) float64 {
	peak, worst := 0.0, 0.0
	for i, c := range capital {
		if i == 0 || c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := (peak - c) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// SummarizeResult summarizes a backtest result including its drawdown.
func SummarizeResult(r *backtest.Result) Summary {
	s := Summarize(r.Trades, r.InitialCapital, r.FinalCapital)
	s.MaxDrawdownPct = MaxDrawdownPct(r.Capital)
	return s
}
