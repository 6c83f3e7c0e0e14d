package ledger

import (
	"testing"

	"github.com/aristath/pairlab/internal/modules/backtest"
	"github.com/stretchr/testify/assert"
)

func trade(dir backtest.Direction, profit float64) backtest.Trade {
	return backtest.Trade{Direction: dir, Profit: profit}
}

func TestSummarize(t *testing.T) {
	trades := []backtest.Trade{
		trade(backtest.DirectionShort, 150),
		trade(backtest.DirectionLong, -50),
		trade(backtest.DirectionLong, 250),
		trade(backtest.DirectionShort, 0),
		trade(backtest.DirectionLong, -100),
	}

	s := Summarize(trades, 1000, 1250)

	assert.False(t, s.Empty)
	assert.Equal(t, 5, s.TotalTrades)
	assert.Equal(t, 3, s.LongTrades)
	assert.Equal(t, 2, s.ShortTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 3, s.Losses) // zero profit counts as a loss
	assert.InDelta(t, 40.0, s.WinRate, 1e-9)
	assert.InDelta(t, 200.0, s.AvgWin, 1e-9)
	assert.InDelta(t, 250.0, s.LargestWin, 1e-9)
	assert.InDelta(t, -50.0, s.AvgLoss, 1e-9)
	assert.InDelta(t, -100.0, s.LargestLoss, 1e-9)
	assert.InDelta(t, 400.0/150.0, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 250.0, s.TotalProfit, 1e-9)
	assert.InDelta(t, 25.0, s.ReturnPct, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 1000, 1000)

	assert.True(t, s.Empty)
	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 0.0, s.ReturnPct)
	assert.Equal(t, 1000.0, s.InitialCapital)
}

func TestSummarize_OnlyWins(t *testing.T) {
	s := Summarize([]backtest.Trade{trade(backtest.DirectionLong, 10)}, 100, 110)

	assert.Equal(t, 0, s.Losses)
	assert.Equal(t, 0.0, s.LargestLoss)
	assert.Equal(t, 0.0, s.ProfitFactor)
	assert.InDelta(t, 100.0, s.WinRate, 1e-9)
}

func TestMaxDrawdownPct(t *testing.T) {
	tests := []struct {
		name     string
		capital  []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"flat", []float64{100, 100, 100}, 0},
		{"rising", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 120, 90, 130}, 25},
		{"deepest wins", []float64{100, 80, 100, 200, 150}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, MaxDrawdownPct(tt.capital), 1e-9)
		})
	}
}
