// Package prices provides the price-series store and series alignment.
package prices

import (
	"time"
)

// DailyPrice is one OHLCV bar as stored in daily_prices.
// Close and AdjustedClose are nil when the source did not provide them.
type DailyPrice struct {
	Symbol        string    `json:"symbol"`
	Date          time.Time `json:"date"`
	Open          *float64  `json:"open,omitempty"`
	High          *float64  `json:"high,omitempty"`
	Low           *float64  `json:"low,omitempty"`
	Close         *float64  `json:"close,omitempty"`
	AdjustedClose *float64  `json:"adjusted_close,omitempty"`
	Volume        *int64    `json:"volume,omitempty"`
}

// Aligned holds two series restricted to their common timestamps.
// X and Y have the same length as Times.
type Aligned struct {
	SymbolA string
	SymbolB string
	Times   []time.Time
	X       []float64 // SymbolA prices
	Y       []float64 // SymbolB prices
}

// Len returns the number of common observations.
func (a Aligned) Len() int {
	return len(a.Times)
}
