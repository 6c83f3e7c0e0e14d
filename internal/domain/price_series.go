// Package domain provides the core value types shared by the research modules.
package domain

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is one observation of an instrument's canonical price.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceSeries is a chronologically ordered price history for one instrument.
// Timestamps are strictly increasing and every price is finite.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Field  PriceField   `json:"field"`
	Points []PricePoint `json:"points"`
}

// PriceField names the column a canonical price was taken from.
type PriceField string

const (
	PriceFieldAdjustedClose PriceField = "adjusted_close"
	PriceFieldClose         PriceField = "close"
)

// Len returns the number of observations.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Values returns the prices in order.
func (s PriceSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Validate checks the series invariants.
func (s PriceSeries) Validate() error {
	if len(s.Points) == 0 {
		return fmt.Errorf("%s: %w", s.Symbol, ErrEmptySeries)
	}
	for i, p := range s.Points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return fmt.Errorf("%s: non-finite price at %s: %w", s.Symbol, p.Time.Format("2006-01-02"), ErrInvalidSeries)
		}
		if i > 0 && !p.Time.After(s.Points[i-1].Time) {
			return fmt.Errorf("%s: timestamps not strictly increasing at %s: %w", s.Symbol, p.Time.Format("2006-01-02"), ErrInvalidSeries)
		}
	}
	return nil
}
