package prices

import (
	"time"

	"github.com/aristath/pairlab/internal/domain"
)

// Align inner-joins two series on identical timestamps.
// Both inputs must be sorted; the result preserves chronological order.
func Align(a, b domain.PriceSeries) Aligned {
	capHint := a.Len()
	if b.Len() < capHint {
		capHint = b.Len()
	}

	out := Aligned{
		SymbolA: a.Symbol,
		SymbolB: b.Symbol,
		Times:   make([]time.Time, 0, capHint),
		X:       make([]float64, 0, capHint),
		Y:       make([]float64, 0, capHint),
	}

	i, j := 0, 0
	for i < len(a.Points) && j < len(b.Points) {
		ta, tb := a.Points[i].Time, b.Points[j].Time
		switch {
		case ta.Before(tb):
			i++
		case tb.Before(ta):
			j++
		default:
			out.Times = append(out.Times, ta)
			out.X = append(out.X, a.Points[i].Price)
			out.Y = append(out.Y, b.Points[j].Price)
			i++
			j++
		}
	}

	return out
}
