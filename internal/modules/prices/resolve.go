package prices

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/pairlab/internal/domain"
)

// ResolveSeries builds the canonical price series of one instrument.
//
// The canonical field is adjusted close when any bar carries one, else close.
// Bars missing the chosen field (or holding a non-finite value) are dropped.
// Bars are sorted by date and duplicate dates keep the last bar seen.
// Returns ErrMissingPriceField when no bar has either field.
func ResolveSeries(symbol string, bars []DailyPrice) (domain.PriceSeries, error) {
	field := domain.PriceField("")
	for _, b := range bars {
		if validPrice(b.AdjustedClose) {
			field = domain.PriceFieldAdjustedClose
			break
		}
		if field == "" && validPrice(b.Close) {
			field = domain.PriceFieldClose
		}
	}
	if field == "" {
		return domain.PriceSeries{}, fmt.Errorf("%s: %w", symbol, domain.ErrMissingPriceField)
	}

	sorted := make([]DailyPrice, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	points := make([]domain.PricePoint, 0, len(sorted))
	for _, b := range sorted {
		v := b.Close
		if field == domain.PriceFieldAdjustedClose {
			v = b.AdjustedClose
		}
		if !validPrice(v) {
			continue
		}
		p := domain.PricePoint{Time: b.Date.UTC(), Price: *v}
		if n := len(points); n > 0 && points[n-1].Time.Equal(p.Time) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}

	return domain.PriceSeries{Symbol: symbol, Field: field, Points: points}, nil
}

func validPrice(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v > 0
}
