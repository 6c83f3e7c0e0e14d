package testing

import (
	"math/rand"
	"time"

	"github.com/aristath/pairlab/internal/domain"
)

// FixtureStart is the first timestamp of generated series.
var FixtureStart = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

// Day returns the i-th daily timestamp after FixtureStart.
func Day(i int) time.Time {
	return FixtureStart.AddDate(0, 0, i)
}

// RandomWalk returns n prices starting at start with N(0, step²) increments.
func RandomWalk(rng *rand.Rand, n int, start, step float64) []float64 {
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + rng.NormFloat64()*step
	}
	return out
}

// CointegratedPair returns x as a random walk and y = alpha + beta*x + AR(1) noise.
// The noise is mean-reverting with coefficient 0.5, so y-beta*x is stationary.
func CointegratedPair(seed int64, n int, alpha, beta float64) (x, y []float64) {
	rng := rand.New(rand.NewSource(seed))
	x = RandomWalk(rng, n, 100, 1)
	y = make([]float64, n)
	noise := 0.0
	for i := range x {
		noise = 0.5*noise + rng.NormFloat64()
		y[i] = alpha + beta*x[i] + noise
	}
	return x, y
}

// Series wraps values into a daily PriceSeries starting at FixtureStart.
func Series(symbol string, values []float64) domain.PriceSeries {
	points := make([]domain.PricePoint, len(values))
	for i, v := range values {
		points[i] = domain.PricePoint{Time: Day(i), Price: v}
	}
	return domain.PriceSeries{Symbol: symbol, Field: domain.PriceFieldAdjustedClose, Points: points}
}

// Universe builds a symbol -> series map from parallel slices.
func Universe(series ...domain.PriceSeries) map[string]domain.PriceSeries {
	out := make(map[string]domain.PriceSeries, len(series))
	for _, s := range series {
		out[s.Symbol] = s
	}
	return out
}
