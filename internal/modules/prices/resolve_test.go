package prices

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/pairlab/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(d int) time.Time {
	return time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func Float(v float64) *float64 {
	return &v
}

func TestResolveSeries_PrefersAdjustedClose(t *testing.T) {
	bars := []DailyPrice{
		{Date: date(0), Close: Float(10), AdjustedClose: Float(9.5)},
		{Date: date(1), Close: Float(11), AdjustedClose: Float(10.5)},
		{Date: date(2), Close: Float(12)}, // no adjusted value: dropped
	}

	s, err := ResolveSeries("AAA", bars)
	require.NoError(t, err)

	assert.Equal(t, domain.PriceFieldAdjustedClose, s.Field)
	assert.Equal(t, []float64{9.5, 10.5}, s.Values())
}

func TestResolveSeries_FallsBackToClose(t *testing.T) {
	bars := []DailyPrice{
		{Date: date(1), Close: Float(11)},
		{Date: date(0), Close: Float(10)},
		{Date: date(2), Close: Float(math.NaN())},
		{Date: date(3), Close: Float(0)},
		{Date: date(4), Close: Float(-3)},
	}

	s, err := ResolveSeries("AAA", bars)
	require.NoError(t, err)

	assert.Equal(t, domain.PriceFieldClose, s.Field)
	assert.Equal(t, []float64{10, 11}, s.Values())
	assert.NoError(t, s.Validate())
}

func TestResolveSeries_DuplicateDateKeepsLast(t *testing.T) {
	bars := []DailyPrice{
		{Date: date(0), Close: Float(10)},
		{Date: date(0), Close: Float(10.25)},
		{Date: date(1), Close: Float(11)},
	}

	s, err := ResolveSeries("AAA", bars)
	require.NoError(t, err)
	assert.Equal(t, []float64{10.25, 11}, s.Values())
}

func TestResolveSeries_MissingPriceField(t *testing.T) {
	bars := []DailyPrice{
		{Date: date(0), Open: Float(10)},
		{Date: date(1), High: Float(11)},
	}

	_, err := ResolveSeries("AAA", bars)
	assert.ErrorIs(t, err, domain.ErrMissingPriceField)
}

func TestAlign_InnerJoin(t *testing.T) {
	a := domain.PriceSeries{Symbol: "A", Points: []domain.PricePoint{
		{Time: date(0), Price: 1},
		{Time: date(1), Price: 2},
		{Time: date(3), Price: 4},
		{Time: date(4), Price: 5},
	}}
	b := domain.PriceSeries{Symbol: "B", Points: []domain.PricePoint{
		{Time: date(1), Price: 20},
		{Time: date(2), Price: 30},
		{Time: date(4), Price: 50},
		{Time: date(5), Price: 60},
	}}

	aligned := Align(a, b)

	assert.Equal(t, "A", aligned.SymbolA)
	assert.Equal(t, "B", aligned.SymbolB)
	assert.Equal(t, []time.Time{date(1), date(4)}, aligned.Times)
	assert.Equal(t, []float64{2, 5}, aligned.X)
	assert.Equal(t, []float64{20, 50}, aligned.Y)
	assert.Equal(t, 2, aligned.Len())
}

func TestAlign_Disjoint(t *testing.T) {
	a := domain.PriceSeries{Symbol: "A", Points: []domain.PricePoint{{Time: date(0), Price: 1}}}
	b := domain.PriceSeries{Symbol: "B", Points: []domain.PricePoint{{Time: date(1), Price: 2}}}

	assert.Equal(t, 0, Align(a, b).Len())
}
