package prices

import (
	"context"
	"strings"
	"testing"

	"github.com/aristath/pairlab/internal/domain"
	testutil "github.com/aristath/pairlab/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistoryDB(t *testing.T) *HistoryDB {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "history")
	t.Cleanup(cleanup)
	return NewHistoryDB(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestHistoryDB_SaveAndGet(t *testing.T) {
	h := newHistoryDB(t)
	ctx := context.Background()

	vol := int64(1200)
	bars := []DailyPrice{
		{Date: date(1), Open: Float(1), High: Float(2), Low: Float(0.5), Close: Float(1.5), AdjustedClose: Float(1.4), Volume: &vol},
		{Date: date(0), Close: Float(1.2)},
	}
	require.NoError(t, h.SaveDailyPrices(ctx, "AAA", bars))

	got, err := h.GetDailyPrices(ctx, "AAA")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, date(0), got[0].Date)
	assert.Nil(t, got[0].AdjustedClose)
	assert.Nil(t, got[0].Volume)
	assert.InDelta(t, 1.2, *got[0].Close, 1e-12)

	assert.Equal(t, date(1), got[1].Date)
	assert.InDelta(t, 1.4, *got[1].AdjustedClose, 1e-12)
	require.NotNil(t, got[1].Volume)
	assert.Equal(t, int64(1200), *got[1].Volume)
}

func TestHistoryDB_SaveReplacesExistingBar(t *testing.T) {
	h := newHistoryDB(t)
	ctx := context.Background()

	require.NoError(t, h.SaveDailyPrices(ctx, "AAA", []DailyPrice{{Date: date(0), Close: Float(1)}}))
	require.NoError(t, h.SaveDailyPrices(ctx, "AAA", []DailyPrice{{Date: date(0), Close: Float(2)}}))

	got, err := h.GetDailyPrices(ctx, "AAA")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 2.0, *got[0].Close, 1e-12)
}

func TestHistoryDB_LoadUniverse(t *testing.T) {
	h := newHistoryDB(t)
	ctx := context.Background()

	require.NoError(t, h.SaveDailyPrices(ctx, "BBB", []DailyPrice{
		{Date: date(0), Close: Float(10), AdjustedClose: Float(9)},
		{Date: date(1), Close: Float(11), AdjustedClose: Float(10)},
	}))
	require.NoError(t, h.SaveDailyPrices(ctx, "AAA", []DailyPrice{
		{Date: date(0), Close: Float(5)},
		{Date: date(1), Close: Float(6)},
	}))
	require.NoError(t, h.SaveDailyPrices(ctx, "CCC", []DailyPrice{
		{Date: date(0), Open: Float(1)},
	}))

	symbols, err := h.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, symbols)

	universe, warnings, err := h.LoadUniverse(ctx, nil)
	require.NoError(t, err)

	require.Len(t, universe, 2)
	assert.Equal(t, domain.PriceFieldClose, universe["AAA"].Field)
	assert.Equal(t, []float64{5, 6}, universe["AAA"].Values())
	assert.Equal(t, domain.PriceFieldAdjustedClose, universe["BBB"].Field)
	assert.Equal(t, []float64{9, 10}, universe["BBB"].Values())

	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "CCC"))
}

func TestHistoryDB_LoadUniverse_UnknownSymbol(t *testing.T) {
	h := newHistoryDB(t)

	universe, warnings, err := h.LoadUniverse(context.Background(), []string{"ZZZ"})
	require.NoError(t, err)
	assert.Empty(t, universe)
	assert.Equal(t, []string{"ZZZ: no price history"}, warnings)
}
